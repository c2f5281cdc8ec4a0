package httpapi

import (
	"net/http"

	"opsboard.io/internal/audit"
	"opsboard.io/internal/auth"
	"opsboard.io/internal/dashboard"
)

type createProjectRequest struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type createWorkLogRequest struct {
	ProjectID   string  `json:"projectId"`
	WorkDate    string  `json:"workDate"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
}

func (a *API) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projects, err := a.board.ListProjects(r.Context())
		if err != nil {
			a.fail(w, r, opListProjects, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
	case http.MethodPost:
		var req createProjectRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBodyError(w, r, err)
			return
		}
		id, _ := auth.IdentityFromContext(r.Context())
		p, err := a.board.CreateProject(r.Context(), dashboard.NewProject{
			Name:      req.Name,
			Status:    req.Status,
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			OwnerID:   id.SubjectID,
		})
		if err != nil {
			a.fail(w, r, opCreateProject, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "project.created", map[string]any{
			"project_id": p.ID,
			"status":     p.Status,
		})
		writeJSON(w, http.StatusCreated, map[string]any{"project": p})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleWorkLogs(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		logs, err := a.board.ListWorkLogs(r.Context(), id.SubjectID, r.URL.Query().Get("date"))
		if err != nil {
			a.fail(w, r, opListWorkLogs, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"workLogs": logs})
	case http.MethodPost:
		var req createWorkLogRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBodyError(w, r, err)
			return
		}
		wl, err := a.board.CreateWorkLog(r.Context(), dashboard.NewWorkLog{
			UserID:      id.SubjectID,
			ProjectID:   req.ProjectID,
			WorkDate:    req.WorkDate,
			Hours:       req.Hours,
			Description: req.Description,
		})
		if err != nil {
			a.fail(w, r, opCreateWorkLog, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "work_log.created", map[string]any{
			"work_log_id": wl.ID,
			"work_date":   wl.WorkDate,
			"hours":       wl.Hours,
		})
		writeJSON(w, http.StatusCreated, map[string]any{"workLog": wl})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ov, err := a.board.Overview(r.Context())
	if err != nil {
		a.fail(w, r, opOverview, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}
