package httpapi

import (
	"net/http"

	"opsboard.io/internal/audit"
	"opsboard.io/internal/auth"
	"opsboard.io/internal/obs"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  auth.PublicUser `json:"user"`
	Token string          `json:"token"`
}

type meUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	res, err := a.auth.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	a.recordAuth(r, "register", res, err)
	if err != nil {
		a.fail(w, r, opRegister, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: res.User, Token: res.Token})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	res, err := a.auth.Login(r.Context(), req.Email, req.Password)
	a.recordAuth(r, "login", res, err)
	if err != nil {
		a.fail(w, r, opLogin, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: res.User, Token: res.Token})
}

// handleMe echoes the identity carried by the token.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": meUser{ID: id.SubjectID, Email: id.Email, Role: id.Role},
	})
}

// recordAuth counts the attempt and writes an audit line. The submitted email
// is logged only on success; passwords and tokens never are.
func (a *API) recordAuth(r *http.Request, op string, res auth.Result, err error) {
	out := outcome(err)
	obs.RecordAuthAttempt(op, out)
	fields := map[string]any{"outcome": out}
	if err == nil {
		fields["user_id"] = res.User.ID
		fields["email"] = res.User.Email
		fields["expires_at"] = res.ExpiresAt
	}
	_ = audit.LogEvent(r.Context(), "auth."+op, fields)
}

// fail writes the mapped error and logs server-side failures with detail.
func (a *API) fail(w http.ResponseWriter, r *http.Request, op operation, err error) {
	code, msg := errorResponse(op, err)
	if code >= http.StatusInternalServerError {
		obs.Error("request failed", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"op":         string(op),
			"error":      err.Error(),
		})
	}
	writeError(w, r, code, msg)
}
