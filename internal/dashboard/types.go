// Package dashboard holds the project and work-log resources that sit behind
// the access gate, and the manager overview built from them.
package dashboard

import (
	"errors"
	"math"
	"strings"
	"time"

	"opsboard.io/internal/ids"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"

	DefaultProjectStatus = "active"

	maxHoursPerEntry = 24
	overviewWindow   = 7 * 24 * time.Hour
)

// ErrInvalidInput matches every ValidationError.
var ErrInvalidInput = errors.New("dashboard: invalid input")

// ErrUnknownUser is returned when the acting user no longer exists.
var ErrUnknownUser = errors.New("dashboard: unknown user")

// ValidationError carries a client-facing message for a rejected request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string        { return e.Message }
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(msg string) error { return &ValidationError{Message: msg} }

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartDate *string   `json:"start_date"`
	EndDate   *string   `json:"end_date"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewProject is the input for creating a project; OwnerID is the caller.
type NewProject struct {
	Name      string
	Status    string
	StartDate string
	EndDate   string
	OwnerID   string
}

// Normalize validates the input and fills defaults.
func (p *NewProject) Normalize() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return invalid("Project name is required.")
	}
	if strings.TrimSpace(p.OwnerID) == "" {
		return invalid("Project owner is required.")
	}
	p.Status = strings.TrimSpace(p.Status)
	if p.Status == "" {
		p.Status = DefaultProjectStatus
	}
	p.StartDate = strings.TrimSpace(p.StartDate)
	p.EndDate = strings.TrimSpace(p.EndDate)
	start, err := parseOptionalDay(p.StartDate, "startDate")
	if err != nil {
		return err
	}
	end, err := parseOptionalDay(p.EndDate, "endDate")
	if err != nil {
		return err
	}
	if start != nil && end != nil && end.Before(*start) {
		return invalid("endDate must not be before startDate.")
	}
	return nil
}

type WorkLog struct {
	ID          string    `json:"id"`
	WorkDate    string    `json:"work_date"`
	Hours       float64   `json:"hours"`
	Description *string   `json:"description"`
	ProjectID   *string   `json:"project_id"`
	ProjectName *string   `json:"project_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewWorkLog is the input for recording hours; UserID is the caller.
type NewWorkLog struct {
	UserID      string
	ProjectID   string
	WorkDate    string
	Hours       float64
	Description string
}

// Normalize validates the input.
func (w *NewWorkLog) Normalize() error {
	w.WorkDate = strings.TrimSpace(w.WorkDate)
	if w.WorkDate == "" || w.Hours == 0 {
		return invalid("Work date and hours are required.")
	}
	if strings.TrimSpace(w.UserID) == "" {
		return invalid("Work log owner is required.")
	}
	if _, err := ParseDay(w.WorkDate); err != nil {
		return invalid("workDate must be YYYY-MM-DD.")
	}
	// Stored as numeric(5,2).
	w.Hours = math.Round(w.Hours*100) / 100
	if w.Hours <= 0 || w.Hours > maxHoursPerEntry {
		return invalid("hours must be between 0 and 24.")
	}
	w.Description = strings.TrimSpace(w.Description)
	w.ProjectID = strings.TrimSpace(w.ProjectID)
	if w.ProjectID != "" && !ids.Valid(w.ProjectID) {
		return invalid("Unknown project.")
	}
	return nil
}

type StatusCount struct {
	Status string `json:"status"`
	Total  int    `json:"total"`
}

type DailyHours struct {
	WorkDate   string  `json:"work_date"`
	TotalHours float64 `json:"total_hours"`
}

// Overview is the manager report: project counts by status and hours logged
// per day over the last week.
type Overview struct {
	ProjectSummary []StatusCount `json:"projectSummary"`
	LastWeekHours  []DailyHours  `json:"lastWeekHours"`
}

// ParseDay parses a YYYY-MM-DD calendar date.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

func parseOptionalDay(s, field string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := ParseDay(s)
	if err != nil {
		return nil, invalid(field + " must be YYYY-MM-DD.")
	}
	return &d, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
