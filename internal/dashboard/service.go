package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"opsboard.io/internal/ids"
)

// Service defines the resource operations exposed behind the access gate.
type Service interface {
	ListProjects(ctx context.Context) ([]Project, error)
	CreateProject(ctx context.Context, in NewProject) (Project, error)
	// ListWorkLogs returns the user's logs, optionally restricted to one day
	// (YYYY-MM-DD, empty for all days).
	ListWorkLogs(ctx context.Context, userID, day string) ([]WorkLog, error)
	CreateWorkLog(ctx context.Context, in NewWorkLog) (WorkLog, error)
	Overview(ctx context.Context) (Overview, error)
}

type workLogRecord struct {
	WorkLog
	userID string
}

// InMemory implements Service with in-process concurrency safety.
type InMemory struct {
	mu       sync.RWMutex
	projects map[string]Project
	logs     []workLogRecord
	now      func() time.Time
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{projects: make(map[string]Project), now: time.Now}
}

// WithClock overrides the time source used for timestamps and the overview window.
func (s *InMemory) WithClock(fn func() time.Time) *InMemory {
	if fn != nil {
		s.now = fn
	}
	return s
}

func (s *InMemory) ListProjects(ctx context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemory) CreateProject(ctx context.Context, in NewProject) (Project, error) {
	if err := in.Normalize(); err != nil {
		return Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Project{
		ID:        ids.New(),
		Name:      in.Name,
		Status:    in.Status,
		StartDate: optional(in.StartDate),
		EndDate:   optional(in.EndDate),
		OwnerID:   in.OwnerID,
		CreatedAt: s.now().UTC(),
	}
	s.projects[p.ID] = p
	return p, nil
}

func (s *InMemory) ListWorkLogs(ctx context.Context, userID, day string) ([]WorkLog, error) {
	if day != "" {
		if _, err := ParseDay(day); err != nil {
			return nil, invalid("date must be YYYY-MM-DD.")
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WorkLog, 0)
	for _, rec := range s.logs {
		if rec.userID != userID || (day != "" && rec.WorkDate != day) {
			continue
		}
		wl := rec.WorkLog
		if wl.ProjectID != nil {
			if p, ok := s.projects[*wl.ProjectID]; ok {
				name := p.Name
				wl.ProjectName = &name
			}
		}
		out = append(out, wl)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WorkDate != out[j].WorkDate {
			return out[i].WorkDate > out[j].WorkDate
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) CreateWorkLog(ctx context.Context, in NewWorkLog) (WorkLog, error) {
	if err := in.Normalize(); err != nil {
		return WorkLog{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ProjectID != "" {
		if _, ok := s.projects[in.ProjectID]; !ok {
			return WorkLog{}, invalid("Unknown project.")
		}
	}
	wl := WorkLog{
		ID:          ids.New(),
		WorkDate:    in.WorkDate,
		Hours:       in.Hours,
		Description: optional(in.Description),
		ProjectID:   optional(in.ProjectID),
		CreatedAt:   s.now().UTC(),
	}
	s.logs = append(s.logs, workLogRecord{WorkLog: wl, userID: in.UserID})
	return wl, nil
}

func (s *InMemory) Overview(ctx context.Context) (Overview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, p := range s.projects {
		counts[p.Status]++
	}
	summary := make([]StatusCount, 0, len(counts))
	for status, total := range counts {
		summary = append(summary, StatusCount{Status: status, Total: total})
	}
	sort.Slice(summary, func(i, j int) bool { return summary[i].Status < summary[j].Status })

	cutoff := s.now().UTC().Truncate(24 * time.Hour).Add(-overviewWindow).Format(DateLayout)
	hours := make(map[string]float64)
	for _, rec := range s.logs {
		if rec.WorkDate >= cutoff {
			hours[rec.WorkDate] += rec.Hours
		}
	}
	daily := make([]DailyHours, 0, len(hours))
	for day, total := range hours {
		daily = append(daily, DailyHours{WorkDate: day, TotalHours: total})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].WorkDate > daily[j].WorkDate })

	return Overview{ProjectSummary: summary, LastWeekHours: daily}, nil
}
