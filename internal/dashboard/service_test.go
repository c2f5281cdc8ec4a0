package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateProjectDefaultsStatus(t *testing.T) {
	s := NewInMemory()
	p, err := s.CreateProject(context.Background(), NewProject{Name: "  Website revamp ", OwnerID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Website revamp" || p.Status != DefaultProjectStatus {
		t.Fatalf("unexpected project: %#v", p)
	}
	if p.StartDate != nil || p.EndDate != nil {
		t.Fatalf("expected nil dates, got %v %v", p.StartDate, p.EndDate)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	cases := []struct {
		name string
		in   NewProject
		msg  string
	}{
		{"missing name", NewProject{Name: "   ", OwnerID: "u1"}, "Project name is required."},
		{"missing owner", NewProject{Name: "x"}, "Project owner is required."},
		{"bad start", NewProject{Name: "x", OwnerID: "u1", StartDate: "03/01/2025"}, "startDate must be YYYY-MM-DD."},
		{"end before start", NewProject{Name: "x", OwnerID: "u1", StartDate: "2025-03-10", EndDate: "2025-03-01"}, "endDate must not be before startDate."},
	}
	s := NewInMemory()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateProject(context.Background(), tc.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Message != tc.msg {
				t.Fatalf("unexpected message: %v", err)
			}
		})
	}
}

func TestListProjectsNewestFirst(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := now
	s := NewInMemory().WithClock(func() time.Time { return clock })
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		clock = now.Add(time.Duration(i) * time.Minute)
		if _, err := s.CreateProject(ctx, NewProject{Name: fmt.Sprintf("p%d", i), OwnerID: "u1"}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].Name != "p2" || list[2].Name != "p0" {
		t.Fatalf("unexpected order: %#v", list)
	}
}

func TestWorkLogsScopedToUserAndDay(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	p, _ := s.CreateProject(ctx, NewProject{Name: "Billing", OwnerID: "u1"})

	entries := []NewWorkLog{
		{UserID: "u1", ProjectID: p.ID, WorkDate: "2025-03-10", Hours: 3, Description: "invoices"},
		{UserID: "u1", WorkDate: "2025-03-09", Hours: 2},
		{UserID: "u2", WorkDate: "2025-03-10", Hours: 8},
	}
	for _, in := range entries {
		if _, err := s.CreateWorkLog(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListWorkLogs(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].WorkDate != "2025-03-10" || all[1].WorkDate != "2025-03-09" {
		t.Fatalf("unexpected logs: %#v", all)
	}
	if all[0].ProjectName == nil || *all[0].ProjectName != "Billing" {
		t.Fatalf("expected project name on joined log, got %v", all[0].ProjectName)
	}
	if all[1].ProjectID != nil || all[1].ProjectName != nil {
		t.Fatalf("expected unassigned log, got %#v", all[1])
	}

	day, err := s.ListWorkLogs(ctx, "u1", "2025-03-09")
	if err != nil {
		t.Fatal(err)
	}
	if len(day) != 1 || day[0].Hours != 2 {
		t.Fatalf("unexpected day filter result: %#v", day)
	}

	if _, err := s.ListWorkLogs(ctx, "u1", "yesterday"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad date, got %v", err)
	}
}

func TestCreateWorkLogValidation(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	cases := []struct {
		name string
		in   NewWorkLog
		msg  string
	}{
		{"missing date", NewWorkLog{UserID: "u1", Hours: 1}, "Work date and hours are required."},
		{"missing hours", NewWorkLog{UserID: "u1", WorkDate: "2025-03-10"}, "Work date and hours are required."},
		{"bad date", NewWorkLog{UserID: "u1", WorkDate: "10.03.2025", Hours: 1}, "workDate must be YYYY-MM-DD."},
		{"too many hours", NewWorkLog{UserID: "u1", WorkDate: "2025-03-10", Hours: 25}, "hours must be between 0 and 24."},
		{"negative hours", NewWorkLog{UserID: "u1", WorkDate: "2025-03-10", Hours: -1}, "hours must be between 0 and 24."},
		{"rounds to zero", NewWorkLog{UserID: "u1", WorkDate: "2025-03-10", Hours: 0.004}, "hours must be between 0 and 24."},
		{"malformed project", NewWorkLog{UserID: "u1", WorkDate: "2025-03-10", Hours: 1, ProjectID: "nope"}, "Unknown project."},
		{"unknown project", NewWorkLog{UserID: "u1", WorkDate: "2025-03-10", Hours: 1, ProjectID: "01HZY3Q8X6V9T2M4K7N5P0R1SA"}, "Unknown project."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateWorkLog(ctx, tc.in)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Message != tc.msg {
				t.Fatalf("expected %q, got %v", tc.msg, err)
			}
		})
	}
}

func TestCreateWorkLogRoundsHoursToCents(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	created, err := s.CreateWorkLog(ctx, NewWorkLog{UserID: "u1", WorkDate: "2025-03-10", Hours: 1.234})
	if err != nil {
		t.Fatalf("CreateWorkLog: %v", err)
	}
	if created.Hours != 1.23 {
		t.Fatalf("expected 1.23 hours, got %v", created.Hours)
	}
	logs, err := s.ListWorkLogs(ctx, "u1", "")
	if err != nil {
		t.Fatalf("ListWorkLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Hours != created.Hours {
		t.Fatalf("listed hours differ from created: %#v", logs)
	}
}

func TestOverviewCountsAndWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	s := NewInMemory().WithClock(fixedClock(now))
	ctx := context.Background()

	for _, status := range []string{"active", "active", "paused"} {
		if _, err := s.CreateProject(ctx, NewProject{Name: "p", Status: status, OwnerID: "u1"}); err != nil {
			t.Fatal(err)
		}
	}
	logs := []NewWorkLog{
		{UserID: "u1", WorkDate: "2025-03-10", Hours: 4},
		{UserID: "u2", WorkDate: "2025-03-10", Hours: 3.5},
		{UserID: "u1", WorkDate: "2025-03-03", Hours: 1},
		{UserID: "u1", WorkDate: "2025-03-02", Hours: 6},
	}
	for _, in := range logs {
		if _, err := s.CreateWorkLog(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	ov, err := s.Overview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []StatusCount{{Status: "active", Total: 2}, {Status: "paused", Total: 1}}
	if len(ov.ProjectSummary) != len(want) {
		t.Fatalf("unexpected summary: %#v", ov.ProjectSummary)
	}
	for i := range want {
		if ov.ProjectSummary[i] != want[i] {
			t.Fatalf("summary[%d] = %#v, want %#v", i, ov.ProjectSummary[i], want[i])
		}
	}
	if len(ov.LastWeekHours) != 2 {
		t.Fatalf("expected two days in window, got %#v", ov.LastWeekHours)
	}
	if ov.LastWeekHours[0] != (DailyHours{WorkDate: "2025-03-10", TotalHours: 7.5}) {
		t.Fatalf("unexpected latest day: %#v", ov.LastWeekHours[0])
	}
	if ov.LastWeekHours[1] != (DailyHours{WorkDate: "2025-03-03", TotalHours: 1}) {
		t.Fatalf("unexpected window edge: %#v", ov.LastWeekHours[1])
	}
}

func TestOverviewEmpty(t *testing.T) {
	ov, err := NewInMemory().Overview(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ov.ProjectSummary == nil || ov.LastWeekHours == nil {
		t.Fatalf("expected empty slices, got %#v", ov)
	}
}

func TestConcurrentWorkLogs(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CreateWorkLog(ctx, NewWorkLog{UserID: "u1", WorkDate: "2025-03-10", Hours: 0.5}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	logs, _ := s.ListWorkLogs(ctx, "u1", "2025-03-10")
	if len(logs) != 50 {
		t.Fatalf("expected 50 logs, got %d", len(logs))
	}
	seen := make(map[string]bool)
	for _, l := range logs {
		if seen[l.ID] {
			t.Fatalf("duplicate id %s", l.ID)
		}
		seen[l.ID] = true
	}
}
