package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"opsboard.io/internal/dashboard"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestListProjects(t *testing.T) {
	store, mock := newStore(t)
	created := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("from projects").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status", "start_date", "end_date", "owner_id", "created_at"}).
			AddRow("p2", "Billing", "active", start, nil, "u1", created).
			AddRow("p1", "Website", "paused", nil, nil, nil, created.Add(-time.Hour)))

	list, err := store.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(list))
	}
	if list[0].StartDate == nil || *list[0].StartDate != "2025-03-01" || list[0].EndDate != nil {
		t.Fatalf("unexpected dates: %#v", list[0])
	}
	if list[1].OwnerID != "" {
		t.Fatalf("expected empty owner, got %q", list[1].OwnerID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateProject(t *testing.T) {
	store, mock := newStore(t)
	created := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("insert into projects").
		WithArgs(sqlmock.AnyArg(), "Billing", dashboard.DefaultProjectStatus, "2025-03-01", nil, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	p, err := store.CreateProject(context.Background(), dashboard.NewProject{Name: "Billing", StartDate: "2025-03-01", OwnerID: "u1"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == "" || !p.CreatedAt.Equal(created) {
		t.Fatalf("unexpected project: %#v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateProjectRejectsBeforeQuery(t *testing.T) {
	store, mock := newStore(t)
	if _, err := store.CreateProject(context.Background(), dashboard.NewProject{OwnerID: "u1"}); !errors.Is(err, dashboard.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected queries: %v", err)
	}
}

func TestListWorkLogsWithDay(t *testing.T) {
	store, mock := newStore(t)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`left join projects p on p.id = wl.project_id\s+where wl.user_id = \$1 and wl.work_date = \$2`).
		WithArgs("u1", "2025-03-10").
		WillReturnRows(sqlmock.NewRows([]string{"id", "work_date", "hours", "description", "project_id", "name", "created_at"}).
			AddRow("w1", day, 3.5, "invoices", "p1", "Billing", day.Add(9*time.Hour)).
			AddRow("w2", day, 1.0, nil, nil, nil, day.Add(8*time.Hour)))

	logs, err := store.ListWorkLogs(context.Background(), "u1", "2025-03-10")
	if err != nil {
		t.Fatalf("ListWorkLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].WorkDate != "2025-03-10" || logs[0].Hours != 3.5 || *logs[0].ProjectName != "Billing" {
		t.Fatalf("unexpected first log: %#v", logs[0])
	}
	if logs[1].Description != nil || logs[1].ProjectID != nil || logs[1].ProjectName != nil {
		t.Fatalf("expected null columns to stay nil: %#v", logs[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListWorkLogsBadDay(t *testing.T) {
	store, _ := newStore(t)
	if _, err := store.ListWorkLogs(context.Background(), "u1", "today"); !errors.Is(err, dashboard.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateWorkLogUnknownProject(t *testing.T) {
	store, mock := newStore(t)
	projectID := "01HZY3Q8X6V9T2M4K7N5P0R1SA"

	mock.ExpectQuery("insert into work_logs").
		WithArgs(sqlmock.AnyArg(), "u1", projectID, "2025-03-10", 2.0, nil).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolation})

	_, err := store.CreateWorkLog(context.Background(), dashboard.NewWorkLog{UserID: "u1", ProjectID: projectID, WorkDate: "2025-03-10", Hours: 2})
	var verr *dashboard.ValidationError
	if !errors.As(err, &verr) || verr.Message != "Unknown project." {
		t.Fatalf("expected unknown project error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateProjectDeletedOwner(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery("insert into projects").
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolation, ConstraintName: projectOwnerFK})

	_, err := store.CreateProject(context.Background(), dashboard.NewProject{Name: "Billing", OwnerID: "gone"})
	if !errors.Is(err, dashboard.ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateWorkLogDeletedUser(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery("insert into work_logs").
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolation, ConstraintName: workLogUserFK})

	_, err := store.CreateWorkLog(context.Background(), dashboard.NewWorkLog{UserID: "gone", WorkDate: "2025-03-10", Hours: 2})
	if !errors.Is(err, dashboard.ErrUnknownUser) || errors.Is(err, dashboard.ErrInvalidInput) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateWorkLogReturnsStoredHours(t *testing.T) {
	store, mock := newStore(t)
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)insert into work_logs.*returning hours::float8, created_at`).
		WithArgs(sqlmock.AnyArg(), "u1", nil, "2025-03-10", 1.23, nil).
		WillReturnRows(sqlmock.NewRows([]string{"hours", "created_at"}).AddRow(1.23, created))

	wl, err := store.CreateWorkLog(context.Background(), dashboard.NewWorkLog{UserID: "u1", WorkDate: "2025-03-10", Hours: 1.234})
	if err != nil {
		t.Fatalf("CreateWorkLog: %v", err)
	}
	if wl.Hours != 1.23 || !wl.CreatedAt.Equal(created) {
		t.Fatalf("unexpected work log: %#v", wl)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateWorkLogDBError(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery("insert into work_logs").WillReturnError(errors.New("connection reset"))

	_, err := store.CreateWorkLog(context.Background(), dashboard.NewWorkLog{UserID: "u1", WorkDate: "2025-03-10", Hours: 2})
	if err == nil || errors.Is(err, dashboard.ErrInvalidInput) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestOverview(t *testing.T) {
	store, mock := newStore(t)
	mock.MatchExpectationsInOrder(false)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("group by status").
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).AddRow("active", 2).AddRow("paused", 1))
	mock.ExpectQuery("group by work_date").
		WillReturnRows(sqlmock.NewRows([]string{"work_date", "total_hours"}).AddRow(day, 7.5))

	ov, err := store.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(ov.ProjectSummary) != 2 || ov.ProjectSummary[0] != (dashboard.StatusCount{Status: "active", Total: 2}) {
		t.Fatalf("unexpected summary: %#v", ov.ProjectSummary)
	}
	if len(ov.LastWeekHours) != 1 || ov.LastWeekHours[0] != (dashboard.DailyHours{WorkDate: "2025-03-10", TotalHours: 7.5}) {
		t.Fatalf("unexpected hours: %#v", ov.LastWeekHours)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOverviewQueryFailure(t *testing.T) {
	store, mock := newStore(t)
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("group by status").WillReturnError(errors.New("boom"))
	mock.ExpectQuery("group by work_date").
		WillReturnRows(sqlmock.NewRows([]string{"work_date", "total_hours"}))

	if _, err := store.Overview(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
