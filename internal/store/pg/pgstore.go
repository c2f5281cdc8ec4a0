// Package pg is the PostgreSQL-backed dashboard store.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"opsboard.io/internal/dashboard"
	"opsboard.io/internal/ids"
)

const (
	foreignKeyViolation = "23503"

	projectOwnerFK = "projects_owner_id_fkey"
	workLogUserFK  = "work_logs_user_id_fkey"
)

type Store struct {
	db *sql.DB
}

var _ dashboard.Service = (*Store)(nil)

// Open connects through the pgx stdlib driver. The pool is not dialed until
// first use; call Ping to check connectivity.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) ListProjects(ctx context.Context) ([]dashboard.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, status, start_date, end_date, owner_id, created_at
		from projects
		order by created_at desc
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]dashboard.Project, 0)
	for rows.Next() {
		var p dashboard.Project
		var start, end sql.NullTime
		var owner sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &start, &end, &owner, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.StartDate = formatDay(start)
		p.EndDate = formatDay(end)
		p.OwnerID = owner.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateProject(ctx context.Context, in dashboard.NewProject) (dashboard.Project, error) {
	if err := in.Normalize(); err != nil {
		return dashboard.Project{}, err
	}
	p := dashboard.Project{
		ID:        ids.New(),
		Name:      in.Name,
		Status:    in.Status,
		StartDate: nullable(in.StartDate),
		EndDate:   nullable(in.EndDate),
		OwnerID:   in.OwnerID,
	}
	err := s.db.QueryRowContext(ctx, `
		insert into projects(id, name, status, start_date, end_date, owner_id)
		values ($1,$2,$3,$4,$5,$6)
		returning created_at
	`, p.ID, p.Name, p.Status, arg(p.StartDate), arg(p.EndDate), p.OwnerID).Scan(&p.CreatedAt)
	if err != nil {
		if fk, ok := foreignKeyFailure(err); ok && (fk == projectOwnerFK || fk == "") {
			return dashboard.Project{}, dashboard.ErrUnknownUser
		}
		return dashboard.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

func (s *Store) ListWorkLogs(ctx context.Context, userID, day string) ([]dashboard.WorkLog, error) {
	query := `
		select wl.id, wl.work_date, wl.hours::float8, wl.description, wl.project_id, p.name, wl.created_at
		from work_logs wl
		left join projects p on p.id = wl.project_id
		where wl.user_id = $1`
	args := []any{userID}
	if day != "" {
		if _, err := dashboard.ParseDay(day); err != nil {
			return nil, &dashboard.ValidationError{Message: "date must be YYYY-MM-DD."}
		}
		query += ` and wl.work_date = $2`
		args = append(args, day)
	}
	query += ` order by wl.work_date desc, wl.created_at desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work logs: %w", err)
	}
	defer rows.Close()

	out := make([]dashboard.WorkLog, 0)
	for rows.Next() {
		var wl dashboard.WorkLog
		var workDate time.Time
		var desc, projectID, projectName sql.NullString
		if err := rows.Scan(&wl.ID, &workDate, &wl.Hours, &desc, &projectID, &projectName, &wl.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan work log: %w", err)
		}
		wl.WorkDate = workDate.Format(dashboard.DateLayout)
		wl.Description = nullString(desc)
		wl.ProjectID = nullString(projectID)
		wl.ProjectName = nullString(projectName)
		out = append(out, wl)
	}
	return out, rows.Err()
}

func (s *Store) CreateWorkLog(ctx context.Context, in dashboard.NewWorkLog) (dashboard.WorkLog, error) {
	if err := in.Normalize(); err != nil {
		return dashboard.WorkLog{}, err
	}
	wl := dashboard.WorkLog{
		ID:          ids.New(),
		WorkDate:    in.WorkDate,
		Hours:       in.Hours,
		Description: nullable(in.Description),
		ProjectID:   nullable(in.ProjectID),
	}
	err := s.db.QueryRowContext(ctx, `
		insert into work_logs(id, user_id, project_id, work_date, hours, description)
		values ($1,$2,$3,$4,$5,$6)
		returning hours::float8, created_at
	`, wl.ID, in.UserID, arg(wl.ProjectID), wl.WorkDate, wl.Hours, arg(wl.Description)).Scan(&wl.Hours, &wl.CreatedAt)
	if err != nil {
		if fk, ok := foreignKeyFailure(err); ok {
			if fk == workLogUserFK {
				return dashboard.WorkLog{}, dashboard.ErrUnknownUser
			}
			return dashboard.WorkLog{}, &dashboard.ValidationError{Message: "Unknown project."}
		}
		return dashboard.WorkLog{}, fmt.Errorf("insert work log: %w", err)
	}
	return wl, nil
}

// Overview runs the status summary and the weekly hours queries concurrently.
func (s *Store) Overview(ctx context.Context) (dashboard.Overview, error) {
	var ov dashboard.Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.projectSummary(gctx)
		ov.ProjectSummary = summary
		return err
	})
	g.Go(func() error {
		hours, err := s.lastWeekHours(gctx)
		ov.LastWeekHours = hours
		return err
	})
	if err := g.Wait(); err != nil {
		return dashboard.Overview{}, err
	}
	return ov, nil
}

func (s *Store) projectSummary(ctx context.Context) ([]dashboard.StatusCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		select status, count(*)::int as total
		from projects
		group by status
		order by status
	`)
	if err != nil {
		return nil, fmt.Errorf("project summary: %w", err)
	}
	defer rows.Close()

	out := make([]dashboard.StatusCount, 0)
	for rows.Next() {
		var c dashboard.StatusCount
		if err := rows.Scan(&c.Status, &c.Total); err != nil {
			return nil, fmt.Errorf("scan project summary: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) lastWeekHours(ctx context.Context) ([]dashboard.DailyHours, error) {
	rows, err := s.db.QueryContext(ctx, `
		select work_date, sum(hours)::float8 as total_hours
		from work_logs
		where work_date >= current_date - interval '7 days'
		group by work_date
		order by work_date desc
	`)
	if err != nil {
		return nil, fmt.Errorf("last week hours: %w", err)
	}
	defer rows.Close()

	out := make([]dashboard.DailyHours, 0)
	for rows.Next() {
		var d dashboard.DailyHours
		var day time.Time
		if err := rows.Scan(&day, &d.TotalHours); err != nil {
			return nil, fmt.Errorf("scan last week hours: %w", err)
		}
		d.WorkDate = day.Format(dashboard.DateLayout)
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- helpers ---
func formatDay(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := t.Time.Format(dashboard.DateLayout)
	return &s
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func arg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// foreignKeyFailure reports whether err is a foreign key violation and which
// constraint it names.
func foreignKeyFailure(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
