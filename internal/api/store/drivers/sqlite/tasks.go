package sqlite

import (
	"context"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/store"
)

type tasksRepo struct {
	db dbtx
}

const taskColumns = `id, site_id, title, description, assignee_id, photo_url, status, created_at, updated_at`

func (r *tasksRepo) CreateTask(ctx context.Context, t domain.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, site_id, title, description, assignee_id, photo_url, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SiteID, t.Title, t.Description, t.AssigneeID, t.PhotoURL, string(t.Status),
		t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	return err
}

func (r *tasksRepo) GetTaskByID(ctx context.Context, id string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	var (
		t      domain.Task
		status string
	)
	err := row.Scan(
		&t.ID, &t.SiteID, &t.Title, &t.Description,
		&t.AssigneeID, &t.PhotoURL, &status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Task{}, mapNotFound(err)
	}
	t.Status = domain.TaskStatus(status)
	return t, nil
}

func (r *tasksRepo) ListTasks(ctx context.Context, siteID string, status domain.TaskStatus) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if siteID != "" {
		query += ` AND site_id = ?`
		args = append(args, siteID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var (
			t         domain.Task
			rowStatus string
		)
		err := rows.Scan(
			&t.ID, &t.SiteID, &t.Title, &t.Description,
			&t.AssigneeID, &t.PhotoURL, &rowStatus, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		t.Status = domain.TaskStatus(rowStatus)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *tasksRepo) UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), taskID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *tasksRepo) SetTaskPhotoURL(ctx context.Context, taskID string, url string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET photo_url = ?, updated_at = ? WHERE id = ?`,
		url, time.Now().UTC(), taskID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *tasksRepo) CountTasksByStatus(ctx context.Context, siteID string) (domain.Progress, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM tasks WHERE site_id = ? GROUP BY status`, siteID)
	if err != nil {
		return domain.Progress{}, err
	}
	defer rows.Close()

	p := domain.Progress{SiteID: siteID}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return domain.Progress{}, err
		}
		switch domain.TaskStatus(status) {
		case domain.TaskPending:
			p.Pending = count
		case domain.TaskInProgress:
			p.InProgress = count
		case domain.TaskCompleted:
			p.Completed = count
		}
		p.Total += count
	}
	if err := rows.Err(); err != nil {
		return domain.Progress{}, err
	}

	if p.Total > 0 {
		p.Percent = float64(p.Completed) / float64(p.Total) * 100
	}
	return p, nil
}
