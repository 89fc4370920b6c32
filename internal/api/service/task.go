package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/store"
	"github.com/obralimpa/obralimpa/pkg/idx"
	"github.com/obralimpa/obralimpa/pkg/slogx"
)

var (
	ErrInvalidTaskRequest = errors.New("task title and site are required")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrTaskNotFound       = errors.New("task not found")
	ErrSiteForbidden      = errors.New("user is not a member of this site")
)

type TaskService struct {
	Store store.Store
}

// CreateTask adds a task to a site. Admin only; workers receive tasks, they
// do not create them.
func (s *TaskService) CreateTask(ctx context.Context, siteID, title, description, assigneeID string) (domain.Task, error) {
	log := slogx.FromContext(ctx)

	title = strings.TrimSpace(title)
	if title == "" || siteID == "" {
		return domain.Task{}, ErrInvalidTaskRequest
	}

	// 1. The site must exist.
	if _, err := s.Store.Sites().GetSiteByID(ctx, siteID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Task{}, ErrSiteNotFound
		}
		return domain.Task{}, err
	}

	// 2. An assignee, when given, must be a member of the site.
	if assigneeID != "" {
		assignee, err := s.Store.Users().GetUserByID(ctx, assigneeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Task{}, ErrUserNotFound
			}
			return domain.Task{}, err
		}
		if !assignee.HasSite(siteID) {
			return domain.Task{}, ErrSiteForbidden
		}
	}

	now := time.Now().UTC()
	task := domain.Task{
		ID:          idx.New().String(),
		SiteID:      siteID,
		Title:       title,
		Description: strings.TrimSpace(description),
		AssigneeID:  assigneeID,
		Status:      domain.TaskPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Tasks().CreateTask(ctx, task); err != nil {
		log.Error("failed to create task", slog.Any("error", err))
		return domain.Task{}, err
	}

	log.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("site_id", siteID),
	)
	return task, nil
}

// ListTasksForUser returns a site's tasks. Workers may only read sites they
// are attached to; admins may read any site.
func (s *TaskService) ListTasksForUser(ctx context.Context, user domain.User, siteID string, status domain.TaskStatus) ([]domain.Task, error) {
	if status != "" && !domain.ValidTaskStatus(status) {
		return nil, ErrInvalidTaskStatus
	}
	if user.Role != domain.RoleAdmin {
		if siteID == "" {
			siteID = user.SiteID
		}
		if siteID == "" || !user.HasSite(siteID) {
			return nil, ErrSiteForbidden
		}
	}
	return s.Store.Tasks().ListTasks(ctx, siteID, status)
}

// UpdateTaskStatus assigns the new status. Workers may only touch tasks on
// their own sites; the optional photo URL is recorded alongside completion.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, user domain.User, taskID string, status domain.TaskStatus, photoURL string) (domain.Task, error) {
	log := slogx.FromContext(ctx)

	if !domain.ValidTaskStatus(status) {
		return domain.Task{}, ErrInvalidTaskStatus
	}

	task, err := s.Store.Tasks().GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Task{}, ErrTaskNotFound
		}
		return domain.Task{}, err
	}
	if user.Role != domain.RoleAdmin && !user.HasSite(task.SiteID) {
		return domain.Task{}, ErrSiteForbidden
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Tasks().UpdateTaskStatus(ctx, taskID, status); err != nil {
			return err
		}
		if photoURL != "" {
			return tx.Tasks().SetTaskPhotoURL(ctx, taskID, photoURL)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to update task",
			slog.String("task_id", taskID),
			slog.Any("error", err),
		)
		return domain.Task{}, err
	}

	task.Status = status
	if photoURL != "" {
		task.PhotoURL = photoURL
	}
	log.Info("task updated",
		slog.String("task_id", taskID),
		slog.String("status", string(status)),
	)
	return task, nil
}

// Progress aggregates a site's task counts for the progress screens.
// Workers may only query their own sites.
func (s *TaskService) Progress(ctx context.Context, user domain.User, siteID string) (domain.Progress, error) {
	if user.Role != domain.RoleAdmin {
		if siteID == "" {
			siteID = user.SiteID
		}
		if siteID == "" || !user.HasSite(siteID) {
			return domain.Progress{}, ErrSiteForbidden
		}
	}
	if _, err := s.Store.Sites().GetSiteByID(ctx, siteID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Progress{}, ErrSiteNotFound
		}
		return domain.Progress{}, err
	}
	return s.Store.Tasks().CountTasksByStatus(ctx, siteID)
}
