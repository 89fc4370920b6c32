package service

import (
	"context"
	"testing"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TaskService{Store: st}

	site := seedSite(t, st, "Obra Tarefas", domain.SiteActive)
	worker := seedUser(t, st, "worker@example.com", domain.RoleWorker)
	require.NoError(t, st.Users().AddUserSite(ctx, worker.ID, site.ID))

	t.Run("creates pending task", func(t *testing.T) {
		task, err := svc.CreateTask(ctx, site.ID, "Limpar entulho", "Setor 3", worker.ID)
		require.NoError(t, err)
		require.Equal(t, domain.TaskPending, task.Status)
		require.Equal(t, worker.ID, task.AssigneeID)
	})

	t.Run("rejects empty title", func(t *testing.T) {
		_, err := svc.CreateTask(ctx, site.ID, "   ", "", "")
		require.ErrorIs(t, err, ErrInvalidTaskRequest)
	})

	t.Run("rejects unknown site", func(t *testing.T) {
		_, err := svc.CreateTask(ctx, idx.New().String(), "Algo", "", "")
		require.ErrorIs(t, err, ErrSiteNotFound)
	})

	t.Run("rejects assignee outside the site", func(t *testing.T) {
		outsider := seedUser(t, st, "outsider@example.com", domain.RoleWorker)
		_, err := svc.CreateTask(ctx, site.ID, "Algo", "", outsider.ID)
		require.ErrorIs(t, err, ErrSiteForbidden)
	})
}

func TestTaskVisibilityAndUpdates(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TaskService{Store: st}

	siteA := seedSite(t, st, "Obra A", domain.SiteActive)
	siteB := seedSite(t, st, "Obra B", domain.SiteActive)

	admin := seedUser(t, st, "admin@example.com", domain.RoleAdmin)
	worker := seedUser(t, st, "worker2@example.com", domain.RoleWorker)
	require.NoError(t, st.Users().AddUserSite(ctx, worker.ID, siteA.ID))
	require.NoError(t, st.Users().SetPrimarySiteIfUnset(ctx, worker.ID, siteA.ID))
	worker, err := st.Users().GetUserByID(ctx, worker.ID)
	require.NoError(t, err)

	taskA, err := svc.CreateTask(ctx, siteA.ID, "Varrer laje", "", worker.ID)
	require.NoError(t, err)
	taskB, err := svc.CreateTask(ctx, siteB.ID, "Pintar fachada", "", "")
	require.NoError(t, err)

	t.Run("worker sees own site by default", func(t *testing.T) {
		tasks, err := svc.ListTasksForUser(ctx, worker, "", "")
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		require.Equal(t, taskA.ID, tasks[0].ID)
	})

	t.Run("worker cannot read another site", func(t *testing.T) {
		_, err := svc.ListTasksForUser(ctx, worker, siteB.ID, "")
		require.ErrorIs(t, err, ErrSiteForbidden)
	})

	t.Run("admin reads any site", func(t *testing.T) {
		tasks, err := svc.ListTasksForUser(ctx, admin, siteB.ID, "")
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		require.Equal(t, taskB.ID, tasks[0].ID)
	})

	t.Run("worker completes a task with photo", func(t *testing.T) {
		updated, err := svc.UpdateTaskStatus(ctx, worker, taskA.ID, domain.TaskCompleted, "https://cdn.example.com/p/1.jpg")
		require.NoError(t, err)
		require.Equal(t, domain.TaskCompleted, updated.Status)
		require.Equal(t, "https://cdn.example.com/p/1.jpg", updated.PhotoURL)

		got, err := st.Tasks().GetTaskByID(ctx, taskA.ID)
		require.NoError(t, err)
		require.Equal(t, domain.TaskCompleted, got.Status)
		require.NotEmpty(t, got.PhotoURL)
	})

	t.Run("worker cannot touch another site's task", func(t *testing.T) {
		_, err := svc.UpdateTaskStatus(ctx, worker, taskB.ID, domain.TaskInProgress, "")
		require.ErrorIs(t, err, ErrSiteForbidden)
	})

	t.Run("bad status rejected", func(t *testing.T) {
		_, err := svc.UpdateTaskStatus(ctx, admin, taskB.ID, "done", "")
		require.ErrorIs(t, err, ErrInvalidTaskStatus)
	})

	t.Run("unknown task rejected", func(t *testing.T) {
		_, err := svc.UpdateTaskStatus(ctx, admin, idx.New().String(), domain.TaskCompleted, "")
		require.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestProgress(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TaskService{Store: st}

	site := seedSite(t, st, "Obra Progresso", domain.SiteActive)
	admin := seedUser(t, st, "admin@example.com", domain.RoleAdmin)

	t.Run("empty site reports zero percent", func(t *testing.T) {
		p, err := svc.Progress(ctx, admin, site.ID)
		require.NoError(t, err)
		require.Zero(t, p.Total)
		require.Zero(t, p.Percent)
	})

	t.Run("counts by status", func(t *testing.T) {
		for range 2 {
			_, err := svc.CreateTask(ctx, site.ID, "pendente", "", "")
			require.NoError(t, err)
		}
		task, err := svc.CreateTask(ctx, site.ID, "feita", "", "")
		require.NoError(t, err)
		_, err = svc.UpdateTaskStatus(ctx, admin, task.ID, domain.TaskCompleted, "")
		require.NoError(t, err)

		p, err := svc.Progress(ctx, admin, site.ID)
		require.NoError(t, err)
		require.Equal(t, 3, p.Total)
		require.Equal(t, 2, p.Pending)
		require.Equal(t, 1, p.Completed)
		require.InDelta(t, 33.33, p.Percent, 0.5)
	})

	t.Run("worker limited to own sites", func(t *testing.T) {
		stranger := seedUser(t, st, "stranger@example.com", domain.RoleWorker)
		_, err := svc.Progress(ctx, stranger, site.ID)
		require.ErrorIs(t, err, ErrSiteForbidden)
	})
}
