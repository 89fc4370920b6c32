package api_test

import (
	"net/http"
	"testing"

	"github.com/obralimpa/obralimpa/pkg/sdk"
	"github.com/stretchr/testify/require"
)

// TestRoleGatingAndTasks drives the day-to-day flow: admin creates work on a
// site, the worker sees only its own site, completes a task with a photo, and
// progress reflects it.
func TestRoleGatingAndTasks(t *testing.T) {
	baseURL, cleanup := setupAPIContainer(t)
	defer cleanup()

	admin := loginAdmin(t, baseURL)

	siteA, err := admin.CreateSite(t.Context(), sdk.CreateSiteRequest{
		Name:    "Obra A",
		Address: "Rua A 1, Sao Paulo",
	})
	require.NoError(t, err)
	siteB, err := admin.CreateSite(t.Context(), sdk.CreateSiteRequest{
		Name:    "Obra B",
		Address: "Rua B 2, Sao Paulo",
	})
	require.NoError(t, err)

	_, err = admin.CreateInvite(t.Context(), sdk.CreateInviteRequest{
		Email:  "pedro@obralimpa.test",
		SiteID: siteA.ID,
	})
	require.NoError(t, err)

	worker, login := registerAndLogin(t, baseURL, "pedro@obralimpa.test", "Pedro")
	require.Equal(t, "worker", login.User.Role)

	// Admin-only endpoints are closed to workers.
	_, err = worker.CreateSite(t.Context(), sdk.CreateSiteRequest{Name: "X", Address: "Y"})
	assertAPIError(t, err, http.StatusForbidden, "worker creating a site")
	_, err = worker.CreateInvite(t.Context(), sdk.CreateInviteRequest{
		Email: "x@obralimpa.test", SiteID: siteA.ID,
	})
	assertAPIError(t, err, http.StatusForbidden, "worker creating an invite")
	_, err = worker.ListUsers(t.Context(), "")
	assertAPIError(t, err, http.StatusForbidden, "worker listing users")

	// The worker sees only its own site.
	sites, err := worker.ListSites(t.Context())
	require.NoError(t, err)
	require.Len(t, sites, 1)
	require.Equal(t, siteA.ID, sites[0].ID)

	// Admin creates tasks on both sites.
	task, err := admin.CreateTask(t.Context(), sdk.CreateTaskRequest{
		SiteID:     siteA.ID,
		Title:      "Limpar entulho do terreo",
		AssigneeID: login.User.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "pending", task.Status)

	other, err := admin.CreateTask(t.Context(), sdk.CreateTaskRequest{
		SiteID: siteB.ID,
		Title:  "Pintar fachada",
	})
	require.NoError(t, err)

	// Worker task visibility is scoped to its site.
	visible, err := worker.ListTasks(t.Context(), "", "")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, task.ID, visible[0].ID)

	_, err = worker.ListTasks(t.Context(), siteB.ID, "")
	assertAPIError(t, err, http.StatusForbidden, "worker reading another site's tasks")

	// Worker progresses and completes its task.
	updated, err := worker.UpdateTask(t.Context(), task.ID, sdk.UpdateTaskRequest{
		Status: "in_progress",
	})
	require.NoError(t, err)
	require.Equal(t, "in_progress", updated.Status)

	updated, err = worker.UpdateTask(t.Context(), task.ID, sdk.UpdateTaskRequest{
		Status:   "completed",
		PhotoURL: "https://cdn.obralimpa.test/photos/entulho.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, "completed", updated.Status)
	require.NotEmpty(t, updated.PhotoURL)

	// But not tasks outside its sites.
	_, err = worker.UpdateTask(t.Context(), other.ID, sdk.UpdateTaskRequest{Status: "completed"})
	assertAPIError(t, err, http.StatusForbidden, "worker updating another site's task")

	// Progress for the worker's site reflects the completion.
	progress, err := worker.SiteProgress(t.Context(), siteA.ID)
	require.NoError(t, err)
	require.Equal(t, 1, progress.Total)
	require.Equal(t, 1, progress.Completed)
	require.InDelta(t, 100.0, progress.Percent, 0.01)
}

// TestRoleChangeTakesEffect verifies a promotion invalidates old refresh
// tokens and opens the admin surfaces on the next login.
func TestRoleChangeTakesEffect(t *testing.T) {
	baseURL, cleanup := setupAPIContainer(t)
	defer cleanup()

	admin := loginAdmin(t, baseURL)

	site, err := admin.CreateSite(t.Context(), sdk.CreateSiteRequest{
		Name:    "Obra Central",
		Address: "Praca Central 1, Sao Paulo",
	})
	require.NoError(t, err)

	_, err = admin.CreateInvite(t.Context(), sdk.CreateInviteRequest{
		Email:  "chefe@obralimpa.test",
		SiteID: site.ID,
	})
	require.NoError(t, err)

	worker, login := registerAndLogin(t, baseURL, "chefe@obralimpa.test", "Chefe")
	require.NotContains(t, login.User.Surfaces, "admin")

	promoted, err := admin.ChangeRole(t.Context(), login.User.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, "admin", promoted.Role)
	require.Contains(t, promoted.Surfaces, "admin")

	// The old refresh token died with the role change.
	_, err = worker.Refresh(t.Context())
	assertAPIError(t, err, http.StatusUnauthorized, "refreshing with a revoked token")

	// A fresh login carries the new role end to end.
	relogin, err := worker.Login(t.Context(), sdk.LoginRequest{
		Email:    "chefe@obralimpa.test",
		Password: workerPassword,
	})
	require.NoError(t, err)
	require.Equal(t, "admin", relogin.User.Role)

	_, err = worker.ListUsers(t.Context(), "")
	require.NoError(t, err)

	// Admins cannot change their own role.
	me, err := admin.Me(t.Context())
	require.NoError(t, err)
	_, err = admin.ChangeRole(t.Context(), me.ID, "worker")
	assertAPIError(t, err, http.StatusForbidden, "admin self-demotion")
}

// TestHealthAndAuthLifecycle covers probes, refresh rotation and logout.
func TestHealthAndAuthLifecycle(t *testing.T) {
	baseURL, cleanup := setupAPIContainer(t)
	defer cleanup()

	client := sdk.NewClient(baseURL)
	require.NoError(t, client.Healthy(t.Context()))

	admin := loginAdmin(t, baseURL)

	first := admin.RefreshToken()
	_, err := admin.Refresh(t.Context())
	require.NoError(t, err)
	require.NotEqual(t, first, admin.RefreshToken(), "refresh must rotate the token")

	// The rotated-out token is dead.
	stale := sdk.NewClient(baseURL)
	stale.SetTokens("", first)
	_, err = stale.Refresh(t.Context())
	assertAPIError(t, err, http.StatusUnauthorized, "reusing a rotated refresh token")

	require.NoError(t, admin.Logout(t.Context()))
}
