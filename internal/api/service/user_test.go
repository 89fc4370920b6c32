package service

import (
	"context"
	"testing"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/stretchr/testify/require"
)

func TestChangeRole(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	events := NewUserEvents()
	svc := &UserService{Store: st, Events: events}

	admin := seedUser(t, st, "admin@example.com", domain.RoleAdmin)
	worker := seedUser(t, st, "worker@example.com", domain.RoleWorker)

	t.Run("promotes worker to admin", func(t *testing.T) {
		updated, err := svc.ChangeRole(ctx, admin.ID, worker.ID, domain.RoleAdmin)
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, updated.Role)
	})

	t.Run("rejects invalid role", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin.ID, worker.ID, "supervisor")
		require.ErrorIs(t, err, ErrInvalidRole)
		_, err = svc.ChangeRole(ctx, admin.ID, worker.ID, domain.RoleUnset)
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("rejects self change", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin.ID, admin.ID, domain.RoleWorker)
		require.ErrorIs(t, err, ErrSelfTarget)
	})

	t.Run("rejects unknown user", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, admin.ID, "nope", domain.RoleWorker)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("publishes to watchers", func(t *testing.T) {
		ch, cancel := events.Subscribe(worker.ID)
		defer cancel()

		_, err := svc.ChangeRole(ctx, admin.ID, worker.ID, domain.RoleWorker)
		require.NoError(t, err)

		select {
		case u := <-ch:
			require.Equal(t, domain.RoleWorker, u.Role)
		case <-time.After(time.Second):
			t.Fatal("expected a user event")
		}
	})
}

func TestAssignSites(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &UserService{Store: st, Events: NewUserEvents()}

	siteA := seedSite(t, st, "Obra A", domain.SiteActive)
	siteB := seedSite(t, st, "Obra B", domain.SiteActive)
	worker := seedUser(t, st, "w@example.com", domain.RoleWorker)

	t.Run("assigns memberships", func(t *testing.T) {
		updated, err := svc.AssignSites(ctx, worker.ID, []string{siteA.ID, siteB.ID})
		require.NoError(t, err)
		require.ElementsMatch(t, []string{siteA.ID, siteB.ID}, updated.Sites)
	})

	t.Run("replaces the set", func(t *testing.T) {
		updated, err := svc.AssignSites(ctx, worker.ID, []string{siteB.ID})
		require.NoError(t, err)
		require.Equal(t, []string{siteB.ID}, updated.Sites)
	})

	t.Run("rejects unknown site", func(t *testing.T) {
		_, err := svc.AssignSites(ctx, worker.ID, []string{"missing"})
		require.ErrorIs(t, err, ErrSiteNotFound)
	})

	t.Run("clears all memberships", func(t *testing.T) {
		updated, err := svc.AssignSites(ctx, worker.ID, nil)
		require.NoError(t, err)
		require.Empty(t, updated.Sites)
	})
}

func TestUpdateJobTitle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &UserService{Store: st}

	worker := seedUser(t, st, "w2@example.com", domain.RoleWorker)

	updated, err := svc.UpdateJobTitle(ctx, worker.ID, "  mestre de obras  ")
	require.NoError(t, err)
	require.Equal(t, "mestre de obras", updated.JobTitle)
	// The display label never touches the authorization role.
	require.Equal(t, domain.RoleWorker, updated.Role)
}

func TestUserEventsSubscription(t *testing.T) {
	events := NewUserEvents()

	ch1, cancel1 := events.Subscribe("u1")
	ch2, cancel2 := events.Subscribe("u1")
	defer cancel2()

	events.Publish(domain.User{ID: "u1", Role: domain.RoleAdmin})
	require.Equal(t, domain.RoleAdmin, (<-ch1).Role)
	require.Equal(t, domain.RoleAdmin, (<-ch2).Role)

	// A cancelled subscriber stops receiving; others are unaffected.
	cancel1()
	events.Publish(domain.User{ID: "u1", Role: domain.RoleWorker})
	require.Equal(t, domain.RoleWorker, (<-ch2).Role)
	select {
	case <-ch1:
		t.Fatal("cancelled subscriber received an event")
	default:
	}

	// Publishing to a user with no subscribers is a no-op.
	events.Publish(domain.User{ID: "nobody"})
}
