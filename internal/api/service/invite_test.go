package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/notify"
	"github.com/obralimpa/obralimpa/internal/api/store"
	"github.com/obralimpa/obralimpa/internal/api/store/drivers/sqlite"
	"github.com/obralimpa/obralimpa/pkg/idx"
	"github.com/stretchr/testify/require"
)

type capturedEvents struct {
	mu     sync.Mutex
	events []notify.InviteCreated
}

func (c *capturedEvents) Publish(ev notify.InviteCreated) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *capturedEvents) all() []notify.InviteCreated {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.InviteCreated(nil), c.events...)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedSite(t *testing.T, st store.Store, name string, status domain.SiteStatus) domain.Site {
	t.Helper()
	now := time.Now().UTC()
	site := domain.Site{
		ID:        idx.New().String(),
		Name:      name,
		Address:   "Av. Paulista 1000, Sao Paulo",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Sites().CreateSite(context.Background(), site))
	return site
}

func seedUser(t *testing.T, st store.Store, email string, role domain.Role) domain.User {
	t.Helper()
	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "argon2id:dummy",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))
	return user
}

func TestIssueInvite(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	events := &capturedEvents{}
	svc := &InviteService{Store: st, Notify: events}

	site := seedSite(t, st, "Torre Norte", domain.SiteActive)
	admin := seedUser(t, st, "admin@example.com", domain.RoleAdmin)

	t.Run("creates pending invite and publishes event", func(t *testing.T) {
		inv, err := svc.IssueInvite(ctx, "Worker@Example.com", site.ID, admin.ID)
		require.NoError(t, err)
		require.Equal(t, domain.InvitePending, inv.Status)
		require.Equal(t, "worker@example.com", inv.Email)

		evs := events.all()
		require.Len(t, evs, 1)
		require.Equal(t, inv.ID, evs[0].InviteID)
		require.Equal(t, site.Name, evs[0].SiteName)
	})

	t.Run("rejects duplicate pending invite", func(t *testing.T) {
		_, err := svc.IssueInvite(ctx, "worker@example.com", site.ID, admin.ID)
		require.ErrorIs(t, err, ErrDuplicatePendingInvite)
	})

	t.Run("allows a new invite once the first is cancelled", func(t *testing.T) {
		inv, err := st.Invites().GetPendingInvite(ctx, "worker@example.com", site.ID)
		require.NoError(t, err)
		require.NoError(t, svc.CancelInvite(ctx, inv.ID))

		_, err = svc.IssueInvite(ctx, "worker@example.com", site.ID, admin.ID)
		require.NoError(t, err)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		_, err := svc.IssueInvite(ctx, "not an email", site.ID, admin.ID)
		require.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("rejects unknown site", func(t *testing.T) {
		_, err := svc.IssueInvite(ctx, "other@example.com", idx.New().String(), admin.ID)
		require.ErrorIs(t, err, ErrSiteNotFound)
	})

	t.Run("rejects inactive site", func(t *testing.T) {
		closed := seedSite(t, st, "Obra Encerrada", domain.SiteInactive)
		_, err := svc.IssueInvite(ctx, "other@example.com", closed.ID, admin.ID)
		require.ErrorIs(t, err, ErrSiteInactive)
	})
}

func TestConsumeInvites(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes unset user to worker with memberships", func(t *testing.T) {
		st := newTestStore(t)
		svc := &InviteService{Store: st, Events: NewUserEvents()}

		siteA := seedSite(t, st, "Obra A", domain.SiteActive)
		siteB := seedSite(t, st, "Obra B", domain.SiteActive)
		admin := seedUser(t, st, "admin@example.com", domain.RoleAdmin)

		_, err := svc.IssueInvite(ctx, "w@example.com", siteA.ID, admin.ID)
		require.NoError(t, err)
		_, err = svc.IssueInvite(ctx, "w@example.com", siteB.ID, admin.ID)
		require.NoError(t, err)

		user := seedUser(t, st, "w@example.com", domain.RoleUnset)
		updated, n, err := svc.ConsumeInvites(ctx, user)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.Equal(t, domain.RoleWorker, updated.Role)
		require.ElementsMatch(t, []string{siteA.ID, siteB.ID}, updated.Sites)
		// Oldest invite decides the primary site.
		require.Equal(t, siteA.ID, updated.SiteID)

		// Invites are marked accepted with the consumer recorded.
		inv, err := st.Invites().ListInvites(ctx, siteA.ID, domain.InviteAccepted)
		require.NoError(t, err)
		require.Len(t, inv, 1)
		require.Equal(t, user.ID, inv[0].AcceptedBy)
	})

	t.Run("no pending invites is a no-op", func(t *testing.T) {
		st := newTestStore(t)
		svc := &InviteService{Store: st}
		user := seedUser(t, st, "lonely@example.com", domain.RoleUnset)

		updated, n, err := svc.ConsumeInvites(ctx, user)
		require.NoError(t, err)
		require.Zero(t, n)
		require.Equal(t, domain.RoleUnset, updated.Role)
	})

	t.Run("admin role is preserved", func(t *testing.T) {
		st := newTestStore(t)
		svc := &InviteService{Store: st}

		site := seedSite(t, st, "Obra C", domain.SiteActive)
		issuer := seedUser(t, st, "root@example.com", domain.RoleAdmin)
		_, err := svc.IssueInvite(ctx, "boss@example.com", site.ID, issuer.ID)
		require.NoError(t, err)

		admin := seedUser(t, st, "boss@example.com", domain.RoleAdmin)
		updated, n, err := svc.ConsumeInvites(ctx, admin)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, domain.RoleAdmin, updated.Role)
		require.True(t, updated.HasSite(site.ID))
	})

	t.Run("concurrent acceptance succeeds exactly once", func(t *testing.T) {
		st := newTestStore(t)
		admin := seedUser(t, st, "admin2@example.com", domain.RoleAdmin)
		site := seedSite(t, st, "Obra D", domain.SiteActive)

		now := time.Now().UTC()
		inv := domain.Invite{
			ID:        idx.New().String(),
			Email:     "race@example.com",
			SiteID:    site.ID,
			Status:    domain.InvitePending,
			CreatedBy: admin.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, st.Invites().CreateInvite(ctx, inv))

		userA := seedUser(t, st, "race@example.com", domain.RoleUnset)
		userB := seedUser(t, st, "race2@example.com", domain.RoleUnset)

		var wg sync.WaitGroup
		results := make([]bool, 2)
		errs := make([]error, 2)
		for i, uid := range []string{userA.ID, userB.ID} {
			wg.Add(1)
			go func(i int, uid string) {
				defer wg.Done()
				results[i], errs[i] = st.Invites().AcceptInvite(ctx, inv.ID, uid)
			}(i, uid)
		}
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		require.NotEqual(t, results[0], results[1], "exactly one acceptance must win")

		got, err := st.Invites().GetInviteByID(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, domain.InviteAccepted, got.Status)
	})
}

func TestCancelInvite(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &InviteService{Store: st}

	site := seedSite(t, st, "Obra E", domain.SiteActive)
	admin := seedUser(t, st, "admin3@example.com", domain.RoleAdmin)

	inv, err := svc.IssueInvite(ctx, "cancel@example.com", site.ID, admin.ID)
	require.NoError(t, err)

	t.Run("pending invite cancels", func(t *testing.T) {
		require.NoError(t, svc.CancelInvite(ctx, inv.ID))
		got, err := svc.GetInvite(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, domain.InviteCancelled, got.Status)
	})

	t.Run("terminal invite reports not pending", func(t *testing.T) {
		require.ErrorIs(t, svc.CancelInvite(ctx, inv.ID), ErrInviteNotPending)
	})

	t.Run("unknown invite reports not found", func(t *testing.T) {
		require.ErrorIs(t, svc.CancelInvite(ctx, idx.New().String()), ErrInviteNotFound)
	})
}

func TestExpireSweep(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &InviteService{Store: st}

	site := seedSite(t, st, "Obra F", domain.SiteActive)
	admin := seedUser(t, st, "admin4@example.com", domain.RoleAdmin)

	old := domain.Invite{
		ID:        idx.New().String(),
		Email:     "stale@example.com",
		SiteID:    site.ID,
		Status:    domain.InvitePending,
		CreatedBy: admin.ID,
		CreatedAt: time.Now().UTC().Add(-30 * 24 * time.Hour),
		UpdatedAt: time.Now().UTC().Add(-30 * 24 * time.Hour),
	}
	require.NoError(t, st.Invites().CreateInvite(ctx, old))

	// The store must persist the caller's timestamps; the sweep cutoff keys
	// off created_at.
	stored, err := st.Invites().GetInviteByID(ctx, old.ID)
	require.NoError(t, err)
	require.WithinDuration(t, old.CreatedAt, stored.CreatedAt, time.Second)

	fresh, err := svc.IssueInvite(ctx, "fresh@example.com", site.ID, admin.ID)
	require.NoError(t, err)

	n, err := st.Invites().ExpirePendingInvitesBefore(ctx, time.Now().UTC().Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	gotOld, err := st.Invites().GetInviteByID(ctx, old.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InviteExpired, gotOld.Status)

	gotFresh, err := st.Invites().GetInviteByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvitePending, gotFresh.Status)

	// An expired invite is not consumable.
	user := seedUser(t, st, "stale@example.com", domain.RoleUnset)
	_, consumed, err := svc.ConsumeInvites(ctx, user)
	require.NoError(t, err)
	require.Zero(t, consumed)
}
