package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSurfacesForRole(t *testing.T) {
	t.Parallel()

	t.Run("admin sees every surface", func(t *testing.T) {
		got := SurfacesForRole(RoleAdmin)
		require.Equal(t, []Surface{
			SurfaceTasks, SurfaceAdmin, SurfaceProgress, SurfaceInvites, SurfaceProfile,
		}, got)
	})

	t.Run("worker never sees admin or invites", func(t *testing.T) {
		got := SurfacesForRole(RoleWorker)
		require.Equal(t, []Surface{SurfaceTasks, SurfaceProgress, SurfaceProfile}, got)
		require.NotContains(t, got, SurfaceAdmin)
		require.NotContains(t, got, SurfaceInvites)
	})

	t.Run("unset role sees nothing", func(t *testing.T) {
		require.Empty(t, SurfacesForRole(RoleUnset))
	})

	t.Run("idempotent for an unchanged role", func(t *testing.T) {
		first := SurfacesForRole(RoleWorker)
		for range 5 {
			require.Equal(t, first, SurfacesForRole(RoleWorker))
		}
	})
}

func TestRoleValid(t *testing.T) {
	t.Parallel()

	require.True(t, RoleAdmin.Valid())
	require.True(t, RoleWorker.Valid())
	require.False(t, RoleUnset.Valid())
	require.False(t, Role("supervisor").Valid())
}

func TestInviteStatusTerminal(t *testing.T) {
	t.Parallel()

	require.False(t, InvitePending.Terminal())
	require.True(t, InviteAccepted.Terminal())
	require.True(t, InviteExpired.Terminal())
	require.True(t, InviteCancelled.Terminal())
}
