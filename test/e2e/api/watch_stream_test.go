package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/obralimpa/obralimpa/pkg/sdk"
	"github.com/stretchr/testify/require"
)

// readUserEvent scans the SSE stream until the next "user" event and decodes
// its payload.
func readUserEvent(t *testing.T, scanner *bufio.Scanner) sdk.User {
	t.Helper()

	inUserEvent := false
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "event: user":
			inUserEvent = true
		case inUserEvent && strings.HasPrefix(line, "data: "):
			var u sdk.User
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &u))
			return u
		case line == "":
			inUserEvent = false
		}
	}
	t.Fatalf("stream ended without a user event: %v", scanner.Err())
	return sdk.User{}
}

// TestWatchStreamPushesRoleChange verifies an open watch stream receives the
// account immediately and again when an admin changes its role, so clients
// re-gate without polling.
func TestWatchStreamPushesRoleChange(t *testing.T) {
	baseURL, cleanup := setupAPIContainer(t)
	defer cleanup()

	admin := loginAdmin(t, baseURL)

	site, err := admin.CreateSite(t.Context(), sdk.CreateSiteRequest{
		Name:    "Obra Oeste",
		Address: "Av. Oeste 77, Osasco",
	})
	require.NoError(t, err)

	_, err = admin.CreateInvite(t.Context(), sdk.CreateInviteRequest{
		Email:  "vigia@obralimpa.test",
		SiteID: site.ID,
	})
	require.NoError(t, err)

	_, login := registerAndLogin(t, baseURL, "vigia@obralimpa.test", "Vigia")

	// Open the stream with the worker's access token.
	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/me/watch", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	scanner := bufio.NewScanner(resp.Body)

	// The current state arrives first.
	first := readUserEvent(t, scanner)
	require.Equal(t, "worker", first.Role)
	require.NotContains(t, first.Surfaces, "admin")

	// A role change lands on the open stream.
	_, err = admin.ChangeRole(t.Context(), login.User.ID, "admin")
	require.NoError(t, err)

	second := readUserEvent(t, scanner)
	require.Equal(t, "admin", second.Role)
	require.Contains(t, second.Surfaces, "admin")
}
