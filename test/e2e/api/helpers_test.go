package api_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/obralimpa/obralimpa/pkg/sdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helpers for the API end-to-end tests: container
 * lifecycle, admin login, and account setup.
 */

const (
	testImageName = "obralimpa-api-test:latest"

	adminEmail    = "admin@obralimpa.test"
	adminName     = "Administrator"
	adminPassword = "Admin123!secret"

	workerPassword = "Worker123!secret"
)

// TestMain builds the Docker image once before all tests and removes it
// afterwards.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building API Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up API Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/api/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run()
}

// setupAPIContainer starts the service in a container and returns its base
// URL. Rate limits are raised so rapid test requests do not trip them.
func setupAPIContainer(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"OBRALIMPA_DATABASE_FILE":     "/obralimpa.db",
			"OBRALIMPA_ISSUER":            "obralimpa-e2e",
			"BOOTSTRAP_ADMIN_EMAIL":       adminEmail,
			"BOOTSTRAP_ADMIN_NAME":        adminName,
			"BOOTSTRAP_ADMIN_PASSWORD":    adminPassword,
			"ENV":                         "test",
			"LOG_LEVEL":                   "info",
			"LOG_FORMAT":                  "json",
			"RATELIMIT_STRICT_REQUESTS":   "1000",
			"RATELIMIT_STRICT_WINDOW_SEC": "60",
			"RATELIMIT_STRICT_BURST":      "1000",
			"RATELIMIT_MODERATE_REQUESTS": "1000",
			"RATELIMIT_MODERATE_BURST":    "1000",
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// loginAdmin logs the bootstrap admin in on a fresh client.
func loginAdmin(t *testing.T, baseURL string) *sdk.Client {
	t.Helper()

	client := sdk.NewClient(baseURL)
	resp, err := client.Login(t.Context(), sdk.LoginRequest{
		Email:    adminEmail,
		Password: adminPassword,
	})
	require.NoError(t, err, "admin login should succeed")
	require.Equal(t, "admin", resp.User.Role)

	return client
}

// registerAndLogin creates an account and returns a logged-in client for it.
func registerAndLogin(t *testing.T, baseURL, email, name string) (*sdk.Client, sdk.TokenResponse) {
	t.Helper()

	client := sdk.NewClient(baseURL)
	_, err := client.Register(t.Context(), sdk.RegisterRequest{
		Email:    email,
		Name:     name,
		Password: workerPassword,
	})
	require.NoError(t, err, "registration should succeed")

	resp, err := client.Login(t.Context(), sdk.LoginRequest{
		Email:    email,
		Password: workerPassword,
	})
	require.NoError(t, err, "login should succeed")

	return client, resp
}

// assertAPIError requires err to be an APIError with the given status.
func assertAPIError(t *testing.T, err error, status int, context string) {
	t.Helper()
	require.Error(t, err, context)
	apiErr, ok := err.(*sdk.APIError)
	require.True(t, ok, "%s - expected an API error, got: %v", context, err)
	require.Equal(t, status, apiErr.StatusCode, "%s - unexpected status", context)
}
