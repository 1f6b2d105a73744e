package e2e

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	addr := freeAddr(t)
	configPath := writeConfig(t, home)

	ctx, cancel := context.WithCancel(context.Background())
	server := exec.CommandContext(ctx, binaryPath, "--config", configPath, "serve", "--addr", addr)
	server.Env = append(os.Environ(), "HOME="+home)
	var serverErr bytes.Buffer
	server.Stderr = &serverErr
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		cancel()
		_ = server.Wait()
	})

	baseURL := "http://" + addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/api/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 100*time.Millisecond, "server stderr: %s", serverErr.String())

	stdout, stderr, err := runZA(t, binaryPath, home, "--config", configPath, "accounts", "--server", baseURL)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "accounts: 0")

	resp, err := http.Post(baseURL+"/api/bulk/send", "application/json",
		strings.NewReader(`{"accountId":"404","targets":["0901234567"],"message":"hi"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, _, err = runZA(t, binaryPath, home, "--config", configPath, "jobs", "missing", "--server", baseURL)
	require.Error(t, err)
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "za-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/za")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build za binary: %s", string(output))
	return binaryPath
}

func runZA(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func freeAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func writeConfig(t *testing.T, home string) string {
	t.Helper()

	content := fmt.Sprintf(`[gateway]
base_url = "http://127.0.0.1:1"

[log]
output = %q
`, filepath.Join(home, "za.log"))

	path := filepath.Join(home, "za.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
