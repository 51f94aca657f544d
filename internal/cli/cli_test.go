package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/readycheck/internal/probe"
	"github.com/hamed0406/readycheck/internal/report"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "readycheck.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func server(t *testing.T, status int) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)
	return ts.URL
}

func configFor(urls ...string) string {
	var b strings.Builder
	b.WriteString("log_dir: \"\"\nprobes:\n")
	for i, u := range urls {
		fmt.Fprintf(&b, "  - name: svc-%d\n    kind: http\n    target: %s\n    timeout: 2s\n", i, u)
	}
	return b.String()
}

func TestCheck_HealthyExitsZero(t *testing.T) {
	cfg := writeConfig(t, configFor(server(t, http.StatusOK), server(t, http.StatusNoContent)))
	code, out, _ := execute(t, "check", "--config", cfg)

	assert.Equal(t, report.ExitHealthy, code)
	assert.Contains(t, out, "OK       svc-0")
	assert.Contains(t, out, "2/2 healthy")
}

func TestCheck_UnhealthyExitsOne(t *testing.T) {
	cfg := writeConfig(t, configFor(server(t, http.StatusOK), server(t, http.StatusInternalServerError)))
	code, out, _ := execute(t, "check", "--config", cfg)

	assert.Equal(t, report.ExitUnhealthy, code)
	assert.Contains(t, out, "FAIL     svc-1")
	assert.Contains(t, out, "unexpected response: status 500")
	assert.Contains(t, out, "1/2 healthy")
}

func TestCheck_JSON(t *testing.T) {
	cfg := writeConfig(t, configFor(server(t, http.StatusOK)))
	code, out, _ := execute(t, "check", "--config", cfg, "--json")
	require.Equal(t, report.ExitHealthy, code)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, probe.StatusSuccess, rep.Outcomes[0].Status)
}

func TestCheck_ConfigErrorExitsTwo(t *testing.T) {
	cfg := writeConfig(t, `
log_dir: ""
probes:
  - name: a
    kind: http
    target: ftp://nope
  - name: a
    kind: smtp
`)
	code, out, errOut := execute(t, "check", "--config", cfg)

	assert.Equal(t, report.ExitConfig, code)
	assert.Empty(t, out, "no probe may run when the config is invalid")
	assert.Contains(t, errOut, "configuration error")
}

func TestCheck_MissingConfigFile(t *testing.T) {
	code, _, errOut := execute(t, "check", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, report.ExitConfig, code)
	assert.Contains(t, errOut, "read config")
}

func TestValidate(t *testing.T) {
	cfg := writeConfig(t, configFor("https://example.com"))
	code, out, _ := execute(t, "validate", "--config", cfg)

	assert.Equal(t, report.ExitHealthy, code)
	assert.Contains(t, out, "✔ svc-0 (http, timeout 2s, retries 0)")
	assert.Contains(t, out, "⚠ admin_api_keys is empty")
	assert.Contains(t, out, "config valid: 1 probes")
}

func TestUnknownFlagExitsTwo(t *testing.T) {
	code, _, _ := execute(t, "check", "--bogus")
	assert.Equal(t, report.ExitConfig, code)
}
