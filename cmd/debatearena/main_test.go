package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debatearena/internal/mocks"
	"debatearena/pkg/config"
	"debatearena/pkg/llm"
	"debatearena/pkg/llm/middleware/metrics"
)

const (
	modelA = "claude-sonnet-3.7"
	modelB = "gpt-4o"
)

// newTestApp returns an app whose every model answers with reply.
func newTestApp(t *testing.T, dir, reply string) *app {
	t.Helper()
	t.Cleanup(func() {
		config.SetConfigForTesting(nil)
		config.SetDecryptedSecrets(nil)
	})

	a := newApp()
	a.projectDir = dir
	a.clientFactory = func(info config.ModelInfo, _ *config.Config) (llm.LLMClient, error) {
		client := mocks.NewMockLLMClient()
		client.SetModelName(info.APIModel)
		client.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
			return llm.CompletionResponse{Content: reply, StopReason: "end_turn"}, nil
		})
		return client, nil
	}
	a.readPassword = func(string) (string, error) { return "", nil }
	a.stdin = strings.NewReader("")
	return a
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	dir := a.projectDir
	root := newRootCmd(a)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--project-dir", dir}, args...))
	err := root.ExecuteContext(context.Background())
	require.NoError(t, a.close())
	return out.String(), err
}

var debateIDPattern = regexp.MustCompile(`Debate (\d+):`)

func startDebate(t *testing.T, a *app, extra ...string) (string, string) {
	t.Helper()
	args := append([]string{"new", "--topic", "Cats are better than dogs", "--format", "SHORT",
		"--model-a", modelA, "--model-b", modelB}, extra...)
	out, err := run(t, a, args...)
	require.NoError(t, err)
	m := debateIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1], out
}

func TestFormatsCommand(t *testing.T) {
	a := newTestApp(t, t.TempDir(), "")
	out, err := run(t, a, "formats")
	require.NoError(t, err)
	assert.Contains(t, out, "STANDARD")
	assert.Contains(t, out, "Short Debate")
	assert.Contains(t, out, "RAP_BATTLE")
}

func TestModelsCommand(t *testing.T) {
	a := newTestApp(t, t.TempDir(), "")
	out, err := run(t, a, "models")
	require.NoError(t, err)
	assert.Contains(t, out, modelA)
	assert.Contains(t, out, "debater,judge")
}

func TestTopicsCommandSeedsStore(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, dir, "")
	out, err := run(t, a, "topics")
	require.NoError(t, err)
	assert.Contains(t, out, "  - ")
	assert.FileExists(t, filepath.Join(dir, config.DefaultDataDir, "debate-topics.json"))
}

func TestListEmpty(t *testing.T) {
	a := newTestApp(t, t.TempDir(), "")
	out, err := run(t, a, "list")
	require.NoError(t, err)
	assert.Equal(t, "No debates found\n", out)
}

func TestDebateJudgeAndRankings(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, dir, "Pro made the stronger case. The winner is Pro.")

	id, out := startDebate(t, a, "--judge", modelA)
	assert.Contains(t, out, "completed with 4 turns")
	assert.Contains(t, out, "Winner: Claude Sonnet 3.7 (Pro)")
	assert.Contains(t, out, "Rating changes:")

	out, err := run(t, a, "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, modelA+" (Pro) vs "+modelB+" (Con)")

	out, err = run(t, a, "rankings")
	require.NoError(t, err)
	assert.Regexp(t, `1\s+Claude Sonnet 3.7\s+1516`, out)
	assert.Regexp(t, `2\s+GPT-4o\s+1484`, out)

	out, err = run(t, a, "view", id)
	require.NoError(t, err)
	assert.Contains(t, out, "# Debate: Cats are better than dogs")
	assert.Contains(t, out, "## Judgment")
}

func TestDebatePanelWithPrediction(t *testing.T) {
	a := newTestApp(t, t.TempDir(), "The winner is Con.")

	_, out := startDebate(t, a, "--predict", "B", "--reason", "gut feeling",
		"--panel", "claude-opus-3,gemini-2.5-pro,o1")
	assert.Contains(t, out, "Your prediction: GPT-4o (Con)")
	assert.Contains(t, out, "Panel winner: GPT-4o (Con) with 3 of 3 votes (100.00%)")
	assert.Contains(t, out, "Your prediction was correct")
}

func TestJudgeCommandFlags(t *testing.T) {
	a := newTestApp(t, t.TempDir(), "The winner is Pro.")
	id, _ := startDebate(t, a)

	_, err := run(t, a, "judge", id)
	require.Error(t, err)

	_, err = run(t, a, "judge", id, "--judge", modelA, "--panel", "a,b,c")
	require.Error(t, err)

	out, err := run(t, a, "judge", id, "--judge", modelB)
	require.NoError(t, err)
	assert.Contains(t, out, "Winner: Claude Sonnet 3.7 (Pro)")

	_, err = run(t, a, "judge", "missing", "--judge", modelB)
	require.Error(t, err)
}

func TestPredictCommand(t *testing.T) {
	a := newTestApp(t, t.TempDir(), "text")
	id, _ := startDebate(t, a)

	out, err := run(t, a, "predict", id, "--winner", "a")
	require.NoError(t, err)
	assert.Equal(t, "Recorded prediction: Claude Sonnet 3.7 (Pro)\n", out)

	_, err = run(t, a, "predict", id, "--winner", "C")
	require.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, dir, "text")
	id, _ := startDebate(t, a)

	target := filepath.Join(dir, "out.md")
	out, err := run(t, a, "export", id, "--out", target)
	require.NoError(t, err)
	assert.Equal(t, "Debate exported to: "+target+"\n", out)

	body, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(body), "## Transcript")
}

func TestNewRejectsUnknownModel(t *testing.T) {
	a := newTestApp(t, t.TempDir(), "text")
	_, err := run(t, a, "new", "--topic", "x", "--model-a", "nope", "--model-b", modelB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "participant A")
}

func TestSecretsSetAndList(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPassword, "hunter2")

	a := newTestApp(t, dir, "")
	a.stdin = strings.NewReader("sk-test\n")
	out, err := run(t, a, "secrets", "set", "ANTHROPIC_API_KEY")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored ANTHROPIC_API_KEY")
	assert.True(t, config.SecretsFileExists(dir))

	config.SetDecryptedSecrets(nil)
	a = newTestApp(t, dir, "")
	out, err = run(t, a, "secrets", "list")
	require.NoError(t, err)
	assert.Equal(t, "ANTHROPIC_API_KEY\n", out)

	secret, err := config.GetSecret("ANTHROPIC_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", secret)
}

func TestSecretsWrongPassword(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.EncryptSecretsFile(dir, "right", map[string]string{"K": "v"}))
	t.Setenv(EnvPassword, "wrong")

	a := newTestApp(t, dir, "")
	_, err := run(t, a, "secrets", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt secrets")
}

func TestMetricsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	recorder.IncDebate("STANDARD", "completed")
	srv := httptest.NewServer(metricsRouter(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Post(srv.URL+"/health", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `debatearena_debates_total{format="STANDARD",status="completed"} 1`)
}

func TestVersionCommand(t *testing.T) {
	a := newTestApp(t, t.TempDir(), "")
	out, err := run(t, a, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "debatearena dev"))
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, dir, "")
	out, err := run(t, a, "init")
	require.NoError(t, err)
	path := filepath.Join(dir, config.ProjectConfigDir, config.ConfigFileJSON)
	assert.Equal(t, "Wrote "+path+"\n", out)

	a = newTestApp(t, dir, "")
	_, err = run(t, a, "init")
	require.Error(t, err)

	a = newTestApp(t, dir, "")
	_, err = run(t, a, "init", "--force")
	require.NoError(t, err)
}

func TestViewRendered(t *testing.T) {
	a := newTestApp(t, t.TempDir(), "text")
	id, _ := startDebate(t, a)

	out, err := run(t, a, "view", id, "--render")
	require.NoError(t, err)
	assert.Contains(t, out, "Cats are better than dogs")
}
