package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/codevoice/internal/api"
	"github.com/kalambet/codevoice/internal/config"
	"github.com/kalambet/codevoice/internal/tone"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found_error"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

// useClient points newAPIClient at ts for the duration of the test.
func useClient(t *testing.T, ts *testServer) {
	t.Helper()
	old := newAPIClient
	newAPIClient = func() (*apiClient, error) { return ts.client(), nil }
	t.Cleanup(func() { newAPIClient = old })
}

// runCmd executes rootCmd with args and stdin, returning stdout.
func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		// cobra keeps flag values between Execute calls.
		for _, c := range []string{"file", "lines", "tone"} {
			voiceCmd.Flags().Set(c, "")
			explainCmd.Flags().Set(c, "")
		}
		voiceCmd.Flags().Set("open", "false")
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "main.go")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

var ctx = context.Background()

func TestVoiceCommand_File(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/sessions": `{"id":"s-1","tone":"Mentor","surface_url":"http://127.0.0.1:4100/surface/s-1"}`,
	})
	useClient(t, ts)

	path := writeFile(t, "package main\n\nfunc add(a, b int) int {\n\treturn a + b\n}\n")
	out, err := runCmd(t, "", "voice", "--file", path, "--lines", "3-5", "--tone", "ment")
	if err != nil {
		t.Fatalf("voice: %v", err)
	}
	if strings.TrimSpace(out) != "http://127.0.0.1:4100/surface/s-1" {
		t.Errorf("stdout = %q, want the surface URL", out)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	var body api.CreateSessionRequest
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body.Tone != "Mentor" {
		t.Errorf("tone = %q, want Mentor", body.Tone)
	}
	if body.Code != "func add(a, b int) int {\n\treturn a + b\n}\n" {
		t.Errorf("code = %q", body.Code)
	}
	if body.File != path {
		t.Errorf("file = %q, want %q", body.File, path)
	}
}

func TestVoiceCommand_PickerFromStdin(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/sessions": `{"id":"s-2","tone":"Professional","surface_url":"http://x/surface/s-2"}`,
	})
	useClient(t, ts)

	path := writeFile(t, "x := 1\n")
	if _, err := runCmd(t, "3\n", "voice", "--file", path); err != nil {
		t.Fatalf("voice: %v", err)
	}

	var body api.CreateSessionRequest
	json.Unmarshal([]byte(ts.requests[0].Body), &body)
	if body.Tone != "Professional" {
		t.Errorf("tone = %q, want Professional", body.Tone)
	}
}

func TestVoiceCommand_Preconditions(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	useClient(t, ts)

	empty := writeFile(t, "   \n\n")
	code := writeFile(t, "x := 1\n")

	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr error
	}{
		{"empty stdin", "", []string{"voice", "--tone", "casual"}, errNoSelection},
		{"blank file", "", []string{"voice", "--file", empty, "--tone", "casual"}, errNoSelection},
		{"picker cancelled", "", []string{"voice", "--file", code}, tone.ErrUnknownTone},
		{"unknown tone", "", []string{"voice", "--file", code, "--tone", "zzz"}, tone.ErrUnknownTone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.stdin, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if len(ts.requests) != 0 {
		t.Errorf("daemon contacted %d times, want 0", len(ts.requests))
	}
}

func TestVoiceCommand_LinesWithoutFile(t *testing.T) {
	_, err := runCmd(t, "code", "voice", "--lines", "1-2", "--tone", "casual")
	if err == nil || !strings.Contains(err.Error(), "--lines requires --file") {
		t.Errorf("err = %v", err)
	}
}

func TestVoiceCommand_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"message":"missing API key: set it via environment variable CODEVOICE_API_KEY","type":"configuration_error"}}`))
	}))
	defer srv.Close()

	old := newAPIClient
	newAPIClient = func() (*apiClient, error) {
		return &apiClient{baseURL: srv.URL, httpClient: srv.Client()}, nil
	}
	defer func() { newAPIClient = old }()

	_, err := runCmd(t, "x := 1", "voice", "--tone", "casual")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "missing API key") {
		t.Errorf("error = %q, want the server message", err.Error())
	}
}

func TestExplainCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/explain": `{"text":"It adds two numbers.","vibeMode":"Casual","action":"Code Explanation","intent":"explain"}`,
	})
	useClient(t, ts)

	out, err := runCmd(t, "func add(a, b int) int { return a + b }", "explain", "--tone", "cas", "what", "does", "this", "do")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if strings.TrimSpace(out) != "It adds two numbers." {
		t.Errorf("stdout = %q", out)
	}

	var body api.ExplainRequest
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatal(err)
	}
	if body.Phrase != "what does this do" {
		t.Errorf("phrase = %q", body.Phrase)
	}
	if body.Tone != "Casual" {
		t.Errorf("tone = %q, want Casual", body.Tone)
	}
}

func TestCloseCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /v1/sessions/s-9": `{}`,
	})
	useClient(t, ts)

	if _, err := runCmd(t, "", "close", "s-9"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if ts.requests[0].Method != http.MethodDelete || ts.requests[0].Path != "/v1/sessions/s-9" {
		t.Errorf("request = %+v", ts.requests[0])
	}

	if _, err := runCmd(t, "", "close", "nope"); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestTonesCommand(t *testing.T) {
	old := noColor
	noColor = true
	defer func() { noColor = old }()

	out, err := runCmd(t, "", "tones")
	if err != nil {
		t.Fatalf("tones: %v", err)
	}
	for _, name := range tone.Names() {
		if !strings.Contains(out, name) {
			t.Errorf("output missing %q:\n%s", name, out)
		}
	}
}

func TestStatusCommand_Running(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status code = %d, want 200", resp.StatusCode)
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := styleGreen.apply("test message"); got != "test message" {
		t.Errorf("apply with --no-color = %q, want plain text", got)
	}

	noColor = false
	if got := styleGreen.apply("test message"); !strings.HasPrefix(got, "\033[32m") || !strings.HasSuffix(got, "\033[0m") {
		t.Errorf("apply with color = %q, want green escape codes", got)
	}
	if got := style("").apply("plain"); got != "plain" {
		t.Errorf("zero style = %q, want plain", got)
	}
}

func TestNoticesGoToMessages(t *testing.T) {
	oldColor, oldOut := noColor, messages
	defer func() { noColor, messages = oldColor, oldOut }()
	noColor = true
	var buf bytes.Buffer
	messages = &buf

	printSuccess("session %s opened", "s-1")
	printError("server not reachable")
	printField("Backend", "%s", "ollama")

	want := "✓ session s-1 opened\n✗ server not reachable\n  Backend: ollama\n"
	if buf.String() != want {
		t.Errorf("messages = %q, want %q", buf.String(), want)
	}
}

func TestAPIClientAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})

	client := ts.client()
	client.token = "my-secret-token"
	if _, err := client.get(ctx, "/health"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	client.token = ""
	if _, err := client.get(ctx, "/health"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", ts.requests[0].Auth)
	}
	if ts.requests[1].Auth != "" {
		t.Errorf("auth = %q, want no header without a token", ts.requests[1].Auth)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"invalid or missing bearer token","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/v1/tones")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "bearer token") {
		t.Errorf("error = %q, want status and message", err.Error())
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4000
	cfg.Completion.Model = "gpt-4o"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "4000" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=4000 in ShowAll output")
	}
}
