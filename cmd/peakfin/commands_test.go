package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
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
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
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

// stubClient routes every command in the test at ts instead of the
// configured local server.
func stubClient(t *testing.T, ts *testServer) {
	t.Helper()
	old := newAPIClient
	newAPIClient = func() (*apiClient, error) {
		return ts.client(), nil
	}
	t.Cleanup(func() { newAPIClient = old })
}

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	return rootCmd.Execute()
}

var ctx = context.Background()

func TestClientSendsBearerToken(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})

	client := ts.client()
	client.token = "my-secret-token"

	resp, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", ts.requests[0].Auth)
	}
}

func TestClientOmitsAuthWithoutToken(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/auth/register": `{"id":"u1","email":"a@b.com"}`,
	})

	client := ts.client()
	client.token = ""

	resp, err := client.post(ctx, "/v1/auth/register", map[string]any{"email": "a@b.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if ts.requests[0].Auth != "" {
		t.Errorf("auth = %q, want empty", ts.requests[0].Auth)
	}
}

func TestDecodeJSON_ErrorEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"Not authenticated","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/v1/dashboard")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
	if !strings.Contains(err.Error(), "Not authenticated") {
		t.Errorf("error = %q, want the server message extracted", err.Error())
	}
}

func TestDecodeJSON_NonEnvelopeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte(`boom`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, httpClient: ts.Client()}

	resp, err := client.get(ctx, "/anything")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %q, want the raw body included", err.Error())
	}
}

func TestClient_ServerNotReachable(t *testing.T) {
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

func TestTokenCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()

	if err := writeCachedToken(dir, "session-abc\n"); err != nil {
		t.Fatalf("write error: %v", err)
	}

	got, err := readCachedToken(dir)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if got != "session-abc" {
		t.Errorf("token = %q, want %q", got, "session-abc")
	}
}

func TestReadCachedToken_Missing(t *testing.T) {
	_, err := readCachedToken(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing token file")
	}
}

func TestRequireToken(t *testing.T) {
	client := &apiClient{}
	err := client.requireToken()
	if err == nil {
		t.Fatal("expected error for empty token")
	}
	if !strings.Contains(err.Error(), "login") {
		t.Errorf("error = %q, want it to mention login", err.Error())
	}

	client.token = "something"
	if err := client.requireToken(); err != nil {
		t.Errorf("unexpected error with token set: %v", err)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := pidFilePath(t.TempDir())

	if err := writePIDFile(path); err != nil {
		t.Fatalf("write error: %v", err)
	}

	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}

	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after PID file removal")
	}
}

func TestRegisterCommand_MissingEmail(t *testing.T) {
	err := runCommand(t, "register")
	if err == nil {
		t.Fatal("expected error for missing email")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestAskCommand_MissingQuestion(t *testing.T) {
	err := runCommand(t, "ask")
	if err == nil {
		t.Fatal("expected error for missing question")
	}
}

func TestImportCommand_FileNotFound(t *testing.T) {
	err := runCommand(t, "import", filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading statement") {
		t.Errorf("error = %q, want it to mention 'reading statement'", err.Error())
	}
}

func TestAuditCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /v1/audit": `[{"id":"9f1c2a33-0000-0000-0000-000000000000","user_ref":"u1","action":"advisor_asked","question":"How do I budget?","created_at":"2025-06-01T10:00:00Z"}]`,
	})
	stubClient(t, ts)

	if err := runCommand(t, "audit", "--limit", "5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Path != "/v1/audit?limit=5" {
		t.Errorf("path = %q, want /v1/audit?limit=5", r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
}

func TestDashboardCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /v1/dashboard": `{"total_income":80000,"total_expenses":20000,"surplus":51000,"dti":0.1125,"safe_to_spend":40800,"fun_budget":12000,"goal_progress_pct":25,"debt_payoff_eta_months":33,"meta":{"disclaimer":"Projections are estimates."}}`,
	})
	stubClient(t, ts)

	if err := runCommand(t, "dashboard"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Path != "/v1/dashboard" {
		t.Errorf("path = %q, want /v1/dashboard", ts.requests[0].Path)
	}
}

func TestExpensesAddCommand_Payload(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/data/expenses": `{"id":"e1f2a3b4-0000-0000-0000-000000000000","category":"Food","amount":1250.5}`,
	})
	stubClient(t, ts)

	err := runCommand(t, "data", "expenses", "add", "--amount", "1250.5", "--category", "Food")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["amount"] != 1250.5 {
		t.Errorf("body.amount = %v, want 1250.5", body["amount"])
	}
	if body["category"] != "Food" {
		t.Errorf("body.category = %v, want Food", body["category"])
	}
}

func TestImportCommand_SendsBase64(t *testing.T) {
	csv := "Date,Description,Amount\n2025-06-01,Groceries,1500\n"
	path := filepath.Join(t.TempDir(), "statement.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}

	ts := newTestServer(t, map[string]string{
		"POST /v1/import/statement": `{"imported":1,"category_totals":{"Uncategorized":1500}}`,
	})
	stubClient(t, ts)

	if err := runCommand(t, "import", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body.Filename != "statement.csv" {
		t.Errorf("filename = %q, want statement.csv", body.Filename)
	}
	decoded, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		t.Fatalf("content is not valid base64: %v", err)
	}
	if string(decoded) != csv {
		t.Errorf("decoded content = %q, want the file bytes", decoded)
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestCountLabel(t *testing.T) {
	tests := []struct {
		count, limit int
		want         string
	}{
		{5, 100, "5"},
		{0, 100, "0"},
		{100, 100, "100+"},
		{150, 100, "150+"},
	}
	for _, tt := range tests {
		got := countLabel(tt.count, tt.limit)
		if got != tt.want {
			t.Errorf("countLabel(%d, %d) = %q, want %q", tt.count, tt.limit, got, tt.want)
		}
	}
}
