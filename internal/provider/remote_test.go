package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/peakfin/peakfin/internal/finance"
)

func testContext() finance.Context {
	return finance.BuildContext(finance.Snapshot{
		MonthlyNetIncome: 80000,
		Expenses:         []float64{20000, 5000},
		Debts:            []finance.Debt{{Principal: 300000, Installment: 9000}},
		GoalCount:        1,
		RiskTolerance:    "moderate",
	})
}

func completionJSON(content string) []byte {
	resp := chatResponse{
		Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: content}}},
	}
	b, _ := json.Marshal(resp)
	return b
}

func newTestRemote(baseURL string, timeout time.Duration) *Remote {
	return NewRemote(Config{
		Kind:    "remote",
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: timeout,
	})
}

func TestRemote_Success(t *testing.T) {
	var captured chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write(completionJSON("Track your expenses weekly."))
	}))
	defer srv.Close()

	p := newTestRemote(srv.URL, time.Second)
	answer, err := p.ProduceAdvice(context.Background(), "How do I start budgeting?", testContext())
	if err != nil {
		t.Fatalf("ProduceAdvice: %v", err)
	}
	if answer != "Track your expenses weekly." {
		t.Errorf("answer = %q", answer)
	}

	if captured.Model != "test-model" {
		t.Errorf("model = %q", captured.Model)
	}
	if captured.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", captured.MaxTokens, defaultMaxTokens)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" {
		t.Errorf("first message role = %q", captured.Messages[0].Role)
	}
	if captured.Messages[1].Content != "How do I start budgeting?" {
		t.Errorf("user message = %q", captured.Messages[1].Content)
	}
}

func TestRemote_InstructionContent(t *testing.T) {
	instr := buildInstruction(testContext())

	// Defense in depth: the prompt forbids regulated sub-topics.
	for _, want := range []string{"loan approvals", "e-KYC", "CIB"} {
		if !strings.Contains(instr, want) {
			t.Errorf("instruction missing %q", want)
		}
	}
	// Context figures are rendered with fixed formatting.
	for _, want := range []string{"80000.00 BDT", "25000.00 BDT", "9000.00 BDT", "46000.00 BDT"} {
		if !strings.Contains(instr, want) {
			t.Errorf("instruction missing figure %q", want)
		}
	}
}

func TestRemote_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write(completionJSON("too late"))
	}))
	defer srv.Close()

	p := newTestRemote(srv.URL, 30*time.Millisecond)
	answer, err := p.ProduceAdvice(context.Background(), "budget help", testContext())
	if err != nil {
		t.Fatalf("timeout must not surface as error, got: %v", err)
	}
	if !strings.Contains(answer, "timed out") {
		t.Errorf("answer should embed the timeout reason: %q", answer)
	}
	if !strings.Contains(answer, "Sorry") {
		t.Errorf("answer should read as an apology: %q", answer)
	}
}

func TestRemote_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := newTestRemote(srv.URL, time.Second)
	answer, err := p.ProduceAdvice(context.Background(), "q", testContext())
	if err != nil {
		t.Fatalf("error status must not surface as error, got: %v", err)
	}
	if !strings.Contains(answer, "status 503") {
		t.Errorf("answer should embed the status: %q", answer)
	}
}

func TestRemote_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	p := newTestRemote(srv.URL, time.Second)
	answer, err := p.ProduceAdvice(context.Background(), "q", testContext())
	if err != nil {
		t.Fatalf("malformed response must not surface as error, got: %v", err)
	}
	if !strings.Contains(answer, "malformed") {
		t.Errorf("answer should name the malformed reply: %q", answer)
	}
}

func TestRemote_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := newTestRemote(srv.URL, time.Second)
	answer, err := p.ProduceAdvice(context.Background(), "q", testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(answer, "empty reply") {
		t.Errorf("answer should name the empty reply: %q", answer)
	}
}

func TestRemote_SingleAttempt(t *testing.T) {
	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestRemote(srv.URL, time.Second)
	if _, err := p.ProduceAdvice(context.Background(), "q", testContext()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("backend called %d times, want exactly 1", got)
	}
}

func TestRemote_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := newTestRemote(srv.URL, time.Second)
	answer, err := p.ProduceAdvice(context.Background(), "q", testContext())
	if err != nil {
		t.Fatalf("unreachable backend must not surface as error, got: %v", err)
	}
	if !strings.Contains(answer, "unreachable") {
		t.Errorf("answer should name the unreachable service: %q", answer)
	}
}

func TestNew_Selection(t *testing.T) {
	if _, err := New(Config{Kind: "remote"}); err == nil {
		t.Error("remote without API key should fail construction")
	}
	if _, err := New(Config{Kind: "remote", APIKey: "k"}); err == nil {
		t.Error("remote without model should fail construction")
	}
	if _, err := New(Config{Kind: "weird"}); err == nil {
		t.Error("unknown kind should fail construction")
	}

	p, err := New(Config{Kind: "offline"})
	if err != nil {
		t.Fatalf("offline: %v", err)
	}
	if _, ok := p.(*Offline); !ok {
		t.Errorf("got %T, want *Offline", p)
	}

	p, err = New(Config{Kind: "remote", APIKey: "k", Model: "m"})
	if err != nil {
		t.Fatalf("remote: %v", err)
	}
	if _, ok := p.(*Remote); !ok {
		t.Errorf("got %T, want *Remote", p)
	}
}
