package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/peakfin/peakfin/internal/finance"
	"github.com/peakfin/peakfin/internal/metrics"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 512
)

// Remote sends questions to an OpenAI-compatible chat completion backend.
// Exactly one attempt per request: transport failures, timeouts, error
// statuses, and malformed replies all degrade into an apology answer with
// a nil error, never a hard failure to the caller.
type Remote struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	maxTokens  int
	httpClient *http.Client
}

// NewRemote creates a remote provider from cfg, filling unset fields with
// defaults. The base URL may point at any OpenAI-compatible server
// (including a test server).
func NewRemote(cfg Config) *Remote {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Remote{
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		model:     cfg.Model,
		timeout:   timeout,
		maxTokens: maxTokens,
		// The per-request context carries the deadline; the client itself
		// has no timeout so cfg.Timeout is the single source of truth.
		httpClient: &http.Client{},
	}
}

// ProduceAdvice sends the system instruction plus the raw question and
// returns the completion text. Every failure path returns an apology
// string and a nil error.
func (r *Remote) ProduceAdvice(ctx context.Context, question string, fc finance.Context) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: buildInstruction(fc)},
			{Role: "user", Content: question},
		},
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return r.degrade("request encoding failed", err), nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return r.degrade("request construction failed", err), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	// Single attempt. Retrying a user-facing advisory call multiplies
	// latency past the timeout budget; resilience belongs to the caller's
	// retry of the whole request.
	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return r.degrade("the advisory service timed out", err), nil
		}
		return r.degrade("the advisory service is unreachable", err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return r.degrade(
			fmt.Sprintf("the advisory service returned status %d", resp.StatusCode),
			fmt.Errorf("status %d: %s", resp.StatusCode, string(snippet)),
		), nil
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return r.degrade("the advisory service sent a malformed reply", err), nil
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return r.degrade("the advisory service sent an empty reply", nil), nil
	}

	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

// degrade logs the underlying failure, counts it, and renders the fixed
// apology shown to the user. The reason is user-legible; err carries the
// wire detail and stays in the logs.
func (r *Remote) degrade(reason string, err error) string {
	slog.Warn("advisor backend degraded", "reason", reason, "error", err)
	metrics.ProviderFailures.WithLabelValues(reason).Inc()
	return apology(reason)
}

// apology is the degraded answer contract: short, fixed shape, embeds the
// failure reason, reads as normal prose to the user.
func apology(reason string) string {
	return "Sorry, I could not generate advice right now (" + reason + "). Please try again in a few minutes."
}
