package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/peakfin/peakfin/internal/advisor"
	"github.com/peakfin/peakfin/internal/audit"
	"github.com/peakfin/peakfin/internal/compliance"
	"github.com/peakfin/peakfin/internal/intent"
	"github.com/peakfin/peakfin/internal/provider"
)

func TestAsk_OfflineAnswer(t *testing.T) {
	h, _ := setupHandler(t)
	registerUser(t, h, "asker@example.com", 60000)
	token := loginUser(t, h, "asker@example.com")

	body := `{"question":"How should I budget my monthly salary?"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/advisor/ask", body, token))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp advisor.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Blocked {
		t.Fatal("budgeting question should not be blocked")
	}
	if resp.Answer == "" {
		t.Fatal("expected an answer from the offline provider")
	}
	if resp.Meta.Intent != intent.BudgetingAdvice {
		t.Errorf("Meta.Intent = %q, want %q", resp.Meta.Intent, intent.BudgetingAdvice)
	}
	if resp.Meta.RegulatedMode {
		t.Error("Meta.RegulatedMode = true, want false in educational mode")
	}
	if resp.Meta.Disclaimer == "" {
		t.Error("answer missing disclaimer")
	}
}

func TestAsk_BlockedInEducationalMode(t *testing.T) {
	h, store := setupHandler(t)
	registerUser(t, h, "blocked@example.com", 60000)
	token := loginUser(t, h, "blocked@example.com")

	body := `{"question":"Can I get loan approval for a new car?"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/advisor/ask", body, token))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp advisor.Response
	json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Blocked {
		t.Fatal("loan approval question should be blocked in educational mode")
	}
	if !strings.Contains(resp.Answer, "not available in educational mode") {
		t.Errorf("Answer = %q, want refusal text", resp.Answer)
	}

	user, err := store.GetUserByEmail("blocked@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	records, err := store.ListAudit(user.ID, 10)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	found := false
	for _, rec := range records {
		if rec.Action == audit.ActionAdvisorBlocked {
			found = true
		}
	}
	if !found {
		t.Error("blocked request left no advisor_blocked audit record")
	}
}

func TestAsk_RegulatedPartnerAnswers(t *testing.T) {
	deps := newTestDeps(t)
	deps.Mediator = advisor.NewMediator(compliance.RegulatedPartner, provider.NewOffline(), deps.Store)
	h := NewHandler(deps)

	registerUser(t, h, "partner@example.com", 60000)
	token := loginUser(t, h, "partner@example.com")

	body := `{"question":"Can I get loan approval for a new car?"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/advisor/ask", body, token))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp advisor.Response
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Blocked {
		t.Fatal("regulated partner mode should serve loan approval questions")
	}
	if !resp.Meta.RegulatedMode {
		t.Error("Meta.RegulatedMode = false, want true")
	}
}

func TestAsk_RateLimited(t *testing.T) {
	deps := newTestDeps(t)
	deps.AskPerMinute = 2
	h := NewHandler(deps)

	registerUser(t, h, "eager@example.com", 60000)
	token := loginUser(t, h, "eager@example.com")

	body := `{"question":"How do I start saving?"}`
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/advisor/ask", body, token))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, rr.Code, http.StatusOK)
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/advisor/ask", body, token))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	h, _ := setupHandler(t)
	registerUser(t, h, "mute@example.com", 60000)
	token := loginUser(t, h, "mute@example.com")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/advisor/ask", `{"question":"   "}`, token))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAsk_RedactsAuditQuestion(t *testing.T) {
	h, store := setupHandler(t)
	registerUser(t, h, "private@example.com", 60000)
	token := loginUser(t, h, "private@example.com")

	body := `{"question":"My budget is tight, call me at 01712345678"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/advisor/ask", body, token))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	user, err := store.GetUserByEmail("private@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	records, err := store.ListAudit(user.ID, 10)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}

	var asked *audit.Record
	for i := range records {
		if records[i].Action == audit.ActionAdvisorAsked {
			asked = &records[i]
			break
		}
	}
	if asked == nil {
		t.Fatal("no advisor_asked audit record written")
	}
	if strings.Contains(asked.Question, "01712345678") {
		t.Errorf("audit question retains raw phone number: %q", asked.Question)
	}
	if !strings.Contains(asked.Question, "[PHONE_REDACTED]") {
		t.Errorf("audit question = %q, want phone placeholder", asked.Question)
	}
}
