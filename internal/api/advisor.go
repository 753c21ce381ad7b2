package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/peakfin/peakfin/internal/advisor"
	"github.com/peakfin/peakfin/internal/metrics"
)

type AskRequest struct {
	Question string `json:"question"`
}

func handleAsk(deps Deps, limiter *userLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		if !limiter.Allow(uid) {
			httpError(w, http.StatusTooManyRequests, "rate_limit_error", "too many advisory requests; try again in a minute")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		snap, err := deps.Store.Snapshot(uid)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load financial snapshot: %v", err)
			return
		}

		start := time.Now()
		resp, err := deps.Mediator.Ask(r.Context(), advisor.Request{
			UserRef:  uid,
			Question: req.Question,
			Snapshot: snap,
		})
		metrics.AdvisorDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.AdvisorRequests.WithLabelValues(metrics.OutcomeFailed).Inc()
			httpError(w, http.StatusInternalServerError, "api_error", "advisory pipeline failed: %v", err)
			return
		}

		if resp.Blocked {
			metrics.AdvisorRequests.WithLabelValues(metrics.OutcomeBlocked).Inc()
		} else {
			metrics.AdvisorRequests.WithLabelValues(metrics.OutcomeAnswered).Inc()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
