package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peakfin/peakfin/internal/audit"
	"github.com/peakfin/peakfin/internal/imports"
	"github.com/peakfin/peakfin/internal/metrics"
	"github.com/peakfin/peakfin/internal/storage"
)

// maxStatementBodySize bounds the JSON envelope; the decoded statement is
// checked separately against the configured upload cap.
const maxStatementBodySize = 10 << 20 // 10MB

type StatementImportRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"` // base64-encoded CSV or PDF
}

type StatementImportResponse struct {
	Imported       int                `json:"imported"`
	CategoryTotals map[string]float64 `json:"category_totals"`
}

// handleImportStatement parses an uploaded bank statement, persists its
// transactions for the caller, and records the import in the audit log.
// The format is picked by filename extension; anything but .pdf is CSV.
func handleImportStatement(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxStatementBodySize)
		defer r.Body.Close()

		var req StatementImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Content == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
			return
		}
		if err := imports.CheckSize(int64(len(decoded)), deps.MaxImportMB); err != nil {
			httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "%v", err)
			return
		}

		var st imports.Statement
		if strings.HasSuffix(strings.ToLower(req.Filename), ".pdf") {
			st, err = imports.ParsePDF(decoded)
		} else {
			st, err = imports.ParseCSV(decoded)
		}
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "parsing statement: %v", err)
			return
		}

		uid := userID(r)
		now := time.Now().UTC()
		txs := make([]storage.Transaction, len(st.Rows))
		for i, row := range st.Rows {
			txs[i] = storage.Transaction{
				ID:          uuid.New().String(),
				UserID:      uid,
				Date:        row.Date,
				Description: row.Description,
				Category:    row.Category,
				Amount:      row.Amount,
				CreatedAt:   now,
			}
		}
		if err := deps.Store.AddTransactions(txs); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save transactions: %v", err)
			return
		}
		metrics.StatementRows.Add(float64(len(txs)))

		rec := audit.Record{UserRef: uid, Action: audit.ActionStatementImported}
		if err := deps.Store.WriteAudit(r.Context(), rec); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "writing audit record: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(StatementImportResponse{
			Imported:       len(txs),
			CategoryTotals: st.CategoryTotals,
		})
	}
}
