package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/peakfin/peakfin/internal/audit"
	"github.com/peakfin/peakfin/internal/compliance"
	"github.com/peakfin/peakfin/internal/finance"
	"github.com/peakfin/peakfin/internal/intent"
	"github.com/peakfin/peakfin/internal/provider"
)

// fallbackAnswer renders when a provider violates its degradation contract
// and surfaces an error or empty text. Users always receive prose.
const fallbackAnswer = "Sorry, I could not generate advice right now. Please try again in a few minutes."

// Request is one advisory question plus the caller-resolved financial
// snapshot. The core never loads data itself; authentication and snapshot
// assembly happen at the transport layer.
type Request struct {
	UserRef  string
	Question string
	Snapshot finance.Snapshot
}

// Meta accompanies every advisory answer, blocked or not.
type Meta struct {
	Disclaimer    string        `json:"disclaimer"`
	Intent        intent.Intent `json:"intent"`
	RegulatedMode bool          `json:"regulated_mode"`
}

// Response is the only externally observable output of the pipeline.
type Response struct {
	Answer  string `json:"answer"`
	Blocked bool   `json:"is_blocked"`
	Meta    Meta   `json:"meta"`
}

// Mediator runs the fixed advisory pipeline: classify, apply the compliance
// gate, build context, dispatch to the provider, and write exactly one
// audit record per request. It holds no mutable state and is safe for
// concurrent use.
type Mediator struct {
	mode     compliance.Mode
	provider provider.Provider
	sink     audit.Sink
}

// NewMediator wires the pipeline. Mode and provider are fixed for the
// process lifetime; per-request variation enters only through Ask.
func NewMediator(mode compliance.Mode, p provider.Provider, sink audit.Sink) *Mediator {
	return &Mediator{mode: mode, provider: p, sink: sink}
}

// Ask executes one request through the pipeline. Blocked requests
// short-circuit before context assembly and never reach the provider.
// Provider trouble never escapes as an error; the only error Ask returns
// is an audit write failure, because advice must not be served unaudited.
func (m *Mediator) Ask(ctx context.Context, req Request) (Response, error) {
	in := intent.Classify(req.Question)
	decision := compliance.Decide(in, m.mode)

	if !decision.Allowed {
		resp := Response{
			Answer:  compliance.Refusal(in),
			Blocked: true,
			Meta:    m.meta(in),
		}
		if err := m.writeAudit(ctx, audit.ActionAdvisorBlocked, req, in); err != nil {
			return Response{}, err
		}
		slog.Info("advisory request blocked", "intent", in, "mode", m.mode)
		return resp, nil
	}

	fc := finance.BuildContext(req.Snapshot)

	answer, err := m.provider.ProduceAdvice(ctx, req.Question, fc)
	if err != nil || strings.TrimSpace(answer) == "" {
		// Providers degrade internally; reaching this branch means an
		// implementation broke the contract. Guard the caller anyway.
		slog.Warn("advisor provider failed past its degradation boundary", "error", err)
		answer = fallbackAnswer
	}

	resp := Response{
		Answer:  answer,
		Blocked: false,
		Meta:    m.meta(in),
	}
	if err := m.writeAudit(ctx, audit.ActionAdvisorAsked, req, in); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// writeAudit emits the single per-request record after the pipeline has
// settled on its outcome. The question is redacted here; no other path
// hands user text to the sink.
func (m *Mediator) writeAudit(ctx context.Context, action string, req Request, in intent.Intent) error {
	rec := audit.Record{
		UserRef:  req.UserRef,
		Action:   action,
		Question: audit.Redact(req.Question),
		Intent:   in.String(),
	}
	if err := m.sink.WriteAudit(ctx, rec); err != nil {
		return fmt.Errorf("writing audit record: %w", err)
	}
	return nil
}

func (m *Mediator) meta(in intent.Intent) Meta {
	return Meta{
		Disclaimer:    compliance.AIDisclaimer,
		Intent:        in,
		RegulatedMode: m.mode == compliance.RegulatedPartner,
	}
}
