package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/intentsql/intentsql/internal/extractor"
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/observability"
	"github.com/intentsql/intentsql/internal/query"
	"github.com/intentsql/intentsql/internal/schema"
)

const statusFailed = "failed"

var (
	ErrQuestionRequired  = errors.New("question is required")
	ErrExtractorMissing  = errors.New("no intent supplied and no extractor configured")
	ErrExecutionDisabled = errors.New("query execution is disabled")
	ErrSchema            = errors.New("load schema")
	ErrExtraction        = errors.New("extract intent")
	ErrExecution         = errors.New("execute query")
)

// Service wraps the pure orchestrator with the blocking collaborators: the
// schema provider, the intent extractor and the query executor.
type Service struct {
	Schema       schema.Provider
	Extractor    extractor.Extractor
	Executor     query.Engine
	Orchestrator *Orchestrator
	Logger       *slog.Logger
	RowLimit     int
}

type Request struct {
	Question string
	Intent   *intent.RawIntent
	Execute  bool
}

type Response struct {
	Outcome  intent.Outcome
	Intent   intent.RawIntent
	Result   *query.Result
	Duration time.Duration
}

func (s *Service) Resolve(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, ErrQuestionRequired
	}
	if req.Execute && s.Executor == nil {
		return Response{}, ErrExecutionDisabled
	}

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		s.recordFailure(ctx, "schema", err, time.Since(start))
		return Response{}, err
	}

	var raw intent.RawIntent
	switch {
	case req.Intent != nil:
		raw = *req.Intent
	case s.Extractor != nil:
		extracted, err := s.Extractor.Extract(ctx, extractor.Request{
			Question: question,
			Tables:   extractor.TablesOf(snapshot),
		})
		if err != nil {
			s.recordFailure(ctx, "extraction", err, time.Since(start))
			return Response{}, fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		raw = extracted.Intent
	default:
		return Response{}, ErrExtractorMissing
	}

	orchestrator := s.Orchestrator
	if orchestrator == nil {
		orchestrator = NewOrchestrator(Options{})
	}
	outcome := orchestrator.Resolve(snapshot, question, raw)
	resp := Response{Outcome: outcome, Intent: raw}

	if accepted, ok := outcome.(*intent.Accepted); ok && req.Execute {
		result, err := s.Executor.Execute(ctx, query.Request{
			SQL:      accepted.SQL,
			RowLimit: s.RowLimit,
			Tables:   []string{accepted.Intent.Table},
		})
		if err != nil {
			s.recordFailure(ctx, "execution", err, time.Since(start))
			return Response{}, fmt.Errorf("%w: %w", ErrExecution, err)
		}
		resp.Result = &result
	}

	resp.Duration = time.Since(start)
	s.record(ctx, outcome, resp.Duration)
	return resp, nil
}

// Snapshot loads the schema the next resolution would see.
func (s *Service) Snapshot(ctx context.Context) (schema.Schema, error) {
	if s.Schema == nil {
		return schema.Schema{}, fmt.Errorf("%w: no schema provider configured", ErrSchema)
	}
	snapshot, err := schema.Load(ctx, s.Schema)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return snapshot, nil
}

func (s *Service) record(ctx context.Context, outcome intent.Outcome, elapsed time.Duration) {
	view := intent.ViewOf(outcome)
	observability.ObserveResolution(observability.Resolution{
		Status:           view.Status,
		Reason:           view.Reason,
		Confidence:       view.Confidence,
		Rounds:           view.Rounds,
		SemanticFallback: view.SemanticFallback,
		Elapsed:          elapsed,
	})

	attrs := []any{
		slog.String("status", view.Status),
		slog.Int("rounds", view.Rounds),
		slog.String("duration", elapsed.String()),
	}
	switch o := outcome.(type) {
	case *intent.Accepted:
		attrs = append(attrs,
			slog.String("table", o.Intent.Table),
			slog.Float64("confidence", o.Confidence),
			slog.Bool("semantic_fallback", view.SemanticFallback),
			slog.Int("warnings", len(o.Warnings)),
		)
	case *intent.Refused:
		attrs = append(attrs, slog.String("reason", string(o.Reason)))
	}
	observability.LoggerFromContext(ctx, s.Logger).InfoContext(ctx, "resolution_completed", attrs...)
}

// recordFailure accounts for a resolution that ended in an infrastructure
// error rather than an outcome. stage becomes the reason label.
func (s *Service) recordFailure(ctx context.Context, stage string, err error, elapsed time.Duration) {
	observability.ObserveResolution(observability.Resolution{
		Status:  statusFailed,
		Reason:  stage,
		Elapsed: elapsed,
	})
	observability.LoggerFromContext(ctx, s.Logger).WarnContext(ctx, "resolution_completed",
		slog.String("status", statusFailed),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
		slog.String("duration", elapsed.String()),
	)
}
