// Package engine runs one resolution: sanitize, synthesize, validate and, at
// most once, reconstruct with the casts the validator scheduled.
package engine

import (
	"fmt"

	"github.com/intentsql/intentsql/internal/domain"
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/sanitize"
	"github.com/intentsql/intentsql/internal/schema"
	"github.com/intentsql/intentsql/internal/sqlgen"
	"github.com/intentsql/intentsql/internal/validate"
)

// maxRounds bounds validator invocations per resolution.
const maxRounds = 2

type Validator interface {
	Validate(in validate.Input) intent.Validation
}

type Options struct {
	// RefuseSemanticFallback refuses any intent whose metric had to be
	// inferred from the question instead of taken from the raw intent.
	RefuseSemanticFallback bool
}

type Orchestrator struct {
	validator Validator
	options   Options
}

func NewOrchestrator(options Options) *Orchestrator {
	return &Orchestrator{validator: validate.MultiPass{}, options: options}
}

// WithValidator returns a copy of o that validates with v.
func (o *Orchestrator) WithValidator(v Validator) *Orchestrator {
	clone := *o
	clone.validator = v
	return &clone
}

// Resolve is a pure function of its arguments and safe for concurrent use.
func (o *Orchestrator) Resolve(snapshot schema.Schema, question string, raw intent.RawIntent) intent.Outcome {
	questionDomain := domain.Classify(question)
	sanitized, refused := sanitize.Sanitize(sanitize.Input{
		Raw:      raw,
		Question: question,
		Domain:   questionDomain,
		Schema:   snapshot,
	})
	if refused != nil {
		if refused.AvailableColumns == nil {
			refused.AvailableColumns = columnsOf(snapshot, raw.Table)
		}
		return refused
	}
	available := columnsOf(snapshot, sanitized.Table)

	if o.options.RefuseSemanticFallback && sanitized.HasFallback() {
		details := make([]string, 0, len(sanitized.Metrics))
		for _, m := range sanitized.Metrics {
			if m.SemanticFallback {
				details = append(details, fmt.Sprintf("metric %s(%s) was inferred from the question", m.Aggregation, m.Column))
			}
		}
		return &intent.Refused{
			Reason:           intent.ReasonFallbackNotAllowed,
			Details:          details,
			AvailableColumns: available,
		}
	}

	var casts []intent.CastDirective
	for round := 1; round <= maxRounds; round++ {
		sql := sqlgen.Synthesize(sanitized, casts)
		v := o.validator.Validate(validate.Input{
			Intent:   sanitized,
			SQL:      sql,
			Question: question,
			Schema:   snapshot,
		})

		if reason, details, fatal := fatalOf(v); fatal {
			return &intent.Refused{
				Reason:           reason,
				Details:          details,
				AvailableColumns: available,
				Rounds:           round,
			}
		}
		if round < maxRounds && v.RequiresReconstruction {
			casts = v.Casts()
			continue
		}
		if !v.Executability.Valid {
			return &intent.Refused{
				Reason:           executabilityReason(v.Executability),
				Details:          v.Executability.Issues,
				AvailableColumns: available,
				Rounds:           round,
			}
		}

		warnings := make([]string, 0, len(sanitized.Notes)+len(v.Warnings()))
		warnings = append(warnings, sanitized.Notes...)
		warnings = append(warnings, v.Warnings()...)
		return &intent.Accepted{
			SQL:        sql,
			Confidence: Confidence(question, sanitized, v),
			Validation: v,
			Intent:     sanitized,
			Warnings:   warnings,
			Rounds:     round,
		}
	}
	// Unreachable: the last round always returns.
	return &intent.Refused{Reason: intent.ReasonNotExecutable, AvailableColumns: available, Rounds: maxRounds}
}

// fatalOf reports the passes that can never be repaired by reconstruction.
func fatalOf(v intent.Validation) (intent.Reason, []string, bool) {
	switch {
	case !v.Semantic.Valid:
		return intent.ReasonDomainViolation, v.Semantic.Issues, true
	case !v.Schema.Valid:
		return intent.ReasonSchemaViolation, v.Schema.Issues, true
	}
	return "", nil, false
}

func executabilityReason(res intent.ValidationResult) intent.Reason {
	for _, issue := range res.Issues {
		if !validate.MissingCast(issue) {
			return intent.ReasonNotExecutable
		}
	}
	return intent.ReasonCastMissing
}

func columnsOf(snapshot schema.Schema, table string) []string {
	t, ok := snapshot.Table(table)
	if !ok {
		return nil
	}
	return t.ColumnNames()
}
