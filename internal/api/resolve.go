package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/intentsql/intentsql/internal/auth"
	"github.com/intentsql/intentsql/internal/engine"
	"github.com/intentsql/intentsql/internal/extractor"
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/query"
)

type resolveRequest struct {
	Question string            `json:"question"`
	Intent   *intent.RawIntent `json:"intent"`
	Execute  bool              `json:"execute"`
}

type resolveResponse struct {
	intent.View
	RawIntent  intent.RawIntent `json:"raw_intent"`
	Result     *query.Result    `json:"result,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

func handleResolve(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Resolver == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "RESOLVER_NOT_CONFIGURED", "resolver is not configured", false, nil)
		return
	}

	var request resolveRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid resolve request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	if request.Execute && !auth.Allowed(r.Context(), auth.ScopeExecute) {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", "API key lacks scope "+auth.ScopeExecute, false, nil)
		return
	}

	resp, err := deps.Resolver.Resolve(r.Context(), engine.Request{
		Question: request.Question,
		Intent:   request.Intent,
		Execute:  request.Execute,
	})
	if err != nil {
		writeResolveError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		View:       intent.ViewOf(resp.Outcome),
		RawIntent:  resp.Intent,
		Result:     resp.Result,
		DurationMs: resp.Duration.Milliseconds(),
	})
}

func writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	details := map[string]any{"details": err.Error()}
	switch {
	case errors.Is(err, engine.ErrQuestionRequired):
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
	case errors.Is(err, engine.ErrExtractorMissing):
		writeError(r.Context(), w, http.StatusBadRequest, "INTENT_REQUIRED", "intent is required when extraction is disabled", false, nil)
	case errors.Is(err, engine.ErrExecutionDisabled):
		writeError(r.Context(), w, http.StatusBadRequest, "EXECUTION_DISABLED", "query execution is disabled", false, nil)
	case errors.Is(err, engine.ErrExtraction):
		writeError(r.Context(), w, http.StatusBadGateway, "EXTRACTION_FAILED", "failed to extract intent", true, details)
	case errors.Is(err, engine.ErrSchema):
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema", true, details)
	case errors.Is(err, engine.ErrExecution):
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", "query execution failed", false, details)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "RESOLVE_FAILED", "failed to resolve question", true, details)
	}
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Resolver == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "RESOLVER_NOT_CONFIGURED", "resolver is not configured", false, nil)
		return
	}
	snapshot, err := deps.Resolver.Snapshot(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": extractor.TablesOf(snapshot)})
}
