package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/intentsql/intentsql/internal/schema"
)

func TestStripMarkdownJSON(t *testing.T) {
	got := stripMarkdownJSON("```json\n{\"table\":\"scores\"}\n```")
	if got != `{"table":"scores"}` {
		t.Fatalf("stripMarkdownJSON() = %q", got)
	}
}

func TestDecodeIntentRejectsMalformedOutput(t *testing.T) {
	for _, content := range []string{"", "SELECT 1", `{"table": "x", "sql": "SELECT 1"}`} {
		if _, err := decodeIntent(content); err == nil {
			t.Fatalf("decodeIntent(%q) expected error", content)
		}
	}
}

func TestExtractPostsChatCompletion(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		content := "```json\n{\"table\":\"scores\",\"metrics\":[],\"dimensions\":[\"year\"],\"limit\":10}\n```"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		})
	}))
	defer server.Close()

	e, err := NewOpenAIExtractor(OpenAIConfig{BaseURL: server.URL + "/", APIKey: "k", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewOpenAIExtractor() error = %v", err)
	}
	s := schema.New(schema.Table{Name: "scores", Columns: []schema.ColumnDescriptor{{Name: "math_score", DeclaredType: "String"}}})
	res, err := e.Extract(context.Background(), Request{Question: "Show average math scores by year", Tables: TablesOf(s)})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if gotAuth != "Bearer k" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Fatalf("model = %v", gotBody["model"])
	}
	if res.Intent.Table != "scores" || len(res.Intent.Metrics) != 0 || res.Intent.Limit == nil || *res.Intent.Limit != 10 {
		t.Fatalf("Intent = %+v", res.Intent)
	}
	if res.Model != "test-model" {
		t.Fatalf("Model = %q", res.Model)
	}
}

func TestExtractReportsUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	e, err := NewOpenAIExtractor(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewOpenAIExtractor() error = %v", err)
	}
	_, err = e.Extract(context.Background(), Request{Question: "x"})
	if err == nil || !strings.Contains(err.Error(), "status=429") {
		t.Fatalf("Extract() error = %v", err)
	}
}

func TestNewOpenAIExtractorRequiresConfig(t *testing.T) {
	if _, err := NewOpenAIExtractor(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected missing base URL error")
	}
	if _, err := NewOpenAIExtractor(OpenAIConfig{BaseURL: "http://x"}); err == nil {
		t.Fatal("expected missing api key error")
	}
}
