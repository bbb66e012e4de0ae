package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/intentsql/intentsql/internal/extractor"
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/query"
	"github.com/intentsql/intentsql/internal/schema"
	"github.com/intentsql/intentsql/internal/schema/static"
)

type fakeExtractor struct {
	result  extractor.Result
	err     error
	request extractor.Request
	calls   int
}

func (f *fakeExtractor) Extract(_ context.Context, req extractor.Request) (extractor.Result, error) {
	f.calls++
	f.request = req
	return f.result, f.err
}

type fakeExecutor struct {
	request query.Request
	result  query.Result
	err     error
}

func (f *fakeExecutor) Execute(_ context.Context, req query.Request) (query.Result, error) {
	f.request = req
	return f.result, f.err
}

type failingProvider struct{}

func (failingProvider) ListTables(context.Context) ([]string, error) {
	return nil, errors.New("connection refused")
}

func (failingProvider) GetColumns(context.Context, string) ([]schema.ColumnDescriptor, error) {
	return nil, errors.New("connection refused")
}

func scoresProvider() *static.Provider {
	return static.New(schema.Table{Name: "scores", Columns: []schema.ColumnDescriptor{
		{Name: "math_score", DeclaredType: "Nullable(String)"},
		{Name: "year", DeclaredType: "Int32"},
	}})
}

func TestServiceResolveUsesExtractorAndExecutes(t *testing.T) {
	ext := &fakeExtractor{result: extractor.Result{Intent: intent.RawIntent{Table: "scores"}}}
	exec := &fakeExecutor{result: query.Result{Columns: []string{"year", "avg_math_score"}, Rows: [][]any{{int32(2024), 81.5}}}}
	var logs bytes.Buffer
	svc := &Service{
		Schema:    scoresProvider(),
		Extractor: ext,
		Executor:  exec,
		Logger:    slog.New(slog.NewJSONHandler(&logs, nil)),
		RowLimit:  50,
	}

	resp, err := svc.Resolve(context.Background(), Request{Question: "Show average math scores by year", Execute: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	accepted, ok := resp.Outcome.(*intent.Accepted)
	if !ok {
		t.Fatalf("Outcome = %+v", resp.Outcome)
	}
	if ext.calls != 1 || len(ext.request.Tables) != 1 || ext.request.Tables[0].TableName != "scores" {
		t.Fatalf("extractor request = %+v (calls %d)", ext.request, ext.calls)
	}
	if exec.request.SQL != accepted.SQL || exec.request.RowLimit != 50 {
		t.Fatalf("executor request = %+v", exec.request)
	}
	if len(exec.request.Tables) != 1 || exec.request.Tables[0] != "scores" {
		t.Fatalf("executor tables = %v", exec.request.Tables)
	}
	if resp.Result == nil || len(resp.Result.Rows) != 1 {
		t.Fatalf("Result = %+v", resp.Result)
	}
	if !strings.Contains(logs.String(), `"msg":"resolution_completed"`) {
		t.Fatalf("missing resolution log: %s", logs.String())
	}
}

func TestServiceResolveSkipsExtractorWhenIntentSupplied(t *testing.T) {
	ext := &fakeExtractor{}
	svc := &Service{Schema: scoresProvider(), Extractor: ext}

	raw := intent.RawIntent{Table: "scores", Metrics: []intent.RawMetric{{Column: "math_score", Aggregation: "MAX"}}}
	resp, err := svc.Resolve(context.Background(), Request{Question: "highest math score", Intent: &raw})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ext.calls != 0 {
		t.Fatalf("extractor calls = %d, want 0", ext.calls)
	}
	accepted, ok := resp.Outcome.(*intent.Accepted)
	if !ok {
		t.Fatalf("Outcome = %+v", resp.Outcome)
	}
	if !strings.Contains(accepted.SQL, "MAX(toFloat64(math_score))") {
		t.Fatalf("SQL = %q", accepted.SQL)
	}
	if resp.Result != nil {
		t.Fatal("query should not run unless requested")
	}
}

func TestServiceResolveDoesNotExecuteRefusals(t *testing.T) {
	exec := &fakeExecutor{}
	svc := &Service{Schema: scoresProvider(), Executor: exec}

	raw := intent.RawIntent{Table: "scores"}
	resp, err := svc.Resolve(context.Background(), Request{Question: "Show average values by year", Intent: &raw, Execute: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, ok := resp.Outcome.(*intent.Refused); !ok {
		t.Fatalf("Outcome = %+v", resp.Outcome)
	}
	if exec.request.SQL != "" {
		t.Fatalf("executor called with %q", exec.request.SQL)
	}
}

func TestServiceResolveErrors(t *testing.T) {
	raw := intent.RawIntent{Table: "scores"}
	tests := []struct {
		name string
		svc  *Service
		req  Request
		want error
	}{
		{name: "empty question", svc: &Service{Schema: scoresProvider()}, req: Request{Question: "  ", Intent: &raw}, want: ErrQuestionRequired},
		{name: "schema failure", svc: &Service{Schema: failingProvider{}}, req: Request{Question: "average math score", Intent: &raw}, want: ErrSchema},
		{name: "no provider", svc: &Service{}, req: Request{Question: "average math score", Intent: &raw}, want: ErrSchema},
		{name: "no extractor", svc: &Service{Schema: scoresProvider()}, req: Request{Question: "average math score"}, want: ErrExtractorMissing},
		{name: "extractor failure", svc: &Service{Schema: scoresProvider(), Extractor: &fakeExtractor{err: errors.New("rate limited")}}, req: Request{Question: "average math score"}, want: ErrExtraction},
		{name: "execution disabled", svc: &Service{Schema: scoresProvider()}, req: Request{Question: "average math score", Intent: &raw, Execute: true}, want: ErrExecutionDisabled},
		{name: "execution failure", svc: &Service{Schema: scoresProvider(), Executor: &fakeExecutor{err: errors.New("no files")}}, req: Request{Question: "average math score", Intent: &raw, Execute: true}, want: ErrExecution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Resolve(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Resolve() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func resolutionCount(t *testing.T, status, reason string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, family := range families {
		if family.GetName() != "intentsql_resolutions_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range m.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["status"] == status && labels["reason"] == reason {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestServiceResolveRecordsFailures(t *testing.T) {
	raw := intent.RawIntent{Table: "scores"}
	tests := []struct {
		stage string
		svc   *Service
		req   Request
	}{
		{stage: "schema", svc: &Service{Schema: failingProvider{}}, req: Request{Question: "average math score", Intent: &raw}},
		{stage: "extraction", svc: &Service{Schema: scoresProvider(), Extractor: &fakeExtractor{err: errors.New("rate limited")}}, req: Request{Question: "average math score"}},
		{stage: "execution", svc: &Service{Schema: scoresProvider(), Executor: &fakeExecutor{err: errors.New("no files")}}, req: Request{Question: "average math score", Intent: &raw, Execute: true}},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			var logs bytes.Buffer
			tt.svc.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
			before := resolutionCount(t, "failed", tt.stage)

			if _, err := tt.svc.Resolve(context.Background(), tt.req); err == nil {
				t.Fatal("Resolve() expected error")
			}
			if got := resolutionCount(t, "failed", tt.stage) - before; got != 1 {
				t.Fatalf("failed resolutions delta = %v, want 1", got)
			}
			out := logs.String()
			if !strings.Contains(out, `"msg":"resolution_completed"`) || !strings.Contains(out, `"status":"failed"`) || !strings.Contains(out, `"stage":"`+tt.stage+`"`) {
				t.Fatalf("log = %s", out)
			}
		})
	}
}
