package intentsqlctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/intentsql/intentsql/internal/engine"
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/schema/static"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitRefused = 3
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("intentsqlctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "intentsql API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 10s)")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return exitUsage
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}
	remote := remote{client: client, baseURL: strings.TrimRight(*baseURL, "/"), apiKey: *apiKey, stdout: stdout, stderr: stderr}

	command := strings.TrimSpace(fs.Arg(0))
	rest := fs.Args()[1:]
	switch command {
	case "health":
		return remote.call(ctx, http.MethodGet, "/v1/health", nil)
	case "ready":
		return remote.call(ctx, http.MethodGet, "/v1/ready", nil)
	case "schema":
		return remote.call(ctx, http.MethodGet, "/v1/schema", nil)
	case "resolve":
		return runResolve(ctx, remote, rest)
	case "explain":
		return runExplain(ctx, rest, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return exitUsage
	}
}

type questionFlags struct {
	question   string
	intentFile string
}

func (q *questionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&q.question, "question", "", "natural-language question")
	fs.StringVar(&q.intentFile, "intent", "", "JSON file holding the raw intent; omit to let the server extract it")
}

func (q *questionFlags) rawIntent() (*intent.RawIntent, error) {
	if q.intentFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(q.intentFile)
	if err != nil {
		return nil, fmt.Errorf("read intent file: %w", err)
	}
	var raw intent.RawIntent
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode intent file: %w", err)
	}
	return &raw, nil
}

func runResolve(ctx context.Context, r remote, args []string) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	var q questionFlags
	q.register(fs)
	execute := fs.Bool("execute", false, "run the accepted SQL and include the rows")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if strings.TrimSpace(q.question) == "" {
		_, _ = fmt.Fprintln(r.stderr, "resolve: -question is required")
		return exitUsage
	}
	raw, err := q.rawIntent()
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "resolve: %v\n", err)
		return exitFailure
	}

	payload, err := json.Marshal(map[string]any{
		"question": q.question,
		"intent":   raw,
		"execute":  *execute,
	})
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "resolve: %v\n", err)
		return exitFailure
	}
	return r.call(ctx, http.MethodPost, "/v1/resolve", payload)
}

// runExplain resolves a question locally against a schema file. No server,
// model or database is involved, so an intent file is required.
func runExplain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("explain", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var q questionFlags
	q.register(fs)
	schemaFile := fs.String("schema-file", "", "YAML schema file")
	strict := fs.Bool("strict", false, "refuse metrics inferred from the question")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *schemaFile == "" || strings.TrimSpace(q.question) == "" || q.intentFile == "" {
		_, _ = fmt.Fprintln(stderr, "explain: -schema-file, -question and -intent are required")
		return exitUsage
	}

	provider, err := static.LoadFile(*schemaFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "explain: %v\n", err)
		return exitFailure
	}
	raw, err := q.rawIntent()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "explain: %v\n", err)
		return exitFailure
	}

	svc := &engine.Service{
		Schema:       provider,
		Orchestrator: engine.NewOrchestrator(engine.Options{RefuseSemanticFallback: *strict}),
	}
	resp, err := svc.Resolve(ctx, engine.Request{Question: q.question, Intent: raw})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "explain: %v\n", err)
		return exitFailure
	}

	formatted, err := json.MarshalIndent(intent.ViewOf(resp.Outcome), "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "explain: %v\n", err)
		return exitFailure
	}
	_, _ = fmt.Fprintln(stdout, string(formatted))
	if _, refused := resp.Outcome.(*intent.Refused); refused {
		return exitRefused
	}
	return exitOK
}

type remote struct {
	client  *http.Client
	baseURL string
	apiKey  string
	stdout  io.Writer
	stderr  io.Writer
}

func (r remote) call(ctx context.Context, method, path string, body []byte) int {
	code, responseBody, err := r.do(ctx, method, r.baseURL+path, body)
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "request failed: %v\n", err)
		return exitFailure
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(r.stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return exitFailure
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(r.stdout, pretty)
	} else if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(r.stdout, string(responseBody))
	}
	if refused(responseBody) {
		return exitRefused
	}
	return exitOK
}

func (r remote) do(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(r.apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(r.apiKey))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func refused(raw []byte) bool {
	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return false
	}
	return status.Status == intent.StatusRefused
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: intentsqlctl [flags] <command> [command flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health    GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready     GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema    GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  resolve   POST /v1/resolve  -question q [-intent file.json] [-execute]")
	_, _ = fmt.Fprintln(w, "  explain   offline resolution  -schema-file f.yaml -question q -intent file.json [-strict]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "exit status 3 means the question was refused.")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
