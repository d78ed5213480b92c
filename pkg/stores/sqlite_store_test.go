package stores

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/auton8n-git/auton8n/pkg/engine"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: MemoryPath,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

func slackResult() *engine.Result {
	return &engine.Result{
		Ref:          "slack-digest.json",
		Name:         "Slack Digest",
		WorkflowID:   "wf-1",
		Active:       true,
		Verdict:      engine.VerdictProductionReady,
		Category:     "Communication & Messaging",
		Resolution:   engine.Resolution{Category: "Communication & Messaging", Tier: engine.TierCanonical, Key: "slack"},
		Integrations: []string{"Slack", "Gmail"},
		NodeCount:    3,
		Complexity:   engine.ComplexityLow,
		TriggerType:  engine.TriggerScheduled,
		Description:  "Sends a daily digest to Slack",
		Report: engine.Report{
			Warnings: []engine.Issue{{Kind: engine.IssueNoConnections, NodeIndex: -1, Message: "no connections"}},
		},
	}
}

func brokenResult() *engine.Result {
	return &engine.Result{
		Ref:        "broken.json",
		Name:       "Broken",
		Verdict:    engine.VerdictNeedsTrigger,
		Category:   "Uncategorized",
		Resolution: engine.Resolution{Category: "Uncategorized", Tier: engine.TierNone},
		NodeCount:  2,
		Report: engine.Report{
			Issues: []engine.Issue{
				{Kind: engine.IssueDuplicateName, NodeIndex: 1, NodeName: "Set", Field: "name", Message: "duplicate node name"},
			},
		},
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: MemoryPath,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestHealthCheckUninitialized(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: MemoryPath})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail before Init")
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	tables := []string{"runs", "workflows", "workflow_issues", "workflows_fts"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}

	// Migrating twice is a no-op
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestFileStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	store, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.UpsertResult(ctx, "", slackResult()); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	store, err = Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()

	w, err := store.GetWorkflow(ctx, "slack-digest.json")
	if err != nil {
		t.Fatalf("workflow lost across reopen: %v", err)
	}
	if w.Name != "Slack Digest" {
		t.Errorf("expected name Slack Digest, got %s", w.Name)
	}
}

// TestRunLifecycle tests creating, completing and listing runs
func TestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	run, err := store.CreateRun(ctx, "classify", "/data/workflows")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected generated run ID")
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != RunStatusRunning {
		t.Errorf("expected status running, got %s", got.Status)
	}
	if got.CompletedAt != nil {
		t.Error("expected no completion time for a running run")
	}

	summary := engine.Summarize([]*engine.Result{slackResult(), brokenResult()}, nil)
	if err := store.CompleteRun(ctx, run.ID, summary, nil); err != nil {
		t.Fatalf("failed to complete run: %v", err)
	}

	got, err = store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != RunStatusCompleted {
		t.Errorf("expected status completed, got %s", got.Status)
	}
	if got.Total != 2 {
		t.Errorf("expected total 2, got %d", got.Total)
	}
	if got.CompletedAt == nil {
		t.Error("expected completion time")
	}
	if got.Summary == "{}" {
		t.Error("expected encoded summary")
	}

	second, err := store.CreateRun(ctx, "validate", "/data/workflows")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if err := store.CompleteRun(ctx, second.ID, nil, context.Canceled); err != nil {
		t.Fatalf("failed to complete run: %v", err)
	}
	got, _ = store.GetRun(ctx, second.ID)
	if got.Status != RunStatusCancelled {
		t.Errorf("expected status cancelled, got %s", got.Status)
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}

	if _, err := store.GetRun(ctx, "missing"); err == nil {
		t.Error("expected error for missing run")
	}
	if err := store.CompleteRun(ctx, "missing", nil, errors.New("boom")); err == nil {
		t.Error("expected error completing missing run")
	}
}

// TestUpsertResult tests indexing results through the sink
func TestUpsertResult(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	run, err := store.CreateRun(ctx, "classify", "/data")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	sink := store.ResultSink(run.ID)

	if err := sink.Put(ctx, slackResult()); err != nil {
		t.Fatalf("failed to put result: %v", err)
	}
	if err := sink.Put(ctx, brokenResult()); err != nil {
		t.Fatalf("failed to put result: %v", err)
	}

	w, err := store.GetWorkflow(ctx, "slack-digest.json")
	if err != nil {
		t.Fatalf("failed to get workflow: %v", err)
	}
	if w.Category != "Communication & Messaging" || w.Tier != "canonical" {
		t.Errorf("unexpected category/tier: %s/%s", w.Category, w.Tier)
	}
	if !w.Active || !w.Valid {
		t.Errorf("expected active and valid, got active=%v valid=%v", w.Active, w.Valid)
	}
	if len(w.Integrations) != 2 || w.Integrations[0] != "Slack" {
		t.Errorf("unexpected integrations: %v", w.Integrations)
	}
	if w.RunID == nil || *w.RunID != run.ID {
		t.Errorf("expected run id %s, got %v", run.ID, w.RunID)
	}

	broken, err := store.GetWorkflow(ctx, "broken.json")
	if err != nil {
		t.Fatalf("failed to get workflow: %v", err)
	}
	if broken.Valid {
		t.Error("expected broken workflow to be invalid")
	}
	if broken.Integrations == nil || len(broken.Integrations) != 0 {
		t.Errorf("expected empty integrations, got %v", broken.Integrations)
	}

	issues, err := store.ListIssues(ctx, "broken.json")
	if err != nil {
		t.Fatalf("failed to list issues: %v", err)
	}
	if len(issues) != 1 || issues[0].Kind != "duplicate_name" || issues[0].Severity != SeverityError {
		t.Errorf("unexpected issues: %+v", issues)
	}

	warnings, err := store.ListIssues(ctx, "slack-digest.json")
	if err != nil {
		t.Fatalf("failed to list issues: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Severity != SeverityWarning {
		t.Errorf("unexpected warnings: %+v", warnings)
	}
}

func TestUpsertReplacesPreviousRow(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	sink := store.ResultSink("")

	r := brokenResult()
	if err := sink.Put(ctx, r); err != nil {
		t.Fatalf("failed to put result: %v", err)
	}

	r.Report = engine.Report{}
	r.Verdict = engine.VerdictProductionReady
	r.Category = "Data Processing & Analysis"
	if err := sink.Put(ctx, r); err != nil {
		t.Fatalf("failed to put result: %v", err)
	}

	w, err := store.GetWorkflow(ctx, "broken.json")
	if err != nil {
		t.Fatalf("failed to get workflow: %v", err)
	}
	if w.Verdict != "production_ready" || w.Category != "Data Processing & Analysis" {
		t.Errorf("row not replaced: %+v", w)
	}
	if w.RunID != nil {
		t.Errorf("expected no run id, got %s", *w.RunID)
	}

	issues, _ := store.ListIssues(ctx, "broken.json")
	if len(issues) != 0 {
		t.Errorf("expected stale issues to be cleared, got %d", len(issues))
	}

	hits, _ := store.Search(ctx, "broken", 10)
	if len(hits) != 1 {
		t.Errorf("expected a single search document, got %d", len(hits))
	}
}

// TestListWorkflows tests filtered listing
func TestListWorkflows(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, r := range []*engine.Result{slackResult(), brokenResult()} {
		if err := store.UpsertResult(ctx, "", r); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"broken.json", "slack-digest.json"}},
		{"by verdict", Filter{Verdict: "needs_trigger"}, []string{"broken.json"}},
		{"by category", Filter{Category: "Communication & Messaging"}, []string{"slack-digest.json"}},
		{"by trigger", Filter{TriggerType: "Scheduled"}, []string{"slack-digest.json"}},
		{"combined miss", Filter{Verdict: "needs_trigger", Category: "Communication & Messaging"}, nil},
		{"limit", Filter{Limit: 1}, []string{"broken.json"}},
		{"offset", Filter{Limit: 1, Offset: 1}, []string{"slack-digest.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListWorkflows(ctx, tt.filter)
			if err != nil {
				t.Fatalf("failed to list workflows: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d workflows, got %d", len(tt.want), len(got))
			}
			for i, w := range got {
				if w.Ref != tt.want[i] {
					t.Errorf("expected %s at %d, got %s", tt.want[i], i, w.Ref)
				}
			}
		})
	}
}

// TestSearch tests full-text search
func TestSearch(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, r := range []*engine.Result{slackResult(), brokenResult()} {
		if err := store.UpsertResult(ctx, "", r); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
	}

	tests := []struct {
		query string
		want  int
	}{
		{"slack", 1},
		{"gmai", 1},
		{"daily digest", 1},
		{"uncategorized", 1},
		{"daily broken", 0},
		{"nothing", 0},
		{"   ", 0},
		{`"slack" OR`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			hits, err := store.Search(ctx, tt.query, 10)
			if err != nil {
				t.Fatalf("search %q failed: %v", tt.query, err)
			}
			if len(hits) != tt.want {
				t.Errorf("search %q: expected %d hits, got %d", tt.query, tt.want, len(hits))
			}
		})
	}

	hits, _ := store.Search(ctx, "digest", 10)
	if len(hits) != 1 || hits[0].Ref != "slack-digest.json" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Verdict != "production_ready" {
		t.Errorf("expected verdict on hit, got %s", hits[0].Verdict)
	}
}

func TestFTSQuery(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"slack":         `"slack"*`,
		"google sheets": `"google"* "sheets"*`,
		`say "hi"`:      `"say"* """hi"""*`,
	}
	for in, want := range tests {
		if got := ftsQuery(in); got != want {
			t.Errorf("ftsQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestPruneAndReset tests removing stale rows
func TestPruneAndReset(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, r := range []*engine.Result{slackResult(), brokenResult()} {
		if err := store.UpsertResult(ctx, "", r); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
	}

	removed, err := store.Prune(ctx, []string{"slack-digest.json", "new.json"})
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, err := store.GetWorkflow(ctx, "broken.json"); err == nil {
		t.Error("expected pruned workflow to be gone")
	}
	issues, _ := store.ListIssues(ctx, "broken.json")
	if len(issues) != 0 {
		t.Errorf("expected issues to cascade, got %d", len(issues))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.Workflows != 1 || stats.ByVerdict["production_ready"] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("failed to reset: %v", err)
	}
	stats, _ = store.Stats(ctx)
	if stats.Workflows != 0 || stats.Issues != 0 {
		t.Errorf("expected empty index, got %+v", stats)
	}
	hits, _ := store.Search(ctx, "slack", 10)
	if len(hits) != 0 {
		t.Errorf("expected empty search index, got %d", len(hits))
	}
}

// TestMain sets up and tears down test environment
func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
