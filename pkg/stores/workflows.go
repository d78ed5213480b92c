package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/auton8n-git/auton8n/pkg/engine"
)

// ResultSink indexes results produced by a runner. Rows are tagged with
// runID; an empty runID leaves them untagged.
func (s *SQLiteStore) ResultSink(runID string) engine.ResultSink {
	return &resultSink{store: s, runID: runID}
}

type resultSink struct {
	store *SQLiteStore
	runID string
}

func (r *resultSink) Put(ctx context.Context, result *engine.Result) error {
	return r.store.UpsertResult(ctx, r.runID, result)
}

// UpsertResult writes one result to the index, replacing any previous row
// for the same ref together with its issues and search document.
func (s *SQLiteStore) UpsertResult(ctx context.Context, runID string, result *engine.Result) error {
	integrations := result.Integrations
	if integrations == nil {
		integrations = []string{}
	}
	blob, err := json.Marshal(integrations)
	if err != nil {
		return fmt.Errorf("failed to encode integrations: %w", err)
	}

	var run *string
	if runID != "" {
		run = &runID
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO workflows (
			ref, name, workflow_id, active, category, tier, verdict, trigger_type,
			complexity, node_count, integrations, description, has_credentials,
			valid, run_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET
			name = excluded.name,
			workflow_id = excluded.workflow_id,
			active = excluded.active,
			category = excluded.category,
			tier = excluded.tier,
			verdict = excluded.verdict,
			trigger_type = excluded.trigger_type,
			complexity = excluded.complexity,
			node_count = excluded.node_count,
			integrations = excluded.integrations,
			description = excluded.description,
			has_credentials = excluded.has_credentials,
			valid = excluded.valid,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at
	`

	_, err = tx.ExecContext(ctx, query,
		result.Ref,
		result.Name,
		result.WorkflowID,
		result.Active,
		result.Category,
		string(result.Resolution.Tier),
		string(result.Verdict),
		string(result.TriggerType),
		string(result.Complexity),
		result.NodeCount,
		string(blob),
		result.Description,
		result.HasCredentials,
		result.Err == nil && result.Report.Valid(),
		run,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert workflow: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_issues WHERE ref = ?`, result.Ref); err != nil {
		return fmt.Errorf("failed to clear workflow issues: %w", err)
	}

	insertIssue := `
		INSERT INTO workflow_issues (ref, kind, severity, node_index, node_name, field, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	add := func(severity string, issues []engine.Issue) error {
		for _, i := range issues {
			_, err := tx.ExecContext(ctx, insertIssue,
				result.Ref, string(i.Kind), severity, i.NodeIndex, i.NodeName, i.Field, i.Message)
			if err != nil {
				return fmt.Errorf("failed to insert workflow issue: %w", err)
			}
		}
		return nil
	}
	deprecated := make([]engine.Issue, 0, len(result.Report.Deprecated))
	for _, d := range result.Report.Deprecated {
		deprecated = append(deprecated, d.Issue())
	}
	if err := add(SeverityError, result.Report.Issues); err != nil {
		return err
	}
	if err := add(SeverityDeprecated, deprecated); err != nil {
		return err
	}
	if err := add(SeverityWarning, result.Report.Warnings); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM workflows_fts WHERE ref = ?`, result.Ref); err != nil {
		return fmt.Errorf("failed to clear search document: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO workflows_fts (ref, name, description, integrations, category) VALUES (?, ?, ?, ?, ?)`,
		result.Ref, result.Name, result.Description, strings.Join(integrations, " "), result.Category)
	if err != nil {
		return fmt.Errorf("failed to index search document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit workflow: %w", err)
	}

	return nil
}

const workflowColumns = `ref, name, workflow_id, active, category, tier, verdict, trigger_type,
	complexity, node_count, integrations, description, has_credentials, valid, run_id, updated_at`

func scanWorkflow(row interface{ Scan(...any) error }) (*Workflow, error) {
	w := &Workflow{}
	var integrations string
	err := row.Scan(
		&w.Ref,
		&w.Name,
		&w.WorkflowID,
		&w.Active,
		&w.Category,
		&w.Tier,
		&w.Verdict,
		&w.TriggerType,
		&w.Complexity,
		&w.NodeCount,
		&integrations,
		&w.Description,
		&w.HasCredentials,
		&w.Valid,
		&w.RunID,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(integrations), &w.Integrations); err != nil {
		return nil, fmt.Errorf("failed to decode integrations for %s: %w", w.Ref, err)
	}
	return w, nil
}

// GetWorkflow retrieves an indexed workflow by ref
func (s *SQLiteStore) GetWorkflow(ctx context.Context, ref string) (*Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE ref = ?`

	w, err := scanWorkflow(s.db.QueryRowContext(ctx, query, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow not found: %s", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return w, nil
}

// ListWorkflows lists indexed workflows matching the filter, ordered by ref
func (s *SQLiteStore) ListWorkflows(ctx context.Context, filter Filter) ([]*Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE 1=1`
	args := []interface{}{}

	for _, c := range []struct {
		column string
		value  string
	}{
		{"category", filter.Category},
		{"verdict", filter.Verdict},
		{"trigger_type", filter.TriggerType},
		{"complexity", filter.Complexity},
	} {
		if c.value != "" {
			query += ` AND ` + c.column + ` = ?`
			args = append(args, c.value)
		}
	}

	query += ` ORDER BY ref`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	workflows := []*Workflow{}
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// ListIssues returns the findings recorded for ref, in insertion order
func (s *SQLiteStore) ListIssues(ctx context.Context, ref string) ([]*Issue, error) {
	query := `
		SELECT id, ref, kind, severity, node_index, node_name, field, message
		FROM workflow_issues
		WHERE ref = ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	issues := []*Issue{}
	for rows.Next() {
		i := &Issue{}
		if err := rows.Scan(&i.ID, &i.Ref, &i.Kind, &i.Severity, &i.NodeIndex, &i.NodeName, &i.Field, &i.Message); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, i)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}

	return issues, nil
}

// Search runs a full-text query over workflow names, descriptions,
// integrations and categories. Every term must match; a term matches as a
// prefix.
func (s *SQLiteStore) Search(ctx context.Context, text string, limit int) ([]*SearchHit, error) {
	match := ftsQuery(text)
	if match == "" {
		return []*SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT w.ref, w.name, w.category, w.verdict,
			snippet(workflows_fts, 2, '[', ']', '...', 12),
			workflows_fts.rank
		FROM workflows_fts
		JOIN workflows w ON w.ref = workflows_fts.ref
		WHERE workflows_fts MATCH ?
		ORDER BY workflows_fts.rank, w.ref
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, match, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search workflows: %w", err)
	}
	defer rows.Close()

	hits := []*SearchHit{}
	for rows.Next() {
		h := &SearchHit{}
		if err := rows.Scan(&h.Ref, &h.Name, &h.Category, &h.Verdict, &h.Snippet, &h.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		hits = append(hits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search hits: %w", err)
	}

	return hits, nil
}

// ftsQuery quotes each whitespace-separated term so user input cannot use
// FTS5 operators.
func ftsQuery(text string) string {
	terms := strings.Fields(text)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"*`)
	}
	return strings.Join(quoted, " ")
}

// Prune deletes indexed workflows whose ref is not in keep and returns how
// many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, keep []string) (int64, error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_refs (ref TEXT PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("failed to create keep table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep_refs`); err != nil {
		return 0, fmt.Errorf("failed to reset keep table: %w", err)
	}
	for _, ref := range keep {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep_refs (ref) VALUES (?)`, ref); err != nil {
			return 0, fmt.Errorf("failed to record kept ref: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM workflows_fts WHERE ref NOT IN (SELECT ref FROM keep_refs)`); err != nil {
		return 0, fmt.Errorf("failed to prune search documents: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM workflows WHERE ref NOT IN (SELECT ref FROM keep_refs)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prune workflows: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}

	return removed, nil
}

// Reset removes every indexed workflow. Runs are kept.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM workflows_fts`,
		`DELETE FROM workflow_issues`,
		`DELETE FROM workflows`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to reset index: %w", err)
		}
	}

	return tx.Commit()
}
