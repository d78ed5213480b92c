package query

import (
	"context"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/auton8n-git/auton8n/pkg/engine"
)

// DefaultMaxSteps bounds the work a single evaluation may do.
const DefaultMaxSteps = 100_000

// Filter is a compiled Starlark boolean expression over one result.
//
// The expression sees these names:
//
//	ref, name, workflow_id, description   string
//	verdict, category, tier               string
//	complexity, trigger                   string
//	active, valid, has_credentials        bool
//	node_count                            int
//	integrations, node_types, tags        list of string
//	issues, deprecated, advisories        list of string
//
// For example:
//
//	verdict == "production_ready" and "Slack" in integrations
//	node_count > 20 or "duplicate_name" in issues
type Filter struct {
	src      string
	expr     syntax.Expr
	maxSteps uint64
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n uint64) FilterOption {
	return func(f *Filter) {
		f.maxSteps = n
	}
}

// Compile parses src as a Starlark expression.
func Compile(src string, opts ...FilterOption) (*Filter, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("empty filter expression")
	}

	expr, err := syntax.ParseExpr("where", src, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	f := &Filter{src: src, expr: expr, maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.src
}

// Match evaluates the filter against r and reports the truth value of the
// outcome.
func (f *Filter) Match(r *engine.Result) (bool, error) {
	thread := &starlark.Thread{
		Name:  "where",
		Print: func(_ *starlark.Thread, _ string) {},
	}
	thread.SetMaxExecutionSteps(f.maxSteps)

	v, err := starlark.EvalExpr(thread, f.expr, Env(r))
	if err != nil {
		return false, fmt.Errorf("filter %q failed on %s: %w", f.src, r.Ref, err)
	}
	return bool(v.Truth()), nil
}

// Select returns the results matching f, in their original order. It stops
// at the first evaluation error or when ctx is done.
func (f *Filter) Select(ctx context.Context, results []*engine.Result) ([]*engine.Result, error) {
	var out []*engine.Result
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := f.Match(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Env builds the predeclared names a filter sees for r. The same fields are
// also bound as attributes of a "workflow" struct.
func Env(r *engine.Result) starlark.StringDict {
	issues := make([]string, 0, len(r.Report.Issues)+len(r.Report.Warnings))
	for _, i := range r.Report.Issues {
		issues = append(issues, string(i.Kind))
	}
	for _, i := range r.Report.Warnings {
		issues = append(issues, string(i.Kind))
	}

	deprecated := make([]string, 0, len(r.Report.Deprecated))
	for _, d := range r.Report.Deprecated {
		deprecated = append(deprecated, d.Type)
	}

	advisories := make([]string, 0, len(r.Advisories))
	for _, a := range r.Advisories {
		advisories = append(advisories, a.Policy)
	}

	env := starlark.StringDict{
		"ref":             starlark.String(r.Ref),
		"name":            starlark.String(r.Name),
		"workflow_id":     starlark.String(r.WorkflowID),
		"description":     starlark.String(r.Description),
		"verdict":         starlark.String(r.Verdict),
		"category":        starlark.String(r.Category),
		"tier":            starlark.String(r.Resolution.Tier),
		"complexity":      starlark.String(r.Complexity),
		"trigger":         starlark.String(r.TriggerType),
		"active":          starlark.Bool(r.Active),
		"valid":           starlark.Bool(r.Err == nil && r.Report.Valid()),
		"has_credentials": starlark.Bool(r.HasCredentials),
		"node_count":      starlark.MakeInt(r.NodeCount),
		"integrations":    stringList(r.Integrations),
		"node_types":      stringList(r.NodeTypes),
		"tags":            stringList(r.Tags),
		"issues":          stringList(issues),
		"deprecated":      stringList(deprecated),
		"advisories":      stringList(advisories),
	}

	env["workflow"] = starlarkstruct.FromStringDict(starlarkstruct.Default, env)

	return env
}

func stringList(items []string) *starlark.List {
	values := make([]starlark.Value, len(items))
	for i, s := range items {
		values[i] = starlark.String(s)
	}
	list := starlark.NewList(values)
	list.Freeze()
	return list
}
