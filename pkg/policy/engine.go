package policy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage"
	"github.com/open-policy-agent/opa/v1/storage/inmem"
	"github.com/rs/zerolog"

	"github.com/auton8n-git/auton8n/pkg/engine"
	"github.com/auton8n-git/auton8n/pkg/workflow"
)

var _ engine.AdvisoryEvaluator = (*Engine)(nil)

// Engine evaluates Rego policies against workflow documents. It implements
// engine.AdvisoryEvaluator and is safe for concurrent use.
type Engine struct {
	mu              sync.RWMutex
	policies        map[string]*compiledPolicy
	store           storage.Store
	logger          zerolog.Logger
	builtinPolicies []Policy
	operation       string
}

// compiledPolicy represents a compiled Rego policy.
type compiledPolicy struct {
	policy   *Policy
	module   *ast.Module
	query    rego.PreparedEvalQuery
	compiled time.Time
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	data      map[string]interface{}
	operation string
}

// WithData exposes values to policies under data.auton8n.config.
func WithData(data map[string]interface{}) Option {
	return func(o *engineOptions) {
		for k, v := range data {
			o.data[k] = v
		}
	}
}

// WithMaxNodes overrides the large-workflow threshold.
func WithMaxNodes(n int) Option {
	return WithData(map[string]interface{}{"max_nodes": n})
}

// WithOperation names the command evaluating policies, exposed as
// input.context.operation.
func WithOperation(op string) Option {
	return func(o *engineOptions) {
		o.operation = op
	}
}

// NewEngine creates a policy engine with the built-in policies loaded.
func NewEngine(logger zerolog.Logger, opts ...Option) (*Engine, error) {
	o := &engineOptions{data: map[string]interface{}{"max_nodes": LargeWorkflowNodes}}
	for _, opt := range opts {
		opt(o)
	}

	e := &Engine{
		policies: make(map[string]*compiledPolicy),
		store: inmem.NewFromObject(map[string]interface{}{
			"auton8n": map[string]interface{}{"config": o.data},
		}),
		logger:          logger.With().Str("component", "policy-engine").Logger(),
		builtinPolicies: GetBuiltinPolicies(),
		operation:       o.operation,
	}

	if err := e.loadBuiltinPolicies(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load built-in policies: %w", err)
	}

	return e, nil
}

// Advise evaluates every enabled policy against the record and converts the
// violations to advisories.
func (e *Engine) Advise(ctx context.Context, rec *workflow.Record, result *engine.Result) ([]engine.Advisory, error) {
	violations, err := e.EvaluateRecord(ctx, rec, result)

	advisories := make([]engine.Advisory, 0, len(violations))
	for _, v := range violations {
		advisories = append(advisories, engine.Advisory{
			Policy:    v.Policy,
			Severity:  string(v.Severity),
			Message:   v.Message,
			NodeIndex: v.NodeIndex,
		})
	}
	return advisories, err
}

// EvaluateRecord builds the policy input for a record and evaluates it.
func (e *Engine) EvaluateRecord(ctx context.Context, rec *workflow.Record, result *engine.Result) ([]PolicyViolation, error) {
	doc, err := rec.Document()
	if err != nil {
		return nil, err
	}

	input := &PolicyInput{
		Workflow: doc,
		Context: &PolicyContext{
			Ref:       rec.Ref,
			Timestamp: time.Now(),
			Operation: e.operation,
		},
	}
	if result != nil {
		input.Result = &ResultInput{
			Verdict:        string(result.Verdict),
			Category:       result.Category,
			Integrations:   result.Integrations,
			NodeCount:      result.NodeCount,
			TriggerType:    string(result.TriggerType),
			Complexity:     string(result.Complexity),
			HasCredentials: result.HasCredentials,
		}
	}

	return e.Evaluate(ctx, input)
}

// Evaluate runs every enabled policy against input. Violations are ordered by
// node index, then policy name, then message. A failing policy does not stop
// the others; its error is joined into the returned error.
func (e *Engine) Evaluate(ctx context.Context, input *PolicyInput) ([]PolicyViolation, error) {
	startTime := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()

	var allViolations []PolicyViolation
	var errs []error

	for _, cp := range e.policies {
		if !cp.policy.Enabled {
			continue
		}

		violations, err := e.evaluatePolicy(ctx, cp, input)
		if err != nil {
			e.logger.Error().Err(err).
				Str("policy", cp.policy.Name).
				Str("ref", input.Context.Ref).
				Msg("Policy evaluation failed")
			errs = append(errs, fmt.Errorf("policy %s evaluation failed: %w", cp.policy.Name, err))
			continue
		}

		allViolations = append(allViolations, violations...)
	}

	sort.Slice(allViolations, func(i, j int) bool {
		a, b := allViolations[i], allViolations[j]
		if a.NodeIndex != b.NodeIndex {
			return a.NodeIndex < b.NodeIndex
		}
		if a.Policy != b.Policy {
			return a.Policy < b.Policy
		}
		return a.Message < b.Message
	})

	e.logger.Debug().
		Str("ref", input.Context.Ref).
		Int("violations", len(allViolations)).
		Dur("duration", time.Since(startTime)).
		Msg("Workflow policy evaluation completed")

	return allViolations, errors.Join(errs...)
}

// evaluatePolicy evaluates a single compiled policy.
func (e *Engine) evaluatePolicy(ctx context.Context, cp *compiledPolicy, input *PolicyInput) ([]PolicyViolation, error) {
	results, err := cp.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("policy evaluation error: %w", err)
	}

	var violations []PolicyViolation
	for _, result := range results {
		if len(result.Expressions) == 0 {
			continue
		}
		denySet, ok := result.Expressions[0].Value.([]interface{})
		if !ok {
			continue
		}
		for _, d := range denySet {
			violations = append(violations, createViolation(cp.policy, d, input))
		}
	}

	return violations, nil
}

// createViolation creates a PolicyViolation from one element of a deny set.
// Elements are either plain message strings or objects with "message",
// "severity" and "node_index" keys.
func createViolation(policy *Policy, result interface{}, input *PolicyInput) PolicyViolation {
	violation := PolicyViolation{
		Policy:    policy.Name,
		Severity:  policy.Severity,
		NodeIndex: -1,
	}
	if input.Context != nil {
		violation.Ref = input.Context.Ref
	}

	switch v := result.(type) {
	case string:
		violation.Message = v
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok {
			violation.Message = msg
		}
		if sev, ok := v["severity"].(string); ok && sev != "" {
			violation.Severity = Severity(sev)
		}
		if idx, ok := toInt(v["node_index"]); ok {
			violation.NodeIndex = idx
		}
	default:
		violation.Message = fmt.Sprintf("%v", result)
	}

	return violation
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		return int(i), err == nil
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

// compileAndStorePolicy compiles a policy and stores it. The policy's module
// must declare a package; its deny set is the evaluated query.
func (e *Engine) compileAndStorePolicy(ctx context.Context, policy *Policy) error {
	module, err := ast.ParseModule(policy.Name, policy.Rego)
	if err != nil {
		return fmt.Errorf("failed to parse policy: %w", err)
	}
	if module == nil {
		return fmt.Errorf("policy %s is empty", policy.Name)
	}

	query := module.Package.Path.String() + ".deny"
	r := rego.New(
		rego.ParsedModule(module),
		rego.Store(e.store),
		rego.Query(query),
	)

	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare query: %w", err)
	}

	e.policies[policy.Name] = &compiledPolicy{
		policy:   policy,
		module:   module,
		query:    prepared,
		compiled: time.Now(),
	}

	e.logger.Debug().
		Str("policy", policy.Name).
		Str("query", query).
		Msg("Policy compiled successfully")

	return nil
}

// loadBuiltinPolicies loads the built-in policies.
func (e *Engine) loadBuiltinPolicies(ctx context.Context) error {
	for i := range e.builtinPolicies {
		p := e.builtinPolicies[i]
		if err := e.compileAndStorePolicy(ctx, &p); err != nil {
			return fmt.Errorf("failed to compile built-in policy %s: %w", p.Name, err)
		}
	}

	e.logger.Debug().
		Int("count", len(e.builtinPolicies)).
		Msg("Built-in policies loaded")

	return nil
}

// LoadPolicies loads and compiles policy files from the given paths. A
// policy with the name of an existing one replaces it.
func (e *Engine) LoadPolicies(ctx context.Context, paths []string) error {
	loader := NewLoader(e.logger)
	policies, err := loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyPolicies(ctx, policies)
}

func (e *Engine) applyPolicies(ctx context.Context, policies []Policy) error {
	for i := range policies {
		if err := e.compileAndStorePolicy(ctx, &policies[i]); err != nil {
			e.logger.Error().Err(err).
				Str("policy", policies[i].Name).
				Msg("Failed to compile policy")
			return fmt.Errorf("failed to compile policy %s: %w", policies[i].Name, err)
		}
	}

	e.logger.Info().
		Int("count", len(policies)).
		Msg("Policies loaded successfully")

	return nil
}

// ReloadPolicies drops custom policies and recompiles the built-ins, then
// loads the given paths. Disabled state is reset.
func (e *Engine) ReloadPolicies(ctx context.Context, paths []string) error {
	loader := NewLoader(e.logger)
	policies, err := loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.policies = make(map[string]*compiledPolicy)
	if err := e.loadBuiltinPolicies(ctx); err != nil {
		return err
	}
	return e.applyPolicies(ctx, policies)
}

// Watch reloads policies from paths whenever a policy file changes, until
// ctx is done.
func (e *Engine) Watch(ctx context.Context, paths []string) error {
	loader := NewLoader(e.logger)
	return loader.Watch(ctx, paths, func(policies []Policy) error {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.applyPolicies(ctx, policies)
	})
}

// GetPolicy returns a policy by name.
func (e *Engine) GetPolicy(name string) (*Policy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp, exists := e.policies[name]
	if !exists {
		return nil, fmt.Errorf("policy not found: %s", name)
	}

	return cp.policy, nil
}

// ListPolicies returns all loaded policies sorted by name.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	policies := make([]Policy, 0, len(e.policies))
	for _, cp := range e.policies {
		policies = append(policies, *cp.policy)
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].Name < policies[j].Name })

	return policies
}

// EnablePolicy enables a policy by name.
func (e *Engine) EnablePolicy(name string) error {
	return e.setEnabled(name, true)
}

// DisablePolicy disables a policy by name.
func (e *Engine) DisablePolicy(name string) error {
	return e.setEnabled(name, false)
}

func (e *Engine) setEnabled(name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp, exists := e.policies[name]
	if !exists {
		return fmt.Errorf("policy not found: %s", name)
	}

	cp.policy.Enabled = enabled
	e.logger.Info().Str("policy", name).Bool("enabled", enabled).Msg("Policy state changed")

	return nil
}
