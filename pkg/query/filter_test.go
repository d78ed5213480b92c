package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auton8n-git/auton8n/pkg/engine"
)

func results() []*engine.Result {
	return []*engine.Result{
		{
			Ref:          "digest.json",
			Name:         "Slack Digest",
			Verdict:      engine.VerdictProductionReady,
			Category:     "Communication & Messaging",
			Resolution:   engine.Resolution{Tier: engine.TierCanonical},
			Integrations: []string{"Slack", "Gmail"},
			NodeCount:    4,
			Active:       true,
			Tags:         []string{"team"},
			TriggerType:  engine.TriggerScheduled,
		},
		{
			Ref:        "broken.json",
			Name:       "Broken",
			Verdict:    engine.VerdictNeedsTrigger,
			Category:   "Uncategorized",
			Resolution: engine.Resolution{Tier: engine.TierNone},
			NodeCount:  30,
			Report: engine.Report{
				Issues:     []engine.Issue{{Kind: engine.IssueDuplicateName}},
				Deprecated: []engine.DeprecatedNode{{Type: "n8n-nodes-base.function"}},
			},
			Advisories: []engine.Advisory{{Policy: "large-workflow"}},
		},
	}
}

func refs(rs []*engine.Result) []string {
	out := []string{}
	for _, r := range rs {
		out = append(out, r.Ref)
	}
	return out
}

func TestFilterSelect(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{`verdict == "production_ready"`, []string{"digest.json"}},
		{`"Slack" in integrations`, []string{"digest.json"}},
		{`node_count > 10`, []string{"broken.json"}},
		{`"duplicate_name" in issues and not valid`, []string{"broken.json"}},
		{`"n8n-nodes-base.function" in deprecated`, []string{"broken.json"}},
		{`"large-workflow" in advisories`, []string{"broken.json"}},
		{`tier == "canonical" and active`, []string{"digest.json"}},
		{`trigger == "Scheduled" and "team" in tags`, []string{"digest.json"}},
		{`name.lower().startswith("slack")`, []string{"digest.json"}},
		{`workflow.category == "Uncategorized"`, []string{"broken.json"}},
		{`len(integrations)`, []string{"digest.json"}},
		{`True`, []string{"digest.json", "broken.json"}},
		{`False`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := f.Select(context.Background(), results())
			require.NoError(t, err)
			assert.Equal(t, tt.want, refs(got))
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{"", "   ", "verdict ==", "x = 1"} {
		_, err := Compile(src)
		assert.Error(t, err, src)
	}
}

func TestFilterRuntimeError(t *testing.T) {
	f, err := Compile(`unknown_name == 1`)
	require.NoError(t, err)

	_, err = f.Select(context.Background(), results())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest.json")
}

func TestFilterStepLimit(t *testing.T) {
	f, err := Compile(`len([x for x in range(1000000)])`, WithMaxSteps(1000))
	require.NoError(t, err)

	_, err = f.Match(results()[0])
	assert.Error(t, err)
}

func TestFilterCannotMutateInput(t *testing.T) {
	f, err := Compile(`integrations.append("x")`)
	require.NoError(t, err)

	r := results()[0]
	_, err = f.Match(r)
	assert.Error(t, err)
	assert.Equal(t, []string{"Slack", "Gmail"}, r.Integrations)
}

func TestFilterCancelled(t *testing.T) {
	f, err := Compile(`True`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Select(ctx, results())
	assert.ErrorIs(t, err, context.Canceled)
}
