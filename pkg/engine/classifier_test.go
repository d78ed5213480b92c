package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/auton8n-git/auton8n/pkg/catalog"
)

func TestClassifyPrecedence(t *testing.T) {
	c := NewClassifier(fixtureTables(t))

	command := DeprecatedNode{Type: "n8n-nodes-base.executeCommand", Kind: catalog.KindCommandExecution}
	files := DeprecatedNode{Type: "n8n-nodes-base.readBinaryFile", Kind: catalog.KindFilesystem}
	legacy := DeprecatedNode{Type: "n8n-nodes-base.function", Kind: catalog.KindDeprecated}
	broken := Issue{Kind: IssueDuplicateName, NodeIndex: 1}

	tests := []struct {
		name string
		ev   Evidence
		want Verdict
		rule string
	}{
		{"unparseable", Evidence{Loaded: false}, VerdictCorrupted, "unparseable"},
		{"command execution beats missing trigger", Evidence{Loaded: true, Report: Report{Deprecated: []DeprecatedNode{command}}}, VerdictSecurityRisk, "command_execution"},
		{"command execution beats filesystem", Evidence{Loaded: true, HasTrigger: true, Report: Report{Deprecated: []DeprecatedNode{files, command}}}, VerdictSecurityRisk, "command_execution"},
		{"filesystem", Evidence{Loaded: true, HasTrigger: true, Report: Report{Deprecated: []DeprecatedNode{files}}}, VerdictCloudIncompatible, "local_filesystem"},
		{"no trigger", Evidence{Loaded: true}, VerdictNeedsTrigger, "no_trigger"},
		{"structural issues demote", Evidence{Loaded: true, HasTrigger: true, Report: Report{Issues: []Issue{broken}}}, VerdictNeedsTrigger, "structural_issues"},
		{"superseded node is not a risk", Evidence{Loaded: true, HasTrigger: true, Report: Report{Deprecated: []DeprecatedNode{legacy}}}, VerdictProductionReady, "ready"},
		{"ready", Evidence{Loaded: true, HasTrigger: true}, VerdictProductionReady, "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := c.Classify(tt.ev)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestClassifyRulesFollowVerdictOrder(t *testing.T) {
	c := NewClassifier(fixtureTables(t))

	rules := c.Rules()
	assert.Len(t, rules, 6)
	assert.Equal(t, VerdictCorrupted, rules[0].Verdict)
	assert.Equal(t, VerdictProductionReady, rules[len(rules)-1].Verdict)

	// Mutating the copy leaves the classifier untouched.
	rules[0] = Rule{}
	assert.Equal(t, "unparseable", c.Rules()[0].Name)
}

func TestHasTrigger(t *testing.T) {
	c := NewClassifier(fixtureTables(t))

	tests := []struct {
		doc  string
		want bool
	}{
		{`{"nodes": [{"type": "n8n-nodes-base.webhook"}]}`, true},
		{`{"nodes": [{"type": "n8n-nodes-base.scheduleTrigger"}]}`, true},
		{`{"nodes": [{"type": "n8n-nodes-base.cron"}]}`, true},
		{`{"nodes": [{"type": "n8n-nodes-base.start"}]}`, true},
		{`{"nodes": [{"type": "n8n-nodes-base.slack"}, {"type": "n8n-nodes-base.gmail"}]}`, false},
		{`{"nodes": [{"name": "Trigger me"}]}`, false},
		{`{"connections": {}}`, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.HasTrigger(parse(t, tt.doc)), tt.doc)
	}
}

func TestClassifyRecordExecuteCommand(t *testing.T) {
	tables := fixtureTables(t)
	v := NewValidator(tables)
	c := NewClassifier(tables)

	withTrigger := parse(t, `{
		"nodes": [
			{"type": "n8n-nodes-base.webhook", "name": "Hook", "position": [0, 0], "parameters": {}},
			{"type": "n8n-nodes-base.executeCommand", "name": "Run", "position": [1, 0], "parameters": {}}
		],
		"connections": {"Hook": {"main": [[{"node": "Run"}]]}}
	}`)
	withoutTrigger := parse(t, `{
		"nodes": [{"type": "n8n-nodes-base.executeCommand", "name": "Run", "position": [1, 0], "parameters": {}}],
		"connections": {}
	}`)

	assert.Equal(t, VerdictSecurityRisk, c.ClassifyRecord(withTrigger, v.Validate(withTrigger)))
	assert.Equal(t, VerdictSecurityRisk, c.ClassifyRecord(withoutTrigger, v.Validate(withoutTrigger)))
}

func TestClassifyRecordNeverReadyWhenInvalid(t *testing.T) {
	tables := fixtureTables(t)
	v := NewValidator(tables)
	c := NewClassifier(tables)

	rec := parse(t, `{
		"nodes": [
			{"type": "n8n-nodes-base.webhook", "name": "A", "position": [0, 0], "parameters": {}},
			{"type": "n8n-nodes-base.slack", "name": "A", "position": [1, 0], "parameters": {}}
		],
		"connections": {"A": {"main": [[{"node": "A"}]]}}
	}`)

	report := v.Validate(rec)
	assert.False(t, report.Valid())
	assert.Equal(t, VerdictNeedsTrigger, c.ClassifyRecord(rec, report))
}
