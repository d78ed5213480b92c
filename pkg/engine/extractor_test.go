package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	e := NewExtractor(fixtureTables(t))

	tests := []struct {
		name     string
		nodeType string
		nodeName string
		want     string
		ok       bool
	}{
		{"canonical key in type", "n8n-nodes-base.slack", "Notify", "slack", true},
		{"canonical key in name", "n8n-nodes-base.httpRequest", "Post to Slack", "slack", true},
		{"first key in table order wins", "n8n-nodes-base.gmail", "Forward to slack", "slack", true},
		{"case insensitive", "N8N-NODES-BASE.GOOGLESHEETS", "", "googlesheets", true},
		{"stop-listed canonical key never matches", "n8n-nodes-base.webhook", "Incoming", "", false},
		{"novel suffix", "n8n-nodes-base.mattermost", "Post", "mattermost", true},
		{"short suffix ignored", "n8n-nodes-base.if", "Check", "", false},
		{"three character suffix accepted", "n8n-nodes-base.ftp", "Upload", "ftp", true},
		{"two rune multibyte suffix ignored", "n8n-nodes-base.ñü", "Check", "", false},
		{"three rune multibyte suffix accepted", "n8n-nodes-base.ñüé", "Check", "ñüé", true},
		{"stop-listed suffix ignored", "n8n-nodes-base.set", "Set fields", "", false},
		{"stop-listed suffix ignored case insensitive", "n8n-nodes-base.manualTrigger", "Start", "", false},
		{"no namespace", "custom", "Thing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.Extract(tt.nodeType, tt.nodeName)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAll(t *testing.T) {
	e := NewExtractor(fixtureTables(t))
	rec := parse(t, `{
		"nodes": [
			{"type": "n8n-nodes-base.webhook", "name": "Hook"},
			{"type": "n8n-nodes-base.slack", "name": "One"},
			"not a node",
			{"type": "n8n-nodes-base.gmail", "name": "Mail"},
			{"type": "n8n-nodes-base.slack", "name": "Two"},
			{"type": "n8n-nodes-base.code", "name": "Transform"}
		],
		"connections": {}
	}`)

	assert.Equal(t, []string{"slack", "gmail"}, e.ExtractAll(rec))
}

func TestExtractAllEmpty(t *testing.T) {
	e := NewExtractor(fixtureTables(t))
	rec := parse(t, `{"connections": {}}`)

	ids := e.ExtractAll(rec)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}
