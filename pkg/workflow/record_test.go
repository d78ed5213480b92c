package workflow

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleWorkflow = `{
  "name": "Notify team",
  "id": 42,
  "active": true,
  "tags": [{"name": "ops"}, "alerts"],
  "nodes": [
    {"type": "n8n-nodes-base.webhook", "name": "Hook", "position": [0, 0], "parameters": {}},
    {"type": "n8n-nodes-base.slack", "name": "Post", "position": [200, 0], "parameters": {}, "credentials": {"slackApi": {"id": "1"}}, "disabled": true},
    "oops"
  ],
  "connections": {"Hook": {"main": [[{"node": "Post"}]]}},
  "meta": {"instanceId": "abc", "category": "Communication & Messaging"}
}`

func TestParse(t *testing.T) {
	rec, err := Parse("team/notify.json", []byte(sampleWorkflow))
	require.NoError(t, err)

	assert.Equal(t, "team/notify.json", rec.Ref)
	assert.Equal(t, "Notify team", rec.Name)
	assert.Equal(t, "42", rec.ID)
	assert.True(t, rec.Active)
	assert.Equal(t, []string{"ops", "alerts"}, rec.Tags)
	assert.Equal(t, "Communication & Messaging", rec.Meta.Category)
	assert.True(t, rec.Meta.HasCategory())
	assert.Contains(t, rec.Meta.Extra, "instanceId")

	nodes := rec.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, "n8n-nodes-base.webhook", nodes[0].Type)
	assert.True(t, nodes[1].Disabled)
	assert.True(t, nodes[1].Has(NodeFieldCredentials))
	assert.True(t, nodes[2].Malformed)
	assert.Equal(t, 2, nodes[2].Index)

	assert.Equal(t, []string{"n8n-nodes-base.webhook", "n8n-nodes-base.slack"}, rec.NodeTypes())
	assert.Equal(t, 1, rec.ConnectionCount())
	assert.True(t, rec.HasCredentials())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "truncated", data: `{"nodes": [`},
		{name: "not json", data: `hello`},
		{name: "array document", data: `[1, 2]`},
		{name: "null document", data: `null`},
		{name: "empty", data: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Parse("bad.json", []byte(tt.data))
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.True(t, IsParseError(err))
		})
	}
}

func TestParseShapes(t *testing.T) {
	rec, err := Parse("shapes.json", []byte(`{"nodes": {"a": 1}, "connections": null}`))
	require.NoError(t, err)

	assert.True(t, rec.HasField(FieldNodes))
	assert.Equal(t, KindObject, rec.FieldKind(FieldNodes))
	assert.Empty(t, rec.Nodes())
	assert.Equal(t, KindNull, rec.FieldKind(FieldConnections))
	assert.Equal(t, KindMissing, rec.FieldKind(FieldMeta))
	assert.Equal(t, 0, rec.ConnectionCount())
}

func TestParseStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"nodes": [], "connections": {}}`)...)
	_, err := Parse("bom.json", data)
	require.NoError(t, err)
}

func TestNodeHas(t *testing.T) {
	rec, err := Parse("n.json", []byte(`{"nodes": [{"type": "  ", "name": null, "position": [0, 0], "parameters": {}}]}`))
	require.NoError(t, err)
	n := rec.Nodes()[0]

	assert.False(t, n.Has(NodeFieldType))
	assert.False(t, n.Has(NodeFieldName))
	assert.True(t, n.Has(NodeFieldPosition))
	assert.True(t, n.Has(NodeFieldParameters))
	assert.False(t, n.Has(NodeFieldCredentials))
	assert.Equal(t, KindNull, n.FieldKind(NodeFieldName))
	assert.Equal(t, "node 0", n.Label())
}

func TestEncodeReplacesMetaOnly(t *testing.T) {
	rec, err := Parse("team/notify.json", []byte(sampleWorkflow))
	require.NoError(t, err)

	meta := rec.Meta
	meta.Category = "Project Management"
	meta.Integrations = []string{"slack"}

	out, err := rec.Encode(meta)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "Notify team", doc["name"])
	assert.Len(t, doc["nodes"], 3)

	m := doc["meta"].(map[string]interface{})
	assert.Equal(t, "Project Management", m["category"])
	assert.Equal(t, "abc", m["instanceId"])
	assert.Equal(t, []interface{}{"slack"}, m["integrations"])

	again, err := Parse("team/notify.json", out)
	require.NoError(t, err)
	out2, err := again.Encode(again.Meta)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2))
}

func TestMetaOmitsEmptyKnownKeys(t *testing.T) {
	data, err := json.Marshal(Meta{Category: "CRM & Sales"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"category": "CRM & Sales"}`, string(data))
}

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		`{}`:     KindObject,
		` [1]`:   KindArray,
		`"x"`:    KindString,
		`null`:   KindNull,
		`true`:   KindBool,
		`-1.5`:   KindNumber,
		``:       KindMissing,
		"\n{\n}": KindObject,
	}
	for raw, want := range tests {
		assert.Equal(t, want, KindOf([]byte(raw)), "raw %q", raw)
	}
}
