package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auton8n-git/auton8n/pkg/catalog"
	"github.com/auton8n-git/auton8n/pkg/workflow"
)

const (
	labelMessaging = "Communication & Messaging"
	labelData      = "Data Processing & Analysis"
	labelAI        = "AI Agent Development"
)

// fixtureTables returns a small, fully controlled set of tables.
func fixtureTables(t *testing.T) *catalog.Tables {
	t.Helper()
	tables, err := catalog.Build(catalog.Source{
		Canonical: []catalog.Entry{
			{Key: "slack", Category: labelMessaging},
			{Key: "gmail", Category: labelMessaging},
			{Key: "googlesheets", Category: labelData},
			{Key: "openai", Category: labelAI},
			{Key: "webhook", Category: "Web Scraping & Data Extraction"},
		},
		Overrides: []catalog.Entry{
			{Key: "lmchat", Category: labelAI},
			{Key: "sheets", Category: labelData},
		},
		StopList: []string{"webhook", "set", "code", "manualtrigger", "scheduletrigger"},
		Deprecated: []catalog.DeprecatedEntry{
			{Type: "n8n-nodes-base.executeCommand", Kind: catalog.KindCommandExecution, Reason: "runs shell commands"},
			{Type: "n8n-nodes-base.readBinaryFile", Kind: catalog.KindFilesystem, Reason: "reads local files"},
			{Type: "n8n-nodes-base.function", Kind: catalog.KindDeprecated, Reason: "replaced by Code"},
		},
		TriggerKeywords: []string{"trigger", "webhook", "cron", "schedule"},
		TriggerTypes:    []string{"n8n-nodes-base.start"},
	})
	require.NoError(t, err)
	return tables
}

// defaultTables returns the built-in tables.
func defaultTables(t *testing.T) *catalog.Tables {
	t.Helper()
	tables, err := catalog.Default()
	require.NoError(t, err)
	return tables
}

func parse(t *testing.T, doc string) *workflow.Record {
	t.Helper()
	rec, err := workflow.Parse("test.json", []byte(doc))
	require.NoError(t, err)
	return rec
}
