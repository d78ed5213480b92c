package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileStoreList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `{}`)
	writeFile(t, dir, "a/one.json", `{}`)
	writeFile(t, dir, "a/one.json.bak", `{}`)
	writeFile(t, dir, "notes.txt", `x`)
	writeFile(t, dir, ".git/config.json", `{}`)

	store := NewFileStore(dir)
	refs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one.json", "b.json"}, refs)
}

func TestFileStoreLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.json", sampleWorkflow)
	writeFile(t, dir, "broken.json", `{"nodes": [`)

	store := NewFileStore(dir)
	ctx := context.Background()

	rec, err := store.Load(ctx, "ok.json")
	require.NoError(t, err)
	assert.Equal(t, "Notify team", rec.Name)

	_, err = store.Load(ctx, "broken.json")
	assert.True(t, IsParseError(err))

	_, err = store.Load(ctx, "missing.json")
	require.Error(t, err)
	assert.False(t, IsParseError(err))

	_, err = store.Load(ctx, "../escape.json")
	assert.True(t, errors.Is(err, ErrOutsideRoot))
}

func TestFileStoreSaveWithBackup(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wf.json", sampleWorkflow)

	store := NewFileStore(dir, WithBackup(true))
	ctx := context.Background()

	rec, err := store.Load(ctx, "wf.json")
	require.NoError(t, err)

	meta := rec.Meta
	meta.Category = "Project Management"
	require.NoError(t, store.Save(ctx, "wf.json", meta))

	backup, err := os.ReadFile(path + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, sampleWorkflow, string(backup))

	saved, err := store.Load(ctx, "wf.json")
	require.NoError(t, err)
	assert.Equal(t, "Project Management", saved.Meta.Category)
	assert.JSONEq(t, `"abc"`, string(saved.Meta.Extra["instanceId"]))

	// A second save must not overwrite the original backup.
	meta.Category = "CRM & Sales"
	require.NoError(t, store.Save(ctx, "wf.json", meta))
	backup, err = os.ReadFile(path + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, sampleWorkflow, string(backup))
}

func TestFileStoreSaveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wf.json", sampleWorkflow)

	store := NewFileStore(dir)
	ctx := context.Background()

	meta := Meta{Category: "Project Management"}
	require.NoError(t, store.Save(ctx, "wf.json", meta))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "wf.json", meta))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	_, err = os.Stat(path + BackupSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreSaveRejectsUnparseable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{`)

	store := NewFileStore(dir)
	err := store.Save(context.Background(), "broken.json", Meta{Category: "x"})
	assert.True(t, IsParseError(err))
}

func TestFileStoreSaveKeepsMarkup(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wf.json", `{"name":"Markup","nodes":[`+
		`{"type":"n8n-nodes-base.html","name":"Render","position":[0,0],"parameters":{"html":"<b>x & y</b>"}}`+
		`],"connections":{}}`)

	store := NewFileStore(dir)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "wf.json", Meta{Category: "Communication & Messaging"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<b>x & y</b>`)
	assert.Contains(t, string(data), `"Communication & Messaging"`)
	assert.NotContains(t, string(data), `\u0026`)
	assert.NotContains(t, string(data), `\u003c`)

	rec, err := store.Load(ctx, "wf.json")
	require.NoError(t, err)
	assert.Equal(t, "Communication & Messaging", rec.Meta.Category)
}

func TestFileStoreSaveKeepsPermissions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wf.json", sampleWorkflow)
	require.NoError(t, os.Chmod(path, 0o600))

	store := NewFileStore(dir)
	require.NoError(t, store.Save(context.Background(), "wf.json", Meta{Category: "Project Management"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "wf.json", entries[0].Name())
}
