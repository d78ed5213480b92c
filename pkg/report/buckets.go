package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/auton8n-git/auton8n/pkg/engine"
)

// Bucket file names written next to the per-verdict lists.
const (
	ReadmeFile       = "README.md"
	ImportScriptFile = "import_workflows.sh"
)

// Buckets maps each verdict to the sorted refs that received it.
type Buckets map[engine.Verdict][]string

// Group buckets results by verdict. Every verdict is present, possibly with
// an empty list.
func Group(results []*engine.Result) Buckets {
	b := make(Buckets, len(engine.Verdicts))
	for _, v := range engine.Verdicts {
		b[v] = []string{}
	}
	for _, r := range results {
		b[r.Verdict] = append(b[r.Verdict], r.Ref)
	}
	for _, refs := range b {
		sort.Strings(refs)
	}
	return b
}

// FileName returns the list file name of a verdict.
func FileName(v engine.Verdict) string {
	return string(v) + ".txt"
}

// BucketList renders one verdict list. Each ref is joined to prefix, which
// is usually the workflows directory as seen by the importing host.
func BucketList(v engine.Verdict, refs []string, prefix string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", v.Description())
	fmt.Fprintf(&b, "# Total: %d workflows\n\n", len(refs))
	for _, ref := range refs {
		b.WriteString(joinRef(prefix, ref))
		b.WriteByte('\n')
	}
	return b.String()
}

func joinRef(prefix, ref string) string {
	if prefix == "" {
		return ref
	}
	return strings.TrimSuffix(prefix, "/") + "/" + ref
}

// Readme renders the README summarizing every bucket.
func Readme(buckets Buckets) string {
	var b strings.Builder
	b.WriteString("# Workflow Categories\n\n")
	for _, v := range engine.Verdicts {
		fmt.Fprintf(&b, "## %s\n\n", Title(string(v)))
		fmt.Fprintf(&b, "%s\n\n", v.Description())
		fmt.Fprintf(&b, "**Count:** %d workflows\n\n", len(buckets[v]))
		fmt.Fprintf(&b, "**File:** `%s`\n\n", FileName(v))
		fmt.Fprintf(&b, "**Recommendation:** %s\n\n", v.Recommendation())
		b.WriteString("---\n\n")
	}
	return b.String()
}

// Title turns a snake_case verdict into "Title Case".
func Title(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ImportScript renders a bash helper that imports one bucket through the
// n8n CLI.
func ImportScript() string {
	return `#!/bin/bash
# Import workflows from one verdict list into n8n.
# Usage: ./import_workflows.sh <verdict>
# Example: ./import_workflows.sh production_ready

set -euo pipefail

if [ $# -ne 1 ]; then
    echo "Usage: $0 <verdict>"
    echo ""
    echo "Available verdicts:"
    for f in "$(dirname "$0")"/*.txt; do
        echo "  - $(basename "$f" .txt)"
    done
    exit 1
fi

LIST="$(dirname "$0")/$1.txt"

if [ ! -f "$LIST" ]; then
    echo "Error: list $LIST not found"
    exit 1
fi

echo "Importing workflows from $1..."
echo ""

count=0
failed=0

while IFS= read -r workflow; do
    case "$workflow" in
        ""|\#*) continue ;;
    esac

    echo "Importing: $workflow"
    if n8n import:workflow --input="$workflow"; then
        count=$((count + 1))
    else
        echo "  Failed to import $workflow"
        failed=$((failed + 1))
    fi
done < "$LIST"

echo ""
echo "Imported $count workflows, $failed failed"
`
}

// WriteBuckets writes one list per verdict, the README and the import
// script into dir, creating it if needed. It returns the buckets written.
func WriteBuckets(dir string, results []*engine.Result, prefix string) (Buckets, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	buckets := Group(results)
	for _, v := range engine.Verdicts {
		path := filepath.Join(dir, FileName(v))
		if err := os.WriteFile(path, []byte(BucketList(v, buckets[v], prefix)), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	readme := filepath.Join(dir, ReadmeFile)
	if err := os.WriteFile(readme, []byte(Readme(buckets)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", readme, err)
	}

	script := filepath.Join(dir, ImportScriptFile)
	if err := os.WriteFile(script, []byte(ImportScript()), 0o755); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", script, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(script, 0o755); err != nil {
		return nil, fmt.Errorf("failed to make %s executable: %w", script, err)
	}

	return buckets, nil
}
