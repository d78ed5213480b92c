package engine_test

import (
	"fmt"

	"github.com/auton8n-git/auton8n/pkg/catalog"
	"github.com/auton8n-git/auton8n/pkg/engine"
	"github.com/auton8n-git/auton8n/pkg/workflow"
)

func ExampleAnalyzer_Analyze() {
	tables, err := catalog.Default()
	if err != nil {
		panic(err)
	}

	rec, err := workflow.Parse("notify.json", []byte(`{
		"nodes": [
			{"type": "n8n-nodes-base.slack", "name": "Notify", "position": [0, 0], "parameters": {}}
		],
		"connections": {}
	}`))
	if err != nil {
		panic(err)
	}

	res := engine.NewAnalyzer(tables).Analyze(rec, false)
	fmt.Println(res.Integrations)
	fmt.Println(res.Category)
	fmt.Println(res.Verdict)
	fmt.Println(res.Description)
	// Output:
	// [slack]
	// Communication & Messaging
	// needs_trigger
	// Workflow using Slack with 1 nodes. Complexity: Low
}

func ExampleResolver_Resolve() {
	tables, err := catalog.Default()
	if err != nil {
		panic(err)
	}

	res := engine.NewResolver(tables).Resolve([]string{"slak"})
	fmt.Printf("%s via %s (%s, %.2f)\n", res.Category, res.Tier, res.Key, res.Score)
	// Output:
	// Communication & Messaging via fuzzy (slack, 0.89)
}
