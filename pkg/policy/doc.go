// Package policy evaluates Open Policy Agent (OPA) Rego policies against n8n
// workflow documents.
//
// Policies produce advisories: findings that are reported next to the
// classification verdict but never change it. The Engine implements
// engine.AdvisoryEvaluator and can be handed to the batch runner:
//
//	pol, err := policy.NewEngine(logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	runner := engine.NewRunner(analyzer, store, logger, cfg,
//	    engine.WithAdvisor(pol))
//
// # Input document
//
// Each policy sees
//
//	input.workflow   the complete workflow document
//	input.result     verdict, category, integrations, node_count,
//	                 trigger_type, complexity, has_credentials
//	input.context    ref, timestamp, operation
//
// and configuration values under data.auton8n.config (for example
// data.auton8n.config.max_nodes).
//
// # Writing policies
//
// A policy module must define a "deny" set in its package. Elements are
// either message strings or objects:
//
//	package custom.policies.owner
//
//	import rego.v1
//
//	# Active workflows must be tagged with an owner
//
//	deny contains violation if {
//	    input.workflow.active == true
//	    not "owner" in input.workflow.tags
//	    violation := {
//	        "message": "active workflow has no owner tag",
//	        "severity": "warning",
//	        "node_index": -1,
//	    }
//	}
//
// Files ending in .rego are named after the file; the leading comment block
// becomes the description. Files ending in .json hold a Policy object with
// the Rego source in its "rego" field.
//
// # Built-in policies
//
//   - webhook-authentication: webhook triggers without authentication
//   - inline-credentials: literal secrets in node parameters
//   - disabled-nodes: nodes left disabled
//   - large-workflow: more than max_nodes nodes
//   - insecure-http: HTTP Request nodes calling http:// URLs
//   - uncategorized-active: active workflows with no category
//
// Policies are compiled once into prepared queries. Engine.Watch reloads
// policy files when they change.
package policy
