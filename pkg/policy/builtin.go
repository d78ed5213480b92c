package policy

// LargeWorkflowNodes is the default node count above which a workflow is
// flagged as large. WithMaxNodes overrides it.
const LargeWorkflowNodes = 50

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		webhookAuthenticationPolicy(),
		inlineCredentialsPolicy(),
		disabledNodesPolicy(),
		largeWorkflowPolicy(),
		insecureHTTPPolicy(),
		uncategorizedActivePolicy(),
	}
}

// webhookAuthenticationPolicy flags webhook triggers that accept anonymous calls.
func webhookAuthenticationPolicy() Policy {
	return Policy{
		Name:        "webhook-authentication",
		Description: "Webhook triggers should require authentication",
		Severity:    SeverityWarning,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"security", "trigger"},
		Rego: `package auton8n.policies.webhook

import rego.v1

deny contains violation if {
	some i, node in input.workflow.nodes
	endswith(node.type, ".webhook")
	not authenticated(node)
	violation := {
		"message": sprintf("Webhook node '%s' accepts unauthenticated requests", [object.get(node, "name", "unnamed")]),
		"severity": "warning",
		"node_index": i,
	}
}

authenticated(node) if {
	auth := node.parameters.authentication
	is_string(auth)
	auth != "none"
}`,
	}
}

// inlineCredentialsPolicy flags secrets typed directly into node parameters.
func inlineCredentialsPolicy() Policy {
	return Policy{
		Name:        "inline-credentials",
		Description: "Secrets must come from credentials, not literal node parameters",
		Severity:    SeverityError,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"security", "credentials"},
		Rego: `package auton8n.policies.credentials

import rego.v1

secret_keys := {
	"password",
	"apikey",
	"api_key",
	"token",
	"accesstoken",
	"access_token",
	"secret",
	"clientsecret",
	"client_secret",
}

deny contains violation if {
	some i, node in input.workflow.nodes
	walk(node.parameters, [path, value])
	count(path) > 0
	key := path[count(path) - 1]
	is_string(key)
	lower(key) in secret_keys
	is_string(value)
	value != ""

	# n8n expressions start with "=" and resolve at run time
	not startswith(value, "=")
	violation := {
		"message": sprintf("Node '%s' has a literal value for parameter '%s'", [object.get(node, "name", "unnamed"), key]),
		"severity": "error",
		"node_index": i,
	}
}`,
	}
}

// disabledNodesPolicy reports nodes that are switched off.
func disabledNodesPolicy() Policy {
	return Policy{
		Name:        "disabled-nodes",
		Description: "Reports disabled nodes left in the workflow",
		Severity:    SeverityInfo,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"hygiene"},
		Rego: `package auton8n.policies.disabled

import rego.v1

deny contains violation if {
	some i, node in input.workflow.nodes
	node.disabled == true
	violation := {
		"message": sprintf("Node '%s' is disabled", [object.get(node, "name", "unnamed")]),
		"severity": "info",
		"node_index": i,
	}
}`,
	}
}

// largeWorkflowPolicy flags workflows that are hard to maintain as one unit.
func largeWorkflowPolicy() Policy {
	return Policy{
		Name:        "large-workflow",
		Description: "Workflows with many nodes should be split into sub-workflows",
		Severity:    SeverityWarning,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"maintainability"},
		Rego: `package auton8n.policies.size

import rego.v1

default max_nodes := 50

max_nodes := data.auton8n.config.max_nodes

deny contains violation if {
	nodes := input.workflow.nodes
	is_array(nodes)
	count(nodes) > max_nodes
	violation := {
		"message": sprintf("Workflow has %d nodes (limit %d); consider splitting it", [count(nodes), max_nodes]),
		"severity": "warning",
		"node_index": -1,
	}
}`,
	}
}

// insecureHTTPPolicy flags plain-text HTTP calls.
func insecureHTTPPolicy() Policy {
	return Policy{
		Name:        "insecure-http",
		Description: "HTTP Request nodes should use HTTPS",
		Severity:    SeverityWarning,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"security", "network"},
		Rego: `package auton8n.policies.http

import rego.v1

deny contains violation if {
	some i, node in input.workflow.nodes
	endswith(node.type, ".httpRequest")
	url := node.parameters.url
	is_string(url)
	startswith(lower(url), "http://")
	violation := {
		"message": sprintf("Node '%s' calls %s over plain HTTP", [object.get(node, "name", "unnamed"), url]),
		"severity": "warning",
		"node_index": i,
	}
}`,
	}
}

// uncategorizedActivePolicy flags active workflows no category rule matched.
func uncategorizedActivePolicy() Policy {
	return Policy{
		Name:        "uncategorized-active",
		Description: "Active workflows should resolve to a category",
		Severity:    SeverityInfo,
		Enabled:     true,
		Builtin:     true,
		Tags:        []string{"catalog"},
		Rego: `package auton8n.policies.catalog

import rego.v1

deny contains violation if {
	input.workflow.active == true
	input.result.category == "Uncategorized"
	violation := {
		"message": "Active workflow did not match any category rule",
		"severity": "info",
		"node_index": -1,
	}
}`,
	}
}
