// Package config loads the auton8n configuration.
//
// Values come from, in increasing order of precedence, the built-in
// defaults, a YAML file passed with --config, AUTON8N_* environment
// variables and command-line flags bound through Loader.Viper:
//
//	workflows: ./workflows
//	tables: ./tables.yaml
//	database: ./auton8n.db
//	output: ./workflow_lists
//	workers: 8
//	write_back: true
//	backup: true
//	fail_on: [corrupted, security_risk]
//	policies:
//	  enabled: true
//	  paths: [./policies]
//	  max_nodes: 40
//	logging:
//	  level: debug
//
// Nested keys map to environment variables with underscores, so
// policies.max_nodes is read from AUTON8N_POLICIES_MAX_NODES. Defaults are
// merged into unset fields only, and the result is validated before use.
package config
