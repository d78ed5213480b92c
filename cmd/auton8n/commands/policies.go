package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPoliciesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Inspect and evaluate advisory policies",
		Long: `Advisory policies are Rego modules evaluated against each workflow.
Their findings are reported next to the verdict and never change it.

Built-in policies check webhook authentication, literal credentials,
disabled nodes, workflow size, plain HTTP calls and active uncategorized
workflows. Extra policies are loaded from policies.paths.`,
	}

	cmd.AddCommand(newPoliciesListCommand(opts))
	cmd.AddCommand(newPoliciesEvalCommand(opts))

	return cmd
}

func newPoliciesListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.loader.Viper().Set("policies.enabled", true)

			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			eng, err := a.policyEngine(cmd.Context(), "policies list")
			if err != nil {
				return err
			}

			policies := eng.ListPolicies()
			if a.json {
				return a.printJSON(policies)
			}
			for _, p := range policies {
				state := "enabled"
				if !p.Enabled {
					state = "disabled"
				}
				origin := "builtin"
				if !p.Builtin {
					origin = p.Source
				}
				fmt.Fprintf(a.out, "%-24s %-8s %-9s %s\n", p.Name, p.Severity, state, p.Description)
				fmt.Fprintf(a.out, "%-24s tags: %s; source: %s\n", "", strings.Join(p.Tags, ", "), origin)
			}
			return nil
		},
	}
}

func newPoliciesEvalCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "eval",
		Short: "Evaluate policies against every workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.loader.Viper().Set("policies.enabled", true)

			a, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			batch, err := a.run(cmd.Context(), runOptions{command: "policies eval"})
			if err != nil {
				return err
			}

			type finding struct {
				Ref       string `json:"ref"`
				Policy    string `json:"policy"`
				Severity  string `json:"severity"`
				Message   string `json:"message"`
				NodeIndex int    `json:"node_index"`
			}
			findings := []finding{}
			for _, r := range batch.Results {
				for _, adv := range r.Advisories {
					findings = append(findings, finding{
						Ref:       r.Ref,
						Policy:    adv.Policy,
						Severity:  adv.Severity,
						Message:   adv.Message,
						NodeIndex: adv.NodeIndex,
					})
				}
			}

			if a.json {
				return a.printJSON(findings)
			}
			for _, f := range findings {
				fmt.Fprintf(a.out, "%s: [%s] %s: %s\n", f.Ref, f.Severity, f.Policy, f.Message)
			}
			fmt.Fprintf(a.out, "%d finding(s) in %d workflows\n", len(findings), len(batch.Results))
			return a.checkFailOn(batch)
		},
	}
}
