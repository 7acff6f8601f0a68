package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pesio-ai/be-relocation-cases/internal/compliance"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage category=amount...",
	Short: "Show cap coverage for spend given in minor units",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := loadPolicy()
		if err != nil {
			return err
		}
		spend, err := parseSpend(args)
		if err != nil {
			return err
		}

		coverage := compliance.BuildCoverage(policy, spend)
		verdict := compliance.Evaluate(nil, coverage, nil)
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"coverage": coverage,
				"gate":     verdict,
			})
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tUSED\tCAP\tREMAINING\tSTATUS")
		for _, c := range coverage {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				c.Title, money(c.Used, c.Currency), money(c.Cap, c.Currency), money(c.Remaining, c.Currency), c.Status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if verdict.RequiresHRApproval {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d categor(ies) over the cap need HR approval\n", len(verdict.OverLimit))
		}
		return nil
	},
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the effective policy rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := loadPolicy()
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), policy)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(policy)
	},
}

func money(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency)
}

