package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pesio-ai/be-relocation-cases/internal/compliance"
)

var (
	cfg        = viper.New()
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "relocase",
	Short:         "relocase - offline tooling for relocation cases",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cfg.SetEnvPrefix("RELOCASE")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	rootCmd.PersistentFlags().String("policy", "", "Policy rules file (YAML); defaults apply when empty")
	rootCmd.PersistentFlags().Float64("near-limit-band", 0, "Override the policy near-limit band")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of text")
	_ = cfg.BindPFlag("policy", rootCmd.PersistentFlags().Lookup("policy"))
	_ = cfg.BindPFlag("near-limit-band", rootCmd.PersistentFlags().Lookup("near-limit-band"))

	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(tokenCmd)
}

// loadPolicy resolves the policy from --policy or RELOCASE_POLICY.
func loadPolicy() (*compliance.Policy, error) {
	p := compliance.DefaultPolicy()
	if path := cfg.GetString("policy"); path != "" {
		var err error
		if p, err = compliance.LoadPolicy(path); err != nil {
			return nil, err
		}
	}
	if band := cfg.GetFloat64("near-limit-band"); band > 0 && band < 1 {
		p.NearLimitBand = band
	}
	return p, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func now() time.Time {
	return time.Now().UTC()
}
