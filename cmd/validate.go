package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration (file, PULSE_* environment, defaults) and report every
problem found. With --print the effective configuration is written as YAML.

Examples:
  pulse validate -c pulse.yml
  pulse validate -c pulse.yml --print`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

var validatePrint bool

func init() {
	validateCmd.Flags().BoolVar(&validatePrint, "print", false,
		"print the effective configuration as YAML")
}

func runValidateCommand() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "INVALID:")
		for _, e := range configErrors(err) {
			fmt.Fprintf(os.Stderr, "  - %v\n", e)
		}
		os.Exit(1)
	}

	if validatePrint {
		out, err := cfg.YAML()
		if err != nil {
			exitWithError("failed to render configuration", err)
		}
		os.Stdout.Write(out)
		return
	}

	fmt.Printf("VALID: %s backend, destination %s:%d, %s\n",
		cfg.Send.Backend, cfg.Destination.Host, cfg.Destination.Port, countString(cfg.Send.Count))
}

func countString(n uint64) string {
	if n == 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%d frame(s)", n)
}

// configErrors splits the aggregated validation error into its parts.
func configErrors(err error) []error {
	var group interface{ Unwrap() []error }
	if errors.As(err, &group) {
		return group.Unwrap()
	}
	return []error{err}
}
