package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hookbox/internal/security"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect webhook configuration",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate webhooks.yaml and report weak secrets",
	Long: `Resolve every webhook in the configuration file exactly as serve would,
print what each one resolved to, and warn about weak signing secrets or
loose file permissions.`,
	Args: cobra.NoArgs,
	RunE: runConfigCheck,
}

func init() {
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	configs, path, err := loadConfigs(cliLogger())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration: %s\n", path)

	if err := security.CheckConfigPermissions(path); err != nil {
		fmt.Fprintf(out, "  warning: %v\n", err)
	}

	fmt.Fprintf(out, "Webhooks: %d\n", configs.Count())

	warnings := 0
	for _, name := range configs.List() {
		cfg, err := configs.Get(name)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n%s\n", name)
		fmt.Fprintf(out, "  signature:  %s (header %s)\n", cfg.ValidatorName, cfg.SignatureHeaderName)
		fmt.Fprintf(out, "  profile:    %s\n", cfg.ProfileName)
		fmt.Fprintf(out, "  response:   %s\n", cfg.ResponseName)
		fmt.Fprintf(out, "  model:      %s\n", cfg.ModelName)
		fmt.Fprintf(out, "  job:        %s\n", cfg.JobName)

		for _, w := range security.SecretWarnings(cfg.SigningSecret) {
			fmt.Fprintf(out, "  warning: %s\n", w)
			warnings++
		}
	}

	fmt.Fprintf(out, "\nOK (%d warnings)\n", warnings)
	return nil
}
