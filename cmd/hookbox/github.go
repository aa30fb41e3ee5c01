package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hookbox/internal/githubhook"
)

var (
	githubToken  string
	ownerRepo    string
	baseURL      string
	githubEvents []string
)

var githubHookCmd = &cobra.Command{
	Use:   "github-hook NAME",
	Short: "Register a configured webhook on a GitHub repository",
	Long: `Create the repository webhook on GitHub that delivers to NAME.

The hook points at BASE/webhooks/NAME and uses the signing secret from the
configuration. Nothing is created when a hook with the same URL exists.

Example:
  hookbox github-hook deploys --repo acme/site --url https://hooks.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runGitHubHook,
}

func init() {
	githubHookCmd.Flags().StringVar(&githubToken, "token", os.Getenv("GITHUB_TOKEN"), "GitHub token with admin:repo_hook scope")
	githubHookCmd.Flags().StringVar(&ownerRepo, "repo", "", "Repository in owner/repo form")
	githubHookCmd.Flags().StringVar(&baseURL, "url", getEnvOrDefault("HOOKBOX_PUBLIC_URL", ""), "Public base URL of this hookbox")
	githubHookCmd.Flags().StringSliceVar(&githubEvents, "events", []string{"push"}, "GitHub events to deliver")
	_ = githubHookCmd.MarkFlagRequired("repo")
}

func runGitHubHook(cmd *cobra.Command, args []string) error {
	name := args[0]
	if baseURL == "" {
		return fmt.Errorf("--url (or HOOKBOX_PUBLIC_URL) is required")
	}

	configs, _, err := loadConfigs(cliLogger())
	if err != nil {
		return err
	}
	cfg, err := configs.Get(name)
	if err != nil {
		return err
	}

	client, err := githubhook.NewClient(cmd.Context(), githubToken)
	if err != nil {
		return err
	}

	hookURL := strings.TrimRight(baseURL, "/") + "/webhooks/" + name
	created, err := githubhook.EnsureHook(cmd.Context(), client, githubhook.HookRequest{
		OwnerRepo: ownerRepo,
		URL:       hookURL,
		Secret:    cfg.SigningSecret,
		Events:    githubEvents,
	})
	if err != nil {
		return fmt.Errorf("failed to register GitHub webhook: %w", err)
	}

	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created webhook on %s -> %s\n", ownerRepo, hookURL)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Webhook already exists on %s -> %s\n", ownerRepo, hookURL)
	}
	return nil
}
