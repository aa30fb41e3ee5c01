package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hookbox/pkg/fileutil"
	"hookbox/pkg/templates"
)

var (
	serviceMode    string
	serviceUser    string
	serviceGroup   string
	serviceWorkDir string
	serviceEnv     []string
	siteUpstream   string
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Render deployment files for running hookbox as a service",
}

var systemdTemplateCmd = &cobra.Command{
	Use:   "systemd",
	Short: "Print a systemd unit for hookbox serve or work",
	Long: `Print a systemd unit for hookbox serve or work.

Example:
  hookbox template systemd --mode work --env HOOKBOX_QUEUE=redis > /etc/systemd/system/hookbox-work.service`,
	Args: cobra.NoArgs,
	RunE: runSystemdTemplate,
}

var nginxTemplateCmd = &cobra.Command{
	Use:   "nginx DOMAIN",
	Short: "Print an nginx site proxying /webhooks/ to hookbox serve",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := templates.RenderNginxSite(args[0], siteUpstream)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	systemdTemplateCmd.Flags().StringVar(&serviceMode, "mode", "serve", "Process to run: serve or work")
	systemdTemplateCmd.Flags().StringVar(&serviceUser, "user", "hookbox", "Service user")
	systemdTemplateCmd.Flags().StringVar(&serviceGroup, "group", "hookbox", "Service group")
	systemdTemplateCmd.Flags().StringVar(&serviceWorkDir, "workdir", "/var/lib/hookbox", "Working directory (holds the SQLite database)")
	systemdTemplateCmd.Flags().StringArrayVar(&serviceEnv, "env", nil, "Extra KEY=value environment lines")

	nginxTemplateCmd.Flags().StringVar(&siteUpstream, "upstream", "127.0.0.1:5000", "Address of hookbox serve")

	templateCmd.AddCommand(systemdTemplateCmd)
	templateCmd.AddCommand(nginxTemplateCmd)
}

func runSystemdTemplate(cmd *cobra.Command, args []string) error {
	binary, err := os.Executable()
	if err != nil {
		binary = "/usr/local/bin/hookbox"
	}

	home := getEnvOrDefault("HOOKBOX_HOME", "/etc/hookbox")
	config := configFile
	if config == "" {
		config = filepath.Join(home, fileutil.ConfigFileName)
	}

	out, err := templates.RenderSystemdService(templates.ServiceData{
		Mode:       serviceMode,
		User:       serviceUser,
		Group:      serviceGroup,
		WorkingDir: serviceWorkDir,
		Home:       home,
		Binary:     binary,
		ConfigFile: config,
		LogFile:    "/var/log/hookbox/hookbox.log",
		Env:        serviceEnv,
	})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
