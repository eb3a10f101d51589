package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goclaw/internal/config"
)

// doctorCmd sanity-checks a config file without starting the gateway: that
// it parses, and that every enabled channel has the fields its adapter
// requires.
func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runDoctorChecks(cfg)
		},
	}
}

func runDoctorChecks(cfg *config.Config) error {
	var problems []string

	if cfg.Channels.Feishu.Enabled && (cfg.Channels.Feishu.AppID == "" || cfg.Channels.Feishu.AppSecret == "") {
		problems = append(problems, "feishu: enabled but app_id/app_secret missing")
	}
	if cfg.Channels.Zalo.Enabled && cfg.Channels.Zalo.Token == "" {
		problems = append(problems, "zalo: enabled but token missing")
	}
	if cfg.Channels.WhatsApp.Enabled && cfg.Channels.WhatsApp.BridgeURL == "" {
		problems = append(problems, "whatsapp: enabled but bridge_url missing")
	}
	if cfg.Gateway.Port == 0 {
		problems = append(problems, "gateway: port is 0")
	}

	if len(problems) == 0 {
		fmt.Println("config OK")
		return nil
	}
	for _, p := range problems {
		fmt.Println("- " + p)
	}
	return fmt.Errorf("%d problem(s) found", len(problems))
}
