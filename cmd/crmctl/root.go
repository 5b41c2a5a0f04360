package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rootOptions holds global flags and the configuration resolved from them
type rootOptions struct {
	ConfigPath string
	Server     string
	Token      string
	NoColor    bool

	cfg *cliConfig
}

// client builds an API client from the resolved configuration
func (o *rootOptions) client() *apiClient {
	return newAPIClient(o.cfg)
}

func (o *rootOptions) requireLogin() error {
	if o.cfg.Token == "" {
		return fmt.Errorf("not logged in: run `crmctl login` first")
	}
	return nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "crmctl",
		Short:         "Operator CLI for the CRM API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			cfg.applyEnv()
			if opts.Server != "" {
				cfg.Server = opts.Server
			}
			if opts.Token != "" {
				cfg.Token = opts.Token
			}
			noColor = noColor || opts.NoColor
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", defaultConfigPath(), "config file")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "API base URL (overrides config and CRMCTL_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "access token (overrides config and CRMCTL_TOKEN)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newLeadsCommand(opts))
	cmd.AddCommand(newRemindersCommand(opts))
	cmd.AddCommand(newAutocallCommand(opts))
	cmd.AddCommand(newMCPCommand(opts))

	return cmd
}
