package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/filetally/pkg/configs"
)

// reveal 打印配置时不隐去敏感字段.
var reveal bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configs.InitConfig(configPath)
	},
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "print the config file in use",
		Run: func(cmd *cobra.Command, args []string) {
			used := ""
			if v := configs.GetViper(); v != nil {
				used = v.ConfigFileUsed()
			}

			if used == "" {
				used = "(defaults and " + configs.EnvPrefix + "_* environment only)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), used)
		},
	}
}

func configShowCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "show",
		Aliases: []string{"debug"},
		Short:   "print the effective config as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *configs.GetConfig()
			if !reveal {
				cfg = cfg.Redacted()
			}

			if debug {
				configs.GetViper().Debug()
			}

			b, err := sonic.ConfigStd.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}

	c.Flags().BoolVar(&reveal, "reveal", false, "print passwords and keys in clear text")

	return c
}

// configValidateCmd 加载与校验在 PersistentPreRunE 中完成，这里只报告结果.
func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "load the config and check every rule",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "config ok")
		},
	}
}

func registerConfigsCommands() {
	configCmd.AddCommand(configPathCmd(), configShowCmd(), configValidateCmd())

	rootCmd.AddCommand(configCmd)
}
