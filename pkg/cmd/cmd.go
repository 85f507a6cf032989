// Package cmd 提供 filetally 的命令行入口.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// configPath 配置文件或其所在目录.
	configPath string
	// debug 输出更多诊断信息.
	debug bool

	rootCmd = &cobra.Command{
		Use:           "filetally",
		Short:         "Track files shared in chat channels and keep per-channel statistics",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print extra diagnostics")

	registerServeCommands()
	registerVersionCommands()
	registerConfigsCommands()
	registerBackendCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
