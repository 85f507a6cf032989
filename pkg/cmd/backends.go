package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/filetally/pkg/internal/storage/db"
	"github.com/yeisme/filetally/pkg/internal/storage/kv"
	"github.com/yeisme/filetally/pkg/internal/storage/mq"
)

// backendCommand 构造 "<name> list" 形式的命令，列出编译进二进制的实现类型.
func backendCommand(name, short string, aliases []string, list func() []string) *cobra.Command {
	parent := &cobra.Command{
		Use:     name,
		Short:   short,
		Aliases: aliases,
	}

	parent.AddCommand(&cobra.Command{
		Use:     "list",
		Short:   "list all registered " + name + " types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s types:\n", name)

			for _, t := range list() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+t)
			}
		},
	})

	return parent
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}

	return out
}

// registerBackendCommands 注册 db、kv、mq 命令.
func registerBackendCommands() {
	rootCmd.AddCommand(
		backendCommand("db", "Database related commands", nil, func() []string {
			return toStrings(db.GetRegisteredDBTypes())
		}),
		backendCommand("kv", "Key-Value store related commands", []string{"keyvalue"}, func() []string {
			return toStrings(kv.GetRegisteredKVTypes())
		}),
		backendCommand("mq", "Message queue related commands", []string{"messagequeue"}, func() []string {
			return toStrings(mq.RegisteredTypes())
		}),
	)
}
