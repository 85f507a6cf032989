// Package main 启动 filetally.
package main

import (
	"os"

	"github.com/yeisme/filetally/pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
