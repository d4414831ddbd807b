package main

import (
	"os"

	"github.com/mgpai22/xmeml2srt/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
