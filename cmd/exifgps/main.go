package main

import (
	"fmt"
	"os"

	"github.com/Fepozopo/exifgps/pkg/cli"
	"github.com/Fepozopo/exifgps/pkg/config"
	"github.com/Fepozopo/exifgps/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if err := cli.NewRootCmd(cfg, log).Execute(); err != nil {
		os.Exit(1)
	}
}
