// Command musicscand runs the MusicScan identification server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"musicscan/internal/config"
	"musicscan/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	envFile := flag.String("env-file", "", "Dotenv file with credentials (default .env)")
	logLevel := flag.String("log-level", "", "Override logging.level")
	flag.Parse()

	if err := run(context.Background(), *configPath, *envFile, *logLevel); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "musicscand:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, envFile, logLevel string) error {
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return daemonrun.Run(ctx, cfg, daemonrun.Options{LogLevel: logLevel})
}
