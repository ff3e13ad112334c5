package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	faceemotion "github.com/menta2k/face-emotion"
	"github.com/menta2k/face-emotion/internal/config"
	"github.com/menta2k/face-emotion/internal/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// cfg is loaded once by the root command and shared by subcommands
	cfg *config.Config

	configPath string
	envFile    string
	logLevel   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:           "face-emotion",
	Short:         "Webcam face and emotion overlay backed by the Azure Face API",
	Version:       faceemotion.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(envFile); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		cfg.ApplyEnv()

		if cmd.Flags().Changed("log-level") || cfg.Log.Level == "" {
			cfg.Log.Level = logLevel
		}
		if logFile != "" {
			cfg.Log.File = logFile
		}
		log.Init(log.Options{
			Level:   cfg.Log.Level,
			File:    cfg.Log.File,
			NoColor: cfg.Log.NoColor,
		})
		return nil
	},
}

// Execute runs the CLI with a context cancelled on SIGINT or SIGTERM
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.GetConfigPath(), "config file (JSON); missing file means defaults")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file with FACE_API_KEY / FACE_API_ENDPOINT")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file (rotated)")
}
