package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/face-emotion/internal/config"
	"github.com/menta2k/face-emotion/internal/utils"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if utils.FileExists(path) && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		c := config.Default()
		c.ApplyEnv()
		if err := c.SaveToFile(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		if c.FaceAPI.SubscriptionKey == "" {
			fmt.Printf("Set face_api.subscription_key or %s before running watch\n", config.EnvAPIKey)
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with the key masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *cfg
		if k := c.FaceAPI.SubscriptionKey; len(k) > 4 {
			c.FaceAPI.SubscriptionKey = "****" + k[len(k)-4:]
		} else if k != "" {
			c.FaceAPI.SubscriptionKey = "****"
		}
		data, err := json.MarshalIndent(&c, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
