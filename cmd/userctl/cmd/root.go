package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"user-service/internal/app"
	"user-service/internal/config"
)

var application *app.App

var rootCmd = &cobra.Command{
	Use:   "userctl",
	Short: "Operator tool for the user service",
	Long: `userctl works directly against the user store configured for the service
(USERSVC_* environment, .env or config file). Use it to create administrators,
inspect accounts and upload profile pictures.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if application != nil {
			// a previous command failed before its post-run hook
			_ = application.Close(cmd.Context())
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := cfg.NewLogger()
		if err != nil {
			return err
		}

		application, err = app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("setup: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if application == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := application.Close(ctx)
		application = nil
		return err
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(avatarCmd)
}
