package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoArmGo/GeoPhoto/internal/app"
	"github.com/GoArmGo/GeoPhoto/internal/di"
)

// bootstrap-логгер (используется только на этапе инициализации т.к еще не создан slogger)
var bootstrapLogger = slog.New(
	slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "geophoto",
	Short:         "Photo storage service with EXIF geolocation",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runMode собирает приложение и запускает его в режиме mode
func runMode(mode string) error {
	bootstrapLogger.Info("starting application", "mode", mode)

	ctx := context.Background()
	a, err := di.BuildApp(ctx, mode)
	if err != nil {
		bootstrapLogger.Error("failed to build app", "error", err)
		return err
	}

	if err := a.Run(ctx, mode); err != nil {
		a.LoggerIns().Error("application run failed", "error", err)
		return err
	}
	return nil
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(app.ModeServer)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume orphan cleanup jobs from RabbitMQ (s3 and minio backends only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(app.ModeWorker)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		check, _ := cmd.Flags().GetBool("check")
		if err := di.RunMigrations(check); err != nil {
			bootstrapLogger.Error("migration failed", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("check", false, "only verify that the schema is at the latest version")
	rootCmd.AddCommand(serverCmd, workerCmd, migrateCmd)
}
