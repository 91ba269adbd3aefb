package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campuscare/grievance-management/internal/core/events"
	"github.com/campuscare/grievance-management/internal/notification"
	"github.com/campuscare/grievance-management/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run background workers",
	Long:  `Run background workers that consume domain events`,
}

var notificationWorkerCmd = &cobra.Command{
	Use:   "notification",
	Short: "Run the notification worker",
	Long:  `Consume domain events and deliver outbound notifications`,
	Run: func(cmd *cobra.Command, args []string) {
		startNotificationWorker()
	},
}

func startNotificationWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.L()

	bus := events.NewEventBus(lg)
	mailer := notification.NewMailer(cfg.Mail, lg)
	notification.NewEventHandler(mailer, cfg.Server.BaseURL, lg).Register(bus)

	lg.Info("notification worker started, waiting for events")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("received signal, shutting down notification worker", "signal", sig)
}

func init() {
	workerCmd.AddCommand(notificationWorkerCmd)
}
