// Command remindctl is the reminder queue operations CLI.
//
// Usage:
//
//	remindctl replenish --workers 4
//	remindctl schedule --user <uuid> --protocol <uuid> --days 7 --replace
//	remindctl dispatch
//	remindctl status --protocol <uuid>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/resetbiology/reminders/internal/config"
	"github.com/resetbiology/reminders/internal/db"
	"github.com/resetbiology/reminders/internal/notify"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "remindctl",
		Short: "Reminder queue operations CLI",
	}

	root.AddCommand(replenishCmd())
	root.AddCommand(scheduleCmd())
	root.AddCommand(dispatchCmd())
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// replenish command
// --------------------------------------------------------------------------

func replenishCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "replenish",
		Short: "Top up the reminder queue for all active protocols",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := notify.NewStore(pool.Pool)
				scheduler := notify.NewScheduler(store, logger)

				result, err := scheduler.Replenish(ctx, workers)
				if err != nil {
					return fmt.Errorf("replenish sweep: %w", err)
				}
				logger.Info("Replenish sweep finished", "summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("sweep error", "protocol_id", e.ProtocolID, "error", e.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent worker count")
	return cmd
}

// --------------------------------------------------------------------------
// schedule command
// --------------------------------------------------------------------------

func scheduleCmd() *cobra.Command {
	var userID, protocolID string
	var days int
	var replace bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate reminders for a single protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" || protocolID == "" {
				return fmt.Errorf("--user and --protocol are required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := notify.NewStore(pool.Pool)
				scheduler := notify.NewScheduler(store, logger)

				outcome, err := scheduler.ScheduleProtocol(ctx, userID, protocolID, notify.ScheduleOptions{
					WindowDays: days,
					Replace:    replace,
				})
				if err != nil {
					return fmt.Errorf("schedule protocol: %w", err)
				}
				logger.Info("Scheduling finished",
					"protocol_id", protocolID,
					"scheduled", outcome.Scheduled,
					"message", outcome.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID owning the protocol")
	cmd.Flags().StringVar(&protocolID, "protocol", "", "Protocol ID to schedule")
	cmd.Flags().IntVar(&days, "days", notify.InteractiveWindowDays, "Generation window in days")
	cmd.Flags().BoolVar(&replace, "replace", false, "Delete unsent reminders before writing")
	return cmd
}

// --------------------------------------------------------------------------
// dispatch command
// --------------------------------------------------------------------------

func dispatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Send all due reminders once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := notify.NewStore(pool.Pool)
				push := notify.NewPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject, logger)
				email := notify.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPSender, cfg.SMTPPass)
				dispatcher := notify.NewDispatcher(store, push, email, logger)

				start := time.Now()
				result, err := dispatcher.DispatchDue(ctx)
				if err != nil {
					return fmt.Errorf("dispatch: %w", err)
				}
				logger.Info("Dispatch finished",
					"found", result.Found,
					"sent", result.Sent,
					"failed", result.Failed,
					"duration", time.Since(start).Round(time.Millisecond))
				for _, e := range result.Errors {
					logger.Error("dispatch error", "error", e)
				}
				return nil
			})
		},
	}
	return cmd
}

// --------------------------------------------------------------------------
// status command
// --------------------------------------------------------------------------

func statusCmd() *cobra.Command {
	var protocolID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue coverage for a protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			if protocolID == "" {
				return fmt.Errorf("--protocol is required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := notify.NewStore(pool.Pool)

				protocol, err := store.ProtocolByID(ctx, protocolID)
				if err != nil {
					return fmt.Errorf("load protocol: %w", err)
				}
				count, err := store.CountFutureUnsent(ctx, protocolID, time.Now())
				if err != nil {
					return fmt.Errorf("count future reminders: %w", err)
				}

				daysRemaining := count / notify.AssumedRemindersPerDay
				logger.Info("Queue status",
					"protocol_id", protocolID,
					"peptide", protocol.PeptideName,
					"frequency", protocol.Frequency,
					"timing", protocol.Timing,
					"active", protocol.IsActive,
					"future_unsent", count,
					"days_remaining", daysRemaining,
					"needs_replenish", daysRemaining < notify.ReplenishThresholdDays)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&protocolID, "protocol", "", "Protocol ID to inspect")
	return cmd
}

// run handles config loading, DB connection, and context cancellation.
func run(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
