package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ikjoobang/xivix-ai-core-sub000/cmd/mainconfig"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/app/bootstrap"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/archive"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/conversation"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/customers"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/reminders"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/stores"
)

func requireStore(id string) error {
	if id == "" {
		return errors.New("--store is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("--store must be a UUID: %w", err)
	}
	return nil
}

func newImportCustomersCmd(opts *rootOptions) *cobra.Command {
	var storeID, file string
	cmd := &cobra.Command{
		Use:   "import-customers",
		Short: "Import a CRM CSV export into a store's customer list",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(storeID); err != nil {
				return err
			}
			if file == "" {
				return errors.New("--file is required")
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			db, err := bootstrap.OpenSQL(opts.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("DATABASE_URL is required")
			}
			defer db.Close()

			logger := opts.logger()
			loc := bootstrap.LoadLocation(opts.cfg.ReminderTimezone, logger)
			result, err := customers.NewImporter(customers.NewRepository(db), loc, logger).Import(cmd.Context(), storeID, f)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "Store ID")
	cmd.Flags().StringVar(&file, "file", "", "CSV file (UTF-8 or EUC-KR)")
	return cmd
}

func newClearContextCmd(opts *rootOptions) *cobra.Command {
	var storeID, customerID string
	cmd := &cobra.Command{
		Use:   "clear-context",
		Short: "Drop the conversation memory for one customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(storeID); err != nil {
				return err
			}
			if customerID == "" {
				return errors.New("--customer is required")
			}
			client := bootstrap.BuildRedisClient(cmd.Context(), opts.cfg, opts.logger(), true)
			if client == nil {
				return errors.New("redis is not reachable (REDIS_ADDR)")
			}
			defer client.Close()

			if err := conversation.NewContextStore(client, nil).Clear(cmd.Context(), storeID, customerID); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"ok": true, "store_id": storeID, "customer_id": customerID})
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "Store ID")
	cmd.Flags().StringVar(&customerID, "customer", "", "TalkTalk user ID")
	return cmd
}

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	var (
		storeID string
		since   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive a store's recent conversations to R2",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(storeID); err != nil {
				return err
			}
			r2Client, err := mainconfig.NewR2Client(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			if r2Client == nil {
				return errors.New("R2 is not configured (R2_BUCKET, R2_ACCOUNT_ID)")
			}
			db, err := bootstrap.OpenSQL(opts.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("DATABASE_URL is required")
			}
			defer db.Close()

			logger := opts.logger()
			store := archive.NewStore(r2Client, opts.cfg.R2Bucket, opts.cfg.R2PublicBaseURL, logger)
			summary, err := archive.NewArchiver(store, conversation.NewLogStore(db), logger).
				ArchiveStore(cmd.Context(), storeID, time.Now().Add(-since))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "Store ID")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "How far back to archive")
	return cmd
}

func newProcessRemindersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "process-reminders",
		Short: "Send every due reminder once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := opts.logger()
			pool := bootstrap.ConnectPostgresPool(ctx, opts.cfg.DatabaseURL, logger)
			if pool == nil {
				return errors.New("postgres is required (DATABASE_URL)")
			}
			defer pool.Close()

			redisClient := bootstrap.BuildRedisClient(ctx, opts.cfg, logger, true)
			if redisClient != nil {
				defer redisClient.Close()
			}
			storeCache := stores.NewCachedRepository(stores.NewRepository(pool), redisClient, opts.cfg.StoreCacheTTL, logger)
			sesClient, err := mainconfig.NewSESClient(ctx, opts.cfg)
			if err != nil {
				return err
			}
			loc := bootstrap.LoadLocation(opts.cfg.ReminderTimezone, logger)

			worker := reminders.NewWorker(reminders.WorkerConfig{
				Store:       reminders.NewStore(pool),
				Messenger:   bootstrap.BuildTalkTalkAdapter(opts.cfg, nil, storeCache, logger, nil),
				Stores:      storeCache,
				Notifier:    bootstrap.BuildNotifier(opts.cfg, sesClient, loc, logger),
				Location:    loc,
				MaxAttempts: opts.cfg.ReminderMaxAttempts,
				Logger:      logger,
			})
			sent, err := worker.ProcessDue(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"ok": true, "sent": sent})
		},
	}
}
