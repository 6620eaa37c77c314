// Command xivixctl is the operator CLI for the TalkTalk agent backend.
package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	appconfig "github.com/ikjoobang/xivix-ai-core-sub000/internal/config"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

type rootOptions struct {
	logLevel string
	cfg      *appconfig.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "xivixctl",
		Short:         "Operate the XIVIX TalkTalk agent",
		Long:          "Operator tasks for the TalkTalk agent: CRM import, context resets, archival, reminders and classifier checks.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.cfg = appconfig.Load()
			if opts.logLevel != "" {
				opts.cfg.LogLevel = opts.logLevel
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(
		newClassifyCmd(opts),
		newPlanRemindersCmd(opts),
		newImportCustomersCmd(opts),
		newClearContextCmd(opts),
		newArchiveCmd(opts),
		newProcessRemindersCmd(opts),
	)
	return root
}

func (o *rootOptions) logger() *logging.Logger {
	level := "warn"
	if o.cfg != nil && o.cfg.LogLevel != "" {
		level = o.cfg.LogLevel
	}
	return logging.New(level)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
