package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/app/bootstrap"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/reminders"
)

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var (
		businessType string
		keywords     string
		withImage    bool
	)
	cmd := &cobra.Command{
		Use:   "classify <message>",
		Short: "Show which model path a customer message would take",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := keywords
			if path == "" && opts.cfg != nil {
				path = opts.cfg.KeywordsFile
			}
			classifier, err := bootstrap.LoadClassifier(path)
			if err != nil {
				return err
			}
			message := strings.Join(args, " ")
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"message":           message,
				"business_type":     businessType,
				"expert_business":   classifier.IsExpertBusiness(businessType),
				"consultation_type": classifier.Classify(message, businessType, withImage),
			})
		},
	}
	cmd.Flags().StringVarP(&businessType, "business-type", "b", "", "Store business type (e.g. dental, beauty)")
	cmd.Flags().StringVar(&keywords, "keywords", "", "Keyword table YAML (default: built-in tables)")
	cmd.Flags().BoolVar(&withImage, "image", false, "Treat the message as carrying an image")
	return cmd
}

func newPlanRemindersCmd(opts *rootOptions) *cobra.Command {
	var (
		at  string
		now string
	)
	cmd := &cobra.Command{
		Use:   "plan-reminders",
		Short: "Preview reminder send times for a reservation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if at == "" {
				return errors.New("--at is required")
			}
			reservedAt, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return err
			}
			current := time.Now()
			if now != "" {
				if current, err = time.Parse(time.RFC3339, now); err != nil {
					return err
				}
			}
			leads := reminders.DefaultLeadTimes
			tz := "Asia/Seoul"
			if opts.cfg != nil {
				if len(opts.cfg.ReminderLeadTimes) > 0 {
					leads = opts.cfg.ReminderLeadTimes
				}
				tz = opts.cfg.ReminderTimezone
			}
			loc := bootstrap.LoadLocation(tz, nil)

			type row struct {
				Lead   string `json:"lead"`
				SendAt string `json:"send_at"`
				Local  string `json:"local"`
			}
			out := []row{}
			for _, p := range reminders.PlanReminders(reservedAt, current, leads, loc) {
				out = append(out, row{
					Lead:   reminders.LeadLabel(p.Lead),
					SendAt: p.SendAt.Format(time.RFC3339),
					Local:  reminders.FormatKoreanTime(p.SendAt, loc),
				})
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Reservation time (RFC3339)")
	cmd.Flags().StringVar(&now, "now", "", "Planning time (RFC3339, default: now)")
	return cmd
}
