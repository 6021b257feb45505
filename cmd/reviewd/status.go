package main

import (
	"context"
	"fmt"
	"strconv"

	"degree_plan_review/internal/app"
	"degree_plan_review/internal/domain/user"
	"degree_plan_review/internal/infra/logger"
	"degree_plan_review/internal/infra/output"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <planID>",
	Short: "Show the review state of a degree plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || planID <= 0 {
			return fmt.Errorf("planID must be a positive number, got %q", args[0])
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		st, err := openStores()
		if err != nil {
			return err
		}
		defer st.Close()

		submissions := app.NewSubmissionService(st.reviews, st.plans, st.users, logger.Component("submission"), cfg.TxTimeout)
		status, err := submissions.PlanReviewStatus(ctx, planID, 0, user.RoleAdmin)
		if err != nil {
			return err
		}

		ui := output.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err := ui.Requests(status.Requests); err != nil {
			return err
		}
		if status.FullyApproved {
			ui.Success("Degree plan %d is fully approved", planID)
		} else {
			ui.Warning("Degree plan %d is not fully approved yet", planID)
		}
		return nil
	},
}
