package main

import (
	"context"

	"degree_plan_review/internal/app"
	"degree_plan_review/internal/infra/logger"
	"degree_plan_review/internal/infra/output"

	"github.com/spf13/cobra"
)

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Move pending mentor reviews of juniors and seniors to the advisor stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		st, err := openStores()
		if err != nil {
			return err
		}
		defer st.Close()

		admin := app.NewAdminService(st.reviews, st.users, logger.Component("admin"), cfg.TxTimeout, cfg.AdminTelegramID)
		updated, err := admin.ReclassifyPendingMentorRequests(ctx)
		if err != nil {
			return err
		}

		ui := output.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
		if len(updated) == 0 {
			ui.Success("No pending mentor reviews needed reclassification")
			return nil
		}
		ui.Success("Reclassified %d review request(s)", len(updated))
		return ui.Requests(updated)
	},
}
