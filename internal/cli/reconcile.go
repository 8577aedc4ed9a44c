package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/auth"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/catalog"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/config"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/service"
)

// NewReconcileCommand creates the reconcile command, which repairs an approval instance whose
// stored status disagrees with its actions.
func NewReconcileCommand(opts *RootOptions) *cobra.Command {
	var dryRun bool
	var actor string

	cmd := &cobra.Command{
		Use:          "reconcile <instance-id>",
		Short:        "Re-derive an approval instance's status from its actions",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			instanceID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid instance id %q: %w", args[0], err)
			}

			return opts.withDB(func(cfg *config.Config, db *gorm.DB) error {
				approvals := workflow.NewManager(workflow.Dependencies{
					DB:      db,
					Catalog: catalog.NewStore(db, nil),
					Users:   auth.NewAuthService(db),
					RFPOs:   rfpo.NewRepository(db),
					Config:  service.ApprovalServiceConfig{RequireDocuments: cfg.Approval.RequireDocuments},
				}).ApprovalService()

				if dryRun {
					status, err := approvals.CheckCompletionStatus(cmd.Context(), instanceID)
					if err != nil {
						return err
					}
					return opts.output(cmd.OutOrStdout(), status, func() string {
						if status.Consistent {
							return fmt.Sprintf("instance %s is consistent (%s)", instanceID, status.StoredStatus)
						}
						return fmt.Sprintf("instance %s is inconsistent: stored %s, derived %s",
							instanceID, status.StoredStatus, status.DerivedStatus)
					})
				}

				result, err := approvals.ReconcileStatus(cmd.Context(), instanceID, actor)
				if err != nil {
					return err
				}
				return opts.output(cmd.OutOrStdout(), result, func() string {
					if !result.Changed {
						return fmt.Sprintf("instance %s unchanged (%s)", instanceID, result.Status)
					}
					return fmt.Sprintf("instance %s reconciled: %s -> %s", instanceID, result.PreviousStatus, result.Status)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the derived status without writing")
	cmd.Flags().StringVar(&actor, "actor", "rfpoctl", "user id recorded as the request updater")
	return cmd
}
