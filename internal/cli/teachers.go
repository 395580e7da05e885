package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teachdash/internal/auth"
)

func newTeachersCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teachers",
		Short: "List and sync teachers",
	}
	cmd.AddCommand(newTeachersListCmd(rt), newTeachersSyncCmd(rt))
	return cmd
}

func newTeachersListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all teachers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := rt.requirePage(auth.PageDashboard); err != nil {
				return err
			}
			teachers, err := rt.client.ListAllTeachers(cmd.Context(), rt.cfg.PageSize)
			if err != nil {
				return fmt.Errorf("list teachers: %w", err)
			}
			renderTeachers(cmd.OutOrStdout(), teachers)
			return nil
		},
	}
}

func newTeachersSyncCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Create or update teachers from the video libraries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := rt.requirePage(auth.PageLibraries); err != nil {
				return err
			}
			res, err := rt.client.UpsertTeachersFromBunny(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync teachers: %w", err)
			}
			rt.logger.Info("teachers synced",
				zap.Int("created", res.Created),
				zap.Int("updated", res.Updated),
				zap.Int("unchanged", res.Unchanged),
				zap.Int("failed", res.Failed))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Teachers synced: %d created, %d updated, %d unchanged\n", res.Created, res.Updated, res.Unchanged)
			if len(res.Results) > 0 {
				renderUpsertResults(out, res.Results)
			}
			if res.Failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d libraries could not be synced\n", res.Failed)
				return errSilent
			}
			return nil
		},
	}
}
