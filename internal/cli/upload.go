package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/auth"
)

func newUploadCmd(rt *runtime) *cobra.Command {
	var teacherID int
	var period periodFlags
	cmd := &cobra.Command{
		Use:   "upload <quality|student|operations> <file>",
		Short: "Upload a monthly report spreadsheet for one teacher",
		Example: `  teachdash upload quality scores.xlsx --teacher 3
  teachdash upload operations ops.csv --teacher 3 --month 2 --year 2024`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.requirePage(auth.PageUpload); err != nil {
				return err
			}
			rtype, err := api.ParseReportType(args[0])
			if err != nil {
				return err
			}
			path := args[1]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("report file: %w", err)
			}
			if teacherID <= 0 {
				return errors.New("--teacher is required")
			}

			p, err := period.resolve(time.Now())
			if err != nil {
				return err
			}

			res, err := rt.client.UploadReportFile(cmd.Context(), rtype, teacherID, p, path)
			if err != nil {
				return fmt.Errorf("upload %s report: %w", rtype, err)
			}
			rt.logger.Info("report uploaded",
				zap.String("type", string(rtype)),
				zap.Int("teacher_id", teacherID),
				zap.Stringer("period", p))
			msg := res.Message
			if msg == "" {
				msg = fmt.Sprintf("%s report uploaded", rtype.Title())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", msg, p)
			return nil
		},
	}
	cmd.Flags().IntVarP(&teacherID, "teacher", "t", 0, "teacher id")
	period.register(cmd.Flags(), "report")
	return cmd
}
