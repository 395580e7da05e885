package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teachdash/internal/api"
	"teachdash/internal/auth"
)

func newStatsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Fetch and publish monthly video statistics of the libraries",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.setup(cmd, false); err != nil {
				return err
			}
			_, err := rt.requirePage(auth.PageLibraries)
			return err
		},
	}
	cmd.AddCommand(
		newStatsListCmd(rt),
		newStatsFetchCmd(rt),
		newStatsSyncCmd(rt),
		newStatsTeachersCmd(rt),
	)
	return cmd
}

func newStatsListCmd(rt *runtime) *cobra.Command {
	var synced bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List libraries with their latest stored month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			libs, err := rt.client.LibrariesWithHistory(cmd.Context(), synced)
			if err != nil {
				return fmt.Errorf("list library stats: %w", err)
			}
			renderLibraryHistory(cmd.OutOrStdout(), libs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&synced, "synced", false, "only months already published")
	return cmd
}

func newStatsFetchCmd(rt *runtime) *cobra.Command {
	var period periodFlags
	var publish bool
	cmd := &cobra.Command{
		Use:   "fetch [library-id...]",
		Short: "Pull one month of statistics from the video platform",
		Long: `Pull one month of statistics from the video platform and store them.
Without library ids every active live library is fetched. Libraries that
fail do not stop the others.`,
		Example: `  teachdash stats fetch --month 2 --year 2024
  teachdash stats fetch 101 102 --sync`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := period.resolve(time.Now())
			if err != nil {
				return err
			}
			ids, err := parseLibraryIDs(args)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				if ids, err = rt.activeLibraryIDs(cmd); err != nil {
					return err
				}
			}
			req := api.StatsRequest{LibraryIDs: ids, Month: p.Month, Year: p.Year}
			res, err := rt.client.BatchFetchStats(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("fetch stats for %s: %w", p, err)
			}
			rt.logger.Info("library stats fetched",
				zap.Stringer("period", p),
				zap.Int("fetched", res.Successful),
				zap.Int("failed", res.Failed),
				zap.Int("skipped", res.Skipped))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fetched stats for %d of %s (%s)\n", res.Successful, plural(res.TotalLibraries, "library"), p)
			renderStatsResults(out, res.Results)
			if publish {
				if fetched := res.FetchedIDs(); len(fetched) > 0 {
					sync, err := rt.client.SyncHistoricalStats(cmd.Context(), api.StatsRequest{LibraryIDs: fetched, Month: p.Month, Year: p.Year})
					if err != nil {
						return fmt.Errorf("publish stats for %s: %w", p, err)
					}
					fmt.Fprintf(out, "Published %d, already published %d\n", sync.Synced, sync.AlreadySynced)
				}
			}
			if res.Failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d libraries could not be fetched\n", res.Failed)
				return errSilent
			}
			return nil
		},
	}
	period.register(cmd.Flags(), "stats")
	cmd.Flags().BoolVar(&publish, "sync", false, "also publish the fetched month to the libraries page")
	return cmd
}

func newStatsSyncCmd(rt *runtime) *cobra.Command {
	var period periodFlags
	cmd := &cobra.Command{
		Use:   "sync [library-id...]",
		Short: "Publish fetched statistics to the libraries page",
		Long: `Publish fetched statistics of one month to the libraries page. Without
library ids every library fetched for that month and not yet published is
published.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := period.resolve(time.Now())
			if err != nil {
				return err
			}
			ids, err := parseLibraryIDs(args)
			if err != nil {
				return err
			}
			res, err := rt.client.SyncHistoricalStats(cmd.Context(), api.StatsRequest{LibraryIDs: ids, Month: p.Month, Year: p.Year})
			if err != nil {
				return fmt.Errorf("publish stats for %s: %w", p, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Published %d, already published %d, failed %d (%s)\n", res.Synced, res.AlreadySynced, res.Failed, p)
			if len(res.Results) > 0 {
				renderStatsResults(out, res.Results)
			}
			if res.Failed > 0 {
				return errSilent
			}
			return nil
		},
	}
	period.register(cmd.Flags(), "stats")
	return cmd
}

func newStatsTeachersCmd(rt *runtime) *cobra.Command {
	var period periodFlags
	cmd := &cobra.Command{
		Use:   "teachers <library-id>...",
		Short: "Copy views and watch time into the teachers' monthly stats",
		Long: `Copy one month of views and watch time of each library into the monthly
statistics of its teacher. A library without a teacher gets one named after
its configuration.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := period.resolve(time.Now())
			if err != nil {
				return err
			}
			ids, err := parseLibraryIDs(args)
			if err != nil {
				return err
			}
			res, err := rt.client.SyncLibraryStats(cmd.Context(), api.StatsRequest{LibraryIDs: ids, Month: p.Month, Year: p.Year})
			if err != nil {
				return fmt.Errorf("sync teacher stats for %s: %w", p, err)
			}
			renderSyncedStats(cmd.OutOrStdout(), res.Synced)
			if skipped := skippedLibraries(ids, res.Synced); len(skipped) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "No statistics for %s\n", joinInts(skipped))
				return errSilent
			}
			return nil
		},
	}
	period.register(cmd.Flags(), "stats")
	return cmd
}

// activeLibraryIDs lists the active live libraries, or every active library
// when the live list is unavailable.
func (r *runtime) activeLibraryIDs(cmd *cobra.Command) ([]int, error) {
	configs, err := r.client.LiveLibraryConfigs(cmd.Context())
	if err != nil && configs != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Live library list unavailable; using all configs")
		r.logger.Warn("live library filter skipped", zap.Error(err))
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("list library configs: %w", err)
	}
	var ids []int
	for _, c := range configs {
		if c.IsActive {
			ids = append(ids, c.LibraryID)
		}
	}
	if len(ids) == 0 {
		return nil, api.ErrNoLibraries
	}
	return ids, nil
}

func parseLibraryIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid library id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func skippedLibraries(requested []int, synced []api.SyncedLibraryStats) []int {
	done := make(map[int]bool, len(synced))
	for _, s := range synced {
		done[s.LibraryID] = true
	}
	var out []int
	for _, id := range requested {
		if !done[id] {
			out = append(out, id)
		}
	}
	return out
}
