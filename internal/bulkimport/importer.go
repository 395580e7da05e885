package bulkimport

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"teachdash/internal/api"
	"teachdash/internal/progress"
)

// Updater applies one configuration change. *api.Client satisfies it.
type Updater interface {
	UpdateLibraryConfig(ctx context.Context, libraryID int, u api.LibraryConfigUpdate) (api.LibraryConfig, error)
}

// Importer sends one update per valid row.
type Importer struct {
	Updater Updater
	// Concurrency bounds in-flight updates. Values below 1 mean 1 (rows are
	// applied strictly in order).
	Concurrency int
	Emitter     progress.Emitter
	Logger      *zap.Logger
}

// Failure is one row that was not applied.
type Failure struct {
	Line      int
	LibraryID int
	Reason    string
}

func (f Failure) String() string {
	if f.LibraryID == 0 {
		return fmt.Sprintf("line %d: %s", f.Line, f.Reason)
	}
	return fmt.Sprintf("line %d (library %d): %s", f.Line, f.LibraryID, f.Reason)
}

// Result aggregates a batch. Failures and Updated are in line order.
type Result struct {
	Total     int
	Succeeded int
	Failures  []Failure
	Updated   []api.LibraryConfig
}

// Failed is the number of rows not applied.
func (r Result) Failed() int { return len(r.Failures) }

// LibraryIDs lists the libraries that were updated.
func (r Result) LibraryIDs() []int {
	ids := make([]int, len(r.Updated))
	for i, c := range r.Updated {
		ids[i] = c.LibraryID
	}
	return ids
}

// Summary is a one-line tally followed by one line per failure.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d rows updated", r.Succeeded, r.Total)
	if len(r.Failures) == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, ", %d failed", len(r.Failures))
	for _, f := range r.Failures {
		b.WriteString("\n")
		b.WriteString(f.String())
	}
	return b.String()
}

type outcome struct {
	line   int
	config api.LibraryConfig
}

// Run applies rows. A failed row never stops the batch; cancelling ctx marks
// the rows not yet sent as failed.
func (im *Importer) Run(ctx context.Context, rows []Row) Result {
	limit := im.Concurrency
	if limit < 1 {
		limit = 1
	}
	emitter := im.Emitter
	if emitter == nil {
		emitter = progress.Nop{}
	}
	logger := im.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	res := Result{Total: len(rows)}
	var (
		mu      sync.Mutex
		done    int
		updated []outcome
	)
	record := func(row Row, cfg *api.LibraryConfig, reason string, status progress.Status) {
		mu.Lock()
		defer mu.Unlock()
		done++
		msg := "library " + strconv.Itoa(row.LibraryID)
		if cfg != nil {
			res.Succeeded++
			updated = append(updated, outcome{line: row.Line, config: *cfg})
		} else {
			res.Failures = append(res.Failures, Failure{Line: row.Line, LibraryID: row.LibraryID, Reason: reason})
			msg += ": " + reason
		}
		emitter.Emit(progress.Event{
			Message: msg,
			Status:  status,
			Current: done,
			Total:   len(rows),
			Metadata: map[string]string{
				"line":       strconv.Itoa(row.Line),
				"library_id": strconv.Itoa(row.LibraryID),
			},
		})
	}

	g := new(errgroup.Group)
	g.SetLimit(limit)
	for _, row := range rows {
		if !row.Valid() {
			record(row, nil, row.Problem, progress.StatusError)
			continue
		}
		if err := ctx.Err(); err != nil {
			record(row, nil, err.Error(), progress.StatusSkipped)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				record(row, nil, err.Error(), progress.StatusSkipped)
				return nil
			}
			cfg, err := im.Updater.UpdateLibraryConfig(ctx, row.LibraryID, updateFor(row))
			if err != nil {
				logger.Warn("library config import row failed",
					zap.Int("line", row.Line),
					zap.Int("library_id", row.LibraryID),
					zap.Error(err))
				record(row, nil, err.Error(), progress.StatusError)
				return nil
			}
			record(row, &cfg, "", progress.StatusDone)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Line < res.Failures[j].Line })
	sort.Slice(updated, func(i, j int) bool { return updated[i].line < updated[j].line })
	for _, o := range updated {
		res.Updated = append(res.Updated, o.config)
	}
	logger.Info("library config import finished",
		zap.Int("total", res.Total),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed()))
	return res
}

func updateFor(row Row) api.LibraryConfigUpdate {
	key := row.APIKey
	return api.LibraryConfigUpdate{StreamAPIKey: &key, IsActive: row.Active}
}

// ImportFile reads, parses and applies path.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	raw, err := ReadRows(path)
	if err != nil {
		return Result{}, err
	}
	rows, err := Parse(raw)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return im.Run(ctx, rows), nil
}
