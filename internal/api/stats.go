package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

// ErrNoLibraries is returned when a stats call that needs library ids gets none.
var ErrNoLibraries = errors.New("no library ids given")

// BatchFetchStats pulls one month of statistics for each library from the
// video platform and stores them. Libraries already stored for that month
// are refreshed.
func (c *Client) BatchFetchStats(ctx context.Context, req StatsRequest) (BatchFetchResult, error) {
	if len(req.LibraryIDs) == 0 {
		return BatchFetchResult{}, ErrNoLibraries
	}
	var out BatchFetchResult
	if err := c.sendJSON(ctx, http.MethodPost, "/historical-stats/batch-fetch/", req, &out); err != nil {
		return BatchFetchResult{}, err
	}
	return out, nil
}

// SyncHistoricalStats marks fetched statistics as published to the libraries
// page. With no library ids every unsynced library of the month is marked.
func (c *Client) SyncHistoricalStats(ctx context.Context, req StatsRequest) (HistorySyncResult, error) {
	var out HistorySyncResult
	if err := c.sendJSON(ctx, http.MethodPost, "/historical-stats/sync/", req, &out); err != nil {
		return HistorySyncResult{}, err
	}
	return out, nil
}

// LibrariesWithHistory lists libraries with their stored monthly statistics,
// newest month first. syncedOnly limits the result to published months.
func (c *Client) LibrariesWithHistory(ctx context.Context, syncedOnly bool) ([]LibraryHistory, error) {
	var query url.Values
	if syncedOnly {
		query = url.Values{"with_stats_only": {strconv.FormatBool(true)}}
	}
	var out []LibraryHistory
	if err := c.getJSON(ctx, "/historical-stats/libraries/", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SyncLibraryStats copies one month of views and watch time of each library
// into the monthly statistics of its teacher, creating the teacher when the
// library has none.
func (c *Client) SyncLibraryStats(ctx context.Context, req StatsRequest) (LibraryStatsSyncResult, error) {
	if len(req.LibraryIDs) == 0 {
		return LibraryStatsSyncResult{}, ErrNoLibraries
	}
	var out LibraryStatsSyncResult
	if err := c.sendJSON(ctx, http.MethodPost, "/bunny-libraries/sync-stats/", req, &out); err != nil {
		return LibraryStatsSyncResult{}, err
	}
	return out, nil
}
