package api

import (
	"context"
	"fmt"
	"net/http"

	"teachdash/internal/jsonutil"
)

// ListLibraryConfigs returns every stored library configuration.
func (c *Client) ListLibraryConfigs(ctx context.Context) ([]LibraryConfig, error) {
	var out []LibraryConfig
	if err := c.getJSON(ctx, "/library-configs/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetLibraryConfig returns the configuration of one library.
func (c *Client) GetLibraryConfig(ctx context.Context, libraryID int) (LibraryConfig, error) {
	var out LibraryConfig
	if err := c.getJSON(ctx, fmt.Sprintf("/library-configs/%d", libraryID), nil, &out); err != nil {
		return LibraryConfig{}, err
	}
	return out, nil
}

// UpdateLibraryConfig applies a partial update and returns the stored config.
func (c *Client) UpdateLibraryConfig(ctx context.Context, libraryID int, u LibraryConfigUpdate) (LibraryConfig, error) {
	var out LibraryConfig
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/library-configs/%d", libraryID), u, &out); err != nil {
		return LibraryConfig{}, err
	}
	return out, nil
}

// CreateLibraryConfig stores a configuration. An existing configuration of
// the same library is replaced.
func (c *Client) CreateLibraryConfig(ctx context.Context, cfg NewLibraryConfig) (LibraryConfig, error) {
	var out LibraryConfig
	if err := c.sendJSON(ctx, http.MethodPost, "/library-configs/", cfg, &out); err != nil {
		return LibraryConfig{}, err
	}
	return out, nil
}

// DeleteLibraryConfig removes the configuration of one library.
func (c *Client) DeleteLibraryConfig(ctx context.Context, libraryID int) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/library-configs/%d", libraryID), nil, nil)
}

// SyncLibraryConfigs creates or renames configurations from live Bunny libraries.
func (c *Client) SyncLibraryConfigs(ctx context.Context) (SyncResult, error) {
	var out SyncResult
	if err := c.sendJSON(ctx, http.MethodPost, "/library-configs/sync-from-bunny/", nil, &out); err != nil {
		return SyncResult{}, err
	}
	return out, nil
}

// BunnyLibraries returns the libraries currently live on the video platform.
// Entries may be bare ids or objects with "id"/"Id" and "name"/"Name".
func (c *Client) BunnyLibraries(ctx context.Context) ([]BunnyLibrary, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/bunny-libraries/"})
	if err != nil {
		return nil, err
	}
	items, err := jsonutil.UnmarshalArrayAllowEmpty[any](data, "decode bunny libraries")
	if err != nil {
		return nil, err
	}
	out := make([]BunnyLibrary, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case float64:
			if id, ok := jsonutil.ToInt(v); ok {
				out = append(out, BunnyLibrary{ID: id})
			}
		case map[string]any:
			idVal, ok := jsonutil.FirstKey(v, "id", "Id")
			if !ok {
				continue
			}
			id, ok := jsonutil.ToInt(idVal)
			if !ok {
				continue
			}
			name, _ := jsonutil.FirstKey(v, "name", "Name")
			views, _ := jsonutil.GetInt(v, "video_views")
			watch, _ := jsonutil.GetInt(v, "total_watch_time_seconds")
			out = append(out, BunnyLibrary{
				ID:                    id,
				Name:                  jsonutil.ToString(name),
				VideoViews:            views,
				TotalWatchTimeSeconds: watch,
			})
		}
	}
	return out, nil
}

// FilterLive keeps only configs whose library is live. Order is preserved.
func FilterLive(configs []LibraryConfig, live []BunnyLibrary) []LibraryConfig {
	ids := make(map[int]struct{}, len(live))
	for _, l := range live {
		ids[l.ID] = struct{}{}
	}
	out := make([]LibraryConfig, 0, len(configs))
	for _, cfg := range configs {
		if _, ok := ids[cfg.LibraryID]; ok {
			out = append(out, cfg)
		}
	}
	return out
}

// LiveLibraryConfigs returns configs filtered to live Bunny libraries. If the
// live list cannot be fetched, all configs are returned with the error so the
// caller can still show them.
func (c *Client) LiveLibraryConfigs(ctx context.Context) ([]LibraryConfig, error) {
	configs, err := c.ListLibraryConfigs(ctx)
	if err != nil {
		return nil, err
	}
	live, err := c.BunnyLibraries(ctx)
	if err != nil {
		return configs, fmt.Errorf("live library list unavailable: %w", err)
	}
	return FilterLive(configs, live), nil
}
