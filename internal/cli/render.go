package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"teachdash/internal/api"
)

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

func renderTeachers(w io.Writer, teachers []api.Teacher) {
	t := newTable(w, "ID", "Name", "Subject", "Grade", "Library")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, tc := range teachers {
		t.AppendRow(table.Row{tc.ID, tc.Name, orNA(tc.Subject), orNA(tc.Grade), orNA(libraryID(tc.BunnyLibraryID))})
	}
	t.AppendFooter(table.Row{"", plural(len(teachers), "teacher")})
	t.Render()
}

func renderConfigs(w io.Writer, configs []api.LibraryConfig) {
	t := newTable(w, "Library", "Name", "API key", "Active", "Updated")
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	for _, c := range configs {
		active := "no"
		if c.IsActive {
			active = "yes"
		}
		t.AppendRow(table.Row{c.LibraryID, c.LibraryName, c.MaskedKey(), active, c.UpdatedAt.Display()})
	}
	t.AppendFooter(table.Row{"", plural(len(configs), "library")})
	t.Render()
}

func renderUpsertResults(w io.Writer, results []api.UpsertResult) {
	t := newTable(w, "Library", "Name", "Action", "Result")
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	for _, r := range results {
		outcome := "ok"
		if !r.Success {
			outcome = r.Error
			if outcome == "" {
				outcome = "failed"
			}
		}
		t.AppendRow(table.Row{r.BunnyLibraryID, r.Name, r.Action, outcome})
	}
	t.Render()
}

func libraryID(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if noun == "library" {
		return strconv.Itoa(n) + " libraries"
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

func renderStatsResults(w io.Writer, results []api.LibraryStatsStatus) {
	t := newTable(w, "Library", "Name", "Status", "Detail")
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	for _, r := range results {
		t.AppendRow(table.Row{r.LibraryID, r.LibraryName, r.Status, r.Reason()})
	}
	t.Render()
}

func renderLibraryHistory(w io.Writer, libs []api.LibraryHistory) {
	t := newTable(w, "Library", "Name", "Month", "Views", "Watch time", "Bandwidth", "Fetched")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	for _, l := range libs {
		m, ok := l.Latest()
		if !ok {
			t.AppendRow(table.Row{l.LibraryID, l.LibraryName, "N/A", "", "", "", "N/A"})
			continue
		}
		t.AppendRow(table.Row{
			l.LibraryID, l.LibraryName, m.Period().String(), m.TotalViews,
			watchTime(m.TotalWatchTimeSeconds), fmt.Sprintf("%.2f GB", m.BandwidthGB), m.FetchDate.Display(),
		})
	}
	t.AppendFooter(table.Row{"", plural(len(libs), "library")})
	t.Render()
}

func renderSyncedStats(w io.Writer, synced []api.SyncedLibraryStats) {
	t := newTable(w, "Library", "Views", "Watch time")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	for _, s := range synced {
		t.AppendRow(table.Row{s.LibraryID, s.Views, watchTime(s.WatchTimeSeconds)})
	}
	t.AppendFooter(table.Row{"", plural(len(synced), "library")})
	t.Render()
}

func renderUsers(w io.Writer, users []api.User) {
	t := newTable(w, "ID", "Email", "Pages", "Active", "Updated")
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	for _, u := range users {
		active := "no"
		if u.IsActive {
			active = "yes"
		}
		pages := strings.Join(u.AllowedPages, ", ")
		t.AppendRow(table.Row{u.ID, u.Email, orNA(pages), active, u.UpdatedAt.Display()})
	}
	t.AppendFooter(table.Row{"", plural(len(users), "user")})
	t.Render()
}

func watchTime(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
