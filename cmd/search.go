package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/shared"
)

// cliEntryID tags searches run from the command line in the history table.
const cliEntryID = "cli"

// Search looks up Twitch channels matching the query once, without debouncing.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	limit := r.config.Search.Limit
	if cmd.IsSet("limit") {
		limit = int(cmd.Int("limit"))
	}

	client := r.twitchClient()
	token, err := client.AppToken(ctx)
	if err != nil {
		return err
	}

	r.logger.Debug("searching channels", "query", query, "limit", limit)
	logins, err := client.SearchChannels(ctx, token, query, limit)
	r.recordSearch(ctx, query, len(logins))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(logins, false)
	}
	if len(logins) == 0 {
		return r.writePlain("No channels match %q\n", query)
	}
	for _, login := range logins {
		r.writePlain("%s\n", login)
	}
	return nil
}

// recordSearch stores the search in history when the database is available. Failures are only logged.
func (r *Runner) recordSearch(ctx context.Context, query string, count int) {
	st, err := r.openStores(ctx, false)
	if err != nil {
		r.logger.Debug("search history unavailable", "error", err)
		return
	}
	defer st.Close()

	rec := models.SearchRecord{EntryID: cliEntryID, Query: query, ResultCount: count, SearchedAt: time.Now()}
	if err := st.history.Record(ctx, rec); err != nil {
		r.logger.Debug("failed to record search", "error", err)
	}
}

// SearchHistory lists recent searches from the web grid, the TUI and this command.
func (r *Runner) SearchHistory(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	st, err := r.openStores(ctx, false)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.history.Recent(ctx, int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to read search history: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(records, true)
	}
	if len(records) == 0 {
		return r.writePlain("No searches yet\n")
	}

	r.writePlainHeader("Recent searches")
	for _, rec := range records {
		r.writePlain("%s  %-20s %2d results  (%s)\n", rec.SearchedAt.Local().Format(time.DateTime), rec.Query, rec.ResultCount, rec.EntryID)
	}
	return nil
}
