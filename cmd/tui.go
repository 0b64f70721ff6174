package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/streamgrid/internal/shared"
	"github.com/desertthunder/streamgrid/internal/ui"
)

const tuiLogPath = "./tmp/streamgrid-tui.log"

// TUI launches the interactive terminal grid editor.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.LogLevel))
	r.SetLogger(fileLogger)

	feed := ui.NewFeed()
	defer feed.Close()

	g, err := r.newGrid(ctx, gridOpts{ephemeral: cmd.Bool("ephemeral"), suggestions: feed.SuggestionsChanged})
	if err != nil {
		return err
	}
	defer g.Close()

	g.sess.OnChange(feed.SessionChanged)
	stopSession := g.startSession(ctx)
	defer stopSession()

	model := ui.NewModel(ctx, ui.Options{
		Registry:   g.reg,
		Suggester:  g.searcher,
		Feed:       feed,
		Session:    g.sess.Snapshot(),
		ParentHost: r.config.Server.EmbedParent(),
		Open:       r.openBrowser,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err = p.Run()
	feed.Close()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
