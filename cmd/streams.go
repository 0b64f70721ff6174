package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/streamgrid/internal/formatter"
	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/player"
	"github.com/desertthunder/streamgrid/internal/registry"
	"github.com/desertthunder/streamgrid/internal/shared"
)

// loadSaved opens storage and restores the saved grid into a fresh registry.
func (r *Runner) loadSaved(ctx context.Context) (*registry.Registry, *stores, bool, error) {
	st, err := r.openStores(ctx, false)
	if err != nil {
		return nil, nil, false, err
	}

	reg := registry.New()
	found, err := reg.Load(ctx, st.kv)
	if err != nil {
		st.Close()
		return nil, nil, false, fmt.Errorf("failed to load saved streams: %w", err)
	}
	return reg, st, found, nil
}

func (r *Runner) saveGrid(ctx context.Context, reg *registry.Registry, st *stores) error {
	if err := reg.Save(ctx, st.kv); err != nil {
		return fmt.Errorf("failed to save streams: %w", err)
	}
	if !r.config.Grid.Persist {
		r.logger.Warn("grid.persist is off: 'serve' and 'tui' will start from an empty grid")
	}
	return nil
}

// StreamsList prints the saved grid.
func (r *Runner) StreamsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	reg, st, _, err := r.loadSaved(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	layout := player.BuildLayout(reg.List(), r.config.Server.EmbedParent())
	if cmd.Bool("json") {
		return r.writeJSON(layout, true)
	}

	r.writePlainHeader("Streams")
	for i, tile := range layout.Tiles {
		target := tile.URL
		if target == "" {
			target = "(" + tile.Prompt + ")"
		}
		r.writePlain("%d. [%s] %-8s %-20s %s\n", i+1, tile.Entry.ID, tile.Entry.Platform.Title(), tile.Entry.Username, target)
	}
	return r.writePlainln("%d streams in %d columns", len(layout.Tiles), layout.Columns)
}

// StreamsAdd appends a stream. On a grid holding only the initial blank entry, that entry is filled instead.
func (r *Runner) StreamsAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	platform, ok := models.ParsePlatform(cmd.StringArg("platform"))
	if !ok {
		return fmt.Errorf("%w: %q (expected one of %v)", shared.ErrUnknownPlatform, cmd.StringArg("platform"), models.Platforms())
	}
	username := cmd.StringArg("username")

	reg, st, _, err := r.loadSaved(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	var entry models.StreamEntry
	if entries := reg.List(); len(entries) == 1 && entries[0].Blank() {
		if _, err := reg.Update(entries[0].ID, registry.FieldPlatform, platform.String()); err != nil {
			return err
		}
		if entry, err = reg.SetUsername(entries[0].ID, username); err != nil {
			return err
		}
	} else {
		entry = reg.Add(platform, username)
	}

	if err := r.saveGrid(ctx, reg, st); err != nil {
		return err
	}
	return r.writePlain("✓ Added %s %s [%s]\n", entry.Platform.Title(), entry.Username, entry.ID)
}

// StreamsRemove removes a stream by ID. The last stream cannot be removed.
func (r *Runner) StreamsRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	reg, st, _, err := r.loadSaved(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := reg.Remove(id); err != nil {
		return err
	}
	if err := r.saveGrid(ctx, reg, st); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s\n", id)
}

// StreamsExport writes the saved grid in the requested format.
func (r *Runner) StreamsExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	reg, st, _, err := r.loadSaved(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	layout := player.BuildLayout(reg.List(), r.config.Server.EmbedParent())
	path, err := formatter.WriteExport(layout, format, cmd.String("output"), r.output)
	if err != nil {
		return err
	}
	if path != "" {
		r.logger.Info("exported streams", "path", path, "format", format)
	}
	return nil
}

// StreamsImport replaces the saved grid with a JSON export.
func (r *Runner) StreamsImport(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	entries, err := formatter.ImportJSON(f)
	if err != nil {
		return err
	}

	reg, st, _, err := r.loadSaved(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := reg.Replace(entries); err != nil {
		return err
	}
	if err := r.saveGrid(ctx, reg, st); err != nil {
		return err
	}
	return r.writePlain("✓ Imported %d streams\n", reg.Len())
}
