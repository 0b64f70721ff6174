package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/player"
	"github.com/desertthunder/streamgrid/internal/shared"
)

// Embed prints the player URL for one channel.
func (r *Runner) Embed(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	platform, ok := models.ParsePlatform(cmd.StringArg("platform"))
	if !ok {
		return fmt.Errorf("%w: %q (expected one of %v)", shared.ErrUnknownPlatform, cmd.StringArg("platform"), models.Platforms())
	}

	parent := cmd.String("parent")
	if parent == "" {
		parent = r.config.Server.EmbedParent()
	}

	entry := models.StreamEntry{Platform: platform, Username: cmd.StringArg("username")}
	url := player.EmbedURL(entry, parent)
	if url == "" {
		return fmt.Errorf("%w: %s", shared.ErrMissingArgument, player.EmptyPrompt(platform))
	}
	return r.writePlain("%s\n", url)
}
