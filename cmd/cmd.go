// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func ephemeralFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "ephemeral",
		Usage: "Keep tokens and streams in memory instead of the database",
	}
}

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to write the file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// serveCommand runs the web grid.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the stream grid in the browser",
		Flags: []cli.Flag{
			configFlag(),
			ephemeralFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the grid in the system browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for editing the grid in the terminal.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Edit the stream grid in the terminal",
		Flags:   []cli.Flag{configFlag(), ephemeralFlag()},
		Action:  r.TUI,
	}
}

// authCommand handles the Twitch sign-in.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Twitch sign-in",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in through the browser with the implicit grant",
				Flags: []cli.Flag{
					configFlag(),
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser",
						Value: authTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorize URL instead of opening it",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the saved user token and profile",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the saved sign-in and whether app credentials work",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Check the saved token and the app credentials against Twitch",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// searchCommand runs one-off channel searches.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search Twitch channels by name",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of channels (defaults to search.limit)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "List recent searches",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Number of searches to show (0 for all)",
						Value:   20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SearchHistory,
			},
		},
	}
}

// streamsCommand edits the saved grid.
func streamsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "streams",
		Aliases: []string{"grid"},
		Usage:   "Manage the saved stream grid",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Show saved streams with their embed URLs",
				Flags:  []cli.Flag{configFlag(), &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.StreamsList,
			},
			{
				Name:  "add",
				Usage: "Append a stream",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "platform"},
					&cli.StringArg{Name: "username"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.StreamsAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a stream by ID",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.StreamsRemove,
			},
			{
				Name:  "export",
				Usage: "Export the grid as text, csv, markdown or json",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (stdout when empty)",
					},
				},
				Action: r.StreamsExport,
			},
			{
				Name:  "import",
				Usage: "Replace the grid with a JSON export",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.StreamsImport,
			},
		},
	}
}

// embedCommand prints the player URL for one channel.
func embedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "embed",
		Usage: "Print the embeddable player URL for a channel",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "platform"},
			&cli.StringArg{Name: "username"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "parent",
				Usage: "Host the player will be embedded on (defaults to the server's embed parent)",
			},
		},
		Action: r.Embed,
	}
}
