// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/lrx/internal/formatter"
	"github.com/desertthunder/lrx/internal/models"
	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	configFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   r.defaultConfigPath(),
		}
	}

	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent database migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
			{
				Name:  "config",
				Usage: "Create or update config.toml",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "api-url", Usage: "Base URL of the learning-resource API"},
					&cli.StringFlag{Name: "google-client-id", Usage: "Google OAuth client ID"},
					&cli.StringFlag{Name: "google-client-secret", Usage: "Google OAuth client secret"},
					&cli.StringFlag{Name: "redirect-uri", Usage: "OAuth redirect URI (loopback)"},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	credentialFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Account email",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Account password (or set " + EnvPassword + ")",
			},
		}
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in with email and password",
				Flags:  credentialFlags(),
				Action: r.AuthLogin,
			},
			{
				Name:  "signup",
				Usage: "Create an account and log in",
				Flags: append(credentialFlags(), &cli.StringFlag{
					Name:  "name",
					Usage: "Display name",
				}),
				Action: r.AuthSignup,
			},
			{
				Name:  "google",
				Usage: "Log in with a Google account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the login URL instead of opening a browser",
					},
				},
				Action: r.AuthGoogle,
			},
			{
				Name:   "logout",
				Usage:  "Log out and forget the stored credential",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show authentication state and remaining searches",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.AuthStatus,
			},
			{
				Name:  "whoami",
				Usage: "Print the signed-in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.AuthWhoami,
			},
		},
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "type",
			Aliases: []string{"t"},
			Usage:   "Resource type (ai_tool, youtube_channel, course, website, tutorial, documentation)",
		},
		&cli.BoolFlag{Name: "free", Usage: "Only free resources"},
		&cli.BoolFlag{Name: "paid", Usage: "Only paid resources"},
		&cli.StringSliceFlag{
			Name:    "difficulty",
			Aliases: []string{"d"},
			Usage:   "Difficulty level (beginner, intermediate, advanced, expert)",
		},
		&cli.StringSliceFlag{Name: "category", Usage: "Category name"},
		&cli.FloatFlag{Name: "min-rating", Usage: "Minimum rating (0-5)"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Results per page"},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

// searchCommand handles searches, search history and batch runs
func searchCommand(r *Runner) *cli.Command {
	searchFlags := append(filterFlags(),
		&cli.IntFlag{Name: "page", Usage: "Page number", Value: models.DefaultPage},
		jsonFlag(),
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Export format (text, csv, markdown, json)",
			Value:   string(formatter.FormatText),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write results to a file instead of stdout",
		},
	)

	batchFlags := append(filterFlags(),
		&cli.StringFlag{Name: "file", Usage: "File with one query per line"},
		&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent searches"},
		&cli.FloatFlag{Name: "rate", Usage: "Searches per second"},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Export format", Value: string(formatter.FormatCSV)},
		&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "Directory for exports and the manifest"},
		jsonFlag(),
	)

	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search learning resources",
		ArgsUsage: "[query]",
		Flags:     searchFlags,
		Action:    r.Search,
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "List your search history",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
					&cli.IntFlag{Name: "per-page", Usage: "Entries per page (max 50)", Value: models.DefaultPageSize},
					&cli.BoolFlag{Name: "csv", Usage: "Output CSV"},
					jsonFlag(),
				},
				Action: r.SearchHistory,
			},
			{
				Name:   "clear-history",
				Usage:  "Delete your search history",
				Action: r.SearchClearHistory,
			},
			{
				Name:   "favorites",
				Usage:  "List favorite searches",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.SearchFavorites,
			},
			{
				Name:  "favorite",
				Usage: "Mark a history entry as favorite",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Usage: "History entry id", Required: true},
					&cli.BoolFlag{Name: "unset", Usage: "Remove from favorites"},
				},
				Action: r.SearchFavorite,
			},
			{
				Name:   "limit",
				Usage:  "Show remaining searches",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.SearchLimit,
			},
			{
				Name:   "suggest",
				Usage:  "Show example queries",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.SearchSuggest,
			},
			{
				Name:  "recent",
				Usage: "List queries searched from this machine",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prefix", Usage: "Only queries starting with prefix"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum entries", Value: 20},
					&cli.BoolFlag{Name: "clear", Usage: "Forget all recent queries"},
				},
				Action: r.SearchRecent,
			},
			{
				Name:      "batch",
				Usage:     "Run many searches and export the results",
				ArgsUsage: "[query...]",
				Flags:     batchFlags,
				Action:    r.SearchBatch,
			},
			{
				Name:  "dump",
				Usage: "Dump history, favorites and quota as JSON",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
					&cli.StringFlag{Name: "save", Usage: "Also write the dump to this file"},
				},
				Action: r.SearchDump,
			},
		},
	}
}

// apiCommand handles direct API calls with the stored credential
func apiCommand(r *Runner) *cli.Command {
	pathArg := func() []cli.Argument {
		return []cli.Argument{&cli.StringArg{Name: "path"}}
	}

	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the learning-resource API",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints the response",
				Arguments: pathArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with JSON body",
				Arguments: pathArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:      "delete",
				Usage:     "Direct DELETE",
				Arguments: pathArg(),
				Action:    r.APIDelete,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Aliases:   []string{"interactive", "ui"},
		Usage:     "Launch the interactive search UI",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "location",
				Usage: "Shared search location, e.g. /search?q=python",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the UI is running",
				Value: "./tmp/lrx-tui.log",
			},
		},
		Action: r.TUI,
	}
}
