// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// listFlags are the JSON flags plus a title search.
func listFlags() []cli.Flag {
	return append(jsonFlags(), &cli.StringFlag{
		Name:    "search",
		Aliases: []string{"s"},
		Usage:   "Only show transcripts whose title contains this text (case-insensitive)",
	})
}

func idArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id"}}
}

func passwordFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:    "password",
		Aliases: []string{"p"},
		Usage:   usage,
		Sources: cli.EnvVars("RECAP_PASSWORD"),
	}
}

func waitFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "wait",
			Usage: "Listen on the local link catcher and take the token from the e-mail link",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "How long to wait for the e-mail link",
			Value: defaultLinkTimeout,
		},
	}
}

func cardFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "card",
			Usage:    "Card number",
			Sources:  cli.EnvVars("RECAP_CARD_NUMBER"),
			Required: true,
		},
		&cli.StringFlag{
			Name:     "exp",
			Usage:    "Expiry as MM/YY or MM/YYYY",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "cvc",
			Usage:    "Card security code",
			Sources:  cli.EnvVars("RECAP_CARD_CVC"),
			Required: true,
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Cardholder name",
		},
		&cli.StringFlag{
			Name:  "email",
			Usage: "Billing e-mail",
		},
		&cli.StringFlag{
			Name:  "postal-code",
			Usage: "Billing postal code",
		},
	}
}

// setupCommand handles setup operations for configuration and the session database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml with default settings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the session database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles account and session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your account and session",
		Commands: []*cli.Command{
			{
				Name:  "signup",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username", Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "E-mail address", Required: true},
					passwordFlag("Password"),
				},
				Action: r.AuthSignup,
			},
			{
				Name:  "login",
				Usage: "Log in and store the session tokens",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "E-mail address", Required: true},
					passwordFlag("Password"),
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored session tokens",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show whether a session is stored",
				Action: r.AuthStatus,
			},
			{
				Name:      "verify",
				Usage:     "Verify your e-mail address with the token from the verification link",
				Arguments: []cli.Argument{&cli.StringArg{Name: "token"}},
				Flags:     waitFlags(),
				Action:    r.AuthVerify,
			},
			{
				Name:  "forgot",
				Usage: "Send a password reset link",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "E-mail address", Required: true},
				},
				Action: r.AuthForgot,
			},
			{
				Name:      "reset",
				Usage:     "Set a new password with the token from the reset link",
				Arguments: []cli.Argument{&cli.StringArg{Name: "token"}},
				Flags:     append(waitFlags(), passwordFlag("New password")),
				Action:    r.AuthReset,
			},
		},
	}
}

// summarizeCommand summarizes a YouTube video
func summarizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Aliases:   []string{"sum"},
		Usage:     "Summarize a YouTube video",
		Arguments: []cli.Argument{&cli.StringArg{Name: "url"}},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Publish the summary to the public feed",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (md, txt, json)",
				Value:   "md",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the summary to a file instead of stdout",
			},
		},
		Action: r.Summarize,
	}
}

// historyCommand handles the user's own transcripts
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Manage your summarized videos",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your transcripts",
				Flags:  listFlags(),
				Action: r.HistoryList,
			},
			{
				Name:      "delete",
				Usage:     "Delete a transcript",
				Arguments: idArg(),
				Action:    r.HistoryDelete,
			},
			{
				Name:      "visibility",
				Usage:     "Change who can see a transcript",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "public", Usage: "Show on the public feed"},
					&cli.BoolFlag{Name: "private", Usage: "Only visible to you"},
				},
				Action: r.HistoryVisibility,
			},
			{
				Name:      "export",
				Usage:     "Export one transcript, or all of them with --all",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (md, txt, csv, json)",
						Value:   "md",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, or output directory with --all",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export every transcript and write a manifest",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Parallel downloads for --all",
						Value: 4,
					},
				},
				Action: r.HistoryExport,
			},
		},
	}
}

// feedCommand handles the public feed and social actions
func feedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Browse and interact with the public feed",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List public transcripts",
				Flags:  listFlags(),
				Action: r.FeedList,
			},
			{
				Name:      "like",
				Usage:     "Like a transcript",
				Arguments: idArg(),
				Action:    r.FeedLike,
			},
			{
				Name:      "unlike",
				Usage:     "Remove your like",
				Arguments: idArg(),
				Action:    r.FeedUnlike,
			},
			{
				Name:      "favorite",
				Aliases:   []string{"fav"},
				Usage:     "Add a transcript to your favorites",
				Arguments: idArg(),
				Action:    r.FeedFavorite,
			},
			{
				Name:      "unfavorite",
				Aliases:   []string{"unfav"},
				Usage:     "Remove a transcript from your favorites",
				Arguments: idArg(),
				Action:    r.FeedUnfavorite,
			},
			{
				Name:      "share",
				Usage:     "Record a share, optionally opening a share link",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Open a share link for whatsapp, facebook or messenger",
					},
				},
				Action: r.FeedShare,
			},
			{
				Name:      "comments",
				Usage:     "Show the comments on a transcript",
				Arguments: idArg(),
				Flags:     jsonFlags(),
				Action:    r.FeedComments,
			},
			{
				Name:  "comment",
				Usage: "Comment on a transcript",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "text"},
				},
				Action: r.FeedComment,
			},
		},
	}
}

// favoritesCommand lists favorited transcripts
func favoritesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "favorites",
		Usage:  "List your favorite transcripts",
		Flags:  listFlags(),
		Action: r.Favorites,
	}
}

// billingCommand handles subscriptions and payment methods
func billingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "billing",
		Usage: "Manage your premium subscription",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the subscription status",
				Flags:  jsonFlags(),
				Action: r.BillingStatus,
			},
			{
				Name:   "subscribe",
				Usage:  "Subscribe to premium with a card",
				Flags:  cardFlags(),
				Action: r.BillingSubscribe,
			},
			{
				Name:   "cancel",
				Usage:  "Cancel at the end of the current period",
				Action: r.BillingCancel,
			},
			{
				Name:  "cards",
				Usage: "Manage stored cards",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List stored cards",
						Flags:  jsonFlags(),
						Action: r.BillingCards,
					},
					{
						Name:   "add",
						Usage:  "Store a new card",
						Flags:  cardFlags(),
						Action: r.BillingAddCard,
					},
				},
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for browsing the feed.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive feed browser",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "favorites",
				Usage: "Browse your favorites instead of the public feed",
			},
		},
		Action: r.TUI,
	}
}
