// Command seoctl is the operator tool for the landing page index policy:
// it explains decisions, renders sitemaps and audits, checks live pages and
// keeps a history of audit runs.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "seoctl",
		Usage: "inspect and publish the landing page index policy",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "site", Usage: "site origin used in generated URLs", EnvVars: []string{"SITE_URL"}},
			&cli.StringFlag{Name: "catalog", Usage: "YAML catalog overriding the embedded one", EnvVars: []string{"CATALOG_FILE"}},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "json", Usage: "structured output: json or yaml"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
		},
		Commands: []*cli.Command{
			{
				Name:      "decide",
				Usage:     "explain the index decision for explicit signals",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "locale", Value: "en"},
					&cli.StringFlag{Name: "category"},
					&cli.StringFlag{Name: "intent"},
					&cli.StringFlag{Name: "city", Usage: "city slug from the locale's countries"},
				},
				Action: decideAction,
			},
			{
				Name:      "parse",
				Usage:     "detect signals in a slug and decide",
				ArgsUsage: "SLUG_OR_PATH...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "locale", Value: "en"},
				},
				Action: parseAction,
			},
			{
				Name:   "rules",
				Usage:  "list the decision rules in evaluation order",
				Action: rulesAction,
			},
			{
				Name:  "sitemap",
				Usage: "print a sitemap document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "locale", Usage: "locale sitemap to print; empty prints the sitemap index"},
					&cli.BoolFlag{Name: "pages", Usage: "print the static pages sitemap"},
					&cli.BoolFlag{Name: "robots", Usage: "print robots.txt"},
				},
				Action: sitemapAction,
			},
			{
				Name:  "audit",
				Usage: "classify every landing page",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Value: "json", Usage: "json, csv or txt"},
					&cli.StringFlag{Name: "filter", Usage: "index or noindex"},
					&cli.BoolFlag{Name: "triples", Usage: "include intent+category+city pages"},
					&cli.StringFlag{Name: "out", Usage: "write to a file instead of stdout"},
				},
				Action: auditAction,
			},
			{
				Name:      "check",
				Usage:     "fetch live pages and compare them with the policy",
				ArgsUsage: "URL...",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "min-words", Value: 300, Usage: "thin content threshold for indexed pages"},
					&cli.DurationFlag{Name: "timeout", Value: 0, Usage: "per request timeout (default 15s)"},
				},
				Action: checkAction,
			},
			{
				Name:  "publish",
				Usage: "render every sitemap and upload it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "write below a local directory"},
					&cli.BoolFlag{Name: "s3", Usage: "upload to the SITEMAP_S3_* bucket"},
				},
				Action: publishAction,
			},
			{
				Name:  "runs",
				Usage: "record and browse audit runs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "db", Usage: "SQLite database path", EnvVars: []string{"SEOCTL_DB"}, Value: "seoctl.db"},
				},
				Subcommands: []*cli.Command{
					{
						Name:  "create",
						Usage: "run a full audit and store its summary",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "note"},
							&cli.BoolFlag{Name: "triples"},
						},
						Action: runsCreateAction,
					},
					{
						Name:  "list",
						Usage: "list stored runs, newest first",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20},
							&cli.StringFlag{Name: "cursor"},
						},
						Action: runsListAction,
					},
					{Name: "get", ArgsUsage: "ID", Usage: "show one run", Action: runsGetAction},
					{Name: "delete", ArgsUsage: "ID", Usage: "delete one run", Action: runsDeleteAction},
					{Name: "explain", Usage: "show the list query plan", Action: runsExplainAction},
				},
			},
		},
	}
}
