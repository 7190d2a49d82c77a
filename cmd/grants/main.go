package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/pagination"
	"github.com/urfave/cli/v2"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "grants",
		Usage: "Search, filter and page through grant opportunities",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the TOML config file",
				EnvVars: []string{"GRANTS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Optional .env file loaded before flags are read",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the grants backend",
				EnvVars: []string{"GRANTS_API_URL"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token sent to the grants backend",
				EnvVars: []string{"GRANTS_TOKEN"},
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "Retry budget for failed backend calls",
			},
			&cli.DurationFlag{
				Name:  "cache-ttl",
				Usage: "How long fetched pages are reused",
			},
			&cli.StringFlag{
				Name:    "offline-data",
				Usage:   "JSON file of grants served instead of the backend",
				EnvVars: []string{"GRANTS_OFFLINE_DATA"},
			},
			&cli.StringFlag{
				Name:    "algolia-index",
				Usage:   "Algolia index used for matching",
				EnvVars: []string{"ALGOLIA_INDEX"},
			},
			&cli.StringFlag{
				Name:    "algolia-secret-arn",
				Usage:   "ARN of AWS Secrets Manager secret containing Algolia credentials",
				EnvVars: []string{"ALGOLIA_SECRET_ARN"},
			},
			&cli.StringFlag{
				Name:    "algolia-env",
				Usage:   "Environment name whose Algolia secret is read from AWS Secrets Manager",
				EnvVars: []string{"ALGOLIA_ENV"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file; browse discards logs without it",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Print one page of grants",
				ArgsUsage: "[query]",
				Flags:     append(pageFlags(), append(filterFlags(), formatFlag())...),
				Action:    searchAction,
			},
			{
				Name:      "match",
				Usage:     "Print one page of grants matched to a query",
				ArgsUsage: "<query>",
				Flags: append(pageFlags(), append(filterFlags(),
					formatFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of matches",
						Value: 100,
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum match percentage",
					},
				)...),
				Action: matchAction,
			},
			{
				Name:   "favorites",
				Usage:  "Print the ids of saved grants",
				Flags:  []cli.Flag{formatFlag()},
				Action: favoritesAction,
			},
			{
				Name:      "browse",
				Usage:     "Browse grants interactively",
				ArgsUsage: "[query]",
				Flags:     append(filterFlags(), &cli.IntFlag{Name: "page-size", Usage: "Initial page size (10, 25, 50 or 100)"}),
				Action:    browseAction,
			},
		},
	}
}

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "page",
			Aliases: []string{"p"},
			Usage:   "Page to print, 1-based",
			Value:   1,
		},
		&cli.IntFlag{
			Name:    "page-size",
			Aliases: []string{"n"},
			Usage:   "Page size (10, 25, 50 or 100)",
		},
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "city", Usage: "Only grants located in this city"},
		&cli.StringFlag{Name: "agency", Usage: "Only grants from this funding agency"},
		&cli.StringFlag{Name: "min-amount", Usage: "Only grants awarding at least this amount"},
		&cli.StringFlag{Name: "max-amount", Usage: "Only grants awarding at most this amount"},
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "Output format: table or json",
		Value: formatTable,
	}
}

// parseFilters validates filter flag values. No values at all is not an
// error; it means no filtering.
func parseFilters(city, agency, minAmount, maxAmount string) (grantsx.FilterSet, error) {
	lo, err := grantsx.ParseAmount(minAmount)
	if err != nil {
		return grantsx.FilterSet{}, err
	}
	hi, err := grantsx.ParseAmount(maxAmount)
	if err != nil {
		return grantsx.FilterSet{}, err
	}

	f := grantsx.FilterSet{City: city, AgencyName: agency, MinAmount: lo, MaxAmount: hi}.Normalize()
	if f.IsEmpty() {
		return grantsx.FilterSet{}, nil
	}
	if err := f.Validate(); err != nil {
		return grantsx.FilterSet{}, err
	}
	return f, nil
}

func filtersFromFlags(c *cli.Context) (grantsx.FilterSet, error) {
	f, err := parseFilters(c.String("city"), c.String("agency"), c.String("min-amount"), c.String("max-amount"))
	if err != nil {
		return grantsx.FilterSet{}, errors.Wrap(err, "invalid filter")
	}
	return f, nil
}

func pageSizeFromFlags(c *cli.Context, fallback int) (pagination.PageSize, error) {
	n := fallback
	if c.IsSet("page-size") {
		n = c.Int("page-size")
	}
	return pagination.ParsePageSize(n)
}

func queryFromArgs(c *cli.Context) string {
	return strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
}

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	default:
		return errors.Newf("unknown format %q, want %s or %s", format, formatTable, formatJSON)
	}
}
