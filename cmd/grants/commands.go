package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/controller"
	"github.com/letmevibethatforyou/grantsx/internal/tui"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func searchAction(c *cli.Context) error {
	ctx := c.Context
	if err := checkFormat(c.String("format")); err != nil {
		return err
	}

	filters, err := filtersFromFlags(c)
	if err != nil {
		return err
	}

	rt, err := setup(c, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	size, err := pageSizeFromFlags(c, rt.cfg.PageSize)
	if err != nil {
		return err
	}

	ctl := rt.controller()
	ctl.ApplyFilters(filters)
	if q := queryFromArgs(c); q != "" {
		if err := ctl.SubmitSearch(q); err != nil {
			return err
		}
	}
	if err := ctl.ChangePageSize(size); err != nil {
		return err
	}
	ctl.ChangePage(c.Int("page"))

	rt.logger.InfoContext(ctx, "listing grants",
		"page", c.Int("page"),
		"page_size", int(size),
		"search", ctl.State().SearchTerm,
	)

	if err := ctl.LoadFavorites(ctx, rt.favorites); err != nil {
		rt.logger.WarnContext(ctx, "saved grants unavailable", "error", err)
	}
	if _, err := ctl.FetchPage(ctx); err != nil {
		return err
	}
	// A page past the end falls back to page 1 once the totals are known.
	if _, err := ctl.Refresh(ctx); err != nil {
		return err
	}

	return printView(c.App.Writer, ctl.View(), c.String("format"))
}

func matchAction(c *cli.Context) error {
	ctx := c.Context
	if err := checkFormat(c.String("format")); err != nil {
		return err
	}

	query := queryFromArgs(c)
	if err := grantsx.ValidateQuery(query); err != nil {
		return errors.Wrap(err, "match needs a query")
	}
	filters, err := filtersFromFlags(c)
	if err != nil {
		return err
	}

	rt, err := setup(c, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.matcher == nil {
		return errors.New("matching needs Algolia credentials (--algolia-secret-arn, --algolia-env or ALGOLIA_APP_ID) or --offline-data")
	}
	size, err := pageSizeFromFlags(c, rt.cfg.PageSize)
	if err != nil {
		return err
	}

	ctl := rt.controller()
	ctl.ApplyFilters(filters)
	if err := ctl.SubmitSearch(query); err != nil {
		return err
	}

	opts := []grantsx.MatchOption{grantsx.WithLimit(c.Int("limit"))}
	if c.IsSet("min-score") {
		opts = append(opts, grantsx.WithMinScore(c.Float64("min-score")))
	}
	if err := ctl.LoadMatches(ctx, rt.matcher, opts...); err != nil {
		return err
	}
	if err := ctl.ChangePageSize(size); err != nil {
		return err
	}
	ctl.ChangePage(c.Int("page"))

	return printView(c.App.Writer, ctl.View(), c.String("format"))
}

func favoritesAction(c *cli.Context) error {
	format := c.String("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	rt, err := setup(c, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	ids, err := rt.favorites.ListFavorites(c.Context)
	if err != nil {
		return errors.Wrap(err, "failed to list favorites")
	}

	if format == formatJSON {
		return writeJSON(c.App.Writer, ids)
	}
	for _, id := range ids {
		fmt.Fprintln(c.App.Writer, id)
	}
	return nil
}

func browseAction(c *cli.Context) error {
	ctx := c.Context
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("browse needs an interactive terminal")
	}

	filters, err := filtersFromFlags(c)
	if err != nil {
		return err
	}

	rt, err := setup(c, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	size, err := pageSizeFromFlags(c, rt.cfg.PageSize)
	if err != nil {
		return err
	}

	ctl := rt.controller()
	ctl.ApplyFilters(filters)
	if err := ctl.ChangePageSize(size); err != nil {
		return err
	}
	if q := queryFromArgs(c); q != "" {
		if err := ctl.SubmitSearch(q); err != nil {
			return err
		}
	}

	opts := []tui.Option{
		tui.WithFavorites(rt.favorites),
		tui.WithLogger(rt.logger),
	}
	if rt.matcher != nil {
		opts = append(opts, tui.WithMatcher(rt.matcher))
	}

	model := tui.New(ctx, ctl, opts...)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return errors.Wrap(err, "browser failed")
	}
	return nil
}

type viewPayload struct {
	Mode       string          `json:"mode"`
	Query      string          `json:"query,omitempty"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	TotalItems int             `json:"total_items"`
	PageSize   int             `json:"page_size"`
	Items      []grantsx.Grant `json:"items"`
}

func printView(w io.Writer, v controller.View, format string) error {
	if format == formatJSON {
		items := v.Items
		if items == nil {
			items = []grantsx.Grant{}
		}
		return writeJSON(w, viewPayload{
			Mode:       v.Mode.String(),
			Query:      v.QueryText,
			Page:       v.Page,
			TotalPages: v.TotalPages,
			TotalItems: v.TotalItems,
			PageSize:   int(v.PageSize),
			Items:      items,
		})
	}

	if len(v.Items) == 0 {
		fmt.Fprintln(w, "No grants found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAGENCY\tCITY\tMIN\tMAX\tMATCH\tSAVED")
	for _, g := range v.Items {
		match := ""
		if g.MatchPercentage != nil {
			match = fmt.Sprintf("%.0f%%", *g.MatchPercentage)
		}
		saved := ""
		if v.IsSaved(g.ID) {
			saved = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			g.ID, g.Title, g.AgencyName, g.City,
			formatAmount(g.MinAmount), formatAmount(g.MaxAmount),
			match, saved)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "failed to write results")
	}
	fmt.Fprintf(w, "\npage %d of %d (%d grants, %d per page)\n", v.Page, v.TotalPages, v.TotalItems, int(v.PageSize))
	return nil
}

func formatAmount(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f", v)
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
