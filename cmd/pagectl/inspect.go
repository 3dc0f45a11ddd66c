package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/database"
	"github.com/joshuapare/pagekit/page"
	"github.com/joshuapare/pagekit/page/pool"
)

func init() {
	rootCmd.AddCommand(newInspectCmd())
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Validate and summarize every page of a snapshot",
		Long: `The inspect command loads a snapshot file, checks the allocation
accounting of every page, and lists the tables recorded in its catalog.

Example:
  pagectl inspect people.pgks
  pagectl inspect people.pgks --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := inspectSnapshot(args[0])
			if err != nil {
				return err
			}
			if err := writeInspect(os.Stdout, report); err != nil {
				return err
			}
			if report.Invalid > 0 {
				return fmt.Errorf("%d of %d pages failed validation", report.Invalid, len(report.Pages))
			}
			return nil
		},
	}
	return cmd
}

type pageReport struct {
	ID        pool.PageID `json:"id"`
	LiveCells int         `json:"live_cells"`
	FreeCells int         `json:"free_cells"`
	Allocated int         `json:"allocated"`
	Free      int         `json:"free"`
	NextPage  int         `json:"next_page"`
	Error     string      `json:"error,omitempty"`
}

type tableReport struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
	Rows   int    `json:"rows"`
	Pages  int    `json:"pages"`
}

type inspectReport struct {
	File         string        `json:"file"`
	PageSize     int           `json:"page_size"`
	Pages        []pageReport  `json:"pages"`
	Invalid      int           `json:"invalid"`
	Tables       []tableReport `json:"tables,omitempty"`
	CatalogError string        `json:"catalog_error,omitempty"`
}

func inspectSnapshot(path string) (inspectReport, error) {
	printVerbose("Loading snapshot: %s\n", path)
	p, err := pool.LoadFile(path)
	if err != nil {
		return inspectReport{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	report := inspectReport{File: path, PageSize: p.PageSize()}
	for _, id := range p.IDs() {
		report.Pages = append(report.Pages, inspectPage(p, id))
	}
	for _, pr := range report.Pages {
		if pr.Error != "" {
			report.Invalid++
		}
	}

	db, err := database.Open(p)
	if err != nil {
		report.CatalogError = err.Error()
		return report, nil
	}
	stats, err := db.Stats()
	if err != nil {
		report.CatalogError = err.Error()
		return report, nil
	}
	for _, st := range stats {
		report.Tables = append(report.Tables, tableReport{
			Name:   st.Name,
			Schema: st.Schema,
			Rows:   st.Rows,
			Pages:  st.Pages,
		})
	}
	return report, nil
}

func inspectPage(p *pool.Pool, id pool.PageID) pageReport {
	pr := pageReport{ID: id, NextPage: page.NoOffset}
	b, err := p.CheckoutReadOnly(id)
	if err != nil {
		pr.Error = err.Error()
		return pr
	}
	pg, err := page.Open(b)
	if err != nil {
		pr.Error = err.Error()
		return pr
	}
	st := pg.Stats()
	pr.LiveCells = st.LiveCells
	pr.FreeCells = st.FreeCells
	pr.Allocated = st.AllocatedBytes
	pr.Free = st.FreeBytes
	pr.NextPage = pg.NextPage()
	if _, _, err := pg.Validate(); err != nil {
		pr.Error = err.Error()
	}
	return pr
}

func writeInspect(w io.Writer, r inspectReport) error {
	if jsonOut {
		return writeJSON(w, r)
	}
	if quiet {
		return nil
	}

	fmt.Fprintf(w, "%s: %d pages of %d bytes\n\n", r.File, len(r.Pages), r.PageSize)
	fmt.Fprintf(w, "%-6s %-6s %-6s %-10s %-10s %-6s %s\n", "PAGE", "LIVE", "FREE", "ALLOCATED", "FREE_B", "NEXT", "STATUS")
	for _, pr := range r.Pages {
		next := "-"
		if pr.NextPage != page.NoOffset {
			next = fmt.Sprint(pr.NextPage)
		}
		status := "ok"
		if pr.Error != "" {
			status = pr.Error
		}
		fmt.Fprintf(w, "%-6d %-6d %-6d %-10d %-10d %-6s %s\n",
			pr.ID, pr.LiveCells, pr.FreeCells, pr.Allocated, pr.Free, next, status)
	}

	if r.CatalogError != "" {
		fmt.Fprintf(w, "\ncatalog: %s\n", r.CatalogError)
		return nil
	}
	fmt.Fprintf(w, "\n%d tables\n", len(r.Tables))
	for _, t := range r.Tables {
		fmt.Fprintf(w, "  %-20s %-30s %d rows, %d pages\n", t.Name, t.Schema, t.Rows, t.Pages)
	}
	return nil
}
