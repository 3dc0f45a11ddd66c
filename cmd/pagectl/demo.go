package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/page"
)

var (
	demoRecords int
	demoAppend  bool
)

func init() {
	cmd := newDemoCmd()
	cmd.Flags().IntVarP(&demoRecords, "records", "n", 8, "Number of records to insert")
	cmd.Flags().BoolVar(&demoAppend, "append", false, "Append behind the last cell instead of inserting at the head")
	rootCmd.AddCommand(cmd)
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Fill a single page and print its chains",
		Long: `The demo command formats one page, inserts numbered key/value records
until the requested count is reached or the page is full, and prints the live
and free chains together with the page accounting.

Example:
  pagectl demo
  pagectl demo --page-size 256 --records 20
  pagectl demo --append --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(os.Stdout, pageSize, demoRecords, demoAppend)
		},
	}
	return cmd
}

type demoCell struct {
	Offset  int    `json:"offset"`
	Size    int    `json:"size"`
	Next    int    `json:"next"`
	Key     string `json:"key,omitempty"`
	Payload string `json:"payload,omitempty"`
}

type demoResult struct {
	PageSize  int        `json:"page_size"`
	Inserted  int        `json:"inserted"`
	StoppedBy string     `json:"stopped_by,omitempty"`
	Live      []demoCell `json:"live"`
	Free      []demoCell `json:"free"`
	Stats     page.Stats `json:"stats"`
	Valid     bool       `json:"valid"`
}

func buildDemo(size, records int, appendMode bool) (demoResult, error) {
	pg, err := page.New(size)
	if err != nil {
		return demoResult{}, err
	}

	res := demoResult{PageSize: size}
	for i := range records {
		key := fmt.Appendf(nil, "key-%d", i)
		payload := fmt.Appendf(nil, "value-%d", i)

		after := page.NoOffset
		if appendMode {
			after = pg.LastCell()
		}
		off, err := pg.Insert(key, payload, after)
		if errors.Is(err, page.ErrOutOfSpace) || errors.Is(err, page.ErrFragmented) {
			res.StoppedBy = err.Error()
			break
		}
		if err != nil {
			return demoResult{}, err
		}
		printVerbose("inserted %s at offset %d\n", key, off)
		res.Inserted++
	}

	for off, c := range pg.Cells() {
		res.Live = append(res.Live, demoCell{
			Offset:  off,
			Size:    c.Size(),
			Next:    c.Next,
			Key:     string(pg.Key(c, off)),
			Payload: string(pg.Payload(c, off)),
		})
	}
	for off, c := range pg.FreeCells() {
		res.Free = append(res.Free, demoCell{Offset: off, Size: c.Size(), Next: c.Next})
	}
	res.Stats = pg.Stats()
	_, _, verr := pg.Validate()
	res.Valid = verr == nil
	return res, nil
}

func runDemo(w io.Writer, size, records int, appendMode bool) error {
	res, err := buildDemo(size, records, appendMode)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, res)
	}

	fmt.Fprintf(w, "page: %d bytes, body %d bytes\n", res.PageSize, res.Stats.StorageSize)
	fmt.Fprintf(w, "inserted %d of %d records", res.Inserted, records)
	if res.StoppedBy != "" {
		fmt.Fprintf(w, " (%s)", res.StoppedBy)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "\nlive chain:")
	for _, c := range res.Live {
		fmt.Fprintf(w, "  @%-6d size %-4d next %-6d %s = %s\n", c.Offset, c.Size, c.Next, c.Key, c.Payload)
	}
	fmt.Fprintln(w, "\nfree chain:")
	for _, c := range res.Free {
		fmt.Fprintf(w, "  @%-6d size %-4d next %d\n", c.Offset, c.Size, c.Next)
	}
	fmt.Fprintf(w, "\nallocated %d + free %d = %d (valid: %t)\n",
		res.Stats.AllocatedBytes, res.Stats.FreeBytes, res.Stats.AllocatedBytes+res.Stats.FreeBytes, res.Valid)
	return nil
}
