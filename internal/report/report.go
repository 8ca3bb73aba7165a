// Package report renders the final counters (§4.G): copied/skipped/error
// breakdowns, as aligned tables in the style of the teacher's mailbox
// listings.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"imapcopy/internal/stats"
)

// Print writes the full summary to w: totals, a skipped-folders breakdown,
// a skipped-mails breakdown, and any error records, closing with the
// tree-style characters the original tool's summary used.
func Print(w io.Writer, c *stats.Counters, now time.Time, noColors bool) {
	colors := text.Colors{text.FgHiGreen}
	errColors := text.Colors{text.FgRed}
	if noColors {
		colors, errColors = nil, nil
	}

	fmt.Fprintln(w, colors.Sprintf("Replication finished in %s", c.Elapsed(now).Round(time.Second)))

	totals := table.NewWriter()
	totals.SetOutputMirror(w)
	totals.AppendHeader(table.Row{"Metric", "Count"})
	totals.AppendRow(table.Row{"source_mails", c.SourceMails})
	totals.AppendRow(table.Row{"destination_mails", c.DestinationMails})
	totals.AppendRow(table.Row{"processed", c.Processed})
	totals.AppendRow(table.Row{"copied_mails", c.CopiedMails})
	totals.AppendRow(table.Row{"copied_folders", c.CopiedFolders})
	totals.Render()

	fmt.Fprintln(w, "skipped_folders")
	fmt.Fprintf(w, "├─ empty: %d\n", c.SkippedFolders.Empty)
	fmt.Fprintf(w, "├─ by_mailbox: %d\n", c.SkippedFolders.ByMailbox)
	fmt.Fprintf(w, "└─ already_exists: %d\n", c.SkippedFolders.AlreadyExists)

	fmt.Fprintln(w, "skipped_mails")
	fmt.Fprintf(w, "├─ zero_size: %d\n", c.SkippedMails.ZeroSize)
	fmt.Fprintf(w, "├─ max_size: %d\n", c.SkippedMails.MaxSize)
	fmt.Fprintf(w, "├─ no_envelope: %d\n", c.SkippedMails.NoEnvelope)
	fmt.Fprintf(w, "├─ max_line_length: %d\n", c.SkippedMails.MaxLineLength)
	fmt.Fprintf(w, "└─ already_exists: %d\n", c.SkippedMails.AlreadyExists)

	if len(c.Errors) == 0 {
		return
	}

	fmt.Fprintln(w, errColors.Sprintf("errors (%d)", len(c.Errors)))
	errTable := table.NewWriter()
	errTable.SetOutputMirror(w)
	errTable.AppendHeader(table.Row{"Folder", "Subject", "Message-ID", "Error"})
	for _, e := range c.Errors {
		errTable.AppendRow(table.Row{e.Folder, e.Subject, e.MessageID, e.Err})
	}
	errTable.Render()
}
