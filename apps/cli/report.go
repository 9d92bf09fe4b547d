package main

import (
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/PhantomInTheWire/image-tiler/pkg/digest"
	"github.com/PhantomInTheWire/image-tiler/pkg/split"
)

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}
	return tw
}

func renderSplitReport(w io.Writer, rep *split.Report) string {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Row", "Col", "Left", "Top", "Width", "Height", "Status", "Detail"})
	for _, res := range rep.Results {
		detail := ""
		switch res.Status {
		case split.StatusWritten:
			detail = res.Path
		case split.StatusSkipped:
			detail = "invalid dimensions"
		case split.StatusFailed:
			detail = res.Err.Error()
		}
		tw.AppendRow(table.Row{
			res.Row, res.Col,
			res.Rect.Min.X, res.Rect.Min.Y, res.Rect.Dx(), res.Rect.Dy(),
			res.Status.String(), detail,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	tw.AppendFooter(table.Row{"", "", "", "", "", "", "written", strconv.Itoa(rep.Count(split.StatusWritten))})
	return tw.Render()
}

func renderComparison(w io.Writer, cmp digest.Comparison) string {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"File", "SHA-256"})
	tw.AppendRow(table.Row{cmp.PathA, cmp.DigestA})
	tw.AppendRow(table.Row{cmp.PathB, cmp.DigestB})
	return tw.Render()
}
