package report

import (
	"slices"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/entity"
)

// Summary renders per-stage counts for a finished batch.
func Summary(results []entity.Result) string {
	byStage := make(map[string]int)
	var unmatched, failed int
	for i := range results {
		res := &results[i]
		switch {
		case res.Resolved():
			byStage[res.Stage]++
		case res.Err != nil:
			failed++
		default:
			unmatched++
		}
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"Outcome", "Rows"})

	stages := make([]string, 0, len(byStage))
	for s := range byStage {
		stages = append(stages, s)
	}
	slices.Sort(stages)
	for _, s := range stages {
		tw.AppendRow(table.Row{"matched: " + s, strconv.Itoa(byStage[s])})
	}
	tw.AppendRow(table.Row{"no confident match", strconv.Itoa(unmatched)})
	tw.AppendRow(table.Row{"failed", strconv.Itoa(failed)})
	tw.AppendFooter(table.Row{"total", strconv.Itoa(len(results))})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}
