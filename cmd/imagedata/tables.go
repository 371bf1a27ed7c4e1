// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/imagedata/pkg/data/bundle"
	"github.com/gomlx/imagedata/pkg/data/labels"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			Padding(0, 2, 0, 2)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			Padding(0, 2, 0, 2)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == lgtable.HeaderRow {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Left)
			} else {
				s = s.Align(lipgloss.Right)
			}
			return
		})
}

// report prints the summary of the bundle, its views and its class distribution.
func report(b *bundle.Bundle) {
	fmt.Println(titleStyle.Render("Summary"))
	table := newPlainTable(false)
	table.Row("root", b.Root())
	table.Row("labels", b.View(bundle.TrainView).Kind().String())
	table.Row("# classes", humanize.Comma(int64(len(b.Classes()))))
	if size, err := b.Size(); err == nil && size > 0 {
		table.Row("image size", fmt.Sprintf("%d", size))
	}
	table.Row("balance", b.Options().Balance.String())
	table.Row("batch size", humanize.Comma(int64(b.Options().BatchSize)))
	fmt.Println(table.Render())

	fmt.Println(titleStyle.Render("Views"))
	table = newPlainTable(true)
	table.Headers("View", "# samples", "# batches")
	for kind := bundle.ViewKind(0); kind < bundle.NumViews; kind++ {
		l := b.Loader(kind)
		if l == nil {
			continue
		}
		table.Row(kind.String(), humanize.Comma(int64(b.Len(kind))), humanize.Comma(int64(l.NumBatches())))
	}
	fmt.Println(table.Render())

	if b.IsRegression() {
		return
	}
	numClasses := len(b.Classes())
	train := classCounts(b.TrainLabels(), numClasses)
	valid := classCounts(b.ValidLabels(), numClasses)
	weights := classWeights(b.TrainLabels(), b.TrainWeights(), numClasses)
	fmt.Println(titleStyle.Render("Classes"))
	table = newPlainTable(true)
	headers := []string{"Class", "# train", "# valid"}
	if weights != nil {
		headers = append(headers, "weight")
	}
	table.Headers(headers...)
	for k, name := range b.Classes() {
		row := []string{name, humanize.Comma(int64(train[k])), humanize.Comma(int64(valid[k]))}
		if weights != nil {
			row = append(row, fmt.Sprintf("%.4f", weights[k]))
		}
		table.Row(row...)
	}
	fmt.Println(table.Render())
}

// classCounts returns the number of samples of each class. For multi-label data a sample counts once
// for every class it holds.
func classCounts(lbls *labels.Array, numClasses int) []int {
	counts := make([]int, numClasses)
	if lbls == nil {
		return counts
	}
	if lbls.IsIndices() {
		for _, idx := range lbls.Indices {
			if idx >= 0 && idx < numClasses {
				counts[idx]++
			}
		}
		return counts
	}
	for _, vec := range lbls.Vectors {
		for k, v := range vec {
			if v > 0 && k < numClasses {
				counts[k]++
			}
		}
	}
	return counts
}

// classWeights returns the per-sample weight of each class, or nil if the training samples are not
// weighted.
func classWeights(lbls *labels.Array, sampleWeights []float64, numClasses int) []float64 {
	if sampleWeights == nil || lbls == nil || !lbls.IsIndices() {
		return nil
	}
	weights := make([]float64, numClasses)
	for i, idx := range lbls.Indices {
		if idx >= 0 && idx < numClasses {
			weights[idx] = sampleWeights[i]
		}
	}
	return weights
}
