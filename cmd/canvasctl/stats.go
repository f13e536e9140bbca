package main

import (
	"fmt"
	"io"

	"studyhub-be/pkg/canvas"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	strokeBarColor = drawing.ColorFromHex("2563eb")
	textBarColor   = drawing.ColorFromHex("f59e0b")
)

// statsBars lists strokes and text boxes of every page as adjacent bars.
func statsBars(doc *canvas.Document) []chart.Value {
	var values []chart.Value
	for i := 0; i < doc.PageCount(); i++ {
		p, _ := doc.Page(i)
		values = append(values,
			chart.Value{
				Label: fmt.Sprintf("P%d ink", i+1),
				Value: float64(len(p.Lines)),
				Style: chart.Style{FillColor: strokeBarColor, StrokeColor: strokeBarColor},
			},
			chart.Value{
				Label: fmt.Sprintf("P%d text", i+1),
				Value: float64(len(p.TextBoxes)),
				Style: chart.Style{FillColor: textBarColor, StrokeColor: textBarColor},
			},
		)
	}
	return values
}

func renderStats(w io.Writer, doc *canvas.Document) error {
	bars := statsBars(doc)
	// go-chart refuses a range with no spread
	top := 1.0
	for _, b := range bars {
		if b.Value > top {
			top = b.Value
		}
	}

	graph := chart.BarChart{
		Title: "Canvas content per page",
		Background: chart.Style{
			Padding: chart.Box{
				Top: 40,
			},
		},
		Height:   400,
		BarWidth: 40,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}
