package app

import (
	"bytes"
	"errors"

	"github.com/wcharczuk/go-chart/v2"
)

// renderVotesChart строит PNG с распределением голосов по участницам.
func renderVotesChart(contestants []Contestant) ([]byte, error) {
	if len(contestants) == 0 {
		return nil, errors.New("нет участниц для графика")
	}

	var bars []chart.Value
	total := 0
	for _, ct := range contestants {
		bars = append(bars, chart.Value{
			Value: float64(ct.Votes),
			Label: shorten(ct.Name, 12),
		})
		total += ct.Votes
	}
	// При нулевых значениях рендеру нечего масштабировать
	if total == 0 {
		return nil, errors.New("голосов пока нет")
	}

	graph := chart.BarChart{
		Title:      "Голоса участниц",
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		Height:     400,
		Width:      800,
		BarWidth:   50,
		Bars:       bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
