package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
)

// objectiveNamer is implemented by problems that can label their objectives.
type objectiveNamer interface {
	ObjectiveNames() []string
}

// ObjectivePairs lists every (i, j) with i < j among m objectives.
func ObjectivePairs(m int) [][2]int {
	var pairs [][2]int
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}

// PlotResults renders one scatter chart per pair of objectives of the given
// results into a single HTML page. The problem's true Pareto front is drawn
// alongside when it has one. The file is written into dir and its path
// returned.
func PlotResults(results []framework.ObjectiveSpacePoint, problem framework.Problem, algorithmName, dir string) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("results are empty for %s", problem.Name())
	}

	m := len(results[0])
	if m < 2 {
		return "", fmt.Errorf("need at least 2 objectives to plot %s", problem.Name())
	}

	names := make([]string, m)
	for i := range names {
		names[i] = fmt.Sprintf("f%d(x)", i+1)
	}
	if namer, ok := problem.(objectiveNamer); ok {
		if n := namer.ObjectiveNames(); len(n) == m {
			copy(names, n)
		}
	}

	trueFront := problem.TrueParetoFront(100)

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s on %s", algorithmName, problem.Name())
	for _, pair := range ObjectivePairs(m) {
		page.AddCharts(pairScatter(results, trueFront, pair, names, problem.Name(), algorithmName))
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s_results.html", problem.Name(), algorithmName))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return "", err
	}
	return path, nil
}

func pairScatter(results, trueFront []framework.ObjectiveSpacePoint, pair [2]int, names []string, problemName, algorithmName string) *charts.Scatter {
	x, y := pair[0], pair[1]

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s: %s vs %s", problemName, names[x], names[y]),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      names[x],
			SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      names[y],
			SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
		}))

	if len(trueFront) > 0 && len(trueFront[0]) > y {
		scatter.AddSeries("True Pareto Front", scatterData(trueFront, x, y, "circle"))
	}

	scatter.AddSeries(fmt.Sprintf("%s Solutions", algorithmName), scatterData(results, x, y, "triangle")).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}),
			charts.WithEmphasisOpts(opts.Emphasis{}),
		)
	return scatter
}

func scatterData(points []framework.ObjectiveSpacePoint, x, y int, symbol string) []opts.ScatterData {
	data := make([]opts.ScatterData, len(points))
	for i, p := range points {
		data[i] = opts.ScatterData{
			Value:      []float64{p[x], p[y]},
			Symbol:     symbol,
			SymbolSize: 10,
		}
	}
	return data
}
