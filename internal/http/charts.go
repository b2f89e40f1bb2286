package http

import (
	"fmt"
	"strconv"
	"strings"

	"bikeshare/internal/core"
)

// Chart canvas in SVG user units. The view box adds a margin around the
// plot area and a band below it for tick labels.
const (
	chartWidth  = 600
	chartHeight = 220
	marginX     = 36
	marginY     = 10
	tickBand    = 20
	maxTicks    = 6
)

var palette = []string{"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b"}

func yearColor(i int) string { return palette[i%len(palette)] }

type LineSeries struct {
	Label string
	Color string
	// Points is an SVG polyline points attribute.
	Points string
}

type Tick struct {
	X     float64
	Label string
}

type LineChart struct {
	Width, Height int
	// ViewBox frames the plot area plus its margins and tick band.
	ViewBox string
	// TickY is the baseline of the tick labels.
	TickY  int
	Max    int64
	Series []LineSeries
	Ticks  []Tick
}

func newLineChart() LineChart {
	return LineChart{
		Width:   chartWidth,
		Height:  chartHeight,
		ViewBox: fmt.Sprintf("%d %d %d %d", -marginX, -marginY, chartWidth+2*marginX, chartHeight+2*marginY+tickBand),
		TickY:   chartHeight + marginY + tickBand/2 + 4,
	}
}

type Bar struct {
	Label string
	Value int64
	// Percent is the bar length relative to the largest bar of the chart.
	Percent float64
	Color   string
}

type BarGroup struct {
	Label string
	Bars  []Bar
}

// UserShare is one row of the users distribution chart.
type UserShare struct {
	Label         string
	Casual        int64
	Registered    int64
	CasualPct     float64
	RegisteredPct float64
}

// DashboardView is the template model of the dashboard partial.
type DashboardView struct {
	core.Dashboard
	Start, End string
	ExportURL  string

	DailyChart   LineChart
	MonthlyChart LineChart
	SeasonGroups []BarGroup
	PartOfDay    []Bar
	Weather      []Bar
	Users        []UserShare
}

func newDashboardView(d core.Dashboard) DashboardView {
	start, end := d.Range.Start.String(), d.Range.End.String()
	v := DashboardView{
		Dashboard:    d,
		Start:        start,
		End:          end,
		ExportURL:    "/export.xlsx?start=" + start + "&end=" + end,
		DailyChart:   dailyLine(d.Daily),
		MonthlyChart: monthlyLines(d.MonthlyByYear, d.Years),
		SeasonGroups: seasonBars(d.SeasonByYear, d.Years),
		Users:        usersShare(d.UsersByYear, d.UsersCombined),
	}
	if d.HasHourlyData {
		v.PartOfDay = simpleBars(d.ByHourGroup)
		v.Weather = simpleBars(d.ByWeather)
	}
	return v
}

func dailyLine(points []core.DailyPoint) LineChart {
	c := newLineChart()
	if len(points) == 0 {
		return c
	}
	values := make([]int64, len(points))
	for i, p := range points {
		values[i] = p.Total
	}
	c.Max = maxOf(values)
	c.Series = []LineSeries{{Label: "Rentals", Color: palette[0], Points: polyline(values, c.Max)}}

	step := 1
	if len(points) > maxTicks {
		step = (len(points) + maxTicks - 1) / maxTicks
	}
	for i := 0; i < len(points); i += step {
		c.Ticks = append(c.Ticks, Tick{X: xAt(i, len(points)), Label: points[i].Date.String()})
	}
	return c
}

// monthlyLines draws one Jan..Sept..Dec line per year that has rentals in
// the selection.
func monthlyLines(groups core.Groups, years []int) LineChart {
	c := newLineChart()
	type line struct {
		year   int
		values []int64
	}
	lines := make([]line, 0, len(years))
	for i, y := range years {
		label := strconv.Itoa(y)
		values := make([]int64, len(core.Months))
		var sum int64
		for j, m := range core.Months {
			values[j] = groups.Lookup(label, string(m))
			sum += values[j]
		}
		if sum == 0 {
			continue
		}
		lines = append(lines, line{year: i, values: values})
		c.Max = max(c.Max, maxOf(values))
	}
	for _, l := range lines {
		c.Series = append(c.Series, LineSeries{Label: strconv.Itoa(years[l.year]), Color: yearColor(l.year), Points: polyline(l.values, c.Max)})
	}
	for i, m := range core.Months {
		c.Ticks = append(c.Ticks, Tick{X: xAt(i, len(core.Months)), Label: string(m)})
	}
	return c
}

// seasonBars groups bars by season with one bar per year present. When no
// year has rentals every year gets a zero bar, so the chart still renders.
func seasonBars(groups core.Groups, years []int) []BarGroup {
	present := make([]bool, len(years))
	var top int64
	anyPresent := false
	for i, y := range years {
		label := strconv.Itoa(y)
		for _, s := range core.Seasons {
			v := groups.Lookup(label, string(s))
			if v > 0 {
				present[i] = true
				anyPresent = true
			}
			top = max(top, v)
		}
	}
	if !anyPresent {
		for i := range present {
			present[i] = true
		}
	}

	out := make([]BarGroup, 0, len(core.Seasons))
	for _, s := range core.Seasons {
		g := BarGroup{Label: string(s)}
		for i, y := range years {
			if !present[i] {
				continue
			}
			label := strconv.Itoa(y)
			v := groups.Lookup(label, string(s))
			g.Bars = append(g.Bars, Bar{Label: label, Value: v, Percent: percent(v, top), Color: yearColor(i)})
		}
		out = append(out, g)
	}
	return out
}

func simpleBars(groups core.Groups) []Bar {
	var top int64
	for _, g := range groups {
		top = max(top, g.Sum)
	}
	out := make([]Bar, len(groups))
	for i, g := range groups {
		out[i] = Bar{
			Label:   strings.ReplaceAll(strings.Join(g.Keys, " "), "_", " "),
			Value:   g.Sum,
			Percent: percent(g.Sum, top),
			Color:   palette[0],
		}
	}
	return out
}

func usersShare(byYear []core.YearUsers, combined core.Counts) []UserShare {
	out := make([]UserShare, 0, len(byYear)+1)
	for _, u := range byYear {
		out = append(out, newUserShare(strconv.Itoa(u.Year), u.Casual, u.Registered))
	}
	if len(byYear) > 0 {
		out = append(out, newUserShare("All years", combined.Casual, combined.Registered))
	}
	return out
}

func newUserShare(label string, casual, registered int64) UserShare {
	total := casual + registered
	return UserShare{
		Label:         label,
		Casual:        casual,
		Registered:    registered,
		CasualPct:     percent(casual, total),
		RegisteredPct: percent(registered, total),
	}
}

func polyline(values []int64, top int64) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(xAt(i, len(values)), 'f', 1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(yAt(v, top), 'f', 1, 64))
	}
	return b.String()
}

func xAt(i, n int) float64 {
	if n <= 1 {
		return chartWidth / 2
	}
	return float64(i) * chartWidth / float64(n-1)
}

// yAt flips the axis: SVG grows downwards.
func yAt(v, top int64) float64 {
	if top <= 0 {
		return chartHeight
	}
	return chartHeight - float64(v)*chartHeight/float64(top)
}

func percent(v, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(v) * 100 / float64(total)
}

func maxOf(values []int64) int64 {
	var m int64
	for _, v := range values {
		m = max(m, v)
	}
	return m
}

// formatCount renders n with thousands separators.
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
