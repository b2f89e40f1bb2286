// Package export renders a dashboard as an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"bikeshare/internal/core"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names, in workbook order.
const (
	SheetSummary   = "Summary"
	SheetDaily     = "Daily"
	SheetMonthly   = "Monthly"
	SheetSeasons   = "Seasons"
	SheetPartOfDay = "Part of day"
	SheetWeather   = "Weather"
	SheetUsers     = "Users"
)

// WriteDashboard writes one sheet per chart. Hourly sheets are omitted when
// the dashboard has no hourly data.
func WriteDashboard(w io.Writer, d core.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	wb := &workbook{f: f}
	if err := wb.init(); err != nil {
		return err
	}

	wb.sheet(SheetSummary, []any{"Field", "Value"}, [][]any{
		{"Start", d.Range.Start.String()},
		{"End", d.Range.End.String()},
		{"Total rentals", d.Metrics.Total},
		{"Casual rentals", d.Metrics.Casual},
		{"Registered rentals", d.Metrics.Registered},
	})

	daily := make([][]any, len(d.Daily))
	for i, p := range d.Daily {
		daily[i] = []any{p.Date.String(), p.Total}
	}
	wb.sheet(SheetDaily, []any{"dteday", "total_count"}, daily)

	wb.sheet(SheetMonthly, []any{"year", "month", "total_count"}, groupRows(d.MonthlyByYear))
	wb.sheet(SheetSeasons, []any{"year", "season", "total_count"}, groupRows(d.SeasonByYear))
	if d.HasHourlyData {
		wb.sheet(SheetPartOfDay, []any{"hour_group", "total_count"}, groupRows(d.ByHourGroup))
		wb.sheet(SheetWeather, []any{"weather_situation", "total_count"}, groupRows(d.ByWeather))
	}

	users := make([][]any, 0, len(d.UsersByYear)+1)
	for _, u := range d.UsersByYear {
		users = append(users, []any{u.Year, u.Casual, u.Registered})
	}
	users = append(users, []any{"All", d.UsersCombined.Casual, d.UsersCombined.Registered})
	wb.sheet(SheetUsers, []any{"year", "casual", "registered"}, users)

	if wb.err != nil {
		return wb.err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(SheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// workbook keeps the first error so sheet calls can be chained.
type workbook struct {
	f      *excelize.File
	header int
	err    error
}

func (wb *workbook) init() error {
	style, err := wb.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	wb.header = style
	return nil
}

func (wb *workbook) sheet(name string, header []any, rows [][]any) {
	if wb.err != nil {
		return
	}
	if _, err := wb.f.NewSheet(name); err != nil {
		wb.err = fmt.Errorf("create sheet %s: %w", name, err)
		return
	}
	if err := wb.f.SetSheetRow(name, "A1", &header); err != nil {
		wb.err = fmt.Errorf("write %s header: %w", name, err)
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := wb.f.SetCellStyle(name, "A1", last, wb.header); err != nil {
		wb.err = fmt.Errorf("style %s header: %w", name, err)
		return
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := wb.f.SetSheetRow(name, cell, &row); err != nil {
			wb.err = fmt.Errorf("write %s row %d: %w", name, i+2, err)
			return
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	_ = wb.f.SetColWidth(name, "A", lastCol, 18)
}

func groupRows(groups core.Groups) [][]any {
	out := make([][]any, len(groups))
	for i, g := range groups {
		row := make([]any, 0, len(g.Keys)+1)
		for _, k := range g.Keys {
			row = append(row, k)
		}
		out[i] = append(row, g.Sum)
	}
	return out
}
