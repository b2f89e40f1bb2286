package google

import (
	"errors"
	"fmt"
	"strings"

	"bikeshare/internal/core"
)

// splitValues separates the header row from data rows, dropping blank rows.
func splitValues(values [][]interface{}) ([]string, [][]string, error) {
	if len(values) == 0 {
		return nil, nil, errors.New("sheet is empty")
	}
	names := toStrings(values[0])
	rows := make([][]string, 0, len(values)-1)
	for _, raw := range values[1:] {
		row := toStrings(raw)
		if blank(row) {
			continue
		}
		rows = append(rows, row)
	}
	return names, rows, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func dailyValues(rows []core.DailyRecord) [][]interface{} {
	out := make([][]interface{}, 0, len(rows)+1)
	out = append(out, []interface{}{"dteday", "season", "casual", "registered", "total_count"})
	for _, r := range rows {
		out = append(out, []interface{}{r.Date.String(), string(r.Season), r.Casual, r.Registered, r.Total})
	}
	return out
}

func hourlyValues(rows []core.HourlyRecord) [][]interface{} {
	out := make([][]interface{}, 0, len(rows)+1)
	out = append(out, []interface{}{"dteday", "hour", "weather_situation", "casual", "registered", "total_count"})
	for _, r := range rows {
		out = append(out, []interface{}{r.Date.String(), r.Hour, string(r.Weather), r.Casual, r.Registered, r.Total})
	}
	return out
}
