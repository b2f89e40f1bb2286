package core

// DailyPoint is one point of the daily rentals time series.
type DailyPoint struct {
	Date  Date  `json:"date"`
	Total int64 `json:"total_count"`
}

// YearUsers holds casual and registered totals for one year.
type YearUsers struct {
	Year       int   `json:"year"`
	Casual     int64 `json:"casual"`
	Registered int64 `json:"registered"`
}

// Dashboard is everything rendered for one date-range selection.
type Dashboard struct {
	Range  DateRange `json:"range"`
	Bounds DateRange `json:"bounds"`
	Years  []int     `json:"years"`
	// Empty is set when the selection matched no daily rows.
	Empty bool `json:"empty"`

	Metrics       Counts       `json:"metrics"`
	Daily         []DailyPoint `json:"daily"`
	MonthlyByYear Groups       `json:"monthly_by_year"`
	SeasonByYear  Groups       `json:"season_by_year"`
	ByHourGroup   Groups       `json:"by_hour_group"`
	ByWeather     Groups       `json:"by_weather"`
	UsersByYear   []YearUsers  `json:"users_by_year"`
	UsersCombined Counts       `json:"users_combined"`
	HasHourlyData bool         `json:"has_hourly_data"`
}
