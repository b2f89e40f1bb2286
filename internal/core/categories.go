package core

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	Month     string
	Season    string
	HourGroup string
	Weather   string
)

const (
	Jan  Month = "Jan"
	Feb  Month = "Feb"
	Mar  Month = "Mar"
	Apr  Month = "Apr"
	May  Month = "May"
	Jun  Month = "Jun"
	Jul  Month = "Jul"
	Aug  Month = "Aug"
	Sept Month = "Sept"
	Oct  Month = "Oct"
	Nov  Month = "Nov"
	Dec  Month = "Dec"
)

const (
	Spring Season = "Spring"
	Summer Season = "Summer"
	Fall   Season = "Fall"
	Winter Season = "Winter"
)

const (
	Morning   HourGroup = "Morning"
	Afternoon HourGroup = "Afternoon"
	Evening   HourGroup = "Evening"
	Night     HourGroup = "Night"
)

const (
	Clear         Weather = "Clear"
	Misty         Weather = "Misty"
	LightRainSnow Weather = "Light_RainSnow"
	HeavyRainSnow Weather = "Heavy_RainSnow"
)

// Domains, in presentation order.
var (
	Months     = []Month{Jan, Feb, Mar, Apr, May, Jun, Jul, Aug, Sept, Oct, Nov, Dec}
	Seasons    = []Season{Spring, Summer, Fall, Winter}
	HourGroups = []HourGroup{Morning, Afternoon, Evening, Night}
	Weathers   = []Weather{Clear, Misty, LightRainSnow, HeavyRainSnow}
)

// MonthName returns the month label of a date.
func MonthName(d Date) Month {
	return Months[d.Time.Month()-1]
}

// SeasonOf maps a date to its meteorological (northern hemisphere) season.
func SeasonOf(d Date) Season {
	switch d.Time.Month() {
	case 3, 4, 5:
		return Spring
	case 6, 7, 8:
		return Summer
	case 9, 10, 11:
		return Fall
	default:
		return Winter
	}
}

// SeasonFromCode maps the dataset season code 1..4.
func SeasonFromCode(code int) (Season, error) {
	if code < 1 || code > len(Seasons) {
		return "", fmt.Errorf("%w: season code %d", ErrUnmappedCategory, code)
	}
	return Seasons[code-1], nil
}

// ParseSeason accepts a season code or label.
func ParseSeason(s string) (Season, error) {
	s = strings.TrimSpace(s)
	if code, err := strconv.Atoi(s); err == nil {
		return SeasonFromCode(code)
	}
	for _, v := range Seasons {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: season %q", ErrUnmappedCategory, s)
}

func (s Season) Valid() bool {
	for _, v := range Seasons {
		if s == v {
			return true
		}
	}
	return false
}

// HourGroupOf buckets an hour of day: Morning [5,12), Afternoon [12,17),
// Evening [17,22), Night otherwise.
func HourGroupOf(hour int) (HourGroup, error) {
	switch {
	case hour < 0 || hour > 23:
		return "", fmt.Errorf("%w: hour %d", ErrUnmappedCategory, hour)
	case hour >= 5 && hour < 12:
		return Morning, nil
	case hour >= 12 && hour < 17:
		return Afternoon, nil
	case hour >= 17 && hour < 22:
		return Evening, nil
	default:
		return Night, nil
	}
}

// WeatherLabel maps the weather situation code 1..4.
func WeatherLabel(code int) (Weather, error) {
	if code < 1 || code > len(Weathers) {
		return "", fmt.Errorf("%w: weather code %d", ErrUnmappedCategory, code)
	}
	return Weathers[code-1], nil
}

// ParseWeather accepts a weather code or label.
func ParseWeather(s string) (Weather, error) {
	s = strings.TrimSpace(s)
	if code, err := strconv.Atoi(s); err == nil {
		return WeatherLabel(code)
	}
	for _, v := range Weathers {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: weather %q", ErrUnmappedCategory, s)
}

func (w Weather) Valid() bool {
	for _, v := range Weathers {
		if w == v {
			return true
		}
	}
	return false
}

func labels[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
