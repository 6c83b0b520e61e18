package services

import (
	"fmt"
	"sort"
	"strconv"

	"footfall-prediction-api/models"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"
)

const (
	ViewHourly           = "hourly"
	ViewWeekday          = "weekday"
	ViewMonthly          = "monthly"
	ViewLocations        = "locations"
	ViewWeekend          = "weekend"
	ViewHourlyByLocation = "hourly_by_location"

	countAxisLabel = "Avg Pedestrian Count"
)

// ViewNames lists the aggregation views in display order.
var ViewNames = []string{ViewHourly, ViewWeekday, ViewMonthly, ViewLocations, ViewWeekend, ViewHourlyByLocation}

var (
	weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	monthLabels   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// enrichedRow is the projection of an enriched record the views need.
type enrichedRow struct {
	hour      int
	weekday   int
	isWeekend bool
	month     int
	location  string
	count     float64
}

func enrichedRows(df dataframe.DataFrame) ([]enrichedRow, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	for _, name := range []string{ColHour, ColWeekday, ColIsWeekend, ColMonth, ColLocation, ColPedestrians} {
		if !hasColumn(df, name) {
			return nil, &SchemaError{Column: name, Message: "table is not enriched"}
		}
	}
	hours, err := df.Col(ColHour).Int()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ColHour, err)
	}
	weekdays, err := df.Col(ColWeekday).Int()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ColWeekday, err)
	}
	weekends, err := df.Col(ColIsWeekend).Bool()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ColIsWeekend, err)
	}
	months, err := df.Col(ColMonth).Int()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ColMonth, err)
	}
	locations := df.Col(ColLocation).Records()
	counts := df.Col(ColPedestrians).Float()

	rows := make([]enrichedRow, df.Nrow())
	for i := range rows {
		rows[i] = enrichedRow{
			hour:      hours[i],
			weekday:   weekdays[i],
			isWeekend: weekends[i],
			month:     months[i],
			location:  locations[i],
			count:     counts[i],
		}
	}
	return rows, nil
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// groupMeans returns the mean count per key, for keys with at least one row.
func groupMeans[K comparable](rows []enrichedRow, key func(enrichedRow) K) map[K]float64 {
	groups := make(map[K][]float64)
	for _, r := range rows {
		k := key(r)
		groups[k] = append(groups[k], r.count)
	}
	means := make(map[K]float64, len(groups))
	for k, values := range groups {
		means[k] = stat.Mean(values, nil)
	}
	return means
}

func value(v float64) *float64 { return &v }

// Aggregate computes all six views of an enriched table.
func Aggregate(df dataframe.DataFrame) (models.Views, error) {
	rows, err := enrichedRows(df)
	if err != nil {
		return models.Views{}, err
	}
	return models.Views{
		Hourly:           hourlyView(rows),
		Weekday:          weekdayView(rows),
		Monthly:          monthlyView(rows),
		Locations:        locationView(rows),
		Weekend:          weekendView(rows),
		HourlyByLocation: hourlyByLocationView(rows),
	}, nil
}

// Lookup returns the view called name, or false.
func Lookup(views models.Views, name string) (any, bool) {
	switch name {
	case ViewHourly:
		return views.Hourly, true
	case ViewWeekday:
		return views.Weekday, true
	case ViewMonthly:
		return views.Monthly, true
	case ViewLocations:
		return views.Locations, true
	case ViewWeekend:
		return views.Weekend, true
	case ViewHourlyByLocation:
		return views.HourlyByLocation, true
	}
	return nil, false
}

func hourlyView(rows []enrichedRow) models.View {
	means := groupMeans(rows, func(r enrichedRow) int { return r.hour })
	hours := sortedKeys(means)
	points := make([]models.Point, 0, len(hours))
	for _, h := range hours {
		points = append(points, models.Point{Label: strconv.Itoa(h), Value: value(means[h])})
	}
	return models.View{
		Name:   ViewHourly,
		Title:  "Average Traffic by Hour",
		Kind:   "line",
		XLabel: "Hour of Day",
		YLabel: countAxisLabel,
		Points: points,
	}
}

func weekdayView(rows []enrichedRow) models.View {
	means := groupMeans(rows, func(r enrichedRow) int { return r.weekday })
	points := make([]models.Point, 0, len(weekdayLabels))
	for d, label := range weekdayLabels {
		if m, ok := means[d]; ok {
			points = append(points, models.Point{Label: label, Value: value(m)})
		}
	}
	return models.View{
		Name:   ViewWeekday,
		Title:  "Average Traffic by Weekday",
		Kind:   "bar",
		YLabel: countAxisLabel,
		Points: points,
	}
}

// monthlyView always carries the twelve month labels.
func monthlyView(rows []enrichedRow) models.View {
	means := groupMeans(rows, func(r enrichedRow) int { return r.month })
	points := make([]models.Point, len(monthLabels))
	for i, label := range monthLabels {
		points[i] = models.Point{Label: label}
		if m, ok := means[i+1]; ok {
			points[i].Value = value(m)
		}
	}
	return models.View{
		Name:   ViewMonthly,
		Title:  "Average Monthly Traffic",
		Kind:   "line",
		XLabel: "Month",
		YLabel: countAxisLabel,
		Points: points,
	}
}

func locationView(rows []enrichedRow) models.View {
	means := groupMeans(rows, func(r enrichedRow) string { return r.location })
	names := sortedKeys(means)
	sort.SliceStable(names, func(i, j int) bool { return means[names[i]] < means[names[j]] })
	points := make([]models.Point, 0, len(names))
	for _, name := range names {
		points = append(points, models.Point{Label: name, Value: value(means[name])})
	}
	return models.View{
		Name:   ViewLocations,
		Title:  "Average Traffic by Sensor Location",
		Kind:   "barh",
		XLabel: countAxisLabel,
		Points: points,
	}
}

func weekendView(rows []enrichedRow) models.View {
	means := groupMeans(rows, func(r enrichedRow) bool { return r.isWeekend })
	var points []models.Point
	if m, ok := means[false]; ok {
		points = append(points, models.Point{Label: "Weekday", Value: value(m)})
	}
	if m, ok := means[true]; ok {
		points = append(points, models.Point{Label: "Weekend", Value: value(m)})
	}
	return models.View{
		Name:   ViewWeekend,
		Title:  "Weekend vs Weekday Traffic",
		Kind:   "bar",
		YLabel: countAxisLabel,
		Points: points,
	}
}

type hourLocation struct {
	hour     int
	location string
}

func hourlyByLocationView(rows []enrichedRow) models.PivotView {
	means := groupMeans(rows, func(r enrichedRow) hourLocation { return hourLocation{r.hour, r.location} })

	hourSet := make(map[int]struct{})
	locationSet := make(map[string]struct{})
	for k := range means {
		hourSet[k.hour] = struct{}{}
		locationSet[k.location] = struct{}{}
	}
	hours := sortedKeys(hourSet)
	locations := sortedKeys(locationSet)

	series := make([]models.LocationSeries, 0, len(locations))
	for _, loc := range locations {
		values := make([]*float64, len(hours))
		for i, h := range hours {
			if m, ok := means[hourLocation{h, loc}]; ok {
				values[i] = value(m)
			}
		}
		series = append(series, models.LocationSeries{Location: loc, Values: values})
	}
	return models.PivotView{
		Name:   ViewHourlyByLocation,
		Title:  "Hourly Trend by Sensor Location",
		Kind:   "line",
		XLabel: "Hour of Day",
		YLabel: countAxisLabel,
		Hours:  hours,
		Series: series,
	}
}

func sortedKeys[K int | string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
