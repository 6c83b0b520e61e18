package services

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"
)

const (
	FeatureHour             = "hour"
	FeatureWeekday          = "weekday"
	FeatureIsWeekend        = "is_weekend"
	FeatureMonth            = "month"
	FeatureTemperature      = "temperature"
	FeaturePrevHourCount    = "prev_hour_count"
	FeaturePrevHourCount2   = "prev_hour_count_2"
	FeaturePrevDaySameHour  = "prev_day_same_hour"
	FeaturePrevYearSameHour = "prev_year_same_hour"
	FeatureRolling3h        = "rolling_3h"
	FeatureRolling6h        = "rolling_6h"
	FeatureRolling24h       = "rolling_24h"

	WeatherPrefix  = "weather_condition_"
	LocationPrefix = "location_name_"
)

const (
	hoursPerDay  = 24
	hoursPerYear = 8760
)

// UserInputs are the values chosen by the user for every prediction.
type UserInputs struct {
	Hour        int
	Weekday     int
	IsWeekend   bool
	Month       int
	Temperature float64
	Weather     string
	Location    string
}

// LagFeatures are the seven lag and rolling-window features.
type LagFeatures struct {
	PrevHourCount    float64
	PrevHourCount2   float64
	PrevDaySameHour  float64
	PrevYearSameHour float64
	Rolling3h        float64
	Rolling6h        float64
	Rolling24h       float64
}

// Lags lets manually supplied values act as a LagSource.
func (l LagFeatures) Lags() (LagFeatures, error) { return l, nil }

// LagSource supplies lag features: either a table's history or manual values.
type LagSource interface {
	Lags() (LagFeatures, error)
}

// HistorySource derives lag features from the tail of an enriched table.
// Rows are assumed hourly and gap free, so "24 rows back" stands in for the
// previous day and "8760 rows back" for the previous year.
type HistorySource struct {
	counts []float64
}

// NewHistorySource orders the table's counts by timestamp. Rows with equal
// timestamps keep their table order.
func NewHistorySource(df dataframe.DataFrame) (HistorySource, error) {
	if df.Err != nil {
		return HistorySource{}, df.Err
	}
	if err := requireColumns(df); err != nil {
		return HistorySource{}, err
	}
	stamps := df.Col(ColTimestamp).Records()
	counts := df.Col(ColPedestrians).Float()

	type sample struct {
		unix  int64
		count float64
	}
	samples := make([]sample, len(stamps))
	for i, raw := range stamps {
		t, err := ParseTimestamp(raw)
		if err != nil {
			return HistorySource{}, &SchemaError{Column: ColTimestamp, Message: fmt.Sprintf("row %d", i+1), Cause: err}
		}
		samples[i] = sample{unix: t.UnixNano(), count: counts[i]}
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].unix < samples[j].unix })

	ordered := make([]float64, len(samples))
	for i, s := range samples {
		ordered[i] = s.count
	}
	return HistorySource{counts: ordered}, nil
}

func (h HistorySource) Len() int { return len(h.counts) }

func (h HistorySource) Lags() (LagFeatures, error) {
	n := len(h.counts)
	if n < hoursPerYear {
		return LagFeatures{}, &InsufficientHistoryError{Rows: n, Required: hoursPerYear}
	}
	c := h.counts
	return LagFeatures{
		PrevHourCount:    c[n-1],
		PrevHourCount2:   c[n-2],
		PrevDaySameHour:  c[n-hoursPerDay],
		PrevYearSameHour: c[n-hoursPerYear],
		Rolling3h:        stat.Mean(c[n-3:], nil),
		Rolling6h:        stat.Mean(c[n-6:], nil),
		Rolling24h:       stat.Mean(c[n-hoursPerDay:], nil),
	}, nil
}

// FeatureVector is a single model input row in schema order.
type FeatureVector struct {
	Columns []string
	Values  []float64
}

func (v FeatureVector) Get(name string) (float64, bool) {
	for i, c := range v.Columns {
		if c == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.Columns))
	for i, c := range v.Columns {
		m[c] = v.Values[i]
	}
	return m
}

// BuildFeatures assembles the model input for one prediction. Columns the
// schema expects but nothing sets are zero; fields the schema does not
// expect are left out.
func BuildFeatures(source LagSource, inputs UserInputs, schema *ModelSchema) (FeatureVector, error) {
	if schema == nil || len(schema.Columns) == 0 {
		return FeatureVector{}, &ModelUnavailableError{Reason: "model feature schema is empty"}
	}
	lags, err := source.Lags()
	if err != nil {
		return FeatureVector{}, err
	}

	set := map[string]float64{
		FeatureHour:             float64(inputs.Hour),
		FeatureWeekday:          float64(inputs.Weekday),
		FeatureIsWeekend:        boolFeature(inputs.IsWeekend),
		FeatureMonth:            float64(inputs.Month),
		FeatureTemperature:      inputs.Temperature,
		FeaturePrevHourCount:    lags.PrevHourCount,
		FeaturePrevHourCount2:   lags.PrevHourCount2,
		FeaturePrevDaySameHour:  lags.PrevDaySameHour,
		FeaturePrevYearSameHour: lags.PrevYearSameHour,
		FeatureRolling3h:        lags.Rolling3h,
		FeatureRolling6h:        lags.Rolling6h,
		FeatureRolling24h:       lags.Rolling24h,
	}
	for _, w := range schema.WeatherValues {
		set[WeatherPrefix+w] = boolFeature(w == inputs.Weather)
	}
	for _, l := range schema.LocationValues {
		set[LocationPrefix+l] = boolFeature(l == inputs.Location)
	}

	vec := FeatureVector{
		Columns: append([]string(nil), schema.Columns...),
		Values:  make([]float64, len(schema.Columns)),
	}
	for i, col := range vec.Columns {
		vec.Values[i] = set[col]
	}
	return vec, nil
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
