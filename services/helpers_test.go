package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/require"
)

func csvOf(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func mustLoad(t *testing.T, csv string) dataframe.DataFrame {
	t.Helper()
	df, err := LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return df
}

func mustEnriched(t *testing.T, csv string) dataframe.DataFrame {
	t.Helper()
	cleaned, err := Clean(mustLoad(t, csv))
	require.NoError(t, err)
	enriched, err := Enrich(cleaned)
	require.NoError(t, err)
	return enriched
}

// hourlyTable builds n gap-free hourly rows whose counts are 0..n-1.
func hourlyTable(n int) dataframe.DataFrame {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	stamps := make([]string, n)
	locations := make([]string, n)
	types := make([]string, n)
	counts := make([]float64, n)
	for i := 0; i < n; i++ {
		stamps[i] = start.Add(time.Duration(i) * time.Hour).Format("2006-01-02 15:04:05")
		locations[i] = "Bahnhofstrasse (Mitte)"
		types[i] = "sensor"
		counts[i] = float64(i)
	}
	return dataframe.New(
		series.New(stamps, series.String, ColTimestamp),
		series.New(locations, series.String, ColLocation),
		series.New(types, series.String, ColCollectionType),
		series.New(counts, series.Float, ColPedestrians),
	)
}

// reversed returns df with its rows in reverse order.
func reversed(df dataframe.DataFrame) dataframe.DataFrame {
	idx := make([]int, df.Nrow())
	for i := range idx {
		idx[i] = df.Nrow() - 1 - i
	}
	return df.Subset(idx)
}

func featureSchema() *ModelSchema {
	schema, err := ParseSchema([]byte(fmt.Sprintf(`[
		"hour", "weekday", "is_weekend", "month", "temperature",
		"prev_hour_count", "prev_hour_count_2", "prev_day_same_hour", "prev_year_same_hour",
		"rolling_3h", "rolling_6h", "rolling_24h",
		"%ssunny", "%srain",
		"%sBahnhofstrasse (Mitte)", "%sBahnhofstrasse (Nord)",
		"holiday"
	]`, WeatherPrefix, WeatherPrefix, LocationPrefix, LocationPrefix)))
	if err != nil {
		panic(err)
	}
	return schema
}
