package services

// Options are the choices a client offers for prediction inputs.
type Options struct {
	Hours            []int    `json:"hours"`
	Weekdays         []string `json:"weekdays"`
	Months           []string `json:"months"`
	WeatherValues    []string `json:"weather_values"`
	LocationValues   []string `json:"location_values"`
	DatasetLocations []string `json:"dataset_locations"`
	PredictionReady  bool     `json:"prediction_ready"`
}

// SelectorOptions combines the fixed calendar domains with what the model
// schema and the dataset know. Either of them may be nil.
func SelectorOptions(schema *ModelSchema, ds *Dataset) Options {
	hours := make([]int, 24)
	for i := range hours {
		hours[i] = i
	}
	opts := Options{
		Hours:            hours,
		Weekdays:         weekdayLabels,
		Months:           monthLabels,
		WeatherValues:    []string{},
		LocationValues:   []string{},
		DatasetLocations: []string{},
	}
	if schema != nil {
		opts.WeatherValues = schema.WeatherValues
		opts.LocationValues = schema.LocationValues
		opts.PredictionReady = len(schema.Columns) > 0
	}
	if ds != nil {
		opts.DatasetLocations = ds.Summary.Locations
	}
	return opts
}
