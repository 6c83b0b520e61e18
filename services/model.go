package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ModelSchema is the ordered input schema of the trained model together with
// the categories its one-hot columns encode.
type ModelSchema struct {
	Columns        []string `json:"columns"`
	WeatherValues  []string `json:"weather_values,omitempty"`
	LocationValues []string `json:"location_values,omitempty"`
}

// ParseSchema accepts either a JSON array of column names or an object with
// columns and optional category lists. Missing category lists are derived
// from the weather_condition_ and location_name_ column prefixes.
func ParseSchema(data []byte) (*ModelSchema, error) {
	data = bytes.TrimSpace(data)
	schema := &ModelSchema{}
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &schema.Columns); err != nil {
			return nil, fmt.Errorf("decode schema columns: %w", err)
		}
	} else if err := json.Unmarshal(data, schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("schema has no columns")
	}

	seen := make(map[string]bool, len(schema.Columns))
	for _, c := range schema.Columns {
		if c == "" {
			return nil, fmt.Errorf("schema has an empty column name")
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate schema column %q", c)
		}
		seen[c] = true
	}

	if schema.WeatherValues == nil {
		schema.WeatherValues = categories(schema.Columns, WeatherPrefix)
	}
	if schema.LocationValues == nil {
		schema.LocationValues = categories(schema.Columns, LocationPrefix)
	}
	return schema, nil
}

func categories(columns []string, prefix string) []string {
	values := []string{}
	for _, c := range columns {
		if v, ok := strings.CutPrefix(c, prefix); ok {
			values = append(values, v)
		}
	}
	return values
}

// Regressor is a trained model scoring one feature vector.
type Regressor interface {
	Predict(vec FeatureVector) (float64, error)
}

// LinearModel is a fitted linear regression on log1p counts.
type LinearModel struct {
	Version      string             `json:"version"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`

	features []string
	weights  []float64
}

// ParseLinearModel decodes a model artifact and binds it to schema order.
// Every schema column needs a coefficient and every coefficient a column.
func ParseLinearModel(data []byte, schema *ModelSchema) (*LinearModel, error) {
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(m.Coefficients) != len(schema.Columns) {
		return nil, fmt.Errorf("model has %d coefficients, schema has %d columns", len(m.Coefficients), len(schema.Columns))
	}
	m.features = schema.Columns
	m.weights = make([]float64, len(schema.Columns))
	for i, col := range schema.Columns {
		w, ok := m.Coefficients[col]
		if !ok {
			return nil, fmt.Errorf("model has no coefficient for column %q", col)
		}
		m.weights[i] = w
	}
	return &m, nil
}

// Predict reorders vec into fit-time column order and returns the log1p
// prediction.
func (m *LinearModel) Predict(vec FeatureVector) (float64, error) {
	x := make([]float64, len(m.features))
	for i, name := range m.features {
		v, ok := vec.Get(name)
		if !ok {
			return 0, fmt.Errorf("feature vector is missing column %q", name)
		}
		x[i] = v
	}
	return m.Intercept + floats.Dot(m.weights, x), nil
}

// InverseTransform maps a log1p prediction back to a whole pedestrian count.
// The fractional part is truncated.
func InverseTransform(logValue float64) int {
	count := math.Expm1(logValue)
	if math.IsNaN(count) || count < 0 {
		return 0
	}
	if count >= math.MaxInt {
		return math.MaxInt
	}
	return int(count)
}

// Model is a loaded regressor with the schema it was fit on.
type Model struct {
	Version   string
	Schema    *ModelSchema
	Regressor Regressor
}

// Forecast is the outcome of one prediction.
type Forecast struct {
	Count    int
	LogValue float64
	Version  string
	Features FeatureVector
}

// LoadModel reads the model and schema artifacts. Any failure is reported as
// a ModelUnavailableError.
func LoadModel(modelPath, schemaPath string) (*Model, error) {
	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, &ModelUnavailableError{Reason: "read feature schema", Cause: err}
	}
	schema, err := ParseSchema(schemaData)
	if err != nil {
		return nil, &ModelUnavailableError{Reason: "parse feature schema", Cause: err}
	}
	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, &ModelUnavailableError{Reason: "read model", Cause: err}
	}
	lm, err := ParseLinearModel(modelData, schema)
	if err != nil {
		return nil, &ModelUnavailableError{Reason: "parse model", Cause: err}
	}
	return &Model{Version: lm.Version, Schema: schema, Regressor: lm}, nil
}

// Predict builds the feature vector, scores it and inverse-transforms the
// result. The raw log-scale output is kept on the Forecast for reference.
func (m *Model) Predict(source LagSource, inputs UserInputs) (Forecast, error) {
	if m == nil || m.Regressor == nil {
		return Forecast{}, &ModelUnavailableError{Reason: "no model loaded"}
	}
	vec, err := BuildFeatures(source, inputs, m.Schema)
	if err != nil {
		return Forecast{}, err
	}
	logValue, err := m.Regressor.Predict(vec)
	if err != nil {
		return Forecast{}, fmt.Errorf("score features: %w", err)
	}
	return Forecast{
		Count:    InverseTransform(logValue),
		LogValue: logValue,
		Version:  m.Version,
		Features: vec,
	}, nil
}
