package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"footfall-prediction-api/models"
	"footfall-prediction-api/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `timestamp,location_name,collection_type,pedestrians_count,weather_condition,zone_99_count
2023-06-05 08:00,Bahnhofstrasse (Mitte),sensor,100,sunny,
2023-06-05 09:00,Bahnhofstrasse (Mitte),sensor,200,sunny,3
2023-06-05 08:00,Bahnhofstrasse (Nord),sensor,50,rain,
2023-06-10 09:00,Bahnhofstrasse (Nord),,70,rain,
2023-06-10 10:00,Paradeplatz,sensor,500,rain,
`

var featureColumns = []string{
	"hour", "weekday", "is_weekend", "month", "temperature",
	"prev_hour_count", "prev_hour_count_2", "prev_day_same_hour", "prev_year_same_hour",
	"rolling_3h", "rolling_6h", "rolling_24h",
	"weather_condition_sunny", "weather_condition_rain",
	"location_name_Bahnhofstrasse (Mitte)", "location_name_Bahnhofstrasse (Nord)",
}

type fixture struct {
	dataPath   string
	modelPath  string
	schemaPath string
}

func newFixture(t *testing.T, withModel bool) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dataPath:   filepath.Join(dir, "footfall.csv"),
		modelPath:  filepath.Join(dir, "model.json"),
		schemaPath: filepath.Join(dir, "model_features.json"),
	}
	require.NoError(t, os.WriteFile(f.dataPath, []byte(sampleCSV), 0o644))
	if !withModel {
		return f
	}

	coefficients := make(map[string]float64, len(featureColumns))
	for _, c := range featureColumns {
		coefficients[c] = 0
	}
	modelData, err := json.Marshal(map[string]any{"version": "test-1", "intercept": 5.0, "coefficients": coefficients})
	require.NoError(t, err)
	schemaData, err := json.Marshal(featureColumns)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.modelPath, modelData, 0o644))
	require.NoError(t, os.WriteFile(f.schemaPath, schemaData, 0o644))
	return f
}

func setupRouter(t *testing.T, f fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cache, err := services.NewCacheService(context.Background(), "", time.Hour, logger)
	require.NoError(t, err)
	artifacts := services.NewArtifacts(f.dataPath, f.modelPath, f.schemaPath)

	router := gin.New()
	RegisterRoutes(router,
		NewViewsHandler(artifacts, cache, 1<<20, logger),
		NewPredictionHandler(artifacts, 1<<20, logger),
	)
	return router
}

func do(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, fields map[string]string, csv string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if csv != "" {
		part, err := mw.CreateFormFile("file", "upload.csv")
		require.NoError(t, err)
		_, err = io.WriteString(part, csv)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	router := setupRouter(t, newFixture(t, false))
	w := do(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "UP")
}

func TestGetDataset(t *testing.T) {
	router := setupRouter(t, newFixture(t, false))
	w := do(router, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data models.DatasetSummary `json:"data"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 5, resp.Data.RawRows)
	assert.Equal(t, 3, resp.Data.CleanRows)
	assert.Equal(t, []string{"zone_99_count"}, resp.Data.DroppedColumns)
	assert.Equal(t, []string{"Bahnhofstrasse (Mitte)", "Bahnhofstrasse (Nord)"}, resp.Data.Locations)
}

func TestGetViews(t *testing.T) {
	router := setupRouter(t, newFixture(t, false))
	w := do(router, httptest.NewRequest(http.MethodGet, "/api/views", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data models.Views `json:"data"`
	}
	decode(t, w, &resp)
	assert.Len(t, resp.Data.Monthly.Points, 12)
	require.Len(t, resp.Data.Hourly.Points, 2)
	assert.Equal(t, "8", resp.Data.Hourly.Points[0].Label)
	assert.InDelta(t, 75.0, *resp.Data.Hourly.Points[0].Value, 1e-9)
}

func TestGetView(t *testing.T) {
	router := setupRouter(t, newFixture(t, false))

	t.Run("known view", func(t *testing.T) {
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/views/weekend", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data models.View `json:"data"`
		}
		decode(t, w, &resp)
		assert.Equal(t, "weekend", resp.Data.Name)
		require.Len(t, resp.Data.Points, 1)
		assert.Equal(t, "Weekday", resp.Data.Points[0].Label)
	})

	t.Run("pivot view", func(t *testing.T) {
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/views/hourly_by_location", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data models.PivotView `json:"data"`
		}
		decode(t, w, &resp)
		assert.Equal(t, []int{8, 9}, resp.Data.Hours)
		assert.Len(t, resp.Data.Series, 2)
	})

	t.Run("unknown view", func(t *testing.T) {
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/views/daily", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "hourly_by_location")
	})
}

func TestViewsWithoutDataset(t *testing.T) {
	f := newFixture(t, false)
	f.dataPath = filepath.Join(t.TempDir(), "missing.csv")
	router := setupRouter(t, f)

	w := do(router, httptest.NewRequest(http.MethodGet, "/api/views", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUploadViews(t *testing.T) {
	router := setupRouter(t, newFixture(t, false))

	t.Run("valid upload", func(t *testing.T) {
		body, contentType := multipartBody(t, nil, sampleCSV)
		req := httptest.NewRequest(http.MethodPost, "/api/views", body)
		req.Header.Set("Content-Type", contentType)
		w := do(router, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.UploadViewsResponse
		decode(t, w, &resp)
		assert.Equal(t, services.ContentHash([]byte(sampleCSV)), resp.SHA256)
		assert.False(t, resp.Cached)
		assert.Len(t, resp.Data.Locations.Points, 2)
	})

	t.Run("header only", func(t *testing.T) {
		body, contentType := multipartBody(t, nil, "timestamp,location_name,collection_type,pedestrians_count\n")
		req := httptest.NewRequest(http.MethodPost, "/api/views", body)
		req.Header.Set("Content-Type", contentType)
		w := do(router, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp models.UploadViewsResponse
		decode(t, w, &resp)
		assert.Empty(t, resp.Data.Hourly.Points)
		assert.Len(t, resp.Data.Monthly.Points, 12)
	})

	t.Run("no file", func(t *testing.T) {
		w := do(router, httptest.NewRequest(http.MethodPost, "/api/views", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "file")
	})

	t.Run("missing column", func(t *testing.T) {
		body, contentType := multipartBody(t, nil, "timestamp,location_name\n2023-06-05 08:00,Bahnhofstrasse (Mitte)\n")
		req := httptest.NewRequest(http.MethodPost, "/api/views", body)
		req.Header.Set("Content-Type", contentType)
		w := do(router, req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "collection_type")
	})

	t.Run("bad timestamp", func(t *testing.T) {
		csv := "timestamp,location_name,collection_type,pedestrians_count\nsoon,Bahnhofstrasse (Mitte),sensor,1\n"
		body, contentType := multipartBody(t, nil, csv)
		req := httptest.NewRequest(http.MethodPost, "/api/views", body)
		req.Header.Set("Content-Type", contentType)
		w := do(router, req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestUploadTooLarge(t *testing.T) {
	f := newFixture(t, false)
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache, err := services.NewCacheService(context.Background(), "", time.Hour, logger)
	require.NoError(t, err)
	artifacts := services.NewArtifacts(f.dataPath, f.modelPath, f.schemaPath)
	router := gin.New()
	RegisterRoutes(router, NewViewsHandler(artifacts, cache, 16, logger), NewPredictionHandler(artifacts, 16, logger))

	body, contentType := multipartBody(t, nil, sampleCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/views", body)
	req.Header.Set("Content-Type", contentType)
	w := do(router, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReport(t *testing.T) {
	router := setupRouter(t, newFixture(t, false))

	check := func(t *testing.T, w *httptest.ResponseRecorder) {
		t.Helper()
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "footfall_report.xlsx")

		book, err := excelize.OpenReader(w.Body)
		require.NoError(t, err)
		defer book.Close()
		assert.Equal(t, services.ViewNames, book.GetSheetList())
	}

	t.Run("default dataset", func(t *testing.T) {
		check(t, do(router, httptest.NewRequest(http.MethodGet, "/api/report.xlsx", nil)))
	})

	t.Run("upload", func(t *testing.T) {
		body, contentType := multipartBody(t, nil, sampleCSV)
		req := httptest.NewRequest(http.MethodPost, "/api/report.xlsx", body)
		req.Header.Set("Content-Type", contentType)
		check(t, do(router, req))
	})
}

func TestGetOptions(t *testing.T) {
	t.Run("with model", func(t *testing.T) {
		router := setupRouter(t, newFixture(t, true))
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/options", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data services.Options `json:"data"`
		}
		decode(t, w, &resp)
		assert.True(t, resp.Data.PredictionReady)
		assert.Equal(t, []string{"sunny", "rain"}, resp.Data.WeatherValues)
		assert.Len(t, resp.Data.Hours, 24)
	})

	t.Run("without model", func(t *testing.T) {
		router := setupRouter(t, newFixture(t, false))
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/options", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data services.Options `json:"data"`
		}
		decode(t, w, &resp)
		assert.False(t, resp.Data.PredictionReady)
		assert.Equal(t, []string{"Bahnhofstrasse (Mitte)", "Bahnhofstrasse (Nord)"}, resp.Data.DatasetLocations)
	})
}

func manualRequest(overrides map[string]any) *http.Request {
	payload := map[string]any{
		"mode":                "manual",
		"hour":                14,
		"weekday":             0,
		"month":               6,
		"temperature":         21.5,
		"weather":             "sunny",
		"location":            "Bahnhofstrasse (Mitte)",
		"prev_hour_count":     110,
		"prev_hour_count_2":   95,
		"prev_day_same_hour":  130,
		"prev_year_same_hour": 125,
		"rolling_3h":          105,
		"rolling_6h":          100,
		"rolling_24h":         98,
	}
	for k, v := range overrides {
		if v == nil {
			delete(payload, k)
			continue
		}
		payload[k] = v
	}
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestPredictManual(t *testing.T) {
	router := setupRouter(t, newFixture(t, true))

	w := do(router, manualRequest(nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.PredictionResponse
	decode(t, w, &resp)
	assert.Equal(t, 147, resp.Prediction)
	assert.InDelta(t, 5.0, resp.LogPrediction, 1e-9)
	assert.Equal(t, "test-1", resp.ModelVersion)
	assert.Equal(t, models.ModeManual, resp.Mode)
	assert.Equal(t, 1.0, resp.Features["weather_condition_sunny"])
	assert.Equal(t, 1.0, resp.Features["location_name_Bahnhofstrasse (Mitte)"])
	assert.Equal(t, 0.0, resp.Features["location_name_Bahnhofstrasse (Nord)"])
	assert.Equal(t, 0.0, resp.Features["is_weekend"])
	assert.Equal(t, 110.0, resp.Features["prev_hour_count"])
}

func TestPredictWeekendDefault(t *testing.T) {
	router := setupRouter(t, newFixture(t, true))

	w := do(router, manualRequest(map[string]any{"weekday": 6}))
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.PredictionResponse
	decode(t, w, &resp)
	assert.Equal(t, 1.0, resp.Features["is_weekend"])

	w = do(router, manualRequest(map[string]any{"weekday": 6, "is_weekend": false}))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, 0.0, resp.Features["is_weekend"])
}

func TestPredictValidation(t *testing.T) {
	router := setupRouter(t, newFixture(t, true))

	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"hour out of range", map[string]any{"hour": 24}},
		{"weekday out of range", map[string]any{"weekday": 7}},
		{"month missing", map[string]any{"month": nil}},
		{"unknown mode", map[string]any{"mode": "auto"}},
		{"manual without lags", map[string]any{"rolling_24h": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, manualRequest(tt.overrides))
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w := do(router, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPredictModelUnavailable(t *testing.T) {
	router := setupRouter(t, newFixture(t, false))

	w := do(router, manualRequest(nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp map[string]string
	decode(t, w, &resp)
	assert.Equal(t, "prediction unavailable", resp["error"])
	assert.NotEmpty(t, resp["detail"])
}

func TestPredictCSV(t *testing.T) {
	router := setupRouter(t, newFixture(t, true))

	t.Run("default dataset is too short", func(t *testing.T) {
		w := do(router, manualRequest(map[string]any{"mode": "csv"}))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "insufficient history")
	})

	t.Run("uploaded year of history", func(t *testing.T) {
		var csv strings.Builder
		csv.WriteString("timestamp,location_name,collection_type,pedestrians_count\n")
		start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 8760; i++ {
			fmt.Fprintf(&csv, "%s,Bahnhofstrasse (Mitte),sensor,%d\n", start.Add(time.Duration(i)*time.Hour).Format("2006-01-02 15:04:05"), i)
		}

		body, contentType := multipartBody(t, map[string]string{
			"hour":     "0",
			"weekday":  "0",
			"month":    "1",
			"weather":  "rain",
			"location": "Bahnhofstrasse (Mitte)",
		}, csv.String())
		req := httptest.NewRequest(http.MethodPost, "/api/predict", body)
		req.Header.Set("Content-Type", contentType)
		w := do(router, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp models.PredictionResponse
		decode(t, w, &resp)
		assert.Equal(t, models.ModeCSV, resp.Mode)
		assert.Equal(t, 8759.0, resp.Features["prev_hour_count"])
		assert.Equal(t, 8736.0, resp.Features["prev_day_same_hour"])
		assert.Equal(t, 0.0, resp.Features["prev_year_same_hour"])
		assert.Equal(t, 1.0, resp.Features["weather_condition_rain"])
	})
}
