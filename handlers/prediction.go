package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"footfall-prediction-api/logging"
	"footfall-prediction-api/models"
	"footfall-prediction-api/services"

	"github.com/gin-gonic/gin"
)

type PredictionHandler struct {
	artifacts      *services.Artifacts
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewPredictionHandler(artifacts *services.Artifacts, maxUploadBytes int64, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{artifacts: artifacts, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Predict answers one forecast request. In csv mode the lag features come
// from an uploaded CSV when the multipart request carries one, otherwise
// from the default dataset.
func (h *PredictionHandler) Predict(c *gin.Context) {
	var req models.PredictionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode := req.EffectiveMode()
	if mode == models.ModeManual {
		if missing := req.MissingLags(); len(missing) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "manual mode requires " + strings.Join(missing, ", ")})
			return
		}
	}

	model, err := h.artifacts.Model()
	if err != nil {
		services.ObservePrediction(err)
		respondError(c, err)
		return
	}

	source, ok := h.lagSource(c, req, mode)
	if !ok {
		return
	}

	forecast, err := model.Predict(source, services.UserInputs{
		Hour:        req.Hour,
		Weekday:     req.Weekday,
		IsWeekend:   req.Weekend(),
		Month:       req.Month,
		Temperature: req.Temperature,
		Weather:     req.Weather,
		Location:    req.Location,
	})
	services.ObservePrediction(err)
	if err != nil {
		logging.LogError(h.logger, "prediction failed", err, slog.String("mode", mode))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PredictionResponse{
		Prediction:    forecast.Count,
		LogPrediction: forecast.LogValue,
		ModelVersion:  forecast.Version,
		Mode:          mode,
		Features:      forecast.Features.Map(),
	})
}

func (h *PredictionHandler) lagSource(c *gin.Context, req models.PredictionRequest, mode string) (services.LagSource, bool) {
	if mode == models.ModeManual {
		return services.LagFeatures{
			PrevHourCount:    *req.PrevHourCount,
			PrevHourCount2:   *req.PrevHourCount2,
			PrevDaySameHour:  *req.PrevDaySameHour,
			PrevYearSameHour: *req.PrevYearSameHour,
			Rolling3h:        *req.Rolling3h,
			Rolling6h:        *req.Rolling6h,
			Rolling24h:       *req.Rolling24h,
		}, true
	}

	data, name, present, err := readUpload(c, h.maxUploadBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	var ds *services.Dataset
	if present {
		ds, err = services.RunPipeline(name, data)
	} else {
		ds, err = h.artifacts.Dataset()
	}
	if err != nil {
		services.ObservePrediction(err)
		respondError(c, err)
		return nil, false
	}

	history, err := ds.History()
	if err != nil {
		services.ObservePrediction(err)
		respondError(c, err)
		return nil, false
	}
	return history, true
}
