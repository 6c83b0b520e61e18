package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(router *gin.Engine, views *ViewsHandler, predictions *PredictionHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "Footfall Prediction API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/dataset", views.GetDataset)
	api.GET("/views", views.GetViews)
	api.GET("/views/:name", views.GetView)
	api.POST("/views", views.UploadViews)
	api.GET("/report.xlsx", views.GetReport)
	api.POST("/report.xlsx", views.UploadReport)
	api.GET("/options", views.GetOptions)
	api.POST("/predict", predictions.Predict)
}
