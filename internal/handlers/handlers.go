package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/imagegate/internal/repository"
	"github.com/example/imagegate/internal/usecase"
)

// MaxUploadSize caps accepted image payloads. Larger files are the upstream
// client's problem to shrink; the validator never sees them.
const MaxUploadSize = 10 << 20

// UploadService is the slice of the use case the HTTP layer depends on.
type UploadService interface {
	Upload(ctx context.Context, filename, category string, imageBytes []byte) (*usecase.UploadResult, error)
	GetResult(ctx context.Context, requestID string) (*repository.ValidationLog, error)
	GetDuplicateReport(ctx context.Context, requestID string) (*usecase.DuplicateReport, error)
	GetMetricsSummary(ctx context.Context) (*usecase.MetricsSummary, error)
}

// RegisterRoutes wires the gateway endpoints to the Gin router.
func RegisterRoutes(router *gin.Engine, svc UploadService) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/uploads", func(c *gin.Context) {
		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}
		if file.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 10MB limit"})
			return
		}
		if contentType := file.Header.Get("Content-Type"); contentType != "" && !strings.HasPrefix(contentType, "image/") {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only image uploads are accepted"})
			return
		}

		category := c.PostForm("category")
		if category == "" {
			category = "other"
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
			return
		}
		if len(data) > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 10MB limit"})
			return
		}

		result, err := svc.Upload(c.Request.Context(), file.Filename, category, data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload processing failed"})
			return
		}

		if !result.Accepted {
			c.JSON(http.StatusBadRequest, gin.H{
				"request_id": result.RequestID,
				"accepted":   false,
				"reason":     result.Reason,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id": result.RequestID,
			"accepted":   true,
			"url":        result.URL,
		})
	})

	router.GET("/validations/:id", func(c *gin.Context) {
		requestID := c.Param("id")
		log, err := svc.GetResult(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "validation not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id": log.RequestID,
			"category":   log.Category,
			"accepted":   log.Accepted,
			"reason":     log.Reason,
			"stage":      log.Stage,
			"url":        log.ImageURL,
			"created_at": log.CreatedAt,
		})
	})

	router.GET("/validations/:id/duplicates", func(c *gin.Context) {
		requestID := c.Param("id")
		report, err := svc.GetDuplicateReport(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "validation not found"})
			return
		}

		duplicates := make([]gin.H, 0, len(report.Duplicates))
		for _, dup := range report.Duplicates {
			duplicates = append(duplicates, gin.H{
				"request_id": dup.RequestID,
				"category":   dup.Category,
				"accepted":   dup.Accepted,
				"created_at": dup.CreatedAt,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id": report.Request.RequestID,
			"sha1_hash":  report.Request.SHA1Hash,
			"duplicates": duplicates,
		})
	})

	router.GET("/metrics/summary", func(c *gin.Context) {
		summary, err := svc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate metrics"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}
