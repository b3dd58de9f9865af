package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/ab-compare/internal/endpoints"
	"github.com/example/ab-compare/internal/usecase"
)

// MaxUploadSize caps the /compare request body in bytes.
const MaxUploadSize = 10_000_000

const requestIDHeader = "X-Request-ID"

// Comparer runs one A/B comparison.
type Comparer interface {
	Compare(ctx context.Context, image []byte, override endpoints.Update) (string, *usecase.CompareResponse)
}

// URLStore reads and updates the configured backend URLs.
type URLStore interface {
	Get() endpoints.URLs
	Apply(u endpoints.Update) endpoints.URLs
}

// StatsReader exposes the comparison counters.
type StatsReader interface {
	Summary() usecase.StatsSummary
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, uc Comparer, store URLStore, stats StatsReader) {
	router.GET("/health", func(c *gin.Context) {
		urls := store.Get()
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"model_a_url": urls.ModelA,
			"model_b_url": urls.ModelB,
		})
	})

	router.POST("/config", func(c *gin.Context) {
		var update endpoints.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}

		urls := store.Apply(update)
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"model_a_url": urls.ModelA,
			"model_b_url": urls.ModelB,
		})
	})

	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, stats.Summary())
	})

	router.POST("/compare", limitBody(MaxUploadSize), func(c *gin.Context) {
		file, err := imagePart(c)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
			return
		}

		var override endpoints.Update
		if v := c.PostForm("model_a_url"); v != "" {
			override.ModelA = &v
		}
		if v := c.PostForm("model_b_url"); v != "" {
			override.ModelB = &v
		}

		requestID, resp := uc.Compare(c.Request.Context(), data, override)
		c.Header(requestIDHeader, requestID)
		c.JSON(http.StatusOK, resp)
	})
}

// imagePart returns the "image" file field, or the first file part when the
// client used another field name.
func imagePart(c *gin.Context) (*multipart.FileHeader, error) {
	file, err := c.FormFile("image")
	if err == nil {
		return file, nil
	}
	if !errors.Is(err, http.ErrMissingFile) || c.Request.MultipartForm == nil {
		return nil, err
	}

	names := make([]string, 0, len(c.Request.MultipartForm.File))
	for name, files := range c.Request.MultipartForm.File {
		if len(files) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, http.ErrMissingFile
	}
	sort.Strings(names)
	return c.Request.MultipartForm.File[names[0]][0], nil
}

func limitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// AccessLog writes one structured line per request.
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if id := c.Writer.Header().Get(requestIDHeader); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request handled", fields...)
			return
		}
		logger.Info("request handled", fields...)
	}
}
