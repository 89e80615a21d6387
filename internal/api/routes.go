package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/speaklab/domain"
)

// ServiceName is reported by the health check
const ServiceName = "speaklab-server"

// Transcriber turns an uploaded recording into a response payload
type Transcriber interface {
	Transcribe(ctx context.Context, submission domain.Submission) (*domain.TranscriptionResult, error)
}

// RouteConfig holds the HTTP surface settings
type RouteConfig struct {
	// BodyLimit caps the transcribe request body, e.g. "25M".
	BodyLimit string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, transcriber Transcriber, config RouteConfig, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: ServiceName,
		})
	})

	if config.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(config.Metrics))
	}

	// API v1 routes
	v1 := e.Group("/api/v1")

	var transcribeMiddleware []echo.MiddlewareFunc
	if config.BodyLimit != "" {
		transcribeMiddleware = append(transcribeMiddleware, middleware.BodyLimit(config.BodyLimit))
	}

	v1.POST("/transcribe", func(c echo.Context) error {
		return transcribe(c, transcriber, logger)
	}, transcribeMiddleware...)
}

func transcribe(c echo.Context, transcriber Transcriber, logger *zap.Logger) error {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return he
		}
		logger.Warn("Transcribe request without audio", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_audio",
			Message: "No audio file",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded audio", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_audio",
			Message: "Uploaded audio could not be read",
		})
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		logger.Error("Failed to read uploaded audio", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_audio",
			Message: "Uploaded audio could not be read",
		})
	}

	submission := domain.Submission{
		TaskID:      c.FormValue("taskId"),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(echo.HeaderContentType),
		Audio:       audio,
	}

	result, err := transcriber.Transcribe(c.Request().Context(), submission)
	if err != nil {
		logger.Error("Transcription error",
			zap.String("taskID", submission.TaskID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "transcription_failed",
			Message: "Transcription failed",
		})
	}

	return c.JSON(http.StatusOK, result.Payload())
}

// HTTPRecorder receives one observation per served request
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// RequestLogger logs every request through zap and, when recorder is set,
// records it as a metric.
func RequestLogger(logger *zap.Logger, recorder HTTPRecorder) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Error("Request failed", append(fields, zap.Error(v.Error))...)
			} else {
				logger.Info("Request served", fields...)
			}

			if recorder != nil {
				route := v.RoutePath
				if route == "" {
					route = "unmatched"
				}
				recorder.RecordHTTPRequest(v.Method, route, v.Status, v.Latency)
			}
			return nil
		},
	})
}
