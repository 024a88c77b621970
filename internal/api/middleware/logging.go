package middleware

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// LoggingMiddleware is a middleware for logging requests and responses
type LoggingMiddleware struct{}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware() LoggingMiddleware {
	return LoggingMiddleware{}
}

// Handle handles the logging middleware
func (m LoggingMiddleware) Handle(next APIGatewayHandler) APIGatewayHandler {
	return func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		startTime := time.Now()

		logger.Info("request",
			zap.String("method", request.HTTPMethod),
			zap.String("path", request.Path),
			zap.String("requestId", request.RequestContext.RequestID),
			zap.Any("queryParameters", request.QueryStringParameters))
		if request.Body != "" {
			logger.Debug("request body", zap.String("body", request.Body))
		}

		response, err := next(ctx, logger, request)

		fields := []zap.Field{
			zap.Int("status", response.StatusCode),
			zap.Duration("duration", time.Since(startTime)),
			zap.String("requestId", request.RequestContext.RequestID),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		logger.Info("response", fields...)

		return response, err
	}
}
