package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/api/response"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// RecoveryMiddleware turns panics and returned errors into the standard
// error envelope, so the lambda itself never fails a request.
type RecoveryMiddleware struct{}

// NewRecoveryMiddleware creates a new recovery middleware
func NewRecoveryMiddleware() RecoveryMiddleware {
	return RecoveryMiddleware{}
}

// Handle handles the recovery middleware
func (m RecoveryMiddleware) Handle(next APIGatewayHandler) APIGatewayHandler {
	return func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				appErr := errors.NewInternalError("an unexpected error occurred", fmt.Errorf("panic: %v", r))
				resp = response.Error(appErr, request.RequestContext.RequestID)
				err = nil
			}
		}()

		resp, err = next(ctx, logger, request)
		if err == nil {
			return resp, nil
		}

		appErr, ok := err.(errors.AppError)
		if !ok {
			appErr = errors.NewInternalError("an unexpected error occurred", err)
		}
		if appErr.StatusCode >= 500 {
			logger.Error("request failed", zap.String("code", appErr.Code), zap.Error(err))
		} else {
			logger.Debug("request rejected", zap.String("code", appErr.Code), zap.Error(err))
		}

		return response.Error(appErr, request.RequestContext.RequestID), nil
	}
}
