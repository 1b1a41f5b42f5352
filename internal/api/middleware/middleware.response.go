package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	basehdl "github.com/rugvedkadu06/aggrigator/internal/api/base/handler"
	"github.com/rugvedkadu06/aggrigator/internal/common"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

// ErrorHandler is the fiber.Config ErrorHandler: *fiber.Error keeps its status,
// everything else goes through the standard error envelope.
func ErrorHandler(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := common.ErrCodeInternalServer.Code
		switch {
		case fe.Code == common.StatusTooManyRequests:
			code = "RATE_LIMIT"
		case fe.Code < 500:
			code = common.ErrCodeValidationInput.Code
		}
		return basehdl.JSONResponse(c, fe.Code, fiber.Map{
			"code":    code,
			"message": fe.Message,
			"status":  "error",
		})
	}

	logger.ErrorWithRequest(c).WithError(err).Error("Unhandled request error")
	return basehdl.HandleErrorResponse(c, err)
}
