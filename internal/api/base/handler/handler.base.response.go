package basehdl

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/rugvedkadu06/aggrigator/internal/common"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

// JSONResponse writes data as JSON with an explicit utf-8 charset.
func JSONResponse(c fiber.Ctx, statusCode int, data any) error {
	c.Set("Content-Type", "application/json; charset=utf-8")
	return c.Status(statusCode).JSON(data)
}

// SafeHandlerWrapper runs fn and turns a panic into a SYS_001 response.
func SafeHandlerWrapper(c fiber.Ctx, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorWithRequest(c).WithField("panic", r).Error("Handler panic recovered")
			err = HandleErrorResponse(c, common.NewError(
				common.ErrCodeInternalServer,
				fmt.Sprintf("Unexpected system error: %v", r),
				common.StatusInternalServerError,
				nil,
			))
		}
	}()
	return fn()
}

// HandleResponse writes the standard envelope: {code, message, data, status}
// on success or the error payload when err is non-nil.
func HandleResponse(c fiber.Ctx, data any, err error) error {
	if err != nil {
		return HandleErrorResponse(c, err)
	}
	return JSONResponse(c, common.StatusOK, fiber.Map{
		"code":    common.StatusOK,
		"message": common.MsgSuccess,
		"data":    data,
		"status":  "success",
	})
}

// HandleErrorResponse writes {code, message, details, status:"error"}. Errors that
// are not *common.Error become a 500 with the generic system code.
func HandleErrorResponse(c fiber.Ctx, err error) error {
	var customErr *common.Error
	if errors.As(err, &customErr) {
		return JSONResponse(c, customErr.StatusCode, fiber.Map{
			"code":    customErr.Code.Code,
			"message": customErr.Message,
			"details": detailsPayload(customErr.Details),
			"status":  "error",
		})
	}
	return JSONResponse(c, common.StatusInternalServerError, fiber.Map{
		"code":    common.ErrCodeInternalServer.Code,
		"message": err.Error(),
		"status":  "error",
	})
}

// errors marshal to {} so they are sent as their message.
func detailsPayload(details any) any {
	if err, ok := details.(error); ok {
		return err.Error()
	}
	return details
}
