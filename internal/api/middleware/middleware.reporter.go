package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basehdl "github.com/rugvedkadu06/aggrigator/internal/api/base/handler"
	"github.com/rugvedkadu06/aggrigator/internal/common"
)

const (
	ReporterIDHeader = "X-Reporter-ID"
	ReporterIDQuery  = "reporterId"
	// ReporterIDLocal is the fiber.Locals key holding the parsed primitive.ObjectID.
	// logger.WithRequest reads the same key.
	ReporterIDLocal = "reporterId"
)

// ReporterIdentity propagates the caller's reporter id from the X-Reporter-ID
// header or the reporterId query parameter. It does not authenticate: an absent
// id is allowed, a malformed one is rejected with VAL_001.
func ReporterIdentity() fiber.Handler {
	return func(c fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(ReporterIDHeader))
		if raw == "" {
			raw = strings.TrimSpace(c.Query(ReporterIDQuery))
		}
		if raw == "" {
			return c.Next()
		}

		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return basehdl.HandleErrorResponse(c, common.NewError(
				common.ErrCodeValidationInput,
				"Reporter id is not a valid ObjectID",
				common.StatusBadRequest,
				raw,
			))
		}

		c.Locals(ReporterIDLocal, id)
		return c.Next()
	}
}

// ReporterID returns the id set by ReporterIdentity, if any.
func ReporterID(c fiber.Ctx) (primitive.ObjectID, bool) {
	id, ok := c.Locals(ReporterIDLocal).(primitive.ObjectID)
	return id, ok
}
