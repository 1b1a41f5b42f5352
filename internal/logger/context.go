package logger

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for values this package reads from a context.
type ContextKey string

const (
	RequestIDKey ContextKey = "requestID"
	RunIDKey     ContextKey = "runID"
)

// ContextFields returns the request and run ids found in ctx.
func ContextFields(ctx context.Context) logrus.Fields {
	fields := logrus.Fields{}
	if v := ctx.Value(RequestIDKey); v != nil {
		fields["request_id"] = v
	}
	if v := ctx.Value(RunIDKey); v != nil {
		fields["run_id"] = v
	}
	return fields
}

// WithContext returns an app logger entry carrying the ids found in ctx.
func WithContext(ctx context.Context) *logrus.Entry {
	return GetAppLogger().WithContext(ctx).WithFields(ContextFields(ctx))
}

// RequestID returns the id the requestid middleware assigned, falling back to
// the request and response headers.
func RequestID(c fiber.Ctx) string {
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		return rid
	}
	if rid := c.Get("X-Request-ID"); rid != "" {
		return rid
	}
	return c.GetRespHeader("X-Request-ID")
}

// RequestFields describes a Fiber request: method, path, ip, request id and,
// when known, the reporter.
func RequestFields(c fiber.Ctx) logrus.Fields {
	fields := logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
		"ip":     c.IP(),
	}
	if rid := RequestID(c); rid != "" {
		fields["request_id"] = rid
	}
	if id, ok := c.Locals("reporterId").(interface{ Hex() string }); ok {
		fields["reporter_id"] = id.Hex()
	}
	return fields
}

// WithRequest returns an app logger entry for a Fiber request.
func WithRequest(c fiber.Ctx) *logrus.Entry {
	return GetAppLogger().WithFields(RequestFields(c))
}

// ErrorWithRequest returns an error logger entry for a Fiber request.
func ErrorWithRequest(c fiber.Ctx) *logrus.Entry {
	return GetErrorLogger().WithFields(RequestFields(c))
}

// WithModule tags the entry with a module name (sync, listing, materialize, ...).
func WithModule(module string) *logrus.Entry {
	return GetAppLogger().WithField("module", module)
}

// WithCollection tags the entry with a MongoDB collection name.
func WithCollection(collection string) *logrus.Entry {
	return GetAppLogger().WithField("collection", collection)
}

func WithModuleAndCollection(module, collection string) *logrus.Entry {
	return GetAppLogger().WithFields(logrus.Fields{
		"module":     module,
		"collection": collection,
	})
}
