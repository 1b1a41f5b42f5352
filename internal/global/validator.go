// Package global holds the process-wide request validator.
package global

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Validate is set by InitValidator.
var Validate *validator.Validate

var initOnce sync.Once

// InitValidator creates Validate and registers the custom rules. Safe to call more than once.
func InitValidator() {
	initOnce.Do(func() {
		Validate = validator.New()
		_ = Validate.RegisterValidation("objectid", validateObjectID)
		_ = Validate.RegisterValidation("no_xss", validateNoXSS)
	})
}

// validateObjectID accepts an empty string (use "required" to forbid it) or a 24 char hex ObjectID.
func validateObjectID(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if v == "" {
		return true
	}
	return primitive.IsValidObjectID(v)
}

func validateNoXSS(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())
	for _, pattern := range []string{"<script", "javascript:", "onerror=", "onload=", "<iframe", "document.cookie"} {
		if strings.Contains(value, pattern) {
			return false
		}
	}
	return true
}
