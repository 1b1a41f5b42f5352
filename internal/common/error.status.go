package common

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// HTTP Status Code Constants
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusConflict            = 409
	StatusTooManyRequests     = 429
	StatusInternalServerError = 500
	StatusServiceUnavailable  = 503
)

// Response Messages
const (
	MsgSuccess       = "OK"
	MsgBadRequest    = "Invalid request"
	MsgDatabaseError = "Database error"
)

// ErrorCode is a hierarchical error code (category + sub-category).
type ErrorCode struct {
	Code        string // e.g. SYNC_001
	Category    string // e.g. Sync
	SubCategory string // e.g. Store
	Description string
}

var (
	ErrCodeInternalServer = ErrorCode{Code: "SYS_001", Category: "System", SubCategory: "Internal", Description: "Internal system error"}

	ErrCodeValidationInput  = ErrorCode{Code: "VAL_001", Category: "Validation", SubCategory: "Input", Description: "Invalid input"}
	ErrCodeValidationFormat = ErrorCode{Code: "VAL_002", Category: "Validation", SubCategory: "Format", Description: "Invalid data format"}

	ErrCodeDatabase           = ErrorCode{Code: "DB", Category: "Database", SubCategory: "General", Description: "Generic database error"}
	ErrCodeDatabaseConnection = ErrorCode{Code: "DB_001", Category: "Database", SubCategory: "Connection", Description: "Database connection error"}
	ErrCodeDatabaseQuery      = ErrorCode{Code: "DB_002", Category: "Database", SubCategory: "Query", Description: "Database query error"}

	// Sync pipeline codes. Each outcome of a sync or listing call maps to exactly one of these.
	ErrCodeSyncStoreUnreachable = ErrorCode{Code: "SYNC_001", Category: "Sync", SubCategory: "Store", Description: "Source or target store unreachable"}
	ErrCodeSyncJoin             = ErrorCode{Code: "SYNC_002", Category: "Sync", SubCategory: "Join", Description: "Join stage failed"}
	ErrCodeSyncMaterialize      = ErrorCode{Code: "SYNC_003", Category: "Sync", SubCategory: "Materialize", Description: "Materialize stage failed"}
	ErrCodeSyncBusy             = ErrorCode{Code: "SYNC_004", Category: "Sync", SubCategory: "Concurrency", Description: "A sync is already running"}
	ErrCodeSyncNotReady         = ErrorCode{Code: "SYNC_005", Category: "Sync", SubCategory: "Snapshot", Description: "No complete snapshot available"}
)

// Error is the error type returned across service and handler boundaries.
type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    any
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on error code and message so that sentinel errors compare equal
// after being copied with different Details.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code.Code == t.Code.Code && e.Message == t.Message
}

// Unwrap exposes Details when it carries the underlying error.
func (e *Error) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

// NewError builds an *Error.
func NewError(code ErrorCode, message string, statusCode int, details any) error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

var (
	ErrInvalidInput  = NewError(ErrCodeValidationInput, "Invalid input", StatusBadRequest, nil)
	ErrRequiredField = NewError(ErrCodeValidationInput, "Missing required field", StatusBadRequest, nil)

	ErrNotFound = NewError(ErrCodeDatabaseQuery, "No data found", StatusNotFound, nil)

	ErrMongoNetwork = NewError(ErrCodeDatabaseConnection, "MongoDB network error", StatusServiceUnavailable, nil)
	ErrMongoTimeout = NewError(ErrCodeDatabaseConnection, "MongoDB timeout", StatusServiceUnavailable, nil)
	ErrMongoQuery   = NewError(ErrCodeDatabaseQuery, "MongoDB query error", StatusInternalServerError, nil)
	ErrMongoWrite   = NewError(ErrCodeDatabaseQuery, "MongoDB write error", StatusInternalServerError, nil)
	ErrMongoSystem  = NewError(ErrCodeDatabase, "MongoDB system error", StatusInternalServerError, nil)

	ErrSyncInProgress  = NewError(ErrCodeSyncBusy, "A report view sync is already running", StatusConflict, nil)
	ErrMaterializeBusy = NewError(ErrCodeSyncBusy, "The report view collection is locked by another writer", StatusConflict, nil)
	// The distributed lock expired or was taken over while a run held it.
	ErrMaterializeLockLost = NewError(ErrCodeSyncMaterialize, "The report view lock was lost during the run", StatusInternalServerError, nil)
	// The staging collection does not hold every view written to it.
	ErrStagingIncomplete = NewError(ErrCodeSyncMaterialize, "The staging collection is incomplete", StatusInternalServerError, nil)
	ErrSnapshotNotReady  = NewError(ErrCodeSyncNotReady, "No complete report view snapshot is available yet", StatusServiceUnavailable, nil)
)

// WithDetails returns a copy of a sentinel *Error carrying details.
// Non-*Error values are returned unchanged.
func WithDetails(err error, details any) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Details = details
	return &cp
}

// ConvertMongoError maps a driver error onto the package's error values.
// The driver error is kept in Details so callers can still inspect it.
func ConvertMongoError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if IsConnectivityError(err) {
		if mongo.IsTimeout(err) {
			return WithDetails(ErrMongoTimeout, err)
		}
		return WithDetails(ErrMongoNetwork, err)
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch {
		case cmdErr.Code >= 400 && cmdErr.Code < 500:
			return WithDetails(ErrMongoWrite, err)
		case cmdErr.Code >= 500:
			return WithDetails(ErrMongoSystem, err)
		default:
			return WithDetails(ErrMongoQuery, err)
		}
	}
	var writeErr mongo.WriteException
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &writeErr) || errors.As(err, &bulkErr) {
		return WithDetails(ErrMongoWrite, err)
	}

	return NewError(ErrCodeDatabase, MsgDatabaseError, StatusInternalServerError, err)
}

// IsConnectivityError reports whether err means a store could not be reached.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) && (e.Code.Code == ErrCodeDatabaseConnection.Code || e.Code.Code == ErrCodeSyncStoreUnreachable.Code) {
		return true
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	if errors.Is(err, mongo.ErrClientDisconnected) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Server selection and redis dial errors carry no exported type to match on.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "server selection error") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no reachable servers")
}
