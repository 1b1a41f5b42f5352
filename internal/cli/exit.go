// Package cli implements syncctl, the one-shot report view sync command.
package cli

import (
	"errors"
	"fmt"

	"github.com/rugvedkadu06/aggrigator/internal/common"
)

// Exit codes. Sync failures get one code per stage so scripts can tell them apart.
const (
	ExitSuccess           = 0
	ExitFailure           = 1 // configuration, invalid input, anything unclassified
	ExitStoreUnreachable  = 2 // SYNC_001
	ExitJoinFailed        = 3 // SYNC_002
	ExitMaterializeFailed = 4 // SYNC_003
	ExitBusy              = 5 // SYNC_004
)

var exitCodes = map[string]int{
	common.ErrCodeSyncStoreUnreachable.Code: ExitStoreUnreachable,
	common.ErrCodeSyncJoin.Code:             ExitJoinFailed,
	common.ErrCodeSyncMaterialize.Code:      ExitMaterializeFailed,
	common.ErrCodeSyncBusy.Code:             ExitBusy,
}

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// syncExitError maps a sync failure to its exit code.
func syncExitError(err error) *ExitError {
	code := ExitFailure
	var e *common.Error
	if errors.As(err, &e) {
		if c, ok := exitCodes[e.Code.Code]; ok {
			code = c
		}
	}
	return WrapExitError(code, "report view sync failed", err)
}

// GetExitCode returns the exit code for err: ExitSuccess for nil, ExitFailure
// when err carries none.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
