// Package runtimex contains runtime extensions. This package is inspired to
// https://pkg.go.dev/github.com/m-lab/go/rtx, except that it's simpler.
package runtimex

import (
	"errors"
	"fmt"

	"github.com/ooni/sslclient/internal/model"
)

// Assert calls panic if assertion is false.
func Assert(assertion bool, message string) {
	if !assertion {
		panic(message)
	}
}

// ErrTry is the error wrapped by the panics of the TryN functions.
var ErrTry = errors.New("runtimex: try failed")

// Try0 calls panic if err is not nil.
func Try0(err error) {
	if err != nil {
		panic(fmt.Errorf("%w: %w", ErrTry, err))
	}
}

// Try1 is like Try0 but supports functions returning one value and an error.
func Try1[T1 any](v1 T1, err error) T1 {
	Try0(err)
	return v1
}

// CatchLogAndIgnorePanic is a function that catches and ignores panics. You
// can invoke this function as follows:
//
//	defer runtimex.CatchLogAndIgnorePanic(logger, "prefix")
//
// and rest assured that any panic will not propagate further. This function
// will use the given logger and prefix to log the panic.
func CatchLogAndIgnorePanic(logger model.Logger, prefix string) {
	if r := recover(); r != nil {
		logger.Warnf("%s: caught panic: %+v", prefix, r)
	}
}
