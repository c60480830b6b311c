package runtimex

import (
	"errors"
	"testing"

	"github.com/ooni/sslclient/internal/model/mocks"
)

// recoverError runs f and returns the error it panicked with, if any.
func recoverError(f func()) (out error) {
	defer func() {
		if r := recover(); r != nil {
			out = r.(error)
		}
	}()
	f()
	return
}

func TestAssert(t *testing.T) {
	t.Run("assertion is true", func(t *testing.T) {
		Assert(true, "antani")
	})

	t.Run("assertion is false", func(t *testing.T) {
		var recovered interface{}
		func() {
			defer func() {
				recovered = recover()
			}()
			Assert(false, "antani")
		}()
		if recovered != "antani" {
			t.Fatal("unexpected panic value", recovered)
		}
	})
}

func TestTry(t *testing.T) {
	t.Run("Try0 does not panic on success", func(t *testing.T) {
		Try0(nil)
	})

	t.Run("Try1 returns the value on success", func(t *testing.T) {
		if Try1(17, nil) != 17 {
			t.Fatal("unexpected value")
		}
	})

	t.Run("Try1 panics on failure", func(t *testing.T) {
		expected := errors.New("mocked error")
		err := recoverError(func() {
			Try1(17, expected)
		})
		if !errors.Is(err, expected) || !errors.Is(err, ErrTry) {
			t.Fatal("not the error we expected", err)
		}
	})
}

func TestCatchLogAndIgnorePanic(t *testing.T) {
	var called bool
	logger := &mocks.Logger{
		MockWarnf: func(format string, v ...interface{}) {
			called = true
		},
	}
	func() {
		defer CatchLogAndIgnorePanic(logger, "antani")
		panic("mascetti")
	}()
	if !called {
		t.Fatal("not called")
	}
}
