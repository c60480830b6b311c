package errorsx

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
)

func TestErrWrapper(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &ErrWrapper{Failure: FailureConnectionReset}
		if err.Error() != FailureConnectionReset {
			t.Fatal("invalid return value")
		}
	})

	t.Run("Unwrap", func(t *testing.T) {
		err := &ErrWrapper{
			Failure:    FailureEOFError,
			WrappedErr: io.EOF,
		}
		if !errors.Is(err, io.EOF) {
			t.Fatal("cannot unwrap error")
		}
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		wrappedErr := &ErrWrapper{
			Failure:    FailureEOFError,
			WrappedErr: io.EOF,
		}
		data, err := json.Marshal(wrappedErr)
		if err != nil {
			t.Fatal(err)
		}
		s := string(data)
		if s != "\""+FailureEOFError+"\"" {
			t.Fatal("invalid serialization", s)
		}
	})
}

func TestNewErrWrapper(t *testing.T) {
	expectPanic := func(t *testing.T, f func()) {
		var recovered bool
		func() {
			defer func() {
				if recover() != nil {
					recovered = true
				}
			}()
			f()
		}()
		if !recovered {
			t.Fatal("did not panic")
		}
	}

	t.Run("panics if the classifier is nil", func(t *testing.T) {
		expectPanic(t, func() {
			NewErrWrapper(nil, ReadOperation, io.EOF)
		})
	})

	t.Run("panics if the operation is empty", func(t *testing.T) {
		expectPanic(t, func() {
			NewErrWrapper(ClassifyGenericError, "", io.EOF)
		})
	})

	t.Run("panics if the error is nil", func(t *testing.T) {
		expectPanic(t, func() {
			NewErrWrapper(ClassifyGenericError, ReadOperation, nil)
		})
	})

	t.Run("otherwise, works as intended", func(t *testing.T) {
		ew := NewErrWrapper(ClassifyGenericError, ReadOperation, io.EOF)
		if ew.Failure != FailureEOFError {
			t.Fatal("unexpected failure", ew.Failure)
		}
		if ew.Operation != ReadOperation {
			t.Fatal("unexpected operation", ew.Operation)
		}
		if !errors.Is(ew, io.EOF) {
			t.Fatal("unexpected wrapped error", ew.WrappedErr)
		}
	})

	t.Run("keeps the child major operation", func(t *testing.T) {
		child := NewErrWrapper(ClassifyGenericError, TLSHandshakeOperation, io.EOF)
		ew := NewErrWrapper(ClassifyGenericError, ReadOperation, child)
		if ew.Operation != TLSHandshakeOperation {
			t.Fatal("unexpected operation", ew.Operation)
		}
		if ew.Failure != FailureEOFError {
			t.Fatal("unexpected failure", ew.Failure)
		}
	})

	t.Run("replaces a child minor operation", func(t *testing.T) {
		child := NewErrWrapper(ClassifyGenericError, ReadOperation, io.EOF)
		ew := NewErrWrapper(ClassifyGenericError, TLSShutdownOperation, child)
		if ew.Operation != TLSShutdownOperation {
			t.Fatal("unexpected operation", ew.Operation)
		}
	})
}

func TestMaybeNewErrWrapper(t *testing.T) {
	t.Run("with nil error", func(t *testing.T) {
		if MaybeNewErrWrapper(ClassifyGenericError, ReadOperation, nil) != nil {
			t.Fatal("expected nil error")
		}
	})

	t.Run("with non-nil error", func(t *testing.T) {
		err := MaybeNewErrWrapper(ClassifyGenericError, ReadOperation, io.EOF)
		var ew *ErrWrapper
		if !errors.As(err, &ew) {
			t.Fatal("not an ErrWrapper")
		}
	})
}

func TestNewTopLevelGenericErrWrapper(t *testing.T) {
	ew := NewTopLevelGenericErrWrapper(io.EOF)
	if ew.Operation != TopLevelOperation {
		t.Fatal("unexpected operation", ew.Operation)
	}
}
