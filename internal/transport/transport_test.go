package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/sslclient/internal/errorsx"
	"github.com/ooni/sslclient/internal/model"
)

func TestConn(t *testing.T) {
	t.Run("Send and Recv", func(t *testing.T) {
		left, right := net.Pipe()
		defer left.Close()
		defer right.Close()
		txp := New(left, 0)
		go func() {
			buffer := make([]byte, 4)
			count, _ := right.Read(buffer)
			right.Write(buffer[:count])
		}()
		if err := txp.Send([]byte("ping")); err != nil {
			t.Fatal(err)
		}
		data, err := txp.Recv(1024)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]byte("ping"), data); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Recv returns an empty slice on EOF", func(t *testing.T) {
		left, right := net.Pipe()
		defer left.Close()
		right.Close()
		data, err := New(left, 0).Recv(1024)
		if err != nil {
			t.Fatal(err)
		}
		if len(data) != 0 {
			t.Fatal("expected empty data")
		}
	})

	t.Run("Recv honours the receive timeout", func(t *testing.T) {
		left, right := net.Pipe()
		defer left.Close()
		defer right.Close()
		_, err := New(left, 10*time.Millisecond).Recv(1024)
		var ew *errorsx.ErrWrapper
		if !errors.As(err, &ew) {
			t.Fatal("expected an ErrWrapper", err)
		}
		if ew.Failure != errorsx.FailureGenericTimeoutError || ew.Operation != errorsx.ReadOperation {
			t.Fatal("unexpected wrapper", ew.Failure, ew.Operation)
		}
	})

	t.Run("Send wraps errors", func(t *testing.T) {
		left, right := net.Pipe()
		right.Close()
		txp := New(left, 0)
		defer txp.Close()
		err := txp.Send([]byte("ping"))
		var ew *errorsx.ErrWrapper
		if !errors.As(err, &ew) || ew.Operation != errorsx.WriteOperation {
			t.Fatal("unexpected err", err)
		}
	})
}

func TestDial(t *testing.T) {
	t.Run("on success", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer listener.Close()
		conn, err := Dial(context.Background(), model.DiscardLogger, "tcp", listener.Addr().String())
		if err != nil {
			t.Fatal(err)
		}
		conn.Close()
	})

	t.Run("on failure", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		address := listener.Addr().String()
		listener.Close()
		conn, err := Dial(context.Background(), model.DiscardLogger, "tcp", address)
		if conn != nil {
			t.Fatal("expected nil conn")
		}
		var ew *errorsx.ErrWrapper
		if !errors.As(err, &ew) || ew.Operation != errorsx.ConnectOperation {
			t.Fatal("unexpected err", err)
		}
	})
}
