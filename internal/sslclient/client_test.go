package sslclient

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/sslclient/internal/errorsx"
	"github.com/ooni/sslclient/internal/keylog"
	"github.com/ooni/sslclient/internal/model"
	"github.com/ooni/sslclient/internal/model/mocks"
)

// engineState is the state shared by a mocked engine.
type engineState struct {
	freed    int
	inbound  []byte
	outbound []byte
}

// newMockedEngine returns an engine that buffers outbound and inbound
// ciphertext and whose handshake immediately succeeds.
func newMockedEngine() (*mocks.Engine, *engineState) {
	state := &engineState{}
	engine := &mocks.Engine{
		MockStepHandshake: func() (model.HandshakeResult, error) {
			return model.HandshakeSuccess, nil
		},
		MockPendingOutbound: func() int {
			return len(state.outbound)
		},
		MockDrainOutbound: func(n int) []byte {
			out := state.outbound[:n]
			state.outbound = state.outbound[n:]
			return out
		},
		MockFeedInbound: func(data []byte) {
			state.inbound = append(state.inbound, data...)
		},
		MockFree: func() {
			state.freed++
		},
		MockSetServerName: func(name string) error {
			return nil
		},
		MockCipherSuite: func() (model.CipherSuite, bool) {
			return model.CipherSuite{ID: 0xc02f, Name: "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256", Bits: 128}, true
		},
		MockVersionCode: func() uint16 {
			return 0x0303
		},
		MockShutdown: func() error {
			return nil
		},
		MockSecrets: func() ([]byte, []byte, error) {
			return nil, nil, model.ErrNoSecrets
		},
	}
	return engine, state
}

// transportState records what happens to a mocked transport.
type transportState struct {
	recvs int
	sent  []byte
}

// newMockedTransport returns a transport that returns the given
// chunks and then an empty chunk meaning EOF.
func newMockedTransport(chunks ...[]byte) (*mocks.Transport, *transportState) {
	state := &transportState{}
	txp := &mocks.Transport{
		MockSend: func(data []byte) error {
			state.sent = append(state.sent, data...)
			return nil
		},
		MockRecv: func(maxLen int) ([]byte, error) {
			state.recvs++
			if maxLen != recvChunkSize {
				panic("unexpected maxLen")
			}
			if len(chunks) <= 0 {
				return []byte{}, nil
			}
			chunk := chunks[0]
			chunks = chunks[1:]
			return chunk, nil
		},
	}
	return txp, state
}

// newTestClient creates a client using the given transport and engine.
func newTestClient(t *testing.T, txp model.Transport, engine model.Engine) *Client {
	client, err := newClient(txp, &Config{}, engine)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

// newConnectedClient returns a client with a completed handshake.
func newConnectedClient(t *testing.T, txp model.Transport, engine model.Engine) *Client {
	client := newTestClient(t, txp, engine)
	if err := client.Handshake(); err != nil {
		t.Fatal(err)
	}
	return client
}

func TestClientHandshake(t *testing.T) {
	t.Run("on success", func(t *testing.T) {
		engine, es := newMockedEngine()
		var steps int
		engine.MockStepHandshake = func() (model.HandshakeResult, error) {
			steps++
			switch steps {
			case 1:
				es.outbound = append(es.outbound, "client_hello"...)
				return model.HandshakeNeedsInput, nil
			default:
				if string(es.inbound) != "server_hello" {
					t.Fatal("unexpected inbound", string(es.inbound))
				}
				es.outbound = append(es.outbound, "finished"...)
				return model.HandshakeSuccess, nil
			}
		}
		txp, ts := newMockedTransport([]byte("server_hello"))
		client := newTestClient(t, txp, engine)
		if client.State() != StateNotStarted {
			t.Fatal("unexpected state", client.State())
		}
		if err := client.Handshake(); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff("client_hellofinished", string(ts.sent)); diff != "" {
			t.Fatal(diff)
		}
		if client.State() != StateCompleted || !client.IsHandshakeCompleted() {
			t.Fatal("unexpected state", client.State())
		}
		// the handshake is not performed again
		if err := client.Handshake(); err != nil || steps != 2 {
			t.Fatal("unexpected result", err, steps)
		}
	})

	t.Run("when the peer closes the connection during the handshake", func(t *testing.T) {
		engine, es := newMockedEngine()
		engine.MockStepHandshake = func() (model.HandshakeResult, error) {
			es.outbound = append(es.outbound, "client_hello"...)
			return model.HandshakeNeedsInput, nil
		}
		txp, ts := newMockedTransport()
		client := newTestClient(t, txp, engine)
		err := client.Handshake()
		if !errors.Is(err, ErrPeerClosedDuringHandshake) {
			t.Fatal("unexpected error", err)
		}
		var ew *errorsx.ErrWrapper
		if !errors.As(err, &ew) {
			t.Fatal("expected an ErrWrapper")
		}
		if ew.Failure != errorsx.FailureEOFError || ew.Operation != errorsx.TLSHandshakeOperation {
			t.Fatal("unexpected wrapper", ew.Failure, ew.Operation)
		}
		if client.State() != StateFailed || client.IsHandshakeCompleted() {
			t.Fatal("unexpected state", client.State())
		}
		if ts.recvs != 1 {
			t.Fatal("unexpected number of receives", ts.recvs)
		}
		// the error is sticky and we don't touch the network again
		if err2 := client.Handshake(); err2 != err || ts.recvs != 1 {
			t.Fatal("unexpected result", err2, ts.recvs)
		}
	})

	t.Run("when the peer requests a client certificate", func(t *testing.T) {
		expected := []string{"/C=IT/O=Example/CN=Example CA"}
		engine, _ := newMockedEngine()
		engine.MockStepHandshake = func() (model.HandshakeResult, error) {
			return model.HandshakeNeedsPeerIdentity, nil
		}
		engine.MockClientCAList = func() []string {
			return expected
		}
		txp, _ := newMockedTransport()
		client := newTestClient(t, txp, engine)
		err := client.Handshake()
		var ccr *ClientCertificateRequestedError
		if !errors.As(err, &ccr) {
			t.Fatal("unexpected error", err)
		}
		if diff := cmp.Diff(expected, ccr.CAList); diff != "" {
			t.Fatal(diff)
		}
		if client.State() != StateFailed {
			t.Fatal("unexpected state", client.State())
		}
	})

	t.Run("when the engine fails", func(t *testing.T) {
		expected := errors.New("mocked error")
		engine, _ := newMockedEngine()
		engine.MockStepHandshake = func() (model.HandshakeResult, error) {
			return 0, expected
		}
		txp, _ := newMockedTransport()
		client := newTestClient(t, txp, engine)
		err := client.Handshake()
		if !errors.Is(err, expected) {
			t.Fatal("unexpected error", err)
		}
		if client.State() != StateFailed {
			t.Fatal("unexpected state", client.State())
		}
	})

	t.Run("when the transport fails", func(t *testing.T) {
		expected := errors.New("mocked error")
		engine, es := newMockedEngine()
		engine.MockStepHandshake = func() (model.HandshakeResult, error) {
			es.outbound = append(es.outbound, "client_hello"...)
			return model.HandshakeNeedsInput, nil
		}

		t.Run("on send", func(t *testing.T) {
			txp, _ := newMockedTransport()
			txp.MockSend = func(data []byte) error {
				return expected
			}
			client := newTestClient(t, txp, engine)
			if err := client.Handshake(); !errors.Is(err, expected) {
				t.Fatal("unexpected error", err)
			}
		})

		t.Run("on recv", func(t *testing.T) {
			txp, _ := newMockedTransport()
			txp.MockRecv = func(maxLen int) ([]byte, error) {
				return nil, expected
			}
			client := newTestClient(t, txp, engine)
			err := client.Handshake()
			if !errors.Is(err, expected) {
				t.Fatal("unexpected error", err)
			}
			var ew *errorsx.ErrWrapper
			if !errors.As(err, &ew) || ew.Operation != errorsx.TLSHandshakeOperation {
				t.Fatal("unexpected error", err)
			}
		})
	})

	t.Run("without a transport", func(t *testing.T) {
		engine, _ := newMockedEngine()
		client := newTestClient(t, nil, engine)
		if err := client.Handshake(); !errors.Is(err, ErrNoTransport) {
			t.Fatal("unexpected error", err)
		}
		if client.State() != StateNotStarted {
			t.Fatal("unexpected state", client.State())
		}
	})

	t.Run("with an unexpected handshake result", func(t *testing.T) {
		engine, _ := newMockedEngine()
		engine.MockStepHandshake = func() (model.HandshakeResult, error) {
			return model.HandshakeResult(17), nil
		}
		txp, _ := newMockedTransport()
		client := newTestClient(t, txp, engine)
		if err := client.Handshake(); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestClientKeyLog(t *testing.T) {
	sessionID, masterKey := []byte{0xde, 0xad}, []byte{0xbe, 0xef}

	t.Run("we append the secrets after the handshake", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keylog.txt")
		engine, _ := newMockedEngine()
		engine.MockSecrets = func() ([]byte, []byte, error) {
			return sessionID, masterKey, nil
		}
		txp, _ := newMockedTransport()
		client, err := newClient(txp, &Config{KeyLogFile: path}, engine)
		if err != nil {
			t.Fatal(err)
		}
		if err := client.Handshake(); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(keylog.FormatLine(sessionID, masterKey), string(data)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("we fall back to the environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keylog.txt")
		t.Setenv(keylog.EnvironmentVariable, path)
		engine, _ := newMockedEngine()
		engine.MockSecrets = func() ([]byte, []byte, error) {
			return sessionID, masterKey, nil
		}
		txp, _ := newMockedTransport()
		newConnectedClient(t, txp, engine)
		if _, err := os.Stat(path); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("failures are ignored", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nonexistent", "keylog.txt")
		engine, _ := newMockedEngine()
		engine.MockSecrets = func() ([]byte, []byte, error) {
			return sessionID, masterKey, nil
		}
		txp, _ := newMockedTransport()
		client, err := newClient(txp, &Config{KeyLogFile: path}, engine)
		if err != nil {
			t.Fatal(err)
		}
		if err := client.Handshake(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("we don't write anything without secrets", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keylog.txt")
		engine, _ := newMockedEngine()
		txp, _ := newMockedTransport()
		client, err := newClient(txp, &Config{KeyLogFile: path}, engine)
		if err != nil {
			t.Fatal(err)
		}
		if err := client.Handshake(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestClientRead(t *testing.T) {
	t.Run("before the handshake", func(t *testing.T) {
		engine, _ := newMockedEngine()
		engine.MockDecrypt = func(maxLen int) ([]byte, error) {
			panic("should not be called")
		}
		txp, ts := newMockedTransport()
		client := newTestClient(t, txp, engine)
		if _, err := client.Read(10); !errors.Is(err, ErrHandshakeNotCompleted) {
			t.Fatal("unexpected error", err)
		}
		if ts.recvs != 0 || len(ts.sent) != 0 {
			t.Fatal("should not have used the transport")
		}
	})

	t.Run("without a transport", func(t *testing.T) {
		engine, _ := newMockedEngine()
		client := newTestClient(t, nil, engine)
		if _, err := client.Read(10); !errors.Is(err, ErrNoTransport) {
			t.Fatal("unexpected error", err)
		}
	})

	for _, ambiguous := range []error{model.ErrWantRead, model.ErrZeroReturn} {
		t.Run("with "+ambiguous.Error()+" and more data", func(t *testing.T) {
			engine, es := newMockedEngine()
			engine.MockDecrypt = func(maxLen int) ([]byte, error) {
				if len(es.inbound) <= 0 {
					return nil, ambiguous
				}
				out := es.inbound[:min(maxLen, len(es.inbound))]
				es.inbound = es.inbound[len(out):]
				return out, nil
			}
			txp, ts := newMockedTransport([]byte("record"))
			client := newConnectedClient(t, txp, engine)
			data, err := client.Read(100)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]byte("record"), data); diff != "" {
				t.Fatal(diff)
			}
			if ts.recvs != 1 {
				t.Fatal("unexpected number of receives", ts.recvs)
			}
		})

		t.Run("with "+ambiguous.Error()+" and EOF", func(t *testing.T) {
			engine, _ := newMockedEngine()
			engine.MockDecrypt = func(maxLen int) ([]byte, error) {
				return nil, ambiguous
			}
			txp, _ := newMockedTransport()
			client := newConnectedClient(t, txp, engine)
			_, err := client.Read(100)
			if !errors.Is(err, ErrPeerClosed) {
				t.Fatal("unexpected error", err)
			}
			if !errors.Is(err, io.EOF) {
				t.Fatal("should also be an io.EOF")
			}
		})
	}

	t.Run("we flush before receiving", func(t *testing.T) {
		engine, es := newMockedEngine()
		engine.MockDecrypt = func(maxLen int) ([]byte, error) {
			if len(es.inbound) <= 0 {
				es.outbound = append(es.outbound, "key_update"...)
				return nil, model.ErrWantRead
			}
			return es.inbound, nil
		}
		txp, ts := newMockedTransport([]byte("record"))
		txp.MockRecv = func(maxLen int) ([]byte, error) {
			if string(ts.sent) != "key_update" {
				t.Fatal("did not flush before receiving")
			}
			return []byte("record"), nil
		}
		client := newConnectedClient(t, txp, engine)
		if _, err := client.Read(100); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("an empty result is not an error", func(t *testing.T) {
		engine, _ := newMockedEngine()
		engine.MockDecrypt = func(maxLen int) ([]byte, error) {
			return []byte{}, nil
		}
		txp, ts := newMockedTransport()
		client := newConnectedClient(t, txp, engine)
		data, err := client.Read(100)
		if err != nil || len(data) != 0 {
			t.Fatal("unexpected result", data, err)
		}
		if ts.recvs != 0 {
			t.Fatal("should not have received")
		}
	})

	t.Run("other engine errors are fatal", func(t *testing.T) {
		expected := errors.New("mocked error")
		engine, _ := newMockedEngine()
		engine.MockDecrypt = func(maxLen int) ([]byte, error) {
			return nil, expected
		}
		txp, ts := newMockedTransport()
		client := newConnectedClient(t, txp, engine)
		if _, err := client.Read(100); !errors.Is(err, expected) {
			t.Fatal("unexpected error", err)
		}
		if ts.recvs != 0 {
			t.Fatal("should not have received")
		}
	})

	t.Run("transport errors are fatal", func(t *testing.T) {
		expected := errors.New("mocked error")
		engine, _ := newMockedEngine()
		engine.MockDecrypt = func(maxLen int) ([]byte, error) {
			return nil, model.ErrWantRead
		}
		txp, _ := newMockedTransport()
		txp.MockRecv = func(maxLen int) ([]byte, error) {
			return nil, expected
		}
		client := newConnectedClient(t, txp, engine)
		_, err := client.Read(100)
		var ew *errorsx.ErrWrapper
		if !errors.As(err, &ew) || ew.Operation != errorsx.ReadOperation {
			t.Fatal("unexpected error", err)
		}
		if !errors.Is(err, expected) {
			t.Fatal("cannot unwrap", err)
		}
	})

	t.Run("ReadEarly before the handshake", func(t *testing.T) {
		engine, _ := newMockedEngine()
		engine.MockDecrypt = func(maxLen int) ([]byte, error) {
			return []byte("early"), nil
		}
		txp, _ := newMockedTransport()
		client := newTestClient(t, txp, engine)
		data, err := client.ReadEarly(100)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "early" {
			t.Fatal("unexpected data", string(data))
		}
	})
}

func TestClientWrite(t *testing.T) {
	t.Run("before the handshake", func(t *testing.T) {
		engine, _ := newMockedEngine()
		engine.MockEncrypt = func(data []byte) error {
			panic("should not be called")
		}
		txp, ts := newMockedTransport()
		client := newTestClient(t, txp, engine)
		if _, err := client.Write([]byte("ping")); !errors.Is(err, ErrHandshakeNotCompleted) {
			t.Fatal("unexpected error", err)
		}
		if ts.recvs != 0 || len(ts.sent) != 0 {
			t.Fatal("should not have used the transport")
		}
	})

	t.Run("without a transport", func(t *testing.T) {
		engine, _ := newMockedEngine()
		client := newTestClient(t, nil, engine)
		if _, err := client.Write([]byte("ping")); !errors.Is(err, ErrNoTransport) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("on success", func(t *testing.T) {
		engine, es := newMockedEngine()
		engine.MockEncrypt = func(data []byte) error {
			es.outbound = append(es.outbound, "<header>"...)
			es.outbound = append(es.outbound, data...)
			return nil
		}
		txp, ts := newMockedTransport()
		client := newConnectedClient(t, txp, engine)
		count, err := client.Write([]byte("ping"))
		if err != nil {
			t.Fatal(err)
		}
		if count != len("<header>ping") {
			t.Fatal("unexpected count", count)
		}
		if diff := cmp.Diff("<header>ping", string(ts.sent)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("when the engine fails", func(t *testing.T) {
		expected := errors.New("mocked error")
		engine, _ := newMockedEngine()
		engine.MockEncrypt = func(data []byte) error {
			return expected
		}
		txp, _ := newMockedTransport()
		client := newConnectedClient(t, txp, engine)
		if _, err := client.Write([]byte("ping")); !errors.Is(err, expected) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("when the transport fails", func(t *testing.T) {
		expected := errors.New("mocked error")
		engine, es := newMockedEngine()
		engine.MockEncrypt = func(data []byte) error {
			es.outbound = append(es.outbound, data...)
			return nil
		}
		txp, _ := newMockedTransport()
		client := newConnectedClient(t, txp, engine)
		txp.MockSend = func(data []byte) error {
			return expected
		}
		_, err := client.Write([]byte("ping"))
		var ew *errorsx.ErrWrapper
		if !errors.As(err, &ew) || ew.Operation != errorsx.WriteOperation {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestClientEarlyData(t *testing.T) {
	t.Run("after the handshake", func(t *testing.T) {
		engine, _ := newMockedEngine()
		engine.MockWriteEarlyData = func(data []byte) error {
			panic("should not be called")
		}
		txp, _ := newMockedTransport()
		client := newConnectedClient(t, txp, engine)
		if _, err := client.WriteEarlyData([]byte("ping")); !errors.Is(err, ErrHandshakeCompleted) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("before the handshake", func(t *testing.T) {
		engine, es := newMockedEngine()
		status := model.EarlyDataNotSent
		engine.MockWriteEarlyData = func(data []byte) error {
			es.outbound = append(es.outbound, data...)
			return nil
		}
		engine.MockStepHandshake = func() (model.HandshakeResult, error) {
			status = model.EarlyDataAccepted
			return model.HandshakeSuccess, nil
		}
		engine.MockEarlyDataStatus = func() model.EarlyDataStatus {
			return status
		}
		txp, ts := newMockedTransport()
		client := newTestClient(t, txp, engine)
		count, err := client.WriteEarlyData([]byte("ping"))
		if err != nil {
			t.Fatal(err)
		}
		if count != 4 || string(ts.sent) != "ping" {
			t.Fatal("unexpected result", count, string(ts.sent))
		}
		if err := client.Handshake(); err != nil {
			t.Fatal(err)
		}
		if client.EarlyDataStatus() != model.EarlyDataAccepted {
			t.Fatal("unexpected status", client.EarlyDataStatus())
		}
	})

	t.Run("when the engine does not support early data", func(t *testing.T) {
		engine, _ := newMockedEngine()
		engine.MockWriteEarlyData = func(data []byte) error {
			return model.ErrEarlyDataUnsupported
		}
		txp, _ := newMockedTransport()
		client := newTestClient(t, txp, engine)
		if _, err := client.WriteEarlyData([]byte("ping")); !errors.Is(err, model.ErrEarlyDataUnsupported) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("without a transport", func(t *testing.T) {
		engine, _ := newMockedEngine()
		client := newTestClient(t, nil, engine)
		if _, err := client.WriteEarlyData([]byte("ping")); !errors.Is(err, ErrNoTransport) {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestClientShutdown(t *testing.T) {
	t.Run("is idempotent", func(t *testing.T) {
		engine, es := newMockedEngine()
		var calls int
		engine.MockShutdown = func() error {
			calls++
			es.outbound = append(es.outbound, "close_notify"...)
			return nil
		}
		txp, ts := newMockedTransport()
		client := newConnectedClient(t, txp, engine)
		if err := client.Shutdown(); err != nil {
			t.Fatal(err)
		}
		if err := client.Shutdown(); err != nil {
			t.Fatal(err)
		}
		if calls != 1 {
			t.Fatal("unexpected number of calls", calls)
		}
		if string(ts.sent) != "close_notify" {
			t.Fatal("did not send close_notify", string(ts.sent))
		}
		if client.IsHandshakeCompleted() {
			t.Fatal("the handshake should not be completed anymore")
		}
		if _, err := client.Read(10); !errors.Is(err, ErrSessionClosed) {
			t.Fatal("unexpected error", err)
		}
		if _, err := client.Write([]byte("ping")); !errors.Is(err, ErrSessionClosed) {
			t.Fatal("unexpected error", err)
		}
		if err := client.Handshake(); !errors.Is(err, ErrSessionClosed) {
			t.Fatal("unexpected error", err)
		}
		if _, err := client.Metadata(); !errors.Is(err, ErrSessionClosed) {
			t.Fatal("unexpected error", err)
		}
		if _, err := client.PeerCertChain(); !errors.Is(err, ErrSessionClosed) {
			t.Fatal("unexpected error", err)
		}
	})

	for _, benign := range []error{model.ErrShutdownUninitialized, model.ErrShutdownInInit} {
		t.Run("swallows "+benign.Error(), func(t *testing.T) {
			engine, _ := newMockedEngine()
			engine.MockShutdown = func() error {
				return benign
			}
			txp, _ := newMockedTransport()
			client := newTestClient(t, txp, engine)
			if err := client.Shutdown(); err != nil {
				t.Fatal(err)
			}
		})
	}

	t.Run("swallows flush errors", func(t *testing.T) {
		engine, es := newMockedEngine()
		engine.MockShutdown = func() error {
			es.outbound = append(es.outbound, "close_notify"...)
			return nil
		}
		txp, _ := newMockedTransport()
		client := newConnectedClient(t, txp, engine)
		txp.MockSend = func(data []byte) error {
			return errors.New("mocked error")
		}
		if err := client.Shutdown(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("without a transport", func(t *testing.T) {
		engine, _ := newMockedEngine()
		client := newTestClient(t, nil, engine)
		if err := client.Shutdown(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("propagates other engine errors", func(t *testing.T) {
		expected := errors.New("mocked error")
		engine, _ := newMockedEngine()
		engine.MockShutdown = func() error {
			return expected
		}
		txp, _ := newMockedTransport()
		client := newConnectedClient(t, txp, engine)
		err := client.Shutdown()
		if !errors.Is(err, expected) {
			t.Fatal("unexpected error", err)
		}
		var ew *errorsx.ErrWrapper
		if !errors.As(err, &ew) || ew.Operation != errorsx.TLSShutdownOperation {
			t.Fatal("unexpected error", err)
		}
	})
}

func TestClientClose(t *testing.T) {
	engine, es := newMockedEngine()
	txp, _ := newMockedTransport()
	client := newConnectedClient(t, txp, engine)
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if es.freed != 1 {
		t.Fatal("unexpected number of Free calls", es.freed)
	}
	if _, err := client.Read(10); !errors.Is(err, ErrSessionClosed) {
		t.Fatal("unexpected error", err)
	}
	if _, err := client.SSLVersion(); !errors.Is(err, ErrSessionClosed) {
		t.Fatal("unexpected error", err)
	}
	if err := client.Shutdown(); err != nil {
		t.Fatal(err)
	}
}

func TestClientSetters(t *testing.T) {
	t.Run("SetUnderlyingTransport", func(t *testing.T) {
		engine, _ := newMockedEngine()
		client := newTestClient(t, nil, engine)
		if client.UnderlyingTransport() != nil {
			t.Fatal("expected no transport")
		}
		txp, _ := newMockedTransport()
		if err := client.SetUnderlyingTransport(txp); err != nil {
			t.Fatal(err)
		}
		if client.UnderlyingTransport() != txp {
			t.Fatal("unexpected transport")
		}
		if err := client.SetUnderlyingTransport(txp); !errors.Is(err, ErrTransportAlreadySet) {
			t.Fatal("unexpected error", err)
		}
		if err := client.Handshake(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("SetTLSExtHostName and SetSession", func(t *testing.T) {
		engine, _ := newMockedEngine()
		var sni string
		engine.MockSetServerName = func(name string) error {
			sni = name
			return nil
		}
		var installed model.Session
		engine.MockSetSession = func(session model.Session) error {
			installed = session
			return nil
		}
		session := &mocks.Session{}
		txp, _ := newMockedTransport()
		client := newTestClient(t, txp, engine)
		if err := client.SetTLSExtHostName("www.example.com"); err != nil {
			t.Fatal(err)
		}
		if err := client.SetSession(session); err != nil {
			t.Fatal(err)
		}
		if sni != "www.example.com" || installed != session {
			t.Fatal("setters did not reach the engine")
		}
		if err := client.Handshake(); err != nil {
			t.Fatal(err)
		}
		if err := client.SetTLSExtHostName("www.example.org"); !errors.Is(err, ErrHandshakeStarted) {
			t.Fatal("unexpected error", err)
		}
		if err := client.SetSession(session); !errors.Is(err, ErrHandshakeStarted) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("ServerName in the config", func(t *testing.T) {
		engine, _ := newMockedEngine()
		var sni string
		engine.MockSetServerName = func(name string) error {
			sni = name
			return nil
		}
		if _, err := newClient(nil, &Config{ServerName: "www.example.com"}, engine); err != nil {
			t.Fatal(err)
		}
		if sni != "www.example.com" {
			t.Fatal("unexpected SNI", sni)
		}
	})
}

func TestStateString(t *testing.T) {
	expected := map[State]string{
		StateNotStarted: "not_started",
		StateInProgress: "in_progress",
		StateCompleted:  "completed",
		StateFailed:     "failed",
		State(17):       "STATE_UNKNOWN_17",
	}
	for state, s := range expected {
		if state.String() != s {
			t.Fatal("unexpected string", state.String())
		}
	}
}
