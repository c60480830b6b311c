package tlsengine

//
// Running blocking TLS operations on a goroutine
//

import "github.com/ooni/sslclient/internal/bridge"

// opKind is the kind of operation running on the worker.
type opKind int

const (
	opNone = opKind(iota)
	opHandshake
	opRead
)

// worker runs at most one blocking operation at a time on a background
// goroutine. The operation either completes or parks on the bridge
// waiting for inbound ciphertext, in which case the caller gets control
// back and can resume waiting after feeding more ciphertext.
type worker struct {
	br   *bridge.Bridge
	done chan error
	kind opKind
}

// newWorker creates a new [*worker] bound to the given bridge.
func newWorker(br *bridge.Bridge) *worker {
	return &worker{br: br}
}

// pending returns the kind of the pending operation, if any.
func (w *worker) pending() opKind {
	return w.kind
}

// start starts running fn in the background. There MUST NOT be
// any pending operation when calling this method.
func (w *worker) start(kind opKind, fn func() error) {
	done := make(chan error, 1)
	w.done, w.kind = done, kind
	go func() {
		done <- fn()
	}()
}

// await waits for the pending operation to complete or park. When it
// returns parked equal to true, the operation is still pending.
func (w *worker) await() (parked bool, err error) {
	if w.br.IsParked() {
		return true, nil
	}
	for {
		select {
		case err := <-w.done:
			w.done, w.kind = nil, opNone
			return false, err
		case <-w.br.Parked():
			// the token may be stale, so make sure we're actually parked
			if w.br.IsParked() {
				return true, nil
			}
		}
	}
}

// abort closes the bridge, which unblocks any parked operation, and
// waits for the pending operation to terminate.
func (w *worker) abort() {
	w.br.Close()
	if w.done != nil {
		<-w.done
		w.done, w.kind = nil, opNone
	}
}
