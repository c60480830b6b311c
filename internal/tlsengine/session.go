package tlsengine

//
// Resumable sessions
//

import (
	"fmt"
	"sync"

	"github.com/ooni/sslclient/internal/model"
)

// slotCache is a client session cache holding a single session regardless
// of the cache key. Each engine owns its cache, so there's exactly one
// peer per cache. It implements the ClientSessionCache interface of both
// crypto/tls and utls, depending on S.
type slotCache[S any] struct {
	mu    sync.Mutex
	state *S
}

// Get returns the cached session, if any.
func (c *slotCache[S]) Get(sessionKey string) (*S, bool) {
	defer c.mu.Unlock()
	c.mu.Lock()
	return c.state, c.state != nil
}

// Put caches the given session. A nil session clears the cache.
func (c *slotCache[S]) Put(sessionKey string, cs *S) {
	defer c.mu.Unlock()
	c.mu.Lock()
	c.state = cs
}

// load returns the cached session or nil.
func (c *slotCache[S]) load() *S {
	state, _ := c.Get("")
	return state
}

// session is the [model.Session] produced by our engines.
type session[S any] struct {
	// engine is the name of the engine that created the session.
	engine string

	// masterKey is the TLS 1.2 master key, if known. We need it to
	// export the secrets of a resumed session.
	masterKey []byte

	// state is the engine specific session state.
	state *S
}

var _ model.Session = &session[struct{}]{}

// EngineName implements model.Session.
func (s *session[S]) EngineName() string {
	return s.engine
}

// sessionFor converts a [model.Session] to the session type used by
// the engine with the given name.
func sessionFor[S any](engine string, value model.Session) (*session[S], error) {
	if value == nil {
		return nil, fmt.Errorf("tlsengine: %s: nil session", engine)
	}
	if value.EngineName() != engine {
		return nil, fmt.Errorf(
			"tlsengine: %s: cannot use a session created by the %s engine",
			engine, value.EngineName(),
		)
	}
	sess, good := value.(*session[S])
	if !good || sess.state == nil {
		return nil, fmt.Errorf("tlsengine: %s: invalid session", engine)
	}
	return sess, nil
}
