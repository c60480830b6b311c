package tlsengine

//
// Capturing the TLS 1.2 master key
//

import (
	"bytes"
	"encoding/hex"
	"sync"
)

// keyLogCapture is the KeyLogWriter we configure to learn the master
// key of TLS 1.2 sessions. We ignore the TLS 1.3 traffic secrets.
type keyLogCapture struct {
	mu        sync.Mutex
	masterKey []byte
}

// Write implements io.Writer. The TLS library writes one line per call
// using the NSS key log format.
func (kc *keyLogCapture) Write(line []byte) (int, error) {
	fields := bytes.Fields(line)
	if len(fields) == 3 && string(fields[0]) == "CLIENT_RANDOM" {
		if mk, err := hex.DecodeString(string(fields[2])); err == nil {
			kc.mu.Lock()
			kc.masterKey = mk
			kc.mu.Unlock()
		}
	}
	return len(line), nil
}

// get returns the captured master key or nil.
func (kc *keyLogCapture) get() []byte {
	defer kc.mu.Unlock()
	kc.mu.Lock()
	return kc.masterKey
}
