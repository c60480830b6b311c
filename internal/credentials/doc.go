// Package credentials loads the trust anchors and the client identity
// used by TLS engines.
//
// Trust anchors are read from a file containing one or more PEM encoded
// certificates or a single DER encoded certificate. A client identity is
// a certificate chain plus the matching private key, where the key may be
// encrypted with a passphrase using the legacy PEM encryption.
package credentials
