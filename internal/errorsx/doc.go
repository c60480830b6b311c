// Package errorsx contains the error wrapper used by the TLS session
// driver along with the classifiers mapping Go errors to failure strings.
package errorsx
