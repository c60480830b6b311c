// Package keylog appends session secrets to a key log file using the
// format understood by traffic analysis tools such as Wireshark.
package keylog

import (
	"fmt"
	"os"
)

// EnvironmentVariable is the environment variable naming the key log file.
const EnvironmentVariable = "SSLKEYLOGFILE"

// PathFromEnv returns the key log file path from the environment
// or an empty string when the variable is not set.
func PathFromEnv() string {
	return os.Getenv(EnvironmentVariable)
}

// FormatLine formats the key log line for the given session identifier
// and master key.
func FormatLine(sessionID, masterKey []byte) string {
	return fmt.Sprintf("RSA Session-ID:%X Master-Key:%X\n", sessionID, masterKey)
}

// Append appends the key log line for the given session identifier and
// master key to the file at path, creating the file if needed.
func Append(path string, sessionID, masterKey []byte) error {
	filep, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := filep.WriteString(FormatLine(sessionID, masterKey)); err != nil {
		filep.Close()
		return err
	}
	return filep.Close()
}
