// Package testing is imported for its side effect by tests that construct
// services: it switches the process into test mode and quiets logging.
package testing

import "os"

func init() {
	setDefault("ODYSSEY_TEST_MODE", "1")
	setDefault("APP_ENV", "test")
	setDefault("LOG_LEVEL", "warn")
}

func setDefault(key, value string) {
	if os.Getenv(key) == "" {
		_ = os.Setenv(key, value)
	}
}
