package app

import (
	"os"
	"strings"
)

// TestModeEnv is set by the shared test bootstrap. Binaries started under it
// exit before dialing Postgres or Redis.
const TestModeEnv = "ODYSSEY_TEST_MODE"

// InTestMode reports whether TestModeEnv is switched on.
func InTestMode() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(TestModeEnv))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
