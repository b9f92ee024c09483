package config

import (
	"os"
	"strings"
)

// DirectChangeDispatch makes the outbox dispatcher hand change events straight
// to the in-process reconciliation service instead of publishing them, even
// when Pub/Sub is configured. Single-instance deployments can skip the
// publish/consume round trip this way.
//
// Set via env:
// - DIRECT_CHANGE_DISPATCH=true
func DirectChangeDispatch() bool {
	return boolFromEnv("DIRECT_CHANGE_DISPATCH")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
