package instance

import (
	"os"

	"github.com/catalogtools/pimasset/pkg/env"
)

// EnvInstanceID overrides the process identifier recorded in run locks.
const EnvInstanceID = "PIMASSET_INSTANCE_ID"

// GetID returns the instance identifier: the override, else the hostname,
// else a default value.
func GetID() string {
	if id := env.Get(EnvInstanceID, ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "pimasset-0"
}
