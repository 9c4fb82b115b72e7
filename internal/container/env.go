package container

import (
	"os"
)

// dockerEnvFile exists inside every docker container.
const dockerEnvFile = "/.dockerenv"

// Environment describes where the test binary itself runs.
type Environment struct {
	// InContainer is true when the tests run inside a docker container. The
	// server container then shares its volumes instead of binding host paths.
	InContainer bool
	// Hostname is this container's id when InContainer is set.
	Hostname string
}

// DetectEnvironment inspects the running host.
func DetectEnvironment() Environment {
	if _, err := os.Stat(dockerEnvFile); err != nil {
		return Environment{}
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return Environment{}
	}
	return Environment{InContainer: true, Hostname: host}
}
