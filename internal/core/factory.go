package core

import (
	"fmt"

	"github.com/giantswarm/kmsenv/internal/backend"
	"github.com/giantswarm/kmsenv/internal/container"
	"github.com/giantswarm/kmsenv/internal/local"
	"github.com/giantswarm/kmsenv/internal/remote"
)

// DefaultFactory builds the real backends: a child process, a docker CLI
// driven container, or an SSH session.
func DefaultFactory() backend.Factory {
	return backend.FactoryFunc(func(t backend.Type, req backend.Request) (backend.Handle, error) {
		switch t {
		case backend.TypeLocal:
			return local.New(req), nil
		case backend.TypeContainer:
			return container.New(req, &container.CLI{Logger: req.Log()}, container.DetectEnvironment()), nil
		case backend.TypeRemote:
			return remote.New(req, remote.Dial), nil
		default:
			return nil, fmt.Errorf("unknown backend %v", t)
		}
	})
}
