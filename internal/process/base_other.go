//go:build !linux

package process

import "os/exec"

// configureSysProcAttr is a no-op outside Linux; Pdeathsig is Linux only.
func configureSysProcAttr(_ *exec.Cmd) {}
