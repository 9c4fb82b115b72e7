package config

import (
	"os"
	"path/filepath"
)

// Finder searches the fixed config locations. The zero value searches
// relative to the working directory with the real environment.
type Finder struct {
	WorkDir       string // defaults to "."
	XDGConfigHome string // defaults to $XDG_CONFIG_HOME, then ~/.config
	SystemDir     string // defaults to /etc/kmsenv
}

// Candidates returns the search order for name:
//
//  1. <workdir>/config/<name>
//  2. <workdir>/<name>
//  3. <xdg config home>/kmsenv/<name>
//  4. /etc/kmsenv/<name>
func (f Finder) Candidates(name string) []string {
	wd := f.WorkDir
	if wd == "" {
		wd = "."
	}
	out := []string{
		filepath.Join(wd, "config", name),
		filepath.Join(wd, name),
	}
	if xdg := f.xdgHome(); xdg != "" {
		out = append(out, filepath.Join(xdg, "kmsenv", name))
	}
	sys := f.SystemDir
	if sys == "" {
		sys = "/etc/kmsenv"
	}
	return append(out, filepath.Join(sys, name))
}

func (f Finder) xdgHome() string {
	if f.XDGConfigHome != "" {
		return f.XDGConfigHome
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

// Find returns the first candidate that is a regular file.
func (f Finder) Find(name string) (string, bool) {
	for _, c := range f.Candidates(name) {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, true
		}
	}
	return "", false
}

// FindConfigFile searches the default locations for name.
func FindConfigFile(name string) (string, bool) {
	return Finder{}.Find(name)
}
