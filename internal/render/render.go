package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/giantswarm/kmsenv/internal/fileutil"
	"github.com/giantswarm/kmsenv/internal/sentinel"
)

// File names produced in a workspace.
const (
	ConfigFile = "kurento.conf.json"
	ScriptFile = "kurento.sh"
)

// ErrUnknownTemplate is returned for a name other than ConfigFile or ScriptFile.
const ErrUnknownTemplate = sentinel.Error("unknown template")

//go:embed templates/*.tmpl
var embedded embed.FS

// Params are the values substituted into the templates.
type Params struct {
	WSPort                int
	WSPath                string // without the leading slash
	Registrar             string
	RegistrarLocalAddress string
	GstPlugins            string
	DebugOptions          string
	ServerCommand         string
	Workspace             string // directory the script runs in, with a trailing slash
}

// Validate reports every missing parameter.
func (p Params) Validate() error {
	var errs []error
	if p.WSPort <= 0 || p.WSPort > 65535 {
		errs = append(errs, fmt.Errorf("websocket port must be in 1..65535, got %d", p.WSPort))
	}
	if p.ServerCommand == "" {
		errs = append(errs, errors.New("server command must not be empty"))
	}
	if p.Workspace == "" {
		errs = append(errs, errors.New("workspace must not be empty"))
	} else if !strings.HasSuffix(p.Workspace, "/") {
		errs = append(errs, fmt.Errorf("workspace %q must end with a slash", p.Workspace))
	}
	return errors.Join(errs...)
}

// Renderer executes a set of templates. The zero value is not usable; use
// New or Default.
type Renderer struct {
	tmpl *template.Template
}

// New parses <name>.tmpl for ConfigFile and ScriptFile from fsys.
func New(fsys fs.FS) (*Renderer, error) {
	t := template.New("kms").Funcs(template.FuncMap{
		"json": func(s string) (string, error) {
			b, err := json.Marshal(s)
			return string(b), err
		},
	}).Option("missingkey=error")
	for _, name := range []string{ConfigFile, ScriptFile} {
		data, err := fs.ReadFile(fsys, name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		if _, err := t.New(name).Parse(string(data)); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
	}
	return &Renderer{tmpl: t}, nil
}

// Default returns a Renderer over the embedded templates.
func Default() *Renderer {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(fmt.Sprintf("kmsenv: embedded templates: %v", err))
	}
	r, err := New(sub)
	if err != nil {
		panic(fmt.Sprintf("kmsenv: embedded templates: %v", err))
	}
	return r
}

// Render executes the template called name.
func (r *Renderer) Render(name string, p Params) ([]byte, error) {
	t := r.tmpl.Lookup(name)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Files renders both files, keyed by file name.
func (r *Renderer) Files(p Params) (map[string][]byte, error) {
	out := make(map[string][]byte, 2)
	for _, name := range []string{ConfigFile, ScriptFile} {
		data, err := r.Render(name, p)
		if err != nil {
			return nil, err
		}
		out[name] = data
	}
	return out, nil
}

// WriteAll renders both files into dir. The script is made executable.
func (r *Renderer) WriteAll(dir string, p Params) error {
	files, err := r.Files(p)
	if err != nil {
		return err
	}
	for name, data := range files {
		mode := os.FileMode(0o644)
		if name == ScriptFile {
			mode = 0o755
		}
		path := filepath.Join(dir, name)
		if err := fileutil.WriteFrom(path, bytes.NewReader(data), &fileutil.CopyOptions{Mode: &mode}); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		// The umask may strip the execute bits.
		if err := os.Chmod(path, mode); err != nil {
			return fmt.Errorf("chmod %s: %w", name, err)
		}
	}
	return nil
}
