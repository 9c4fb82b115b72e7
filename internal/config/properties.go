package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix prefixes the environment form of every property.
const DefaultEnvPrefix = "KMSENV_"

// Source says where a resolved property came from.
type Source string

// Property sources, in lookup order.
const (
	SourceOverride Source = "override"
	SourceEnv      Source = "env"
	SourceFile     Source = "file"
	SourceDefault  Source = "default"
)

// Properties is a read-mostly property source. It is safe for concurrent use.
type Properties struct {
	mu        sync.RWMutex
	overrides map[string]string
	file      map[string]string
	path      string

	envPrefix string
	lookupEnv func(string) (string, bool)
}

// Option configures Properties.
type Option func(*Properties)

// WithEnvPrefix replaces DefaultEnvPrefix. An empty prefix disables
// environment lookup.
func WithEnvPrefix(prefix string) Option {
	return func(p *Properties) { p.envPrefix = prefix }
}

// WithLookupEnv replaces os.LookupEnv, mainly for tests.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(p *Properties) { p.lookupEnv = fn }
}

// WithValues seeds the file layer, as if loaded from YAML.
func WithValues(values map[string]string) Option {
	return func(p *Properties) {
		for k, v := range values {
			p.file[k] = v
		}
	}
}

// New returns Properties with no file layer.
func New(opts ...Option) *Properties {
	p := &Properties{
		overrides: make(map[string]string),
		file:      make(map[string]string),
		envPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load reads a YAML file into the file layer. Nested mappings are flattened
// with dots, so
//
//	kms:
//	  ws:
//	    uri: ws://10.0.0.1:8888/kurento
//
// and "kms.ws.uri: ws://..." are equivalent.
func Load(path string, opts ...Option) (*Properties, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user supplied config path
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	values, err := parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	p := New(opts...)
	p.file = values
	p.path = path
	return p, nil
}

// LoadDefault loads the first file named name found by FindConfigFile. It
// returns empty Properties when no file exists.
func LoadDefault(name string, opts ...Option) (*Properties, error) {
	path, ok := FindConfigFile(name)
	if !ok {
		return New(opts...), nil
	}
	return Load(path, opts...)
}

func parseYAML(data []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flatten("", root, out)
	return out, nil
}

func flatten(prefix string, v any, out map[string]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, child, out)
		}
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(t)
	}
}

// Path returns the loaded file, or "" when none was loaded.
func (p *Properties) Path() string {
	return p.path
}

// EnvName returns the environment variable consulted for name.
func (p *Properties) EnvName(name string) string {
	if p.envPrefix == "" {
		return ""
	}
	r := strings.NewReplacer(".", "_", "-", "_")
	return p.envPrefix + strings.ToUpper(r.Replace(name))
}

// Lookup resolves name without a default.
func (p *Properties) Lookup(name string) (string, Source, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.overrides[name]; ok {
		return v, SourceOverride, true
	}
	if env := p.EnvName(name); env != "" {
		if v, ok := p.lookupEnv(env); ok {
			return v, SourceEnv, true
		}
	}
	if v, ok := p.file[name]; ok {
		return v, SourceFile, true
	}
	return "", SourceDefault, false
}

// Get resolves name, returning def when it is not set anywhere.
func (p *Properties) Get(name, def string) string {
	if v, _, ok := p.Lookup(name); ok {
		return v
	}
	return def
}

// GetBool resolves name with ParseBool.
func (p *Properties) GetBool(name string, def bool) bool {
	v, _, ok := p.Lookup(name)
	if !ok {
		return def
	}
	return ParseBool(v, def)
}

// ParseBool reads a boolean property value. It accepts the spellings of
// strconv.ParseBool plus yes and no, ignoring case and surrounding space.
// Anything else yields def.
func ParseBool(v string, def bool) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "yes":
		return true
	case "no":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Set overrides name for the lifetime of p.
func (p *Properties) Set(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides[name] = value
}

// Unset removes an override set with Set.
func (p *Properties) Unset(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.overrides, name)
}

// Keys returns every name present in the override or file layers, sorted.
func (p *Properties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	seen := make(map[string]struct{}, len(p.file)+len(p.overrides))
	for k := range p.file {
		seen[k] = struct{}{}
	}
	for k := range p.overrides {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
