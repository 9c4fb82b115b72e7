package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLookupOrder(t *testing.T) {
	t.Parallel()

	names := NamesFor("")
	env := map[string]string{}
	p := New(
		WithLookupEnv(envMap(env)),
		WithValues(map[string]string{names.WSURI: "ws://file:1/kurento"}),
	)

	v, src, ok := p.Lookup(names.WSURI)
	require.True(t, ok)
	assert.Equal(t, "ws://file:1/kurento", v)
	assert.Equal(t, SourceFile, src)

	env["KMSENV_KMS_WS_URI"] = "ws://env:2/kurento"
	v, src, _ = p.Lookup(names.WSURI)
	assert.Equal(t, "ws://env:2/kurento", v)
	assert.Equal(t, SourceEnv, src)

	p.Set(names.WSURI, "ws://override:3/kurento")
	v, src, _ = p.Lookup(names.WSURI)
	assert.Equal(t, "ws://override:3/kurento", v)
	assert.Equal(t, SourceOverride, src)

	p.Unset(names.WSURI)
	assert.Equal(t, "ws://env:2/kurento", p.Get(names.WSURI, DefaultWSURI))
}

func TestGetDefault(t *testing.T) {
	t.Parallel()

	p := New(WithLookupEnv(envMap(nil)))
	assert.Equal(t, DefaultWSURI, p.Get("kms.ws.uri", DefaultWSURI))
	_, src, ok := p.Lookup("kms.ws.uri")
	assert.False(t, ok)
	assert.Equal(t, SourceDefault, src)
}

func TestGetBool(t *testing.T) {
	t.Parallel()

	p := New(WithLookupEnv(envMap(nil)), WithValues(map[string]string{
		"a": "false",
		"b": " TRUE ",
		"c": "maybe",
	}))
	assert.False(t, p.GetBool("a", true))
	assert.True(t, p.GetBool("b", false))
	assert.True(t, p.GetBool("c", true))
	assert.False(t, p.GetBool("missing", false))
}

func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		def  bool
		want bool
	}{
		"true":         {in: "true", want: true},
		"upper yes":    {in: " YES ", want: true},
		"one":          {in: "1", want: true},
		"short t":      {in: "t", want: true},
		"false":        {in: "False", def: true, want: false},
		"no":           {in: "no", def: true, want: false},
		"zero":         {in: "0", def: true, want: false},
		"empty":        {in: "", def: true, want: true},
		"unparseable":  {in: "maybe", def: true, want: true},
		"unparseable2": {in: "on", def: false, want: false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ParseBool(tc.in, tc.def))
		})
	}
}

func TestEnvName(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		prefix string
		name   string
		want   string
	}{
		"dotted":        {prefix: DefaultEnvPrefix, name: "kms.docker.image.forcepulling", want: "KMSENV_KMS_DOCKER_IMAGE_FORCEPULLING"},
		"dashed":        {prefix: DefaultEnvPrefix, name: "test.files-path", want: "KMSENV_TEST_FILES_PATH"},
		"custom prefix": {prefix: "X_", name: "kms.scope", want: "X_KMS_SCOPE"},
		"disabled":      {prefix: "", name: "kms.scope", want: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p := New(WithEnvPrefix(tc.prefix))
			assert.Equal(t, tc.want, p.EnvName(tc.name))
		})
	}
}

func TestLoadFlattensYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kmsenv.yaml")
	data := `
kms:
  ws:
    uri: ws://10.0.0.1:8888/kurento
  autostart: test
  docker:
    image:
      forcepulling: false
test.files.path: /srv/files
plugins:
  - /a
  - /b
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	p, err := Load(path, WithLookupEnv(envMap(nil)))
	require.NoError(t, err)
	assert.Equal(t, path, p.Path())
	assert.Equal(t, "ws://10.0.0.1:8888/kurento", p.Get("kms.ws.uri", ""))
	assert.Equal(t, "test", p.Get("kms.autostart", ""))
	assert.False(t, p.GetBool("kms.docker.image.forcepulling", true))
	assert.Equal(t, "/srv/files", p.Get(TestFilesPathProp, ""))
	assert.Equal(t, "/a,/b", p.Get("plugins", ""))
	assert.Contains(t, p.Keys(), "kms.ws.uri")
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("kms: [unterminated"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestNamesFor(t *testing.T) {
	t.Parallel()

	def := NamesFor("")
	assert.Equal(t, "kms.ws.uri", def.WSURI)
	assert.Equal(t, "kms.ws.uri.export", def.WSURIExport)
	assert.Equal(t, "kms.passwd", def.Password)
	assert.Equal(t, "kms.docker.image.forcepulling", def.ForcePull)

	fake := NamesFor("fake.kms")
	assert.Equal(t, "fake.kms.autostart", fake.Autostart)
	assert.Len(t, fake.All(), 16)
}

func TestNamesDefaults(t *testing.T) {
	t.Parallel()

	d := NamesFor("kms2").Defaults()
	assert.Equal(t, DefaultWSURI, d["kms2.ws.uri"])
	assert.Equal(t, "true", d["kms2.docker.image.forcepulling"])
	assert.Equal(t, DefaultOutputFolder, d[OutputFolderProp])
	_, ok := d["kms2.login"]
	assert.False(t, ok, "credentials have no default")
}
