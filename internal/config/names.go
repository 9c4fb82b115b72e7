package config

import "strconv"

// DefaultPrefix is the property prefix of the primary media server.
const DefaultPrefix = "kms"

// Properties shared by every server in a run.
const (
	TestFilesPathProp = "test.files.path"
	OutputFolderProp  = "test.output.folder"
)

// Default property values.
const (
	DefaultWSURI          = "ws://localhost:8888/kurento"
	DefaultAutostart      = "testsuite"
	DefaultScope          = "local"
	ScopeDocker           = "docker"
	DefaultImageName      = "kurento/kurento-media-server-dev:latest"
	DefaultForcePull      = true
	DefaultGstPlugins     = ""
	DefaultDebugOptions   = "2,*media_server*:5,*Kurento*:5,KurentoMediaServerServiceHandler:7"
	DefaultServerCommand  = "/usr/bin/kurento-media-server"
	DefaultLogPath        = "/var/log/kurento-media-server/"
	DefaultTestFilesPath  = "/var/lib/jenkins/test-files"
	DefaultOutputFolder   = "target/surefire-reports"
	DefaultConfigFileName = "kmsenv.yaml"
)

// PropertyNames are the property keys of one media server. Several servers
// can share a property source by using different prefixes.
type PropertyNames struct {
	Prefix                string
	WSURI                 string
	WSURIExport           string
	Autostart             string
	Scope                 string
	Login                 string
	Password              string
	PEM                   string
	KnownHosts            string
	ImageName             string
	ForcePull             string
	GstPlugins            string
	Debug                 string
	Command               string
	LogPath               string
	RegistrarURI          string
	RegistrarLocalAddress string
}

// NamesFor returns the property names under prefix. An empty prefix means
// DefaultPrefix.
func NamesFor(prefix string) PropertyNames {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	p := prefix + "."
	return PropertyNames{
		Prefix:                prefix,
		WSURI:                 p + "ws.uri",
		WSURIExport:           p + "ws.uri.export",
		Autostart:             p + "autostart",
		Scope:                 p + "scope",
		Login:                 p + "login",
		Password:              p + "passwd",
		PEM:                   p + "pem",
		KnownHosts:            p + "known_hosts",
		ImageName:             p + "docker.image.name",
		ForcePull:             p + "docker.image.forcepulling",
		GstPlugins:            p + "gst.plugins",
		Debug:                 p + "debug",
		Command:               p + "command",
		LogPath:               p + "log.path",
		RegistrarURI:          p + "registrar.uri",
		RegistrarLocalAddress: p + "registrar.local.address",
	}
}

// All lists every per-server property name, for display.
func (n PropertyNames) All() []string {
	return []string{
		n.WSURI, n.WSURIExport, n.Autostart, n.Scope, n.Login, n.Password, n.PEM,
		n.KnownHosts, n.ImageName, n.ForcePull, n.GstPlugins, n.Debug, n.Command,
		n.LogPath, n.RegistrarURI, n.RegistrarLocalAddress,
	}
}

// Defaults maps the names that have a default value to that value. Shared
// test properties are included.
func (n PropertyNames) Defaults() map[string]string {
	return map[string]string{
		n.WSURI:           DefaultWSURI,
		n.Autostart:       DefaultAutostart,
		n.Scope:           DefaultScope,
		n.ImageName:       DefaultImageName,
		n.ForcePull:       strconv.FormatBool(DefaultForcePull),
		n.Debug:           DefaultDebugOptions,
		n.Command:         DefaultServerCommand,
		n.LogPath:         DefaultLogPath,
		TestFilesPathProp: DefaultTestFilesPath,
		OutputFolderProp:  DefaultOutputFolder,
	}
}
