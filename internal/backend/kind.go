package backend

// Kind describes a provisioned backend. It is one of LocalKind,
// ContainerKind or RemoteKind.
type Kind interface {
	Type() Type
	kind()
}

// LocalKind is a server process on this host.
type LocalKind struct {
	WorkspacePath string
}

// ContainerKind is a server in a docker container.
type ContainerKind struct {
	ImageName     string
	ContainerName string
}

// RemoteKind is a server process on another host.
type RemoteKind struct {
	Host                string
	Credentials         Credentials
	RemoteWorkspacePath string
}

func (LocalKind) Type() Type     { return TypeLocal }
func (ContainerKind) Type() Type { return TypeContainer }
func (RemoteKind) Type() Type    { return TypeRemote }

func (LocalKind) kind()     {}
func (ContainerKind) kind() {}
func (RemoteKind) kind()    {}
