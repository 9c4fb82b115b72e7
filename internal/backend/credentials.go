package backend

// Credentials authenticate an SSH session to a remote host.
type Credentials struct {
	Login          string
	Password       string
	PrivateKeyPEM  string // path to a PEM encoded private key
	KnownHostsPath string // empty disables host key checking
}

// Valid reports whether c can authenticate: a login plus a password or a
// private key.
func (c Credentials) Valid() bool {
	return c.Login != "" && (c.Password != "" || c.PrivateKeyPEM != "")
}

// Missing names the properties that make c invalid.
func (c Credentials) Missing() string {
	switch {
	case c.Login == "":
		return "login"
	case c.Password == "" && c.PrivateKeyPEM == "":
		return "password or private key"
	default:
		return ""
	}
}

// String hides the password.
func (c Credentials) String() string {
	pw := ""
	if c.Password != "" {
		pw = ":***"
	}
	return c.Login + pw
}
