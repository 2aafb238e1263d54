package httpclient

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic
	// AuthBearer uses Bearer token authentication.
	AuthBearer
)

// String returns the auth type name.
func (t AuthType) String() string {
	switch t {
	case AuthBasic:
		return "basic"
	case AuthBearer:
		return "bearer"
	default:
		return "none"
	}
}

// Credentials authenticate every request made through a Connection.
// The zero value means no authentication.
type Credentials struct {
	// Type is the authentication method.
	Type AuthType
	// Username is the basic auth username (AuthBasic).
	Username string
	// Password is the basic auth password (AuthBasic).
	Password string
	// Token is the bearer token (AuthBearer).
	Token string
}

// NoAuth returns empty credentials.
func NoAuth() Credentials {
	return Credentials{}
}

// BasicAuth returns basic credentials. When both user and password are
// empty no Authorization header is sent.
func BasicAuth(username, password string) Credentials {
	if username == "" && password == "" {
		return Credentials{}
	}
	return Credentials{Type: AuthBasic, Username: username, Password: password}
}

// BearerAuth returns bearer token credentials.
func BearerAuth(token string) Credentials {
	if token == "" {
		return Credentials{}
	}
	return Credentials{Type: AuthBearer, Token: token}
}

// CredentialsFromURL reads basic credentials from the userinfo of u.
func CredentialsFromURL(u *url.URL) Credentials {
	if u == nil || u.User == nil {
		return Credentials{}
	}
	password, _ := u.User.Password()
	return BasicAuth(u.User.Username(), password)
}

// IsZero reports whether c carries no credentials.
func (c Credentials) IsZero() bool {
	return c.Type == AuthNone
}

// Authorization returns the Authorization header value. ok is false when
// there is nothing to send.
func (c Credentials) Authorization() (value string, ok bool) {
	switch c.Type {
	case AuthBasic:
		raw := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
		return "Basic " + strings.ReplaceAll(raw, "\n", ""), true
	case AuthBearer:
		return "Bearer " + c.Token, true
	default:
		return "", false
	}
}
