package platform

import "strings"

// DefaultNamespace is the namespace alias of the authenticated user.
const DefaultNamespace = "_"

// Credentials locate and authenticate against the remote platform.
type Credentials struct {
	APIHost   string
	AuthKey   string
	Namespace string
}

// Valid reports whether remote calls can be made.
func (c Credentials) Valid() bool {
	return c.APIHost != "" && c.AuthKey != ""
}

// BaseURL returns APIHost with a scheme; bare hosts default to https.
func (c Credentials) BaseURL() string {
	host := strings.TrimRight(c.APIHost, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

// Env returns the variables injected into action containers so actions can
// call back to the platform. Empty when the credentials are not Valid.
func (c Credentials) Env() []string {
	if !c.Valid() {
		return nil
	}
	ns := c.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	return []string{
		"__OW_API_HOST=" + c.BaseURL(),
		"__OW_API_KEY=" + c.AuthKey,
		"__OW_NAMESPACE=" + ns,
	}
}
