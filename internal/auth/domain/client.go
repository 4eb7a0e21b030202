package domain

import "time"

// Client is a registered OAuth client. RedirectURIs is the exact-match
// allow-list for the authorization-code flow; SecretHash is only set for
// confidential clients that use the client_credentials grant.
type Client struct {
	ID           string
	Name         string
	SecretHash   string
	RedirectURIs []string
	Scopes       []string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AllowsRedirectURI reports whether uri exactly matches a registered
// redirect URI. No prefix or wildcard matching.
func (c *Client) AllowsRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}
