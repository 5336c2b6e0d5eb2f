package client

import (
	"context"
	"net/url"

	"studenthub/domain"
)

const (
	tokenPath = "/auth/token"
	mePath    = "/auth/users/me"
)

// AuthAPI covers the login and "who am I" endpoints.
type AuthAPI struct {
	c *Client
}

// Token exchanges credentials for an access token (OAuth2 password flow).
func (a *AuthAPI) Token(ctx context.Context, username, password string) (domain.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	var tok domain.Token
	err := a.c.PostForm(ctx, tokenPath, form, &tok)
	return tok, err
}

// Me returns the user the bundle's token belongs to.
func (a *AuthAPI) Me(ctx context.Context) (domain.User, error) {
	var u domain.User
	err := a.c.GetJSON(ctx, mePath, &u)
	return u, err
}
