package service

import (
	"context"
	"strings"

	"golang.org/x/oauth2"

	"github.com/iliyamo/oob-marketplace/internal/config"
)

// GoogleLogin implements the OpenID Connect flavoured authorization code
// flow against Google.
type GoogleLogin struct {
	flow oauthFlow
}

// NewGoogleLogin builds the engine from provider settings. The client
// credentials travel in the token request body.
func NewGoogleLogin(p config.OAuthProvider, deps OAuthDeps) *GoogleLogin {
	return &GoogleLogin{flow: newOAuthFlow(ProviderGoogle, p, oauth2.AuthStyleInParams, deps)}
}

// BuildAuthorizeURL returns the consent screen URL for state.
func (g *GoogleLogin) BuildAuthorizeURL(state string) string {
	return g.flow.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCode trades an authorization code for provider tokens.
func (g *GoogleLogin) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return g.flow.exchange(ctx, code)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// FetchProfile reads the userinfo document.
func (g *GoogleLogin) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	var ui googleUserInfo
	if err := g.flow.getJSON(ctx, accessToken, nil, &ui); err != nil {
		return Profile{}, err
	}
	return Profile{
		Subject:       ui.Sub,
		Email:         strings.TrimSpace(ui.Email),
		EmailVerified: ui.EmailVerified,
		Name:          ui.Name,
		AvatarURL:     ui.Picture,
	}, nil
}

// CompleteLogin signs in the local account matching a verified Google email.
func (g *GoogleLogin) CompleteLogin(ctx context.Context, p Profile, userAgent, ip string) (Issued, error) {
	if p.Email == "" || (p.EmailVerified != nil && !*p.EmailVerified) {
		return Issued{}, ErrNoEmail
	}
	return g.flow.login(ctx, p.Email, p.Name, p.AvatarURL, userAgent, ip)
}

// Callback validates the redirect and runs exchange, profile fetch and login.
func (g *GoogleLogin) Callback(ctx context.Context, in CallbackInput) (Issued, error) {
	if err := g.flow.checkState(in); err != nil {
		return Issued{}, err
	}
	tok, err := g.ExchangeCode(ctx, in.Code)
	if err != nil {
		return Issued{}, err
	}
	p, err := g.FetchProfile(ctx, tok.AccessToken)
	if err != nil {
		return Issued{}, err
	}
	return g.CompleteLogin(ctx, p, in.UserAgent, in.IP)
}
