package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/iliyamo/oob-marketplace/internal/config"
	"github.com/iliyamo/oob-marketplace/internal/utils"
)

// TwitterLogin implements the OAuth 2.0 authorization code flow with PKCE
// against Twitter/X. The API does not return an email address, so a
// deterministic pseudo address can stand in when allowed.
type TwitterLogin struct {
	flow         oauthFlow
	allowPseudo  bool
	pseudoDomain string
}

// NewTwitterLogin builds the engine. With a client secret the credentials are
// sent with HTTP Basic auth, otherwise only client_id goes in the body
// (public client).
func NewTwitterLogin(p config.OAuthProvider, allowPseudoEmail bool, pseudoDomain string, deps OAuthDeps) *TwitterLogin {
	style := oauth2.AuthStyleInParams
	if p.ClientSecret != "" {
		style = oauth2.AuthStyleInHeader
	}
	return &TwitterLogin{
		flow:         newOAuthFlow(ProviderTwitter, p, style, deps),
		allowPseudo:  allowPseudoEmail,
		pseudoDomain: strings.TrimSpace(pseudoDomain),
	}
}

// BuildAuthorizeURL returns the consent screen URL for state and the S256
// code challenge.
func (t *TwitterLogin) BuildAuthorizeURL(state, challenge string) string {
	return t.flow.conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode trades an authorization code and its PKCE verifier for tokens.
func (t *TwitterLogin) ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return t.flow.exchange(ctx, code, oauth2.VerifierOption(verifier))
}

type twitterUserInfo struct {
	Data struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

// FetchProfile reads /2/users/me, which wraps the user in a data envelope.
func (t *TwitterLogin) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	var ui twitterUserInfo
	q := url.Values{"user.fields": {"profile_image_url,name,username"}}
	if err := t.flow.getJSON(ctx, accessToken, q, &ui); err != nil {
		return Profile{}, err
	}
	return Profile{
		Subject:   strings.TrimSpace(ui.Data.ID),
		Name:      ui.Data.Name,
		Username:  ui.Data.Username,
		AvatarURL: ui.Data.ProfileImageURL,
	}, nil
}

// CompleteLogin signs in the local account for a Twitter profile.
func (t *TwitterLogin) CompleteLogin(ctx context.Context, p Profile, userAgent, ip string) (Issued, error) {
	if p.Subject == "" || p.Username == "" {
		return Issued{}, ErrIncompleteProfile
	}
	email, err := t.email(p)
	if err != nil {
		return Issued{}, err
	}
	name := p.Name
	if name == "" {
		name = p.Username
	}
	return t.flow.login(ctx, email, name, p.AvatarURL, userAgent, ip)
}

func (t *TwitterLogin) email(p Profile) (string, error) {
	if p.Email != "" {
		return p.Email, nil
	}
	if t.allowPseudo && t.pseudoDomain != "" {
		return fmt.Sprintf("twitter_%s@%s", p.Subject, t.pseudoDomain), nil
	}
	return "", ErrNoEmail
}

// Callback validates state and the PKCE verifier, then runs exchange,
// profile fetch and login.
func (t *TwitterLogin) Callback(ctx context.Context, in CallbackInput) (Issued, error) {
	if err := t.flow.checkState(in); err != nil {
		return Issued{}, err
	}
	if !utils.ValidVerifier(in.Verifier) {
		return Issued{}, ErrInvalidPKCE
	}
	tok, err := t.ExchangeCode(ctx, in.Code, in.Verifier)
	if err != nil {
		return Issued{}, err
	}
	p, err := t.FetchProfile(ctx, tok.AccessToken)
	if err != nil {
		return Issued{}, err
	}
	return t.CompleteLogin(ctx, p, in.UserAgent, in.IP)
}
