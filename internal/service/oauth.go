package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/iliyamo/oob-marketplace/internal/config"
	"github.com/iliyamo/oob-marketplace/internal/model"
	"github.com/iliyamo/oob-marketplace/internal/queue"
	"github.com/iliyamo/oob-marketplace/internal/repository"
	"github.com/iliyamo/oob-marketplace/internal/utils"
)

// Provider names used in audit events and logs.
const (
	ProviderGoogle  = "google"
	ProviderTwitter = "twitter"
)

// Profile is the subset of a provider's userinfo document used to find or
// create the local account.
type Profile struct {
	Subject       string
	Email         string
	EmailVerified *bool // nil when the provider does not report it
	Name          string
	Username      string
	AvatarURL     string
}

// CallbackInput carries everything the redirect callback received. Verifier
// is only used by flows with PKCE.
type CallbackInput struct {
	Code        string
	State       string
	StateCookie string
	Verifier    string
	UserAgent   string
	IP          string
}

// OAuthDeps are the collaborators shared by the provider engines.
type OAuthDeps struct {
	Auth        *AuthService
	Users       UserStore
	StateSecret string
	Timeout     time.Duration
	Log         *slog.Logger
}

// oauthFlow holds the provider-independent half of an authorization code
// login: token exchange, userinfo fetch and local account upsert.
type oauthFlow struct {
	provider    string
	conf        *oauth2.Config
	userInfoURL string
	client      *http.Client
	deps        OAuthDeps
}

func newOAuthFlow(provider string, p config.OAuthProvider, style oauth2.AuthStyle, deps OAuthDeps) oauthFlow {
	if deps.Timeout <= 0 {
		deps.Timeout = 15 * time.Second
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return oauthFlow{
		provider: provider,
		conf: &oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  p.RedirectURI,
			Scopes:       p.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   p.AuthURL,
				TokenURL:  p.TokenURL,
				AuthStyle: style,
			},
		},
		userInfoURL: p.UserInfoURL,
		client:      &http.Client{Timeout: deps.Timeout},
		deps:        deps,
	}
}

// checkState validates the callback's code and state before anything leaves
// the process.
func (f *oauthFlow) checkState(in CallbackInput) error {
	if in.Code == "" || !utils.VerifyState(f.deps.StateSecret, in.State, in.StateCookie) {
		return ErrInvalidState
	}
	return nil
}

// exchange posts the authorization code to the token endpoint. A transport
// error, a non-2xx answer or a response without access_token fail with
// ErrOAuthFailed. There is a single attempt.
func (f *oauthFlow) exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	tok, err := f.conf.Exchange(ctx, code, opts...)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, fmt.Errorf("%w: token endpoint returned %d", ErrOAuthFailed, re.Response.StatusCode)
		}
		return nil, fmt.Errorf("%w: token exchange: %w", ErrOAuthFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token from provider", ErrOAuthFailed)
	}
	return tok, nil
}

// getJSON fetches the userinfo endpoint with a bearer token and decodes the
// JSON body into out.
func (f *oauthFlow) getJSON(ctx context.Context, accessToken string, query url.Values, out any) error {
	u := f.userInfoURL
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOAuthFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: userinfo: %w", ErrOAuthFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: userinfo returned %d", ErrOAuthFailed, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode userinfo: %w", ErrOAuthFailed, err)
	}
	return nil
}

// login upserts the local user for email and opens a session. New accounts
// have no password and role buyer; existing ones get their name and avatar
// refreshed when the provider reports different values.
func (f *oauthFlow) login(ctx context.Context, email, name, avatar, userAgent, ip string) (Issued, error) {
	u, err := f.upsert(ctx, model.NormalizeEmail(email), name, avatar)
	if err != nil {
		return Issued{}, err
	}
	iss, err := f.deps.Auth.IssueSession(ctx, u, userAgent, ip)
	if err != nil {
		return Issued{}, err
	}
	f.deps.Auth.publish(ctx, queue.AuthEvent{
		Type: queue.EventOAuthLogin, UserID: u.ID, SessionID: iss.SessionID,
		Provider: f.provider, IP: utils.NormalizeIP(ip), UserAgent: userAgent,
	})
	f.deps.Log.Info("oauth login", "provider", f.provider, "user_id", u.ID)
	return iss, nil
}

func (f *oauthFlow) upsert(ctx context.Context, email, name, avatar string) (model.User, error) {
	u, err := f.deps.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if (name != "" && name != u.Name) || (avatar != "" && avatar != u.AvatarURL) {
			if name == "" {
				name = u.Name
			}
			if avatar == "" {
				avatar = u.AvatarURL
			}
			if err := f.deps.Users.UpdateProfile(ctx, u.ID, name, avatar); err != nil {
				return model.User{}, fmt.Errorf("update profile: %w", err)
			}
			u.Name, u.AvatarURL = name, avatar
		}
		return u, nil
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}

	u, err = f.deps.Users.Create(ctx, model.User{
		Email:     email,
		Name:      name,
		AvatarURL: avatar,
		Role:      model.RoleBuyer,
	})
	if errors.Is(err, repository.ErrEmailExists) {
		// A concurrent callback created the account first.
		return f.deps.Users.FindByEmail(ctx, email)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}
