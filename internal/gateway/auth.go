package gateway

import (
	"context"
	"net/http"

	"bizdesk/internal/domain"
)

// LoginResult is either an issued session or a pending two-factor challenge.
type LoginResult struct {
	Token             string      `json:"token,omitempty"`
	User              domain.User `json:"user"`
	RequiresTwoFactor bool        `json:"requires_two_factor"`
	TempToken         string      `json:"temp_token,omitempty"`
	Email             string      `json:"email,omitempty"`
}

// Login authenticates with e-mail and password. When the account has two
// factor enabled the session stays absent and the caller must finish with
// CompleteChallenge using the returned temporary token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "auth/login",
		body:     map[string]string{"email": email, "password": password},
		out:      &res,
		authFlow: true,
	})
	if err != nil {
		return LoginResult{}, err
	}
	if res.RequiresTwoFactor {
		return res, nil
	}
	return res, c.Session.Issue(ctx, res.Token, res.User)
}

// CompleteChallenge exchanges a temporary token and a TOTP code for a session.
func (c *Client) CompleteChallenge(ctx context.Context, tempToken, code string) (domain.User, error) {
	var res LoginResult
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "auth/two-factor/challenge",
		body:     map[string]string{"temp_token": tempToken, "code": code},
		out:      &res,
		authFlow: true,
	})
	if err != nil {
		return domain.User{}, err
	}
	return res.User, c.Session.Issue(ctx, res.Token, res.User)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	var res LoginResult
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "auth/register",
		body:     map[string]string{"name": name, "email": email, "password": password},
		out:      &res,
		authFlow: true,
	})
	if err != nil {
		return domain.User{}, err
	}
	return res.User, c.Session.Issue(ctx, res.Token, res.User)
}

// Logout revokes the token server side and always drops the local session.
func (c *Client) Logout(ctx context.Context) error {
	err := c.send(ctx, http.MethodPost, "auth/logout", nil, nil)
	if invErr := c.Session.Invalidate(ctx, "logout"); invErr != nil && err == nil {
		err = invErr
	}
	if IsKind(err, KindAuth) {
		return nil
	}
	return err
}

// Me returns the current user and refreshes the cached copy.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var u domain.User
	if err := c.get(ctx, "auth/me", nil, &u); err != nil {
		return domain.User{}, err
	}
	return u, c.Session.SetUser(ctx, u)
}

// TwoFactorStatus reports whether two factor is enabled for the current user.
func (c *Client) TwoFactorStatus(ctx context.Context) (bool, error) {
	var res struct {
		Enabled bool `json:"enabled"`
	}
	err := c.get(ctx, "two-factor/status", nil, &res)
	return res.Enabled, err
}

// SetupTwoFactor provisions a new secret. Each call issues a different secret.
func (c *Client) SetupTwoFactor(ctx context.Context) (domain.TwoFactorProvisioning, error) {
	var res domain.TwoFactorProvisioning
	err := c.send(ctx, http.MethodPost, "two-factor/setup", struct{}{}, &res)
	return res, err
}

// VerifyTwoFactor confirms the provisioned secret with a code.
func (c *Client) VerifyTwoFactor(ctx context.Context, code string) error {
	return c.send(ctx, http.MethodPost, "two-factor/verify", map[string]string{"code": code}, nil)
}

// DisableTwoFactor turns two factor off; the account password is required.
func (c *Client) DisableTwoFactor(ctx context.Context, password string) error {
	return c.send(ctx, http.MethodPost, "two-factor/disable", map[string]string{"password": password}, nil)
}
