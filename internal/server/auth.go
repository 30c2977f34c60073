package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"bizdesk/internal/engine"
	"bizdesk/internal/engine/auth"
)

type principal struct {
	UserID  int64
	TokenID string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

func currentUser(ctx context.Context) (principal, error) {
	if p, ok := principalFromContext(ctx); ok && p.UserID != 0 {
		return p, nil
	}
	return principal{}, unauthenticated()
}

func unauthenticated() huma.StatusError {
	return newAPIError(http.StatusUnauthorized, "unauthorized", "Unauthenticated.", nil)
}

var publicRoutes = []string{
	"health",
	"openapi.json",
	"auth/login",
	"auth/register",
	"auth/two-factor/challenge",
}

func isPublicPath(basePath, p string) bool {
	for _, route := range publicRoutes {
		if p == path.Join(basePath, route) {
			return true
		}
	}
	return false
}

func newAuthMiddleware(basePath string, tokens auth.Service, e engine.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Only enforce for API base path.
			if !strings.HasPrefix(req.URL.Path, basePath) || isPublicPath(basePath, req.URL.Path) {
				next.ServeHTTP(w, req)
				return
			}
			token, ok := auth.BearerToken(req.Header.Get("Authorization"))
			if !ok {
				respondStatusError(w, unauthenticated())
				return
			}
			claims, err := tokens.Parse(token, auth.PurposeSession)
			if err != nil {
				respondStatusError(w, unauthenticated())
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				respondStatusError(w, unauthenticated())
				return
			}
			revoked, err := e.TokenRevoked(req.Context(), claims.ID)
			if err != nil {
				respondStatusError(w, handleError(err))
				return
			}
			if revoked {
				respondStatusError(w, unauthenticated())
				return
			}
			ctx := withPrincipal(req.Context(), principal{UserID: userID, TokenID: claims.ID})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}

type loginOutput struct {
	Body LoginResponse `json:"body"`
}

func sessionFor(tokens auth.Service, userID int64, res *LoginResponse) error {
	token, _, err := tokens.Issue(userID, auth.PurposeSession)
	if err != nil {
		return err
	}
	res.Token = token
	return nil
}

func registerAuth(api huma.API, e engine.Engine, tokens auth.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "auth-login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with e-mail and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*loginOutput, error) {
		rec, err := e.Authenticate(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		if rec.TwoFactorEnabled {
			temp, _, err := tokens.Issue(rec.ID, auth.PurposeChallenge)
			if err != nil {
				return nil, handleError(err)
			}
			return &loginOutput{Body: LoginResponse{RequiresTwoFactor: true, TempToken: temp, Email: rec.Email}}, nil
		}
		user := toUserResponse(rec.User)
		out := &loginOutput{Body: LoginResponse{User: &user}}
		if err := sessionFor(tokens, rec.ID, &out.Body); err != nil {
			return nil, handleError(err)
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auth-two-factor-challenge",
		Method:      http.MethodPost,
		Path:        "/auth/two-factor/challenge",
		Summary:     "Complete a login with a one-time code",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *struct {
		Body ChallengeRequest `json:"body"`
	}) (*loginOutput, error) {
		claims, err := tokens.Parse(input.Body.TempToken, auth.PurposeChallenge)
		if err != nil {
			return nil, handleError(err)
		}
		used, err := e.TokenRevoked(ctx, claims.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if used {
			return nil, unauthenticated()
		}
		userID, err := claims.UserID()
		if err != nil {
			return nil, unauthenticated()
		}
		u, err := e.CheckChallenge(ctx, userID, input.Body.Code)
		if err != nil {
			return nil, handleError(err)
		}
		if err := e.RevokeToken(ctx, claims.ID); err != nil {
			return nil, handleError(err)
		}
		user := toUserResponse(u)
		out := &loginOutput{Body: LoginResponse{User: &user}}
		if err := sessionFor(tokens, u.ID, &out.Body); err != nil {
			return nil, handleError(err)
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "auth-register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Create an account",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body RegisterRequest `json:"body"`
	}) (*loginOutput, error) {
		u, err := e.Register(ctx, engine.RegisterOptions{
			Name:                 input.Body.Name,
			Email:                input.Body.Email,
			Password:             input.Body.Password,
			PasswordConfirmation: input.Body.PasswordConfirmation,
		})
		if err != nil {
			return nil, handleError(err)
		}
		user := toUserResponse(u)
		out := &loginOutput{Body: LoginResponse{User: &user}}
		if err := sessionFor(tokens, u.ID, &out.Body); err != nil {
			return nil, handleError(err)
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "auth-logout",
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		Summary:       "Revoke the current token",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		if err := e.RevokeToken(ctx, p.TokenID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auth-me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		u, err := e.User(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: toUserResponse(u)}, nil
	})
}

type messageOutput struct {
	Body MessageResponse `json:"body"`
}

func message(msg string) *messageOutput {
	return &messageOutput{Body: MessageResponse{Message: msg}}
}

func registerTwoFactor(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "two-factor-status",
		Method:      http.MethodGet,
		Path:        "/two-factor/status",
		Summary:     "Two-factor status of the current user",
		Tags:        []string{"Two-factor"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body TwoFactorStatusResponse `json:"body"`
	}, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		u, err := e.User(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TwoFactorStatusResponse `json:"body"`
		}{Body: TwoFactorStatusResponse{Enabled: u.TwoFactorEnabled}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "two-factor-setup",
		Method:      http.MethodPost,
		Path:        "/two-factor/setup",
		Summary:     "Provision a new authenticator secret",
		Tags:        []string{"Two-factor"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body TwoFactorSetupResponse `json:"body"`
	}, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		prov, err := e.SetupTwoFactor(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TwoFactorSetupResponse `json:"body"`
		}{Body: TwoFactorSetupResponse{QRCode: prov.QRPayload, Secret: prov.Secret}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "two-factor-verify",
		Method:      http.MethodPost,
		Path:        "/two-factor/verify",
		Summary:     "Confirm the provisioned secret",
		Tags:        []string{"Two-factor"},
	}, func(ctx context.Context, input *struct {
		Body CodeRequest `json:"body"`
	}) (*messageOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		if err := e.VerifyTwoFactor(ctx, p.UserID, input.Body.Code); err != nil {
			return nil, handleError(err)
		}
		return message("Two-factor authentication enabled."), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "two-factor-disable",
		Method:      http.MethodPost,
		Path:        "/two-factor/disable",
		Summary:     "Turn two-factor off",
		Tags:        []string{"Two-factor"},
	}, func(ctx context.Context, input *struct {
		Body PasswordRequest `json:"body"`
	}) (*messageOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		if err := e.DisableTwoFactor(ctx, p.UserID, input.Body.Password); err != nil {
			return nil, handleError(err)
		}
		return message("Two-factor authentication disabled."), nil
	})
}
