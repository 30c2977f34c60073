package engine

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"bizdesk/internal/domain"
	"bizdesk/internal/repo"
)

const minPasswordLength = 8

type RegisterOptions struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

func (e Engine) Register(ctx context.Context, opts RegisterOptions) (domain.User, error) {
	fe := fieldErrors{}
	if strings.TrimSpace(opts.Name) == "" {
		fe.add("name", "The name field is required.")
	}
	if _, err := mail.ParseAddress(opts.Email); err != nil {
		fe.add("email", "The email must be a valid email address.")
	}
	if len(opts.Password) < minPasswordLength {
		fe.add("password", "The password must be at least 8 characters.")
	}
	if opts.PasswordConfirmation != "" && opts.PasswordConfirmation != opts.Password {
		fe.add("password", "The password confirmation does not match.")
	}
	if err := fe.err(); err != nil {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), e.cost())
	if err != nil {
		return domain.User{}, err
	}
	id, err := e.Repo.InsertUser(ctx, repo.UserRecord{
		User:         domain.User{Name: strings.TrimSpace(opts.Name), Email: opts.Email},
		PasswordHash: string(hash),
		CreatedAt:    e.stamp(),
	})
	if errors.Is(err, repo.ErrEmailTaken) {
		return domain.User{}, invalid("email", "The email has already been taken.")
	}
	if err != nil {
		return domain.User{}, err
	}
	u, err := e.Repo.GetUser(ctx, id)
	return u.User, err
}

// Authenticate checks an email and password pair.
func (e Engine) Authenticate(ctx context.Context, email, password string) (repo.UserRecord, error) {
	u, err := e.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return repo.UserRecord{}, ErrInvalidCredentials
	}
	if err != nil {
		return repo.UserRecord{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return repo.UserRecord{}, ErrInvalidCredentials
	}
	return u, nil
}

func (e Engine) User(ctx context.Context, id int64) (domain.User, error) {
	u, err := e.Repo.GetUser(ctx, id)
	return u.User, wrapNotFound("user", id, err)
}

func (e Engine) issuer() string {
	if e.Config.Issuer != "" {
		return e.Config.Issuer
	}
	return "bizdesk"
}

// SetupTwoFactor provisions a fresh secret. Each call replaces any earlier
// unverified secret.
func (e Engine) SetupTwoFactor(ctx context.Context, userID int64) (domain.TwoFactorProvisioning, error) {
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return domain.TwoFactorProvisioning{}, wrapNotFound("user", userID, err)
	}
	if u.TwoFactorEnabled {
		return domain.TwoFactorProvisioning{}, ConflictError{Reason: "two factor authentication is already enabled"}
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: e.issuer(), AccountName: u.Email})
	if err != nil {
		return domain.TwoFactorProvisioning{}, err
	}
	if err := e.Repo.SetTwoFactorPending(ctx, userID, key.Secret()); err != nil {
		return domain.TwoFactorProvisioning{}, err
	}
	return domain.TwoFactorProvisioning{QRPayload: key.URL(), Secret: key.Secret()}, nil
}

func (e Engine) validCode(code, secret string) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, e.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// VerifyTwoFactor enables two factor when code matches the pending secret.
func (e Engine) VerifyTwoFactor(ctx context.Context, userID int64, code string) error {
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return wrapNotFound("user", userID, err)
	}
	if u.TwoFactorPending == "" {
		return ConflictError{Reason: "two factor setup has not been started"}
	}
	if !e.validCode(code, u.TwoFactorPending) {
		return invalid("code", "Invalid verification code")
	}
	return e.Repo.EnableTwoFactor(ctx, userID)
}

func (e Engine) DisableTwoFactor(ctx context.Context, userID int64, password string) error {
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return wrapNotFound("user", userID, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return invalid("password", "The password is incorrect.")
	}
	if !u.TwoFactorEnabled {
		return ConflictError{Reason: "two factor authentication is not enabled"}
	}
	return e.Repo.DisableTwoFactor(ctx, userID)
}

// CheckChallenge verifies the second factor of a login.
func (e Engine) CheckChallenge(ctx context.Context, userID int64, code string) (domain.User, error) {
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, wrapNotFound("user", userID, err)
	}
	if !u.TwoFactorEnabled || !e.validCode(code, u.TwoFactorSecret) {
		return domain.User{}, invalid("code", "Invalid verification code")
	}
	return u.User, nil
}

// RevokeToken records a token id as logged out.
func (e Engine) RevokeToken(ctx context.Context, jti string) error {
	return e.Repo.RevokeToken(ctx, jti, e.stamp())
}

func (e Engine) TokenRevoked(ctx context.Context, jti string) (bool, error) {
	return e.Repo.TokenRevoked(ctx, jti)
}

// CodeAt returns the valid code for secret at t; used by seed tooling and tests.
func CodeAt(secret string, t time.Time) (string, error) {
	return totp.GenerateCode(secret, t)
}
