// Package twofactor drives enrollment, verification and removal of TOTP
// two-factor authentication for the signed-in user.
package twofactor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bizdesk/internal/domain"
	"bizdesk/internal/gateway"
)

type State string

const (
	StateCheckingStatus   State = "checking-status"
	StateAlreadyEnabled   State = "already-enabled"
	StateProvisioning     State = "provisioning"
	StateAwaitingCode     State = "awaiting-code"
	StateVerified         State = "verified"
	StateAwaitingPassword State = "awaiting-password-confirmation"
	StateDisabled         State = "disabled"
)

// Outcome is the result of a verification attempt.
type Outcome int

const (
	OutcomeVerified Outcome = iota
	// OutcomeRetry means the code was refused; another may be entered.
	OutcomeRetry
)

// Period is the TOTP step length in seconds.
const Period = 30

const provisioningKey = "two_factor_provisioning"

var (
	ErrCodeFormat = errors.New("code must be 6 digits")
	ErrState      = errors.New("action not allowed in the current state")
)

// API is the part of the gateway the flow needs.
type API interface {
	TwoFactorStatus(ctx context.Context) (bool, error)
	SetupTwoFactor(ctx context.Context) (domain.TwoFactorProvisioning, error)
	VerifyTwoFactor(ctx context.Context, code string) error
	DisableTwoFactor(ctx context.Context, password string) error
}

// Scratch is session-scoped storage; session.Bag satisfies it.
type Scratch interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type Flow struct {
	api     API
	scratch Scratch
	Logger  *slog.Logger

	mu           sync.Mutex
	state        State
	provisioning domain.TwoFactorProvisioning
	err          string
}

func New(api API, scratch Scratch) *Flow {
	return &Flow{api: api, scratch: scratch, state: StateCheckingStatus}
}

func (f *Flow) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Provisioning returns the QR payload and manual secret while awaiting a code.
func (f *Flow) Provisioning() (domain.TwoFactorProvisioning, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.provisioning, f.provisioning.Secret != ""
}

// Err is the last inline error message, cleared by the next action.
func (f *Flow) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *Flow) set(state State, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.err = ""
	if err != nil {
		f.err = gateway.Message(err)
	}
}

// CheckStatus asks whether two factor is on without provisioning anything.
// When it is on the flow moves to already-enabled so it can be disabled.
func (f *Flow) CheckStatus(ctx context.Context) (bool, error) {
	f.set(StateCheckingStatus, nil)
	enabled, err := f.api.TwoFactorStatus(ctx)
	if err != nil {
		f.set(StateCheckingStatus, err)
		return false, err
	}
	if enabled {
		f.set(StateAlreadyEnabled, nil)
	}
	return enabled, nil
}

// Start checks the current status and, when two factor is off, provisions a
// secret. A secret already provisioned in this session is reused.
func (f *Flow) Start(ctx context.Context) error {
	enabled, err := f.CheckStatus(ctx)
	if err != nil || enabled {
		return err
	}

	f.set(StateProvisioning, nil)
	prov, ok, err := f.cached(ctx)
	if err != nil {
		f.logger().Warn("two factor scratch unreadable", "err", err)
	}
	if !ok {
		prov, err = f.api.SetupTwoFactor(ctx)
		if err != nil {
			f.set(StateProvisioning, err)
			return err
		}
		if raw, err := json.Marshal(prov); err == nil {
			if err := f.scratch.Put(ctx, provisioningKey, raw); err != nil {
				f.logger().Warn("caching two factor provisioning", "err", err)
			}
		}
	}
	f.mu.Lock()
	f.provisioning = prov
	f.mu.Unlock()
	f.set(StateAwaitingCode, nil)
	return nil
}

func (f *Flow) cached(ctx context.Context) (domain.TwoFactorProvisioning, bool, error) {
	var prov domain.TwoFactorProvisioning
	raw, ok, err := f.scratch.Get(ctx, provisioningKey)
	if err != nil || !ok {
		return prov, false, err
	}
	if err := json.Unmarshal(raw, &prov); err != nil {
		return prov, false, fmt.Errorf("decode cached provisioning: %w", err)
	}
	return prov, prov.Secret != "", nil
}

// ValidCode reports whether code has the shape of a TOTP code.
func ValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Verify submits code. A badly formed code is refused without a call.
func (f *Flow) Verify(ctx context.Context, code string) (Outcome, error) {
	if s := f.State(); s != StateAwaitingCode {
		return OutcomeRetry, fmt.Errorf("verify in %s: %w", s, ErrState)
	}
	if !ValidCode(code) {
		f.set(StateAwaitingCode, ErrCodeFormat)
		return OutcomeRetry, ErrCodeFormat
	}
	if err := f.api.VerifyTwoFactor(ctx, code); err != nil {
		// the secret stays valid whatever the failure, so the user may retry
		f.set(StateAwaitingCode, err)
		return OutcomeRetry, err
	}
	f.clearScratch(ctx)
	f.mu.Lock()
	f.provisioning = domain.TwoFactorProvisioning{}
	f.mu.Unlock()
	f.set(StateVerified, nil)
	return OutcomeVerified, nil
}

// SecondsRemaining is how long the current code stays valid. Advisory only.
func SecondsRemaining(now time.Time) int {
	return Period - int(now.Unix()%Period)
}

func (f *Flow) RequestDisable() error {
	if s := f.State(); s != StateAlreadyEnabled {
		return fmt.Errorf("disable in %s: %w", s, ErrState)
	}
	f.set(StateAwaitingPassword, nil)
	return nil
}

func (f *Flow) CancelDisable() {
	if f.State() == StateAwaitingPassword {
		f.set(StateAlreadyEnabled, nil)
	}
}

// ConfirmDisable turns two factor off. On failure the flow returns to
// already-enabled and keeps the message in Err.
func (f *Flow) ConfirmDisable(ctx context.Context, password string) error {
	if s := f.State(); s != StateAwaitingPassword {
		return fmt.Errorf("confirm disable in %s: %w", s, ErrState)
	}
	if err := f.api.DisableTwoFactor(ctx, password); err != nil {
		f.set(StateAlreadyEnabled, err)
		return err
	}
	f.set(StateDisabled, nil)
	return nil
}

// Abandon drops any provisioned secret from the session.
func (f *Flow) Abandon(ctx context.Context) {
	f.clearScratch(ctx)
	f.mu.Lock()
	f.provisioning = domain.TwoFactorProvisioning{}
	f.mu.Unlock()
}

func (f *Flow) clearScratch(ctx context.Context) {
	if err := f.scratch.Delete(ctx, provisioningKey); err != nil {
		f.logger().Warn("clearing two factor scratch", "err", err)
	}
}
