package twofactor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/domain"
	"bizdesk/internal/gateway"
	"bizdesk/internal/session"
	"bizdesk/internal/twofactor"
)

type fakeAPI struct {
	enabled     bool
	setups      int
	verifies    int
	verifyErr   error
	disableErr  error
	disabledPwd string
}

func (f *fakeAPI) TwoFactorStatus(context.Context) (bool, error) { return f.enabled, nil }

func (f *fakeAPI) SetupTwoFactor(context.Context) (domain.TwoFactorProvisioning, error) {
	f.setups++
	return domain.TwoFactorProvisioning{QRPayload: "otpauth://totp/bizdesk", Secret: "SECRET" + string(rune('0'+f.setups))}, nil
}

func (f *fakeAPI) VerifyTwoFactor(context.Context, string) error {
	f.verifies++
	return f.verifyErr
}

func (f *fakeAPI) DisableTwoFactor(_ context.Context, password string) error {
	f.disabledPwd = password
	return f.disableErr
}

// bag binds a memory scratch to one session id.
type bag struct {
	m  *session.MemoryScratch
	id string
}

func (b bag) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.m.Get(ctx, b.id, key)
}
func (b bag) Put(ctx context.Context, key string, v []byte) error { return b.m.Put(ctx, b.id, key, v) }
func (b bag) Delete(ctx context.Context, key string) error        { return b.m.Delete(ctx, b.id, key) }

func newBag() bag { return bag{m: session.NewMemoryScratch(16, 0), id: "s1"} }

func TestStartWhenEnabledDoesNotProvision(t *testing.T) {
	api := &fakeAPI{enabled: true}
	f := twofactor.New(api, newBag())
	require.NoError(t, f.Start(context.Background()))
	assert.Equal(t, twofactor.StateAlreadyEnabled, f.State())
	assert.Zero(t, api.setups)
	_, ok := f.Provisioning()
	assert.False(t, ok)
}

func TestStartProvisionsOncePerSession(t *testing.T) {
	api := &fakeAPI{}
	scratch := newBag()
	ctx := context.Background()

	first := twofactor.New(api, scratch)
	require.NoError(t, first.Start(ctx))
	require.NoError(t, first.Start(ctx))
	second := twofactor.New(api, scratch)
	require.NoError(t, second.Start(ctx))

	assert.Equal(t, 1, api.setups)
	p1, _ := first.Provisioning()
	p2, ok := second.Provisioning()
	require.True(t, ok)
	assert.Equal(t, p1.Secret, p2.Secret)
	assert.Equal(t, twofactor.StateAwaitingCode, second.State())
}

func TestVerifyRejectsMalformedCodeWithoutCall(t *testing.T) {
	api := &fakeAPI{}
	f := twofactor.New(api, newBag())
	require.NoError(t, f.Start(context.Background()))

	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		out, err := f.Verify(context.Background(), code)
		assert.ErrorIs(t, err, twofactor.ErrCodeFormat, code)
		assert.Equal(t, twofactor.OutcomeRetry, out)
	}
	assert.Zero(t, api.verifies)
	assert.Equal(t, twofactor.StateAwaitingCode, f.State())
}

func TestVerifyRetryThenSuccess(t *testing.T) {
	api := &fakeAPI{verifyErr: &gateway.Error{Kind: gateway.KindValidation, Status: 422, Message: "Invalid verification code"}}
	scratch := newBag()
	f := twofactor.New(api, scratch)
	ctx := context.Background()
	require.NoError(t, f.Start(ctx))

	out, err := f.Verify(ctx, "123456")
	require.Error(t, err)
	assert.Equal(t, twofactor.OutcomeRetry, out)
	assert.Equal(t, twofactor.StateAwaitingCode, f.State())
	assert.Equal(t, "Invalid verification code", f.Err())

	api.verifyErr = nil
	out, err = f.Verify(ctx, "654321")
	require.NoError(t, err)
	assert.Equal(t, twofactor.OutcomeVerified, out)
	assert.Equal(t, twofactor.StateVerified, f.State())
	assert.Empty(t, f.Err())

	_, found, err := scratch.Get(ctx, "two_factor_provisioning")
	require.NoError(t, err)
	assert.False(t, found, "scratch cleared after verification")
}

func TestDisableFlow(t *testing.T) {
	api := &fakeAPI{enabled: true, disableErr: &gateway.Error{Kind: gateway.KindValidation, Status: 422, Message: "The password is incorrect."}}
	f := twofactor.New(api, newBag())
	ctx := context.Background()
	require.NoError(t, f.Start(ctx))

	require.NoError(t, f.RequestDisable())
	assert.Equal(t, twofactor.StateAwaitingPassword, f.State())
	f.CancelDisable()
	assert.Equal(t, twofactor.StateAlreadyEnabled, f.State())

	require.NoError(t, f.RequestDisable())
	require.Error(t, f.ConfirmDisable(ctx, "wrong"))
	assert.Equal(t, twofactor.StateAlreadyEnabled, f.State())
	assert.Equal(t, "The password is incorrect.", f.Err())

	api.disableErr = nil
	require.NoError(t, f.RequestDisable())
	require.NoError(t, f.ConfirmDisable(ctx, "secret"))
	assert.Equal(t, twofactor.StateDisabled, f.State())
	assert.Equal(t, "secret", api.disabledPwd)
}

func TestCheckStatusWhileOffKeepsPendingSecret(t *testing.T) {
	api := &fakeAPI{}
	scratch := newBag()
	ctx := context.Background()

	setup := twofactor.New(api, scratch)
	require.NoError(t, setup.Start(ctx))
	pending, _ := setup.Provisioning()

	disable := twofactor.New(api, scratch)
	enabled, err := disable.CheckStatus(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.ErrorIs(t, disable.RequestDisable(), twofactor.ErrState)

	again := twofactor.New(api, scratch)
	require.NoError(t, again.Start(ctx))
	p, ok := again.Provisioning()
	require.True(t, ok)
	assert.Equal(t, 1, api.setups)
	assert.Equal(t, pending.Secret, p.Secret)
}

func TestCheckStatusWhenEnabledAllowsDisable(t *testing.T) {
	api := &fakeAPI{enabled: true}
	f := twofactor.New(api, newBag())
	enabled, err := f.CheckStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled)
	require.NoError(t, f.RequestDisable())
	assert.Equal(t, twofactor.StateAwaitingPassword, f.State())
	assert.Zero(t, api.setups)
}

func TestActionsOutOfState(t *testing.T) {
	f := twofactor.New(&fakeAPI{}, newBag())
	_, err := f.Verify(context.Background(), "123456")
	assert.True(t, errors.Is(err, twofactor.ErrState))
	assert.ErrorIs(t, f.RequestDisable(), twofactor.ErrState)
}

func TestAbandonClearsScratch(t *testing.T) {
	api := &fakeAPI{}
	scratch := newBag()
	ctx := context.Background()
	f := twofactor.New(api, scratch)
	require.NoError(t, f.Start(ctx))
	f.Abandon(ctx)
	require.NoError(t, twofactor.New(api, scratch).Start(ctx))
	assert.Equal(t, 2, api.setups)
}

func TestSecondsRemaining(t *testing.T) {
	assert.Equal(t, 30, twofactor.SecondsRemaining(time.Unix(60, 0)))
	assert.Equal(t, 1, twofactor.SecondsRemaining(time.Unix(89, 0)))
	assert.Equal(t, 18, twofactor.SecondsRemaining(time.Unix(1_000_002, 0)))
}
