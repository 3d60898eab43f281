package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/truck-storefront/internal/models"
	"github.com/ignatzorin/truck-storefront/internal/pkg/apperror"
	"github.com/ignatzorin/truck-storefront/internal/repository"
)

const (
	testPhone  = "919876543210"
	testSecret = "otp-hash-secret-for-tests"
)

var errDBDown = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

// mockOTPRepository реализует OTPRepository в памяти с той же семантикой, что и SQL.
type mockOTPRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.OTPVerification
	// failOn имя метода -> ошибка, которую он вернёт.
	failOn map[string]error
}

func newMockOTPRepository() *mockOTPRepository {
	return &mockOTPRepository{
		records: make(map[uuid.UUID]*models.OTPVerification),
		failOn:  make(map[string]error),
	}
}

func (m *mockOTPRepository) fail(method string) error {
	if err, ok := m.failOn[method]; ok {
		return errors.Join(repository.ErrStoreUnavailable, err)
	}
	return nil
}

func (m *mockOTPRepository) latest(match func(*models.OTPVerification) bool, at func(*models.OTPVerification) time.Time) (*models.OTPVerification, error) {
	var found []*models.OTPVerification
	for _, r := range m.records {
		if match(r) {
			found = append(found, r)
		}
	}
	if len(found) == 0 {
		return nil, repository.ErrOTPNotFound
	}
	sort.Slice(found, func(i, j int) bool { return at(found[i]).After(at(found[j])) })
	cp := *found[0]
	return &cp, nil
}

func byCreatedAt(r *models.OTPVerification) time.Time { return r.CreatedAt }

func byVerifiedAt(r *models.OTPVerification) time.Time { return *r.VerifiedAt }

func (m *mockOTPRepository) FindLiveChallenge(ctx context.Context, phone, purpose string, now time.Time) (*models.OTPVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindLiveChallenge"); err != nil {
		return nil, err
	}
	return m.latest(func(r *models.OTPVerification) bool {
		return r.Phone == phone && r.Purpose == purpose && !r.Verified && r.ExpiresAt.After(now)
	}, byCreatedAt)
}

func (m *mockOTPRepository) CreateChallenge(ctx context.Context, c *models.OTPVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateChallenge"); err != nil {
		return err
	}
	for id, r := range m.records {
		if r.Phone == c.Phone && r.Purpose == c.Purpose && !r.Verified {
			delete(m.records, id)
		}
	}
	c.ID = uuid.New()
	c.Attempts = 0
	c.Verified = false
	cp := *c
	m.records[c.ID] = &cp
	return nil
}

func (m *mockOTPRepository) FindLatestUnverified(ctx context.Context, phone, purpose string) (*models.OTPVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindLatestUnverified"); err != nil {
		return nil, err
	}
	return m.latest(func(r *models.OTPVerification) bool {
		return r.Phone == phone && r.Purpose == purpose && !r.Verified
	}, byCreatedAt)
}

func (m *mockOTPRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("IncrementAttempts"); err != nil {
		return 0, err
	}
	r, ok := m.records[id]
	if !ok || r.Attempts >= r.MaxAttempts {
		return 0, repository.ErrOTPNotFound
	}
	r.Attempts++
	return r.Attempts, nil
}

func (m *mockOTPRepository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkVerified"); err != nil {
		return err
	}
	r, ok := m.records[id]
	if !ok || r.Verified {
		return repository.ErrOTPNotFound
	}
	r.Verified = true
	r.VerifiedAt = &at
	return nil
}

func (m *mockOTPRepository) DeleteChallenge(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteChallenge"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(repository.ErrStoreUnavailable, err)
	}
	delete(m.records, id)
	return nil
}

func (m *mockOTPRepository) FindLiveVerifiedGrant(ctx context.Context, phone, purpose string, since time.Time) (*models.OTPVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindLiveVerifiedGrant"); err != nil {
		return nil, err
	}
	return m.latest(func(r *models.OTPVerification) bool {
		return r.Phone == phone && r.Purpose == purpose && r.Verified && !r.VerifiedAt.Before(since)
	}, byVerifiedAt)
}

func (m *mockOTPRepository) DeleteStaleVerifiedGrants(ctx context.Context, phone, purpose string, before time.Time) (int64, error) {
	return m.deleteWhere("DeleteStaleVerifiedGrants", func(r *models.OTPVerification) bool {
		return r.Phone == phone && r.Purpose == purpose && r.Verified && r.VerifiedAt.Before(before)
	})
}

func (m *mockOTPRepository) DeleteVerifiedGrants(ctx context.Context, phone, purpose string) (int64, error) {
	return m.deleteWhere("DeleteVerifiedGrants", func(r *models.OTPVerification) bool {
		return r.Phone == phone && r.Purpose == purpose && r.Verified
	})
}

func (m *mockOTPRepository) deleteWhere(method string, match func(*models.OTPVerification) bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(method); err != nil {
		return 0, err
	}
	var n int64
	for id, r := range m.records {
		if match(r) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// claim удаляет подтверждённую запись id; false, если её уже нет.
func (m *mockOTPRepository) claim(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || !r.Verified {
		return false
	}
	delete(m.records, id)
	return true
}

// liveUnverified число живых неподтверждённых кодов пары.
func (m *mockOTPRepository) liveUnverified(phone, purpose string, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.Phone == phone && r.Purpose == purpose && !r.Verified && r.ExpiresAt.After(now) {
			n++
		}
	}
	return n
}

func (m *mockOTPRepository) get(id uuid.UUID) (*models.OTPVerification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// mockSender запоминает отправленные коды.
type mockSender struct {
	codes []string
	err   error
	// cancel имитирует отмену запроса клиентом во время отправки.
	cancel context.CancelFunc
}

func (s *mockSender) SendCode(ctx context.Context, phone, code, purpose string) error {
	if s.cancel != nil {
		s.cancel()
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	s.codes = append(s.codes, code)
	return nil
}

func (s *mockSender) last(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, s.codes, "код не был отправлен")
	return s.codes[len(s.codes)-1]
}

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testSettings() OTPSettings {
	return OTPSettings{
		Expiry:          10 * time.Minute,
		ResendCooldown:  time.Minute,
		VerificationTTL: 15 * time.Minute,
		MaxAttempts:     5,
		Production:      true,
	}
}

type otpFixture struct {
	repo    *mockOTPRepository
	sender  *mockSender
	clock   *testClock
	tokens  *GrantTokenManager
	service *OTPService
	gate    *OTPGate
}

func newOTPFixture(settings OTPSettings) *otpFixture {
	f := &otpFixture{
		repo:   newMockOTPRepository(),
		sender: &mockSender{},
		clock:  &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		tokens: NewGrantTokenManager("grant-token-secret-for-tests"),
	}
	f.service = NewOTPService(f.repo, f.sender, NewPasscodeGenerator(6, testSecret), f.tokens, settings)
	f.service.now = f.clock.now
	f.gate = NewOTPGate(f.repo, f.tokens, settings.VerificationTTL)
	f.gate.now = f.clock.now
	return f
}

func requireAppError(t *testing.T, err error, code apperror.ErrorCode) *apperror.AppError {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code, "неожиданная ошибка: %v", err)
	return appErr
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func TestRequestChallenge_Success(t *testing.T) {
	f := newOTPFixture(testSettings())
	ctx := context.Background()

	issued, err := f.service.RequestChallenge(ctx, "+91 98765-43210", models.OTPPurposeInquiry)
	require.NoError(t, err)
	assert.Equal(t, "10 minutes", issued.ExpiresIn)
	assert.Equal(t, f.clock.t.Add(10*time.Minute), issued.ExpiresAt)

	stored, err := f.repo.FindLatestUnverified(ctx, testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)
	code := f.sender.last(t)
	assert.Len(t, code, 6)
	assert.NotEqual(t, code, stored.CodeHash)
	assert.True(t, NewPasscodeGenerator(6, testSecret).Matches(code, stored.CodeHash))
	assert.Equal(t, 0, stored.Attempts)
	assert.Equal(t, 5, stored.MaxAttempts)
}

func TestRequestChallenge_Validation(t *testing.T) {
	f := newOTPFixture(testSettings())

	_, err := f.service.RequestChallenge(context.Background(), "12345", models.OTPPurposeInquiry)
	requireAppError(t, err, apperror.ErrCodeValidation)

	_, err = f.service.RequestChallenge(context.Background(), testPhone, "login")
	requireAppError(t, err, apperror.ErrCodeValidation)

	assert.Empty(t, f.sender.codes)
}

func TestRequestChallenge_CooldownBoundary(t *testing.T) {
	f := newOTPFixture(testSettings())
	ctx := context.Background()

	_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)
	firstCode := f.sender.last(t)

	f.clock.advance(time.Minute - time.Second)
	_, err = f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	appErr := requireAppError(t, err, apperror.ErrCodeRateLimited)
	assert.Equal(t, time.Second, appErr.RetryAfter)
	assert.Len(t, f.sender.codes, 1, "во время cooldown SMS не отправляется")

	f.clock.advance(2 * time.Second)
	_, err = f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)
	secondCode := f.sender.last(t)

	assert.Equal(t, 1, f.repo.liveUnverified(testPhone, models.OTPPurposeInquiry, f.clock.t))

	// Первый код вытеснен вторым.
	if firstCode != secondCode {
		_, err = f.service.ValidateChallenge(ctx, testPhone, models.OTPPurposeInquiry, firstCode)
		requireAppError(t, err, apperror.ErrCodeInvalidCode)
	}
	_, err = f.service.ValidateChallenge(ctx, testPhone, models.OTPPurposeInquiry, secondCode)
	require.NoError(t, err)
}

func TestRequestChallenge_AtMostOneLiveChallenge(t *testing.T) {
	f := newOTPFixture(testSettings())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
		require.NoError(t, err)
		assert.Equal(t, 1, f.repo.liveUnverified(testPhone, models.OTPPurposeInquiry, f.clock.t))
		f.clock.advance(61 * time.Second)
	}

	// Другое назначение независимо.
	_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeReportView)
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.liveUnverified(testPhone, models.OTPPurposeReportView, f.clock.t))
	assert.Equal(t, 1, f.repo.liveUnverified(testPhone, models.OTPPurposeInquiry, f.clock.t))
}

func TestRequestChallenge_CooldownIgnoresExpiredChallenge(t *testing.T) {
	settings := testSettings()
	settings.Expiry = 30 * time.Second
	f := newOTPFixture(settings)
	ctx := context.Background()

	_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)

	f.clock.advance(31 * time.Second)
	_, err = f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	assert.NoError(t, err)
}

func TestRequestChallenge_DispatchFailureInProduction(t *testing.T) {
	f := newOTPFixture(testSettings())
	f.sender.err = errors.New("sms: request failed status=500")

	_, err := f.service.RequestChallenge(context.Background(), testPhone, models.OTPPurposeInquiry)
	requireAppError(t, err, apperror.ErrCodeDispatchFailed)

	_, err = f.repo.FindLatestUnverified(context.Background(), testPhone, models.OTPPurposeInquiry)
	assert.ErrorIs(t, err, repository.ErrOTPNotFound, "неотправленный код должен быть удалён")
}

func TestRequestChallenge_DispatchCancelledStillRollsBack(t *testing.T) {
	f := newOTPFixture(testSettings())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.sender.cancel = cancel

	_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	requireAppError(t, err, apperror.ErrCodeDispatchFailed)
	assert.Zero(t, f.repo.liveUnverified(testPhone, models.OTPPurposeInquiry, f.clock.now()))

	// Повторный запрос не упирается в cooldown.
	f.sender.cancel = nil
	_, err = f.service.RequestChallenge(context.Background(), testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)
}

func TestRequestChallenge_DispatchFailureInDevelopment(t *testing.T) {
	settings := testSettings()
	settings.Production = false
	f := newOTPFixture(settings)
	f.sender.err = errors.New("sms: API key not configured")

	issued, err := f.service.RequestChallenge(context.Background(), testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)
	assert.NotNil(t, issued)

	_, err = f.repo.FindLatestUnverified(context.Background(), testPhone, models.OTPPurposeInquiry)
	assert.NoError(t, err)
}

func TestRequestChallenge_StoreUnavailable(t *testing.T) {
	for _, method := range []string{"FindLiveChallenge", "CreateChallenge"} {
		t.Run(method, func(t *testing.T) {
			f := newOTPFixture(testSettings())
			f.repo.failOn[method] = errDBDown

			_, err := f.service.RequestChallenge(context.Background(), testPhone, models.OTPPurposeInquiry)
			appErr := requireAppError(t, err, apperror.ErrCodeStoreUnavailable)
			assert.Equal(t, apperror.MsgGenerateFailed, appErr.Message)
			assert.NotContains(t, appErr.Message, "5432")
			assert.Empty(t, f.sender.codes)
		})
	}
}

func TestValidateChallenge_Success(t *testing.T) {
	f := newOTPFixture(testSettings())
	ctx := context.Background()

	_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeReportView)
	require.NoError(t, err)
	f.clock.advance(30 * time.Second)

	res, err := f.service.ValidateChallenge(ctx, "+91 98765 43210", models.OTPPurposeReportView, f.sender.last(t))
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, models.OTPPurposeReportView, res.Purpose)
	assert.Equal(t, f.clock.t.Add(15*time.Minute), res.ExpiresAt)

	claims, err := f.tokens.Parse(res.Token, f.clock.t)
	require.NoError(t, err)
	assert.Equal(t, testPhone, claims.Subject)

	grant, ok := f.repo.get(claims.ChallengeID())
	require.True(t, ok)
	assert.True(t, grant.Verified)
	require.NotNil(t, grant.VerifiedAt)
	assert.Equal(t, f.clock.t, *grant.VerifiedAt)

	// Подтверждённый код повторно не проверяется.
	_, err = f.service.ValidateChallenge(ctx, testPhone, models.OTPPurposeReportView, f.sender.last(t))
	requireAppError(t, err, apperror.ErrCodeNotFound)
}

func TestValidateChallenge_NotFound(t *testing.T) {
	f := newOTPFixture(testSettings())

	_, err := f.service.ValidateChallenge(context.Background(), testPhone, models.OTPPurposeInquiry, "123456")
	appErr := requireAppError(t, err, apperror.ErrCodeNotFound)
	assert.Equal(t, apperror.MsgOTPNotFound, appErr.Message)
}

func TestValidateChallenge_InvalidFormat(t *testing.T) {
	f := newOTPFixture(testSettings())

	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		_, err := f.service.ValidateChallenge(context.Background(), testPhone, models.OTPPurposeInquiry, code)
		requireAppError(t, err, apperror.ErrCodeValidation)
	}
}

func TestValidateChallenge_AttemptsExhaustedOnSixthAttempt(t *testing.T) {
	f := newOTPFixture(testSettings())
	ctx := context.Background()
	phone := "9999999999"

	_, err := f.service.RequestChallenge(ctx, phone, models.OTPPurposeInquiry)
	require.NoError(t, err)
	code := f.sender.last(t)
	challenge, err := f.repo.FindLatestUnverified(ctx, phone, models.OTPPurposeInquiry)
	require.NoError(t, err)

	prevAttempts := 0
	for i := 1; i <= 5; i++ {
		_, err := f.service.ValidateChallenge(ctx, phone, models.OTPPurposeInquiry, wrongCode(code))
		appErr := requireAppError(t, err, apperror.ErrCodeInvalidCode)
		require.NotNil(t, appErr.RemainingAttempts)
		assert.Equal(t, 5-i, *appErr.RemainingAttempts)

		stored, ok := f.repo.get(challenge.ID)
		require.True(t, ok)
		assert.GreaterOrEqual(t, stored.Attempts, prevAttempts)
		assert.LessOrEqual(t, stored.Attempts, stored.MaxAttempts)
		prevAttempts = stored.Attempts
	}

	_, err = f.service.ValidateChallenge(ctx, phone, models.OTPPurposeInquiry, code)
	requireAppError(t, err, apperror.ErrCodeAttemptsExhausted)

	_, ok := f.repo.get(challenge.ID)
	assert.False(t, ok, "запись удаляется при исчерпании попыток")
}

func TestValidateChallenge_ExpiryTakesPrecedence(t *testing.T) {
	f := newOTPFixture(testSettings())
	ctx := context.Background()

	_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)
	code := f.sender.last(t)

	f.clock.advance(10*time.Minute + time.Second)
	_, err = f.service.ValidateChallenge(ctx, testPhone, models.OTPPurposeInquiry, code)
	requireAppError(t, err, apperror.ErrCodeOTPExpired)

	_, err = f.repo.FindLatestUnverified(ctx, testPhone, models.OTPPurposeInquiry)
	assert.ErrorIs(t, err, repository.ErrOTPNotFound)
}

func TestValidateChallenge_ExpiryCheckedBeforeAttemptCap(t *testing.T) {
	f := newOTPFixture(testSettings())
	ctx := context.Background()

	_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)
	code := f.sender.last(t)
	for i := 0; i < 5; i++ {
		_, _ = f.service.ValidateChallenge(ctx, testPhone, models.OTPPurposeInquiry, wrongCode(code))
	}

	f.clock.advance(11 * time.Minute)
	_, err = f.service.ValidateChallenge(ctx, testPhone, models.OTPPurposeInquiry, code)
	requireAppError(t, err, apperror.ErrCodeOTPExpired)
}

func TestValidateChallenge_ExactExpiryStillValid(t *testing.T) {
	f := newOTPFixture(testSettings())
	ctx := context.Background()

	_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)

	f.clock.advance(10 * time.Minute)
	_, err = f.service.ValidateChallenge(ctx, testPhone, models.OTPPurposeInquiry, f.sender.last(t))
	assert.NoError(t, err)
}

func TestValidateChallenge_StoreUnavailable(t *testing.T) {
	for _, method := range []string{"FindLatestUnverified", "IncrementAttempts", "MarkVerified"} {
		t.Run(method, func(t *testing.T) {
			f := newOTPFixture(testSettings())
			ctx := context.Background()
			_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
			require.NoError(t, err)
			code := f.sender.last(t)
			if method == "IncrementAttempts" {
				code = wrongCode(code)
			}

			f.repo.failOn[method] = errDBDown
			_, err = f.service.ValidateChallenge(ctx, testPhone, models.OTPPurposeInquiry, code)
			appErr := requireAppError(t, err, apperror.ErrCodeStoreUnavailable)
			assert.Equal(t, apperror.MsgVerifyUnavailable, appErr.Message)
		})
	}
}

func TestValidateChallenge_CleanupFailureDoesNotFailVerification(t *testing.T) {
	f := newOTPFixture(testSettings())
	ctx := context.Background()
	_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)

	f.repo.failOn["DeleteStaleVerifiedGrants"] = errDBDown
	res, err := f.service.ValidateChallenge(ctx, testPhone, models.OTPPurposeInquiry, f.sender.last(t))
	require.NoError(t, err)
	assert.True(t, res.Verified)
}

func TestValidateChallenge_RemovesStaleGrants(t *testing.T) {
	f := newOTPFixture(testSettings())
	ctx := context.Background()

	_, err := f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)
	first, err := f.service.ValidateChallenge(ctx, testPhone, models.OTPPurposeInquiry, f.sender.last(t))
	require.NoError(t, err)
	firstClaims, err := f.tokens.Parse(first.Token, f.clock.t)
	require.NoError(t, err)

	f.clock.advance(20 * time.Minute)
	_, err = f.service.RequestChallenge(ctx, testPhone, models.OTPPurposeInquiry)
	require.NoError(t, err)
	_, err = f.service.ValidateChallenge(ctx, testPhone, models.OTPPurposeInquiry, f.sender.last(t))
	require.NoError(t, err)

	_, ok := f.repo.get(firstClaims.ChallengeID())
	assert.False(t, ok)
}

func TestHumanizeMinutes(t *testing.T) {
	assert.Equal(t, "10 minutes", humanizeMinutes(10*time.Minute))
	assert.Equal(t, "1 minute", humanizeMinutes(time.Minute))
}
