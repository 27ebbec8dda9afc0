package services

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsite/internal/models"
)

type fakeUserRepo struct {
	users map[string]*models.User // by email
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		r.users[u.Email] = u
	}
	return r
}

func (r *fakeUserRepo) Create(u *models.User) error { r.users[u.Email] = u; return nil }
func (r *fakeUserRepo) GetByID(id int) (*models.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}
func (r *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	return r.users[email], nil
}
func (r *fakeUserRepo) GetByUsername(username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}
func (r *fakeUserRepo) UpdatePassword(userID int, hash string) error {
	for _, u := range r.users {
		if u.ID == userID {
			u.PasswordHash = hash
		}
	}
	return nil
}
func (r *fakeUserRepo) Update(u *models.User) error { return nil }
func (r *fakeUserRepo) Delete(id int) error         { return nil }
func (r *fakeUserRepo) List(limit, offset int) ([]*models.User, error) {
	return nil, nil
}
func (r *fakeUserRepo) ExistsByEmailOrUsername(email, username string) (bool, bool, error) {
	_, emailTaken := r.users[email]
	u, _ := r.GetByUsername(username)
	return emailTaken, u != nil, nil
}

type fakeOTPRepo struct {
	nextID  int64
	byEmail map[string]*models.PasswordOTP
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{byEmail: map[string]*models.PasswordOTP{}}
}

func (r *fakeOTPRepo) Upsert(email, code, token string, expiresAt, createdAt time.Time) (*models.PasswordOTP, error) {
	r.nextID++
	rec := &models.PasswordOTP{
		ID:        r.nextID,
		Email:     email,
		Code:      code,
		Token:     token,
		ExpiresAt: expiresAt,
		Attempts:  0,
		CreatedAt: createdAt,
	}
	r.byEmail[email] = rec
	return rec, nil
}

func (r *fakeOTPRepo) GetByEmailAndToken(email, token string) (*models.PasswordOTP, error) {
	rec := r.byEmail[email]
	if rec == nil || rec.Token != token {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeOTPRepo) IncrementAttempts(id int64) (int, error) {
	for _, rec := range r.byEmail {
		if rec.ID == id {
			rec.Attempts++
			return rec.Attempts, nil
		}
	}
	return 0, errors.New("not found")
}

func (r *fakeOTPRepo) Consume(id int64) (bool, error) {
	for email, rec := range r.byEmail {
		if rec.ID == id {
			delete(r.byEmail, email)
			return true, nil
		}
	}
	return false, nil
}

type fakeEmailService struct {
	sentTo   []string
	lastCode string
	lastURL  string
	fail     bool
}

func (f *fakeEmailService) SendWelcomeEmail(email, username string) error { return nil }

func (f *fakeEmailService) SendOTPEmail(email, code, verificationURL string) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.sentTo = append(f.sentTo, email)
	f.lastCode = code
	f.lastURL = verificationURL
	return nil
}

type fakeAuthService struct{}

func (fakeAuthService) HashPassword(p string) (string, error)   { return "hashed:" + p, nil }
func (fakeAuthService) CheckPassword(hash, p string) error      { return nil }
func (fakeAuthService) GenerateAccessToken(int) (string, error) { return "", nil }

const testEmail = "user@x.com"

func newTestOTPService(t *testing.T) (*otpService, *fakeOTPRepo, *fakeEmailService, *fakeUserRepo) {
	t.Helper()
	users := newFakeUserRepo(&models.User{ID: 1, Username: "user", Email: testEmail, PasswordHash: "old"})
	otps := newFakeOTPRepo()
	emails := &fakeEmailService{}
	svc := NewOTPService(users, otps, emails, fakeAuthService{}, "test-secret", "http://localhost").(*otpService)
	return svc, otps, emails, users
}

func TestRequestResetUnknownAccount(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	_, err := svc.RequestReset("nobody@x.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestTokenRoundTrip(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	token, err := svc.RequestReset(testEmail)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	email, err := svc.EmailFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, testEmail, email)
}

func TestTokenExpiry(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	token, err := svc.RequestReset(testEmail)
	require.NoError(t, err)

	// past the 10 minute envelope
	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err = svc.EmailFromToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenMalformed(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	_, err := svc.EmailFromToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// signed with a different secret
	other := NewOTPService(newFakeUserRepo(&models.User{ID: 1, Email: testEmail}), newFakeOTPRepo(), &fakeEmailService{}, fakeAuthService{}, "other-secret", "").(*otpService)
	token, err := other.RequestReset(testEmail)
	require.NoError(t, err)
	_, err = svc.EmailFromToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestGenerateAndSendOTPCodeShape(t *testing.T) {
	svc, _, emails, _ := newTestOTPService(t)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := svc.GenerateAndSendOTP(testEmail, "tok", false)
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
		seen[code] = true
	}
	assert.Len(t, emails.sentTo, 50)
	// back-to-back issuances must not degenerate into one repeated code
	assert.Greater(t, len(seen), 1)
}

func TestGenerateAndSendOTPLinkOnlyOnFirstSend(t *testing.T) {
	svc, _, emails, _ := newTestOTPService(t)

	_, err := svc.GenerateAndSendOTP(testEmail, "tok", false)
	require.NoError(t, err)
	assert.Contains(t, emails.lastURL, "tok")

	_, err = svc.GenerateAndSendOTP(testEmail, "tok", true)
	require.NoError(t, err)
	assert.Empty(t, emails.lastURL)
}

func TestGenerateAndSendOTPEmailFailure(t *testing.T) {
	svc, _, emails, _ := newTestOTPService(t)
	emails.fail = true

	_, err := svc.GenerateAndSendOTP(testEmail, "tok", false)
	assert.ErrorIs(t, err, ErrEmailDelivery)
}

func TestVerifyMixedCaseEmail(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	// same call sequence the handler runs, with the address as typed
	token, err := svc.RequestReset("User@X.com ")
	require.NoError(t, err)
	code, err := svc.GenerateAndSendOTP("User@X.com ", token, false)
	require.NoError(t, err)

	email, err := svc.EmailFromToken(token)
	require.NoError(t, err)
	require.Equal(t, testEmail, email)
	require.NoError(t, svc.VerifyOTP(email, code, token))
}

func TestVerifySuccessIsSingleUse(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	code, err := svc.GenerateAndSendOTP(testEmail, "tok", false)
	require.NoError(t, err)

	require.NoError(t, svc.VerifyOTP(testEmail, code, "tok"))

	// consumed: same code again finds no record
	err = svc.VerifyOTP(testEmail, code, "tok")
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

// lostConsumeOTPRepo simulates a concurrent submission winning the delete
// between this caller's read and its consume.
type lostConsumeOTPRepo struct {
	*fakeOTPRepo
}

func (r *lostConsumeOTPRepo) Consume(id int64) (bool, error) { return false, nil }

func TestVerifyLostConsumeRace(t *testing.T) {
	svc, otps, _, _ := newTestOTPService(t)
	svc.otps = &lostConsumeOTPRepo{fakeOTPRepo: otps}

	code, err := svc.GenerateAndSendOTP(testEmail, "tok", false)
	require.NoError(t, err)

	err = svc.VerifyOTP(testEmail, code, "tok")
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestVerifyWrongTokenIsGeneric(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	code, err := svc.GenerateAndSendOTP(testEmail, "tok", false)
	require.NoError(t, err)

	err = svc.VerifyOTP(testEmail, code, "different-token")
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestVerifyAttemptCountdown(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	code, err := svc.GenerateAndSendOTP(testEmail, "tok", false)
	require.NoError(t, err)
	wrong := "000000"
	require.NotEqual(t, wrong, code)

	var ice *InvalidCodeError

	err = svc.VerifyOTP(testEmail, wrong, "tok")
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, 2, ice.AttemptsLeft)

	err = svc.VerifyOTP(testEmail, wrong, "tok")
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, 1, ice.AttemptsLeft)

	err = svc.VerifyOTP(testEmail, wrong, "tok")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// a 4th submission reports exhaustion, not a fresh countdown
	err = svc.VerifyOTP(testEmail, wrong, "tok")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// the correct code no longer verifies either
	err = svc.VerifyOTP(testEmail, code, "tok")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestVerifyExpiredCode(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	code, err := svc.GenerateAndSendOTP(testEmail, "tok", false)
	require.NoError(t, err)

	// expiry wins over correctness
	svc.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	err = svc.VerifyOTP(testEmail, code, "tok")
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestReissueResetsAttemptsAndReplacesCode(t *testing.T) {
	svc, otps, _, _ := newTestOTPService(t)

	oldCode, err := svc.GenerateAndSendOTP(testEmail, "tok", false)
	require.NoError(t, err)

	// burn two attempts on the first code
	var ice *InvalidCodeError
	require.ErrorAs(t, svc.VerifyOTP(testEmail, "000000", "tok"), &ice)
	require.ErrorAs(t, svc.VerifyOTP(testEmail, "000000", "tok"), &ice)

	newCode, err := svc.GenerateAndSendOTP(testEmail, "tok", true)
	require.NoError(t, err)
	assert.Equal(t, 0, otps.byEmail[testEmail].Attempts)

	// the old code only verifies if the draw happened to repeat it
	if oldCode != newCode {
		err = svc.VerifyOTP(testEmail, oldCode, "tok")
		require.ErrorAs(t, err, &ice)
		assert.Equal(t, 2, ice.AttemptsLeft)
	}

	_, err = svc.GenerateAndSendOTP(testEmail, "tok", true)
	require.NoError(t, err)
	require.NoError(t, svc.VerifyOTP(testEmail, otps.byEmail[testEmail].Code, "tok"))
}

func TestResetPassword(t *testing.T) {
	svc, _, _, users := newTestOTPService(t)

	token, err := svc.RequestReset(testEmail)
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(token, "newpassword"))
	assert.Equal(t, "hashed:newpassword", users.users[testEmail].PasswordHash)
}

func TestResetPasswordRejectsBadToken(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	err := svc.ResetPassword("garbage", "newpassword")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	token, err := svc.RequestReset(testEmail)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	err = svc.ResetPassword(token, "newpassword")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestResetPasswordTooShort(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	token, err := svc.RequestReset(testEmail)
	require.NoError(t, err)
	assert.Error(t, svc.ResetPassword(token, "abc"))
}
