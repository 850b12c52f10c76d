package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"bookswap/internal/util"
	"bookswap/pkg/auth"
	"bookswap/pkg/domain"
)

// otpTTL is how long an issued verification code stays valid.
const otpTTL = 10 * time.Minute

// issueOTP generates a fresh 6-digit code, stores only its hash and expiry
// on the user, and attempts delivery by mail. Only the newest issued code
// verifies. The plaintext code is returned as a preview when no mailer is
// configured or delivery fails; production runs withhold the preview.
func (a *App) issueOTP(ctx context.Context, user domain.User) (domain.User, string, error) {
	code, err := newOTPCode()
	if err != nil {
		return domain.User{}, "", fmt.Errorf("generate code: %w", err)
	}
	hash, err := auth.HashPassword(code)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash code: %w", err)
	}
	expiresAt := time.Now().UTC().Add(otpTTL)
	user.OTPHash = hash
	user.OTPExpiresAt = &expiresAt
	user.UpdatedAt = time.Now().UTC()

	delivered := false
	if a.mailer != nil {
		if err := a.mailer.SendOTP(ctx, user.Email, user.Name, code); err != nil {
			util.LoggerFromContext(ctx).Warn("otp mail delivery failed",
				"email", user.Email, "error", err)
		} else {
			delivered = true
		}
	}
	preview := ""
	if !delivered && !a.production {
		preview = code
	}
	return user, preview, nil
}

// newOTPCode draws a 6-digit code uniformly from [100000, 999999].
func newOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// VerifyEmail checks the submitted code against the stored hash. On success
// the account becomes verified, the code is cleared so it cannot be
// replayed, and a session token is issued. Verifying an already verified
// account is an idempotent no-op returning an empty token: this endpoint is
// unauthenticated, so a session must only ever be minted by consuming a
// correct, unexpired code.
func (a *App) VerifyEmail(email, code string) (domain.User, string, error) {
	email = normalizeEmail(email)
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrUserNotFound
	}
	if user.Verified {
		return user, "", nil
	}
	if !user.HasPendingOTP() {
		return domain.User{}, "", ErrNoPendingCode
	}
	if time.Now().UTC().After(*user.OTPExpiresAt) {
		return domain.User{}, "", ErrCodeExpired
	}
	if !auth.CheckPassword(code, user.OTPHash) {
		return domain.User{}, "", ErrCodeMismatch
	}
	now := time.Now().UTC()
	user.Verified = true
	user.VerifiedAt = &now
	user.OTPHash = ""
	user.OTPExpiresAt = nil
	user.UpdatedAt = now
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID, user.Role)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// ResendOTP issues a replacement code, invalidating any previous one.
// Already verified accounts no-op successfully; verified reports that case
// so callers can tell it apart from a sent code with a withheld preview.
func (a *App) ResendOTP(ctx context.Context, email string) (preview string, verified bool, err error) {
	email = normalizeEmail(email)
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return "", false, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return "", false, ErrUserNotFound
	}
	if user.Verified {
		return "", true, nil
	}
	user, preview, err = a.issueOTP(ctx, user)
	if err != nil {
		return "", false, err
	}
	if err := a.store.SaveUser(user); err != nil {
		return "", false, fmt.Errorf("save user: %w", err)
	}
	return preview, false, nil
}
