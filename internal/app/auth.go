package app

import (
	"context"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"bookswap/internal/util"
	"bookswap/pkg/auth"
	"bookswap/pkg/domain"
)

// RegisterInput carries the registration request fields.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Genres   []string
}

// RegisterResult is the outcome of a registration, including the OTP
// preview when no mail channel delivered the code.
type RegisterResult struct {
	User       domain.User
	OTPPreview string
}

// Register creates an unverified account and issues its first
// verification code. The first account ever created becomes admin.
func (a *App) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return RegisterResult{}, ErrNameEmailPasswordRequired
	}
	// ParseAddress also accepts RFC 5322 display-name forms such as
	// "Alice <alice@example.com>"; only the bare address is a valid account
	// email, so reject anything the parser had to strip.
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return RegisterResult{}, ErrInvalidEmail
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return RegisterResult{}, err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return RegisterResult{}, ErrEmailAlreadyRegistered
	}
	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("hash password: %w", err)
	}
	role := domain.RoleUser
	count, err := a.store.UserCount()
	if err != nil {
		return RegisterResult{}, fmt.Errorf("count users: %w", err)
	}
	if count == 0 {
		role = domain.RoleAdmin
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:              util.NewID(),
		Name:            name,
		Email:           email,
		PasswordHash:    passwordHash,
		Phone:           strings.TrimSpace(in.Phone),
		PreferredGenres: cleanGenres(in.Genres),
		Role:            role,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	user, preview, err := a.issueOTP(ctx, user)
	if err != nil {
		return RegisterResult{}, err
	}
	if err := a.store.SaveUser(user); err != nil {
		return RegisterResult{}, fmt.Errorf("save user: %w", err)
	}
	return RegisterResult{User: user, OTPPreview: preview}, nil
}

// Login validates credentials and issues a session token. Unknown email
// and wrong password fail identically; unverified accounts are told to
// finish verification instead.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = normalizeEmail(email)
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !user.Verified {
		return domain.User{}, "", ErrNotVerified
	}
	token, err := a.sessions.NewSession(user.ID, user.Role)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	sess, ok, err := a.sessions.GetSession(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(sess.UserID)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cleanGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		out = append(out, g)
	}
	return out
}
