package app

import (
	"fmt"
	"strings"
	"time"

	"bookswap/pkg/domain"
)

// ProfileInput carries the editable profile fields. Nil slices and empty
// strings leave the current value untouched.
type ProfileInput struct {
	Name   string
	Phone  string
	Genres []string
}

// GetProfile returns the caller's full user record.
func (a *App) GetProfile(userID string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// GetUserSummary returns another user's public projection.
func (a *App) GetUserSummary(userID string) (domain.UserSummary, error) {
	user, err := a.GetProfile(userID)
	if err != nil {
		return domain.UserSummary{}, err
	}
	return user.Summary(), nil
}

// UpdateProfile edits the caller's display name, phone and genres.
func (a *App) UpdateProfile(userID string, in ProfileInput) (domain.User, error) {
	user, err := a.GetProfile(userID)
	if err != nil {
		return domain.User{}, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = name
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		user.Phone = phone
	}
	if in.Genres != nil {
		user.PreferredGenres = cleanGenres(in.Genres)
	}
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}
