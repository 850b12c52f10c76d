package app

import (
	"context"
	"fmt"
	"time"

	"bookswap/internal/util"
	"bookswap/pkg/domain"
	"bookswap/pkg/store"
)

// Notifier accepts a user id and a message for later retrieval by that
// user. Delivery may be asynchronous; callers treat it as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

// storeNotifier persists notifications synchronously. It is the default
// when no queue-backed notifier is wired in.
type storeNotifier struct {
	store store.Store
}

func (n *storeNotifier) Notify(_ context.Context, userID, message string) error {
	return n.store.SaveNotification(domain.Notification{
		ID:        util.NewID(),
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
}

// SaveNotification persists one queued notification delivery. The stream
// worker calls this for each consumed message.
func (a *App) SaveNotification(userID, message string) error {
	return (&storeNotifier{store: a.store}).Notify(context.Background(), userID, message)
}

// GetNotifications returns the user's notifications, newest first.
func (a *App) GetNotifications(userID string) ([]domain.Notification, error) {
	list, err := a.store.ListNotificationsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}
