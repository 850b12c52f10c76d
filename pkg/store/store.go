package store

import (
	"errors"
	"fmt"

	"bookswap/pkg/domain"
)

// Store defines persistence operations for users, books, swap requests, and
// notifications.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UserCount() (int, error)

	// books
	SaveBook(domain.Book) error
	GetBook(id string) (domain.Book, bool, error)
	ListBooks(query string) ([]domain.Book, error)
	ListBooksByOwner(ownerID string) ([]domain.Book, error)
	DeleteBook(id string) error

	// swaps
	SaveSwap(domain.SwapRequest) error
	GetSwap(id string) (domain.SwapRequest, bool, error)
	HasPendingSwap(fromUserID, toUserID, offeredBookID, requestedBookID string) (bool, error)
	ListSwapsByRequester(userID string) ([]domain.SwapRequest, error)
	ListSwapsByRecipient(userID string) ([]domain.SwapRequest, error)

	// CompleteSwap atomically re-validates that the request is still pending
	// and that both books are still owned by the parties recorded on it, then
	// exchanges ownership and marks the request completed. The ownership
	// check and the writes execute as one unit; concurrent accepts touching
	// a shared book serialize on the affected rows, so exactly one wins.
	CompleteSwap(id string) (domain.SwapRequest, error)

	// RejectSwap atomically moves a pending request to rejected. No
	// ownership change.
	RejectSwap(id string) (domain.SwapRequest, error)

	// notifications
	SaveNotification(domain.Notification) error
	ListNotificationsByUser(userID string) ([]domain.Notification, error)
}

// Session is the identity carried by a session token.
type Session struct {
	UserID string
	Role   domain.UserRole
}

// SessionStore issues and validates session tokens.
type SessionStore interface {
	NewSession(userID string, role domain.UserRole) (string, error)
	GetSession(token string) (Session, bool, error)
}

var (
	// ErrSwapNotFound is returned when no swap request matches the id.
	ErrSwapNotFound = errors.New("swap request not found")

	// ErrBookMissing is returned when a swap references a book that no
	// longer exists.
	ErrBookMissing = errors.New("one or both books not found")

	// ErrOwnershipChanged is returned when a book changed hands between
	// request creation and acceptance. The caller may retry after the books
	// involved settle.
	ErrOwnershipChanged = errors.New("ownership changed since request was created")
)

// SwapStateError reports an attempted transition out of a terminal or
// otherwise non-pending status.
type SwapStateError struct {
	Status domain.SwapStatus
}

func (e *SwapStateError) Error() string {
	return fmt.Sprintf("cannot act on a %s request", e.Status)
}
