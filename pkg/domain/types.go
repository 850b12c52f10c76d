package domain

import "time"

type BookCondition string

const (
	ConditionNew  BookCondition = "new"
	ConditionGood BookCondition = "good"
	ConditionOld  BookCondition = "old"
)

type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapRejected  SwapStatus = "rejected"
	SwapCompleted SwapStatus = "completed"
)

// Terminal reports whether no further transition is permitted from s.
func (s SwapStatus) Terminal() bool {
	return s == SwapCompleted || s == SwapRejected
}

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Phone           string     `json:"phone,omitempty"`
	PreferredGenres []string   `json:"preferredGenres"`
	Role            UserRole   `json:"role"`
	Verified        bool       `json:"verified"`
	OTPHash         string     `json:"-"`
	OTPExpiresAt    *time.Time `json:"-"`
	VerifiedAt      *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// HasPendingOTP reports whether an unverified code is stored on the record.
// Hash and expiry are set and cleared together.
func (u User) HasPendingOTP() bool {
	return u.OTPHash != "" && u.OTPExpiresAt != nil
}

type Book struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	Title       string        `json:"title"`
	Author      string        `json:"author"`
	Description string        `json:"description"`
	Condition   BookCondition `json:"condition,omitempty"`
	Genre       string        `json:"genre,omitempty"`
	CoverKey    string        `json:"-"`
	CoverURL    string        `json:"coverUrl,omitempty"`
	Available   bool          `json:"available"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type SwapRequest struct {
	ID              string     `json:"id"`
	FromUserID      string     `json:"fromUser"`
	ToUserID        string     `json:"toUser"`
	OfferedBookID   string     `json:"offeredBook"`
	RequestedBookID string     `json:"requestedBook"`
	Status          SwapStatus `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserSummary is the public projection of a user for listings.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BookSummary carries just enough of a book for swap listings.
type BookSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	CoverURL string `json:"coverUrl,omitempty"`
}

// SwapView is a swap request enriched with the counterpart user and both
// books for presentation. Read-only projection.
type SwapView struct {
	SwapRequest
	Counterpart   UserSummary `json:"counterpart"`
	OfferedBook   BookSummary `json:"offeredBookDetail"`
	RequestedBook BookSummary `json:"requestedBookDetail"`
}

// Summary returns the public projection of a user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Summary returns the listing projection of a book.
func (b Book) Summary() BookSummary {
	return BookSummary{ID: b.ID, Title: b.Title, CoverURL: b.CoverURL}
}
