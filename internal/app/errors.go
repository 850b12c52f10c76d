package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not
	// match. The message is identical for unknown email and wrong password so
	// that login cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("incorrect email address or password")

	// ErrNotVerified blocks login until the email OTP has been confirmed.
	ErrNotVerified = errors.New("email not verified, check your inbox for the code")

	ErrNameEmailPasswordRequired = errors.New("name, email and password required")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailAlreadyRegistered    = errors.New("email already registered")

	ErrUserNotFound  = errors.New("user not found")
	ErrNoPendingCode = errors.New("no verification code pending, request a new one")
	ErrCodeExpired   = errors.New("verification code expired, request a new one")
	ErrCodeMismatch  = errors.New("incorrect verification code")

	ErrBookFieldsRequired = errors.New("title, author and description required")
	ErrInvalidCondition   = errors.New("condition must be new, good or old")
	ErrBookNotFound       = errors.New("book not found")
	ErrNotBookOwner       = errors.New("you do not own this book")
	ErrBadCoverType       = errors.New("cover must be a jpeg, png or webp image")

	ErrMissingSwapFields      = errors.New("offered book, requested book and recipient required")
	ErrNotOfferedOwner        = errors.New("you do not own the offered book")
	ErrRequestedOwnerMismatch = errors.New("requested book does not belong to that user")
	ErrSelfSwap               = errors.New("cannot swap with yourself")
	ErrDuplicatePendingSwap   = errors.New("an identical swap request is already pending")
	ErrSwapNotFound           = errors.New("swap request not found")
	ErrNotRecipient           = errors.New("only the recipient can act on this request")
	ErrOwnershipDrifted       = errors.New("one of the books changed hands, refresh and try again")
)
