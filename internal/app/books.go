package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"bookswap/internal/util"
	"bookswap/pkg/domain"
	"bookswap/pkg/storage"
)

// BookInput carries the fields for creating or updating a listing.
// Available is optional; new listings default to available when it is nil.
type BookInput struct {
	Title       string
	Author      string
	Description string
	Condition   string
	Genre       string
	Available   *bool
}

// CoverUpload is an optional cover image attached to a listing.
type CoverUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

func (in BookInput) validate() (domain.BookCondition, error) {
	if strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.Author) == "" ||
		strings.TrimSpace(in.Description) == "" {
		return "", ErrBookFieldsRequired
	}
	cond := domain.BookCondition(strings.ToLower(strings.TrimSpace(in.Condition)))
	if cond == "" {
		cond = domain.ConditionGood
	}
	switch cond {
	case domain.ConditionNew, domain.ConditionGood, domain.ConditionOld:
		return cond, nil
	}
	return "", ErrInvalidCondition
}

// AddBook creates a listing owned by the caller, storing the cover image
// when one is attached.
func (a *App) AddBook(ctx context.Context, ownerID string, in BookInput, cover *CoverUpload) (domain.Book, error) {
	cond, err := in.validate()
	if err != nil {
		return domain.Book{}, err
	}
	now := time.Now().UTC()
	book := domain.Book{
		ID:          util.NewID(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		Description: strings.TrimSpace(in.Description),
		Condition:   cond,
		Genre:       strings.TrimSpace(in.Genre),
		Available:   in.Available == nil || *in.Available,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if cover != nil {
		key, err := a.storeCover(ctx, book.ID, cover)
		if err != nil {
			return domain.Book{}, err
		}
		book.CoverKey = key
	}
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	return a.withCoverURL(ctx, book), nil
}

func (a *App) storeCover(ctx context.Context, bookID string, cover *CoverUpload) (string, error) {
	if a.covers == nil {
		return "", nil
	}
	if !storage.AllowedCoverType(cover.ContentType) {
		return "", ErrBadCoverType
	}
	key := storage.CoverKey(bookID, cover.ContentType)
	if err := a.covers.PutCover(ctx, key, cover.Reader, cover.Size, cover.ContentType); err != nil {
		return "", fmt.Errorf("store cover: %w", err)
	}
	return key, nil
}

// ListBooks returns all listings, newest first, optionally filtered by a
// substring match on title or author.
func (a *App) ListBooks(ctx context.Context, query string) ([]domain.Book, error) {
	books, err := a.store.ListBooks(strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	for i := range books {
		books[i] = a.withCoverURL(ctx, books[i])
	}
	return books, nil
}

// GetBook returns one listing together with its owner's public summary.
func (a *App) GetBook(ctx context.Context, id string) (domain.Book, domain.UserSummary, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, domain.UserSummary{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, domain.UserSummary{}, ErrBookNotFound
	}
	owner := domain.UserSummary{}
	if u, found, err := a.store.GetUserByID(book.OwnerID); err == nil && found {
		owner = u.Summary()
	}
	return a.withCoverURL(ctx, book), owner, nil
}

// ListMyBooks returns the caller's own listings, newest first.
func (a *App) ListMyBooks(ctx context.Context, ownerID string) ([]domain.Book, error) {
	books, err := a.store.ListBooksByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	for i := range books {
		books[i] = a.withCoverURL(ctx, books[i])
	}
	return books, nil
}

// UpdateBook edits a listing. Only the current owner may edit.
func (a *App) UpdateBook(ctx context.Context, userID, bookID string, in BookInput) (domain.Book, error) {
	cond, err := in.validate()
	if err != nil {
		return domain.Book{}, err
	}
	book, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	if book.OwnerID != userID {
		return domain.Book{}, ErrNotBookOwner
	}
	book.Title = strings.TrimSpace(in.Title)
	book.Author = strings.TrimSpace(in.Author)
	book.Description = strings.TrimSpace(in.Description)
	book.Condition = cond
	book.Genre = strings.TrimSpace(in.Genre)
	if in.Available != nil {
		book.Available = *in.Available
	}
	book.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	return a.withCoverURL(ctx, book), nil
}

// DeleteBook removes a listing and releases its stored cover image.
// Only the current owner may delete.
func (a *App) DeleteBook(ctx context.Context, userID, bookID string) error {
	book, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return ErrBookNotFound
	}
	if book.OwnerID != userID {
		return ErrNotBookOwner
	}
	if err := a.store.DeleteBook(bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if book.CoverKey != "" && a.covers != nil {
		if err := a.covers.DeleteCover(ctx, book.CoverKey); err != nil {
			util.LoggerFromContext(ctx).Warn("cover cleanup failed",
				"book", bookID, "key", book.CoverKey, "error", err)
		}
	}
	return nil
}

func (a *App) withCoverURL(ctx context.Context, book domain.Book) domain.Book {
	if book.CoverKey == "" || a.covers == nil {
		return book
	}
	url, err := a.covers.CoverURL(ctx, book.CoverKey)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("cover url resolution failed",
			"book", book.ID, "key", book.CoverKey, "error", err)
		return book
	}
	book.CoverURL = url
	return book
}
