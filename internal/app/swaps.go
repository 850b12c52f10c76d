package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookswap/internal/util"
	"bookswap/pkg/domain"
	"bookswap/pkg/store"
)

// CreateSwapInput carries a swap proposal: the caller's offered book for
// the recipient's requested book.
type CreateSwapInput struct {
	OfferedBookID   string
	RequestedBookID string
	ToUserID        string
}

// CreateSwap validates a proposal and persists it as pending. Ownership is
// checked against the current book records; the same checks run again at
// acceptance because ownership can drift while the request waits.
func (a *App) CreateSwap(fromUserID string, in CreateSwapInput) (domain.SwapRequest, error) {
	if in.OfferedBookID == "" || in.RequestedBookID == "" || in.ToUserID == "" {
		return domain.SwapRequest{}, ErrMissingSwapFields
	}
	offered, ok, err := a.store.GetBook(in.OfferedBookID)
	if err != nil {
		return domain.SwapRequest{}, fmt.Errorf("fetch offered book: %w", err)
	}
	if !ok {
		return domain.SwapRequest{}, ErrBookNotFound
	}
	requested, ok, err := a.store.GetBook(in.RequestedBookID)
	if err != nil {
		return domain.SwapRequest{}, fmt.Errorf("fetch requested book: %w", err)
	}
	if !ok {
		return domain.SwapRequest{}, ErrBookNotFound
	}
	if offered.OwnerID != fromUserID {
		return domain.SwapRequest{}, ErrNotOfferedOwner
	}
	if requested.OwnerID != in.ToUserID {
		return domain.SwapRequest{}, ErrRequestedOwnerMismatch
	}
	if fromUserID == in.ToUserID {
		return domain.SwapRequest{}, ErrSelfSwap
	}
	dup, err := a.store.HasPendingSwap(fromUserID, in.ToUserID, in.OfferedBookID, in.RequestedBookID)
	if err != nil {
		return domain.SwapRequest{}, fmt.Errorf("check pending: %w", err)
	}
	if dup {
		return domain.SwapRequest{}, ErrDuplicatePendingSwap
	}
	swap := domain.SwapRequest{
		ID:              util.NewID(),
		FromUserID:      fromUserID,
		ToUserID:        in.ToUserID,
		OfferedBookID:   in.OfferedBookID,
		RequestedBookID: in.RequestedBookID,
		Status:          domain.SwapPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := a.store.SaveSwap(swap); err != nil {
		return domain.SwapRequest{}, fmt.Errorf("save swap: %w", err)
	}
	return swap, nil
}

// ListIncomingSwaps returns requests targeting the user, newest first,
// enriched with the requester and both books.
func (a *App) ListIncomingSwaps(ctx context.Context, userID string) ([]domain.SwapView, error) {
	swaps, err := a.store.ListSwapsByRecipient(userID)
	if err != nil {
		return nil, fmt.Errorf("list swaps: %w", err)
	}
	return a.swapViews(ctx, swaps, false), nil
}

// ListOutgoingSwaps returns requests the user initiated, newest first.
func (a *App) ListOutgoingSwaps(ctx context.Context, userID string) ([]domain.SwapView, error) {
	swaps, err := a.store.ListSwapsByRequester(userID)
	if err != nil {
		return nil, fmt.Errorf("list swaps: %w", err)
	}
	return a.swapViews(ctx, swaps, true), nil
}

// swapViews enriches requests for presentation. Lookups are best effort:
// a missing counterpart or book leaves its projection empty rather than
// failing the listing.
func (a *App) swapViews(ctx context.Context, swaps []domain.SwapRequest, outgoing bool) []domain.SwapView {
	views := make([]domain.SwapView, 0, len(swaps))
	for _, sw := range swaps {
		view := domain.SwapView{SwapRequest: sw}
		counterpartID := sw.FromUserID
		if outgoing {
			counterpartID = sw.ToUserID
		}
		if u, ok, err := a.store.GetUserByID(counterpartID); err == nil && ok {
			view.Counterpart = u.Summary()
		}
		if b, ok, err := a.store.GetBook(sw.OfferedBookID); err == nil && ok {
			view.OfferedBook = a.withCoverURL(ctx, b).Summary()
		}
		if b, ok, err := a.store.GetBook(sw.RequestedBookID); err == nil && ok {
			view.RequestedBook = a.withCoverURL(ctx, b).Summary()
		}
		views = append(views, view)
	}
	return views
}

// AcceptSwap completes a pending request: only the recipient may accept,
// ownership is re-validated at this instant, and the exchange commits
// atomically. When two pending requests compete for a book, the first
// accept wins; the second fails with ErrOwnershipDrifted and its request
// stays pending. Both parties are notified best effort after the commit.
func (a *App) AcceptSwap(ctx context.Context, swapID, actingUserID string) (domain.SwapRequest, error) {
	swap, err := a.guardSwapAction(swapID, actingUserID)
	if err != nil {
		return domain.SwapRequest{}, err
	}
	done, err := a.store.CompleteSwap(swap.ID)
	if err != nil {
		return domain.SwapRequest{}, mapSwapStoreError(err)
	}
	a.notifySwapCompleted(ctx, done)
	return done, nil
}

// RejectSwap declines a pending request. Only the recipient may reject;
// no ownership changes.
func (a *App) RejectSwap(swapID, actingUserID string) (domain.SwapRequest, error) {
	swap, err := a.guardSwapAction(swapID, actingUserID)
	if err != nil {
		return domain.SwapRequest{}, err
	}
	done, err := a.store.RejectSwap(swap.ID)
	if err != nil {
		return domain.SwapRequest{}, mapSwapStoreError(err)
	}
	return done, nil
}

func (a *App) guardSwapAction(swapID, actingUserID string) (domain.SwapRequest, error) {
	swap, ok, err := a.store.GetSwap(swapID)
	if err != nil {
		return domain.SwapRequest{}, fmt.Errorf("fetch swap: %w", err)
	}
	if !ok {
		return domain.SwapRequest{}, ErrSwapNotFound
	}
	if swap.Status != domain.SwapPending {
		return domain.SwapRequest{}, &store.SwapStateError{Status: swap.Status}
	}
	if swap.ToUserID != actingUserID {
		return domain.SwapRequest{}, ErrNotRecipient
	}
	return swap, nil
}

// mapSwapStoreError translates the store's transactional failures. State
// errors pass through so the handler can name the current status.
func mapSwapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrSwapNotFound):
		return ErrSwapNotFound
	case errors.Is(err, store.ErrBookMissing), errors.Is(err, store.ErrOwnershipChanged):
		return ErrOwnershipDrifted
	}
	return err
}

// notifySwapCompleted tells both parties who to contact. Emission failures
// are logged and never unwind the committed swap.
func (a *App) notifySwapCompleted(ctx context.Context, swap domain.SwapRequest) {
	from, okFrom, _ := a.store.GetUserByID(swap.FromUserID)
	to, okTo, _ := a.store.GetUserByID(swap.ToUserID)
	logger := util.LoggerFromContext(ctx)
	if okFrom && okTo {
		if err := a.notifier.Notify(ctx, from.ID, swapConfirmedMessage(to)); err != nil {
			logger.Warn("notify requester failed", "swap", swap.ID, "error", err)
		}
		if err := a.notifier.Notify(ctx, to.ID, swapConfirmedMessage(from)); err != nil {
			logger.Warn("notify recipient failed", "swap", swap.ID, "error", err)
		}
		return
	}
	logger.Warn("swap parties not resolvable for notification", "swap", swap.ID)
}

func swapConfirmedMessage(counterpart domain.User) string {
	name := counterpart.Name
	if name == "" {
		name = counterpart.Email
	}
	return fmt.Sprintf("Your swap with %s is confirmed! Contact: %s", name, counterpart.Email)
}
