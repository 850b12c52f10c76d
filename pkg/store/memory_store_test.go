package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"bookswap/pkg/domain"
)

func seedSwapFixture(t *testing.T, s *MemoryStore) domain.SwapRequest {
	t.Helper()
	now := time.Now().UTC()
	users := []domain.User{
		{ID: "u1", Name: "Alice", Email: "alice@example.com", CreatedAt: now},
		{ID: "u2", Name: "Bob", Email: "bob@example.com", CreatedAt: now},
	}
	for _, u := range users {
		if err := s.SaveUser(u); err != nil {
			t.Fatalf("SaveUser: %v", err)
		}
	}
	books := []domain.Book{
		{ID: "b1", OwnerID: "u1", Title: "Dune", Author: "Herbert", Condition: domain.ConditionGood, Available: true, CreatedAt: now},
		{ID: "b2", OwnerID: "u2", Title: "Hyperion", Author: "Simmons", Condition: domain.ConditionNew, Available: true, CreatedAt: now},
	}
	for _, b := range books {
		if err := s.SaveBook(b); err != nil {
			t.Fatalf("SaveBook: %v", err)
		}
	}
	swap := domain.SwapRequest{
		ID: "s1", FromUserID: "u1", ToUserID: "u2",
		OfferedBookID: "b1", RequestedBookID: "b2",
		Status: domain.SwapPending, CreatedAt: now,
	}
	if err := s.SaveSwap(swap); err != nil {
		t.Fatalf("SaveSwap: %v", err)
	}
	return swap
}

func TestCompleteSwapExchangesOwners(t *testing.T) {
	s := NewMemoryStore()
	swap := seedSwapFixture(t, s)

	done, err := s.CompleteSwap(swap.ID)
	if err != nil {
		t.Fatalf("CompleteSwap: %v", err)
	}
	if done.Status != domain.SwapCompleted {
		t.Fatalf("status = %s, want completed", done.Status)
	}
	offered, _, _ := s.GetBook("b1")
	requested, _, _ := s.GetBook("b2")
	if offered.OwnerID != "u2" {
		t.Errorf("offered book owner = %s, want u2", offered.OwnerID)
	}
	if requested.OwnerID != "u1" {
		t.Errorf("requested book owner = %s, want u1", requested.OwnerID)
	}
}

func TestCompleteSwapRejectsNonPending(t *testing.T) {
	s := NewMemoryStore()
	swap := seedSwapFixture(t, s)
	if _, err := s.RejectSwap(swap.ID); err != nil {
		t.Fatalf("RejectSwap: %v", err)
	}
	_, err := s.CompleteSwap(swap.ID)
	var stateErr *SwapStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("err = %v, want SwapStateError", err)
	}
	if stateErr.Status != domain.SwapRejected {
		t.Errorf("state = %s, want rejected", stateErr.Status)
	}
}

func TestCompleteSwapDetectsOwnershipChange(t *testing.T) {
	s := NewMemoryStore()
	swap := seedSwapFixture(t, s)

	// Book leaves the requester's hands before the accept lands.
	b, _, _ := s.GetBook("b1")
	b.OwnerID = "u3"
	if err := s.SaveBook(b); err != nil {
		t.Fatalf("SaveBook: %v", err)
	}

	if _, err := s.CompleteSwap(swap.ID); !errors.Is(err, ErrOwnershipChanged) {
		t.Fatalf("err = %v, want ErrOwnershipChanged", err)
	}
	got, _, _ := s.GetSwap(swap.ID)
	if got.Status != domain.SwapPending {
		t.Errorf("status = %s, want pending after failed accept", got.Status)
	}
}

func TestCompleteSwapMissingSwap(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.CompleteSwap("nope"); !errors.Is(err, ErrSwapNotFound) {
		t.Fatalf("err = %v, want ErrSwapNotFound", err)
	}
}

// Two pending requests reference the same book. The first accept to land
// wins the book; the second must fail with ErrOwnershipChanged when it in
// turn is accepted, never corrupting ownership.
func TestConcurrentAcceptsSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	for _, u := range []string{"u1", "u2", "u3"} {
		if err := s.SaveUser(domain.User{ID: u, Email: u + "@example.com"}); err != nil {
			t.Fatalf("SaveUser: %v", err)
		}
	}
	books := []domain.Book{
		{ID: "b1", OwnerID: "u1", Title: "A", CreatedAt: now},
		{ID: "b2", OwnerID: "u2", Title: "B", CreatedAt: now},
		{ID: "b3", OwnerID: "u3", Title: "C", CreatedAt: now},
	}
	for _, b := range books {
		if err := s.SaveBook(b); err != nil {
			t.Fatalf("SaveBook: %v", err)
		}
	}
	// Both u1 and u3 want u2's book.
	swaps := []domain.SwapRequest{
		{ID: "s1", FromUserID: "u1", ToUserID: "u2", OfferedBookID: "b1", RequestedBookID: "b2", Status: domain.SwapPending, CreatedAt: now},
		{ID: "s2", FromUserID: "u3", ToUserID: "u2", OfferedBookID: "b3", RequestedBookID: "b2", Status: domain.SwapPending, CreatedAt: now},
	}
	for _, sw := range swaps {
		if err := s.SaveSwap(sw); err != nil {
			t.Fatalf("SaveSwap: %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = s.CompleteSwap(id)
		}(i, id)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrOwnershipChanged):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins = %d, losses = %d, want exactly one of each", wins, losses)
	}

	// Every book still has exactly one owner and b2 belongs to a winner.
	b2, _, _ := s.GetBook("b2")
	if b2.OwnerID != "u1" && b2.OwnerID != "u3" {
		t.Errorf("b2 owner = %s, want u1 or u3", b2.OwnerID)
	}
}

func TestHasPendingSwapIgnoresTerminal(t *testing.T) {
	s := NewMemoryStore()
	swap := seedSwapFixture(t, s)

	ok, err := s.HasPendingSwap(swap.FromUserID, swap.ToUserID, swap.OfferedBookID, swap.RequestedBookID)
	if err != nil || !ok {
		t.Fatalf("HasPendingSwap = %v, %v, want true", ok, err)
	}
	if _, err := s.RejectSwap(swap.ID); err != nil {
		t.Fatalf("RejectSwap: %v", err)
	}
	ok, err = s.HasPendingSwap(swap.FromUserID, swap.ToUserID, swap.OfferedBookID, swap.RequestedBookID)
	if err != nil || ok {
		t.Fatalf("HasPendingSwap after reject = %v, %v, want false", ok, err)
	}
}

func TestListBooksFiltersByTitleOrAuthor(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	books := []domain.Book{
		{ID: "b1", OwnerID: "u1", Title: "The Left Hand of Darkness", Author: "Le Guin", CreatedAt: now},
		{ID: "b2", OwnerID: "u1", Title: "Solaris", Author: "Lem", CreatedAt: now.Add(time.Second)},
		{ID: "b3", OwnerID: "u2", Title: "Roadside Picnic", Author: "Strugatsky", CreatedAt: now.Add(2 * time.Second)},
	}
	for _, b := range books {
		if err := s.SaveBook(b); err != nil {
			t.Fatalf("SaveBook: %v", err)
		}
	}

	all, err := s.ListBooks("")
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(all) != 3 || all[0].ID != "b3" {
		t.Fatalf("ListBooks order wrong: %+v", all)
	}

	le, err := s.ListBooks("le")
	if err != nil {
		t.Fatalf("ListBooks(le): %v", err)
	}
	if len(le) != 2 {
		t.Fatalf("ListBooks(le) = %d results, want 2 (title + author match)", len(le))
	}
}

func TestSaveUserEmailReindex(t *testing.T) {
	s := NewMemoryStore()
	u := domain.User{ID: "u1", Email: "old@example.com"}
	if err := s.SaveUser(u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	u.Email = "new@example.com"
	if err := s.SaveUser(u); err != nil {
		t.Fatalf("SaveUser update: %v", err)
	}
	if ok, _ := s.HasUserEmail("old@example.com"); ok {
		t.Error("old email still indexed")
	}
	if ok, _ := s.HasUserEmail("new@example.com"); !ok {
		t.Error("new email not indexed")
	}
}
