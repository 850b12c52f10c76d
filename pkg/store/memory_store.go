package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"bookswap/pkg/domain"
)

// MemoryStore is an in-memory Store used by tests and local runs without
// Postgres. A single mutex guards every operation, so the multi-step swap
// transitions are atomic by construction.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[string]domain.User
	usersByEmail  map[string]string
	books         map[string]domain.Book
	swaps         map[string]domain.SwapRequest
	notifications map[string][]domain.Notification
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		usersByEmail:  make(map[string]string),
		books:         make(map[string]domain.Book),
		swaps:         make(map[string]domain.SwapRequest),
		notifications: make(map[string][]domain.Notification),
	}
}

func (s *MemoryStore) SaveUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.users[u.ID]; ok && prev.Email != u.Email {
		delete(s.usersByEmail, prev.Email)
	}
	s.users[u.ID] = u
	s.usersByEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) HasUserEmail(email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.usersByEmail[email]
	return ok, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usersByEmail[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) UserCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s *MemoryStore) SaveBook(b domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[b.ID] = b
	return nil
}

func (s *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	return b, ok, nil
}

func (s *MemoryStore) ListBooks(query string) ([]domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	res := make([]domain.Book, 0, len(s.books))
	for _, b := range s.books {
		if q != "" &&
			!strings.Contains(strings.ToLower(b.Title), q) &&
			!strings.Contains(strings.ToLower(b.Author), q) {
			continue
		}
		res = append(res, b)
	}
	sortBooksNewestFirst(res)
	return res, nil
}

func (s *MemoryStore) ListBooksByOwner(ownerID string) ([]domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]domain.Book, 0)
	for _, b := range s.books {
		if b.OwnerID == ownerID {
			res = append(res, b)
		}
	}
	sortBooksNewestFirst(res)
	return res, nil
}

func (s *MemoryStore) DeleteBook(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.books, id)
	return nil
}

func (s *MemoryStore) SaveSwap(swap domain.SwapRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps[swap.ID] = swap
	return nil
}

func (s *MemoryStore) GetSwap(id string) (domain.SwapRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw, ok := s.swaps[id]
	return sw, ok, nil
}

func (s *MemoryStore) HasPendingSwap(fromUserID, toUserID, offeredBookID, requestedBookID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sw := range s.swaps {
		if sw.Status == domain.SwapPending &&
			sw.FromUserID == fromUserID &&
			sw.ToUserID == toUserID &&
			sw.OfferedBookID == offeredBookID &&
			sw.RequestedBookID == requestedBookID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListSwapsByRequester(userID string) ([]domain.SwapRequest, error) {
	return s.listSwaps(func(sw domain.SwapRequest) bool { return sw.FromUserID == userID })
}

func (s *MemoryStore) ListSwapsByRecipient(userID string) ([]domain.SwapRequest, error) {
	return s.listSwaps(func(sw domain.SwapRequest) bool { return sw.ToUserID == userID })
}

func (s *MemoryStore) listSwaps(keep func(domain.SwapRequest) bool) ([]domain.SwapRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]domain.SwapRequest, 0)
	for _, sw := range s.swaps {
		if keep(sw) {
			res = append(res, sw)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// CompleteSwap re-validates book ownership under the lock, exchanges the
// owners and marks the request completed. A request whose books already
// changed hands fails with ErrOwnershipChanged.
func (s *MemoryStore) CompleteSwap(id string) (domain.SwapRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw, ok := s.swaps[id]
	if !ok {
		return domain.SwapRequest{}, ErrSwapNotFound
	}
	if sw.Status != domain.SwapPending {
		return domain.SwapRequest{}, &SwapStateError{Status: sw.Status}
	}
	offered, okO := s.books[sw.OfferedBookID]
	requested, okR := s.books[sw.RequestedBookID]
	if !okO || !okR {
		return domain.SwapRequest{}, ErrBookMissing
	}
	if offered.OwnerID != sw.FromUserID || requested.OwnerID != sw.ToUserID {
		return domain.SwapRequest{}, ErrOwnershipChanged
	}
	now := time.Now().UTC()
	offered.OwnerID = sw.ToUserID
	offered.UpdatedAt = now
	requested.OwnerID = sw.FromUserID
	requested.UpdatedAt = now
	s.books[offered.ID] = offered
	s.books[requested.ID] = requested
	sw.Status = domain.SwapCompleted
	s.swaps[id] = sw
	return sw, nil
}

func (s *MemoryStore) RejectSwap(id string) (domain.SwapRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw, ok := s.swaps[id]
	if !ok {
		return domain.SwapRequest{}, ErrSwapNotFound
	}
	if sw.Status != domain.SwapPending {
		return domain.SwapRequest{}, &SwapStateError{Status: sw.Status}
	}
	sw.Status = domain.SwapRejected
	s.swaps[id] = sw
	return sw, nil
}

func (s *MemoryStore) SaveNotification(n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.UserID] = append(s.notifications[n.UserID], n)
	return nil
}

func (s *MemoryStore) ListNotificationsByUser(userID string) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.notifications[userID]
	res := make([]domain.Notification, len(stored))
	copy(res, stored)
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func sortBooksNewestFirst(books []domain.Book) {
	sort.Slice(books, func(i, j int) bool {
		if books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].ID > books[j].ID
		}
		return books[i].CreatedAt.After(books[j].CreatedAt)
	})
}
