package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"bookswap/pkg/domain"
)

const migrateLockID int64 = 52903417

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &BookModel{}, &SwapRequestModel{}, &NotificationModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'book_models'
					AND constraint_name = 'book_models_owner_id_fkey'
				) THEN
					ALTER TABLE book_models
					ADD CONSTRAINT book_models_owner_id_fkey
					FOREIGN KEY (owner_id) REFERENCES user_models(id);
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure book owner foreign key: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "email", "password_hash", "phone", "preferred_genres",
			"role", "verified", "otp_hash", "otp_expires_at", "verified_at", "updated_at",
		}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SaveBook stores or updates a book.
func (s *GormStore) SaveBook(b domain.Book) error {
	model := bookToModel(b)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner_id", "title", "author", "description", "condition",
			"genre", "cover_key", "available", "updated_at",
		}),
	}).Create(&model).Error
}

// GetBook retrieves a book.
func (s *GormStore) GetBook(id string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns all books, newest first, optionally filtered by a
// case-insensitive substring match on title or author.
func (s *GormStore) ListBooks(query string) ([]domain.Book, error) {
	if query == "" {
		return s.listBooks("created_at DESC")
	}
	pattern := "%" + query + "%"
	return s.listBooks("created_at DESC", "title ILIKE ? OR author ILIKE ?", pattern, pattern)
}

// ListBooksByOwner returns books filtered by owner, newest first.
func (s *GormStore) ListBooksByOwner(ownerID string) ([]domain.Book, error) {
	return s.listBooks("created_at DESC", "owner_id = ?", ownerID)
}

func (s *GormStore) listBooks(order string, conds ...any) ([]domain.Book, error) {
	var models []BookModel
	tx := s.db.Order(order)
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// DeleteBook removes a book record.
func (s *GormStore) DeleteBook(id string) error {
	return s.db.Delete(&BookModel{}, "id = ?", id).Error
}

// SaveSwap stores a swap request.
func (s *GormStore) SaveSwap(swap domain.SwapRequest) error {
	model := swapToModel(swap)
	return s.db.Create(&model).Error
}

// GetSwap retrieves a swap request.
func (s *GormStore) GetSwap(id string) (domain.SwapRequest, bool, error) {
	var model SwapRequestModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SwapRequest{}, false, nil
		}
		return domain.SwapRequest{}, false, err
	}
	return swapFromModel(model), true, nil
}

// HasPendingSwap reports whether a pending request exists for the exact
// (fromUser, toUser, offeredBook, requestedBook) tuple. Only pending status
// counts; rejected or completed tuples may be recreated.
func (s *GormStore) HasPendingSwap(fromUserID, toUserID, offeredBookID, requestedBookID string) (bool, error) {
	var count int64
	err := s.db.Model(&SwapRequestModel{}).
		Where("from_user_id = ? AND to_user_id = ? AND offered_book_id = ? AND requested_book_id = ? AND status = ?",
			fromUserID, toUserID, offeredBookID, requestedBookID, string(domain.SwapPending)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListSwapsByRequester returns requests initiated by the user, newest first.
func (s *GormStore) ListSwapsByRequester(userID string) ([]domain.SwapRequest, error) {
	return s.listSwaps("from_user_id = ?", userID)
}

// ListSwapsByRecipient returns requests targeting the user, newest first.
func (s *GormStore) ListSwapsByRecipient(userID string) ([]domain.SwapRequest, error) {
	return s.listSwaps("to_user_id = ?", userID)
}

func (s *GormStore) listSwaps(cond string, args ...any) ([]domain.SwapRequest, error) {
	var models []SwapRequestModel
	if err := s.db.Where(cond, args...).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.SwapRequest, 0, len(models))
	for _, m := range models {
		res = append(res, swapFromModel(m))
	}
	return res, nil
}

// CompleteSwap performs the ownership exchange in a single transaction.
// The swap row and both book rows are locked (books in id order so that
// overlapping pairs always lock in the same order), ownership is
// re-validated under the locks, and only then are the owners exchanged and
// the request marked completed. A competing accept that already consumed
// one of the books fails here with ErrOwnershipChanged.
func (s *GormStore) CompleteSwap(id string) (domain.SwapRequest, error) {
	var result domain.SwapRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		swap, err := lockSwap(tx, id)
		if err != nil {
			return err
		}
		if swap.Status != string(domain.SwapPending) {
			return &SwapStateError{Status: domain.SwapStatus(swap.Status)}
		}

		ids := []string{swap.OfferedBookID, swap.RequestedBookID}
		var books []BookModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Order("id ASC").
			Find(&books).Error; err != nil {
			return err
		}
		if len(books) != 2 {
			return ErrBookMissing
		}
		byID := map[string]BookModel{books[0].ID: books[0], books[1].ID: books[1]}
		offered := byID[swap.OfferedBookID]
		requested := byID[swap.RequestedBookID]
		if offered.OwnerID != swap.FromUserID || requested.OwnerID != swap.ToUserID {
			return ErrOwnershipChanged
		}

		now := time.Now().UTC()
		if err := tx.Model(&BookModel{}).Where("id = ?", offered.ID).
			Updates(map[string]any{"owner_id": swap.ToUserID, "updated_at": now}).Error; err != nil {
			return err
		}
		if err := tx.Model(&BookModel{}).Where("id = ?", requested.ID).
			Updates(map[string]any{"owner_id": swap.FromUserID, "updated_at": now}).Error; err != nil {
			return err
		}
		if err := tx.Model(&SwapRequestModel{}).Where("id = ?", swap.ID).
			Update("status", string(domain.SwapCompleted)).Error; err != nil {
			return err
		}
		swap.Status = string(domain.SwapCompleted)
		result = swapFromModel(swap)
		return nil
	})
	if err != nil {
		return domain.SwapRequest{}, err
	}
	return result, nil
}

// RejectSwap moves a pending request to rejected under the swap row lock.
func (s *GormStore) RejectSwap(id string) (domain.SwapRequest, error) {
	var result domain.SwapRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		swap, err := lockSwap(tx, id)
		if err != nil {
			return err
		}
		if swap.Status != string(domain.SwapPending) {
			return &SwapStateError{Status: domain.SwapStatus(swap.Status)}
		}
		if err := tx.Model(&SwapRequestModel{}).Where("id = ?", swap.ID).
			Update("status", string(domain.SwapRejected)).Error; err != nil {
			return err
		}
		swap.Status = string(domain.SwapRejected)
		result = swapFromModel(swap)
		return nil
	})
	if err != nil {
		return domain.SwapRequest{}, err
	}
	return result, nil
}

func lockSwap(tx *gorm.DB, id string) (SwapRequestModel, error) {
	var swap SwapRequestModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&swap, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SwapRequestModel{}, ErrSwapNotFound
		}
		return SwapRequestModel{}, err
	}
	return swap, nil
}

// SaveNotification appends a notification.
func (s *GormStore) SaveNotification(n domain.Notification) error {
	model := notificationToModel(n)
	return s.db.Create(&model).Error
}

// ListNotificationsByUser returns a user's notifications, newest first.
func (s *GormStore) ListNotificationsByUser(userID string) ([]domain.Notification, error) {
	var models []NotificationModel
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Notification, 0, len(models))
	for _, m := range models {
		res = append(res, notificationFromModel(m))
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	genres, _ := json.Marshal(u.PreferredGenres)
	return UserModel{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		Phone:           u.Phone,
		PreferredGenres: genres,
		Role:            string(u.Role),
		Verified:        u.Verified,
		OTPHash:         u.OTPHash,
		OTPExpiresAt:    u.OTPExpiresAt,
		VerifiedAt:      u.VerifiedAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	var genres []string
	if len(m.PreferredGenres) > 0 {
		_ = json.Unmarshal(m.PreferredGenres, &genres)
	}
	role := domain.UserRole(m.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.User{
		ID:              m.ID,
		Name:            m.Name,
		Email:           m.Email,
		PasswordHash:    m.PasswordHash,
		Phone:           m.Phone,
		PreferredGenres: genres,
		Role:            role,
		Verified:        m.Verified,
		OTPHash:         m.OTPHash,
		OTPExpiresAt:    m.OTPExpiresAt,
		VerifiedAt:      m.VerifiedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:          b.ID,
		OwnerID:     b.OwnerID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		Condition:   string(b.Condition),
		Genre:       b.Genre,
		CoverKey:    b.CoverKey,
		Available:   b.Available,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Title:       m.Title,
		Author:      m.Author,
		Description: m.Description,
		Condition:   domain.BookCondition(m.Condition),
		Genre:       m.Genre,
		CoverKey:    m.CoverKey,
		Available:   m.Available,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func swapToModel(s domain.SwapRequest) SwapRequestModel {
	return SwapRequestModel{
		ID:              s.ID,
		FromUserID:      s.FromUserID,
		ToUserID:        s.ToUserID,
		OfferedBookID:   s.OfferedBookID,
		RequestedBookID: s.RequestedBookID,
		Status:          string(s.Status),
		CreatedAt:       s.CreatedAt,
	}
}

func swapFromModel(m SwapRequestModel) domain.SwapRequest {
	return domain.SwapRequest{
		ID:              m.ID,
		FromUserID:      m.FromUserID,
		ToUserID:        m.ToUserID,
		OfferedBookID:   m.OfferedBookID,
		RequestedBookID: m.RequestedBookID,
		Status:          domain.SwapStatus(m.Status),
		CreatedAt:       m.CreatedAt,
	}
}

func notificationToModel(n domain.Notification) NotificationModel {
	return NotificationModel{
		ID:        n.ID,
		UserID:    n.UserID,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}

func notificationFromModel(m NotificationModel) domain.Notification {
	return domain.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}
