package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Repository is the narrow persistence contract the evaluation and accrual
// logic runs against; tests substitute an in-memory fake.
type Repository interface {
	GetUserByID(ctx context.Context, id uint) (*User, error)
	GetUserByPublicID(ctx context.Context, publicID string) (*User, error)
	CreateUser(ctx context.Context, u *User) error
	// UpdateUser writes the user's mutable counters conditioned on the
	// version read at load time; a stale version yields
	// ErrConcurrentModification and no write.
	UpdateUser(ctx context.Context, u *User) error

	GetQuestion(ctx context.Context, id string) (*Question, error)
	GetRandomQuestion(ctx context.Context, subject, topic, difficulty string) (*Question, error)

	GetPriorAttempts(ctx context.Context, userID uint, questionID string) ([]Attempt, error)
	GetRecentAttempts(ctx context.Context, userID uint, limit int) ([]Attempt, error)
	InsertAttempt(ctx context.Context, a *Attempt) error

	// RecordEvaluation commits the user's counter deltas and the attempt
	// log entry in one transaction, conditioned on the user's version.
	// Either both land or neither does; a half-applied evaluation would
	// let a retry re-award the same question.
	RecordEvaluation(ctx context.Context, u *User, a *Attempt) error

	// ApplyAccrual commits the accrued currency and the rewritten holding
	// dates in one transaction, conditioned on the user's version.
	ApplyAccrual(ctx context.Context, u *User, holdings []Holding) error
	InsertHolding(ctx context.Context, h *Holding) error

	ListStoreItems(ctx context.Context) ([]StoreItem, error)
	GetStoreItem(ctx context.Context, id string) (*StoreItem, error)
	InsertPowerup(ctx context.Context, g *PowerupGrant) error
	UpdatePowerup(ctx context.Context, g *PowerupGrant) error

	UpsertLeaderboardEntry(ctx context.Context, league, publicID, username string, score int64) error
	ListLeaderboard(ctx context.Context, league string) ([]LeaderboardEntry, error)
}

// userLocks serializes invocations per user id so two concurrent requests
// for the same user cannot interleave a read-modify-write; different users
// never contend.
type userLocks struct {
	mu sync.Map // uint -> *sync.Mutex
}

func (l *userLocks) Lock(id uint) func() {
	v, _ := l.mu.LoadOrStore(id, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// --- gorm implementation ---

type gormRepo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepo{db: db}
}

func (r *gormRepo) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).
		Preload("Powerups").Preload("Holdings").
		First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepo) GetUserByPublicID(ctx context.Context, publicID string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).
		Preload("Powerups").Preload("Holdings").
		First(&u, "public_id = ?", publicID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepo) CreateUser(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// userWrite maps every field UpdateUser persists; zero values must be
// written too (a reset streak is a zero).
func userWrite(u *User) map[string]any {
	return map[string]any{
		"currency":         u.Currency,
		"correct_answered": u.CorrectAnswered,
		"wrong_answered":   u.WrongAnswered,
		"current_streak":   u.CurrentStreak,
		"longest_streak":   u.LongestStreak,
		"points":           u.Points,
		"version":          u.Version + 1,
		"updated_at":       time.Now(),
	}
}

func (r *gormRepo) UpdateUser(ctx context.Context, u *User) error {
	return r.updateUserTx(r.db.WithContext(ctx), u)
}

func (r *gormRepo) updateUserTx(tx *gorm.DB, u *User) error {
	res := tx.Model(&User{}).
		Where("id = ? AND version = ?", u.ID, u.Version).
		Updates(userWrite(u))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	u.Version++
	return nil
}

func (r *gormRepo) GetQuestion(ctx context.Context, id string) (*Question, error) {
	var q Question
	err := r.db.WithContext(ctx).First(&q, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *gormRepo) GetRandomQuestion(ctx context.Context, subject, topic, difficulty string) (*Question, error) {
	q := r.db.WithContext(ctx).Model(&Question{})
	if subject != "" {
		q = q.Where("subject = ?", subject)
	}
	if topic != "" {
		q = q.Where("topic = ?", topic)
	}
	if difficulty != "" {
		q = q.Where("difficulty = ?", difficulty)
	}
	var out Question
	err := q.Order("RANDOM()").First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *gormRepo) GetPriorAttempts(ctx context.Context, userID uint, questionID string) ([]Attempt, error) {
	var out []Attempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Order("attempt_number ASC").
		Find(&out).Error
	return out, err
}

func (r *gormRepo) GetRecentAttempts(ctx context.Context, userID uint, limit int) ([]Attempt, error) {
	var out []Attempt
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("answered_at DESC, attempt_number DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *gormRepo) InsertAttempt(ctx context.Context, a *Attempt) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *gormRepo) RecordEvaluation(ctx context.Context, u *User, a *Attempt) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.updateUserTx(tx, u); err != nil {
			return err
		}
		return tx.Create(a).Error
	})
}

func (r *gormRepo) ApplyAccrual(ctx context.Context, u *User, holdings []Holding) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.updateUserTx(tx, u); err != nil {
			return err
		}
		for i := range holdings {
			res := tx.Model(&Holding{}).
				Where("id = ?", holdings[i].ID).
				Update("last_accrual_date", holdings[i].LastAccrualDate)
			if res.Error != nil {
				return res.Error
			}
		}
		return nil
	})
}

func (r *gormRepo) InsertHolding(ctx context.Context, h *Holding) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *gormRepo) ListStoreItems(ctx context.Context) ([]StoreItem, error) {
	var out []StoreItem
	err := r.db.WithContext(ctx).Order("price ASC").Find(&out).Error
	return out, err
}

func (r *gormRepo) GetStoreItem(ctx context.Context, id string) (*StoreItem, error) {
	var item StoreItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *gormRepo) InsertPowerup(ctx context.Context, g *PowerupGrant) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *gormRepo) UpdatePowerup(ctx context.Context, g *PowerupGrant) error {
	return r.db.WithContext(ctx).Save(g).Error
}

// UpsertLeaderboardEntry moves the user into the given league, refreshes
// their display name and score and trims the league back to its top 20.
func (r *gormRepo) UpsertLeaderboardEntry(ctx context.Context, league, publicID, username string, score int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("public_id = ? AND league <> ?", publicID, league).
			Delete(&LeaderboardEntry{}).Error; err != nil {
			return err
		}
		var e LeaderboardEntry
		err := tx.Where("public_id = ? AND league = ?", publicID, league).First(&e).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			e = LeaderboardEntry{PublicID: publicID, League: league, Username: username, Score: score}
			if err := tx.Create(&e).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&e).
				Updates(map[string]any{"username": username, "score": score}).Error; err != nil {
				return err
			}
		}
		return tx.Exec(`DELETE FROM leaderboard_entries
			WHERE league = ? AND id NOT IN (
				SELECT id FROM leaderboard_entries
				WHERE league = ? ORDER BY score DESC LIMIT 20)`,
			league, league).Error
	})
}

func (r *gormRepo) ListLeaderboard(ctx context.Context, league string) ([]LeaderboardEntry, error) {
	var out []LeaderboardEntry
	err := r.db.WithContext(ctx).
		Where("league = ?", league).
		Order("score DESC, username ASC").
		Find(&out).Error
	return out, err
}
