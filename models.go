package main

import (
	"time"
)

// --- User ---

type User struct {
	ID          uint   `gorm:"primaryKey"`
	PublicID    string `gorm:"uniqueIndex;size:36;not null"` // UUID carried in the session cookie
	DisplayName *string
	Email       *string `gorm:"uniqueIndex"`

	// Currency balance, mutated by answer evaluation, accrual and the shop.
	Currency int64 `gorm:"not null;default:0"`

	// Lifetime counters. Only first attempts move these.
	CorrectAnswered int64 `gorm:"not null;default:0"`
	WrongAnswered   int64 `gorm:"not null;default:0"`

	CurrentStreak int `gorm:"not null;default:0"`
	LongestStreak int `gorm:"not null;default:0"`

	// League points, drives leaderboard placement.
	Points int64 `gorm:"not null;default:0"`

	// Optimistic-concurrency guard: every user write is conditioned on the
	// version read at the start of the operation.
	Version int64 `gorm:"not null;default:1"`

	Powerups []PowerupGrant `gorm:"foreignKey:UserID"`
	Holdings []Holding      `gorm:"foreignKey:UserID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PowerupKind tags what a grant does while active.
type PowerupKind string

const (
	PowerupMultiplier PowerupKind = "multiplier"
	PowerupBoost      PowerupKind = "boost"
	PowerupTheme      PowerupKind = "theme"
	PowerupAvatar     PowerupKind = "avatar"
	// PowerupInvestor items create a Holding on purchase instead of a
	// time-boxed effect; the item's Value is the daily reward rate.
	PowerupInvestor PowerupKind = "investor"
)

// PowerupGrant is a time-boxed effect attached to a user. Value is only
// meaningful for multiplier-kind grants.
type PowerupGrant struct {
	ID          uint        `gorm:"primaryKey"`
	UserID      uint        `gorm:"index;not null"`
	ItemID      string      `gorm:"size:64;not null"`
	Name        string      `gorm:"size:64;not null"`
	Kind        PowerupKind `gorm:"size:16;not null"`
	Value       float64     `gorm:"not null;default:1"`
	IsActive    bool        `gorm:"not null;default:false"`
	ActiveUntil time.Time
	PurchasedAt time.Time `gorm:"not null"`
}

// Holding is a purchased reward-accrual instrument. LastAccrualDate is a
// calendar date in MM/DD/YYYY form; it is rewritten to "today" on every
// accrual run, which is what makes same-day repeats a no-op. The string
// form is deliberate: stored dates can be malformed and the accrual job
// must tolerate and self-heal them instead of aborting.
type Holding struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"index;not null"`
	Name            string `gorm:"size:64;not null"`
	LastAccrualDate string `gorm:"size:10;not null"`
	UnitAmount      int64  `gorm:"not null;default:1"`
	DailyRewardRate string `gorm:"size:32;not null;default:'0'"` // decimal string, e.g. "2.5"
	CreatedAt       time.Time
}

// --- Questions ---

type Question struct {
	ID            string  `gorm:"primaryKey;size:64" json:"id"`
	Subject       string  `gorm:"index;size:16;not null" json:"subject"` // "math" | "english"
	Topic         string  `gorm:"index;size:64" json:"topic"`
	Difficulty    string  `gorm:"index;size:8;not null" json:"difficulty"` // "Easy" | "Medium" | "Hard"
	Text          string  `gorm:"not null" json:"questionText"`
	Paragraph     *string `json:"paragraph,omitempty"`
	Explanation   *string `json:"explanation,omitempty"`
	ChoicesRaw    string  `gorm:"not null" json:"-"` // JSON: {"A": "...", "B": "..."}
	CorrectAnswer string  `gorm:"size:8;not null" json:"-"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Attempt is one immutable answer-submission log entry. For a given
// (UserID, QuestionID) pair AttemptNumber is contiguous from 1, increasing
// with AnsweredAt.
type Attempt struct {
	ID            string    `gorm:"primaryKey;size:36"`
	UserID        uint      `gorm:"index:idx_attempts_user_question;not null"`
	QuestionID    string    `gorm:"index:idx_attempts_user_question;size:64;not null"`
	Subject       string    `gorm:"size:16;not null"`
	Answer        string    `gorm:"size:255;not null"`
	IsCorrect     bool      `gorm:"not null"`
	AttemptNumber int       `gorm:"not null"`
	AnsweredAt    time.Time `gorm:"index;not null"`
}

// --- Shop ---

type StoreItem struct {
	ID          string      `gorm:"primaryKey;size:64" json:"id"`
	Name        string      `gorm:"not null" json:"name"`
	Description string      `json:"description"`
	Price       int64       `gorm:"not null" json:"price"`
	Kind        PowerupKind `gorm:"size:16;not null" json:"type"`
	DurationMin int         `json:"duration"` // minutes, for time-based items
	Value       float64     `gorm:"not null;default:1" json:"value"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// --- Leaderboard ---

// LeaderboardEntry is keyed by the user's public id; anonymous users all
// display the same fallback name but never share a row. One row per user
// across all leagues.
type LeaderboardEntry struct {
	ID        uint   `gorm:"primaryKey"`
	PublicID  string `gorm:"uniqueIndex;size:36;not null"`
	League    string `gorm:"index;size:16;not null"`
	Username  string `gorm:"size:64;not null"`
	Score     int64  `gorm:"not null"`
	UpdatedAt time.Time
}
