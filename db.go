package main

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func OpenDB(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{})
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&PowerupGrant{},
		&Holding{},
		&Question{},
		&Attempt{},
		&StoreItem{},
		&LeaderboardEntry{},
	)
}

func IsQuestionTableEmpty(db *gorm.DB) (bool, error) {
	var count int64
	if err := db.Model(&Question{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

func IsStoreItemTableEmpty(db *gorm.DB) (bool, error) {
	var count int64
	if err := db.Model(&StoreItem{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}
