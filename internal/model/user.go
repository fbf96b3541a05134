package model

import "time"

// User 是 users 表的 GORM 模型。
// 账户在总部节点创建；口令以 bcrypt 散列存储，永不落明文。
type User struct {
	ID           uint      `gorm:"primaryKey"`
	FullName     string    `gorm:"size:128;not null"`
	Email        string    `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string    `gorm:"size:128;not null"`
	Staff        bool      `gorm:"not null;default:false"`
	PhoneNumber  string    `gorm:"size:32;not null"`
	Street       string    `gorm:"size:128;not null"`
	City         string    `gorm:"size:64;not null"`
	PostalCode   string    `gorm:"size:16;not null"`
	Country      string    `gorm:"size:64;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}
