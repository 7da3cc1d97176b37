package domain

import (
	"time"
)

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	IsActive     bool       `json:"isActive"`
	LastSyncedAt *time.Time `json:"lastSyncedAt"` // 离线同步水位线，首次同步前为空
	CreatedAt    time.Time  `json:"createdAt"`
	Version      int32      `json:"-"`
}
