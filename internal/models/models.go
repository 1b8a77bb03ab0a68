package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"        json:"id"`
	FirstName    string    `gorm:"size:25;not null"                json:"firstName"`
	LastName     string    `gorm:"size:25;not null"                json:"lastName"`
	Username     string    `gorm:"size:100;uniqueIndex;not null"   json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"            json:"email"`
	PasswordHash string    `gorm:"not null"                        json:"-"`
	Token        string    `gorm:"size:7;uniqueIndex;not null"     json:"token"`
	IPAddress    string    `gorm:"size:45"                         json:"ipAddress"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RefreshToken references its owner by username, not by id.
type RefreshToken struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"        json:"id"`
	Username     string    `gorm:"size:100;index;not null"         json:"username"`
	RefreshToken string    `gorm:"size:64;uniqueIndex;not null"    json:"refreshToken"`
	Info         string    `gorm:"size:255"                        json:"info"`
	IPAddress    string    `gorm:"size:45"                         json:"ipAddress"`
	Expiration   time.Time `gorm:"not null"                        json:"expiration"`
	IsValid      bool      `gorm:"not null;index"                  json:"isValid"`
	CreatedAt    time.Time `json:"createdAt"`
}
