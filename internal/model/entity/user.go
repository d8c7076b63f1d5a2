package entity

import "time"

// User est l'identité portée par le contexte d'audit.
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Nom          string     `json:"nom" gorm:"size:128;not null"`
	Email        string     `json:"email" gorm:"size:128;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:128;not null"`
	Role         string     `json:"role" gorm:"size:32;not null;default:user"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
