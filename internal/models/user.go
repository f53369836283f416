package models

import "time"

// User represents an application user mapped from identity-provider claims.
// Created on first successful login, updated on every subsequent login keyed
// by IdpUserID. Never deleted by the auth flow.
type User struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	IdpUserID   string    `bson:"idpUserId" json:"idpUserId"` // provider subject (sub claim), unique
	Email       string    `bson:"email" json:"email"`
	Name        string    `bson:"name" json:"name"`
	Phone       string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Company     string    `bson:"company,omitempty" json:"company,omitempty"`
	LastLoginAt time.Time `bson:"lastLoginAt" json:"lastLoginAt"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}
