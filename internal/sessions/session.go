package sessions

import (
	"errors"
	"time"

	"github.com/renoplan/renoplan/internal/models"
)

// ErrNotFound is returned when an operation targets a session that no longer
// exists, e.g. an update racing a concurrent logout.
var ErrNotFound = errors.New("session not found")

// Session represents one authenticated device/browser login. A user may hold
// any number of concurrent sessions; deleting sessions never deletes the user.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	UserID       string    `bson:"userId" json:"userId"`
	AccessToken  string    `bson:"accessToken" json:"accessToken"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`

	// User is populated on access-token lookups; never persisted with the session.
	User *models.User `bson:"-" json:"user,omitempty"`
}
