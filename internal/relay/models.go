// Package relay implements the persistence side-channel: a process that
// connects to the game server like any other client, authenticates with the
// shared secret, and services user lookups, rating updates and replay inserts
// against Postgres. The game server itself never blocks on the database.
package relay

import (
	"time"

	"github.com/chainduel/backend/internal/elo"
)

type User struct {
	ID          uint   `gorm:"primaryKey"`
	AuthUUID    string `gorm:"uniqueIndex;size:64"`
	Username    string `gorm:"size:64"`
	EloRealtime float64
	EloPausing  float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func newUser(authUUID, username string) User {
	return User{
		AuthUUID:    authUUID,
		Username:    username,
		EloRealtime: elo.InitialRating,
		EloPausing:  elo.InitialRating,
	}
}

type Replay struct {
	ID        uint   `gorm:"primaryKey"`
	Data      []byte `gorm:"type:jsonb"`
	AuthUUID0 string `gorm:"index;size:64"`
	AuthUUID1 string `gorm:"index;size:64"`
	Winner    *int
	Reason    string `gorm:"size:32"`
	CreatedAt time.Time
}
