package relay

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chainduel/backend/internal/elo"
	"github.com/chainduel/backend/pkg/protocol"
)

var ErrUnknownUser = errors.New("no user with that auth uuid")

type Store struct {
	db *gorm.DB
}

func OpenStore(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &Replay{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// EnsureUser fetches the user row, creating it with initial ratings on first
// sight. A non-empty username updates the stored one.
func (s *Store) EnsureUser(authUUID, username string) (User, error) {
	var u User
	err := s.db.Where("auth_uuid = ?", authUUID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u = newUser(authUUID, username)
		if err := s.db.Create(&u).Error; err != nil {
			return User{}, err
		}
		return u, nil
	}
	if err != nil {
		return User{}, err
	}
	if username != "" && username != u.Username {
		u.Username = username
		if err := s.db.Save(&u).Error; err != nil {
			return User{}, err
		}
	}
	return u, nil
}

// ApplyResult updates both players' ratings for the given game type. A nil
// winner scores the game as a draw.
func (s *Store) ApplyResult(gameType protocol.GameType, winner *int, authUUIDs []string) error {
	if len(authUUIDs) != 2 {
		return fmt.Errorf("elo update needs two players, got %d", len(authUUIDs))
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var users [2]User
		for i, auth := range authUUIDs {
			if err := tx.Where("auth_uuid = ?", auth).First(&users[i]).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUnknownUser
				}
				return err
			}
		}

		result := 0.5
		if winner != nil {
			if *winner == 0 {
				result = 1
			} else {
				result = 0
			}
		}

		switch gameType {
		case protocol.GamePausing:
			users[0].EloPausing, users[1].EloPausing = elo.Update(users[0].EloPausing, users[1].EloPausing, result)
		default:
			users[0].EloRealtime, users[1].EloRealtime = elo.Update(users[0].EloRealtime, users[1].EloRealtime, result)
		}

		for i := range users {
			if err := tx.Save(&users[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) InsertReplay(data []byte, authUUIDs []string, winner *int, reason string) error {
	r := Replay{
		Data:   data,
		Winner: winner,
		Reason: reason,
	}
	if len(authUUIDs) > 0 {
		r.AuthUUID0 = authUUIDs[0]
	}
	if len(authUUIDs) > 1 {
		r.AuthUUID1 = authUUIDs[1]
	}
	return s.db.Create(&r).Error
}
