// Package board keeps the open-challenge registry and resolves matches. The
// board is owned exclusively by the hub goroutine; it is plain data with no
// internal locking.
package board

import (
	"github.com/google/uuid"

	"github.com/chainduel/backend/internal/player"
	"github.com/chainduel/backend/internal/sanitize"
	"github.com/chainduel/backend/pkg/protocol"
)

// Challenge is an open game offer. Ownership transfers to the session the
// moment a match is struck.
type Challenge struct {
	UUID        string
	GameType    protocol.GameType
	AutoMatch   bool
	Ranked      bool
	BotsAllowed bool
	Name        string
	Password    string // empty means open to anyone
	Player      *player.Player
}

// Board holds challenges in registration order; matching is first-fit.
type Board struct {
	challenges []*Challenge
}

func New() *Board {
	return &Board{}
}

// Request handles a game request. With autoMatch set it first scans for a
// compatible open challenge and returns it (removed from the board); otherwise
// the request is registered as a new challenge and nil is returned.
func (b *Board) Request(p *player.Player, req protocol.GameRequest) *Challenge {
	if req.AutoMatch {
		for i, c := range b.challenges {
			if !c.AutoMatch || c.Password != "" || c.Player == p {
				continue
			}
			// Bot acceptance has to hold in both directions.
			if !req.BotsAllowed && c.Player.IsBot {
				continue
			}
			if !c.BotsAllowed && p.IsBot {
				continue
			}
			if c.GameType == req.GameType && c.Ranked == req.Ranked {
				b.challenges = append(b.challenges[:i], b.challenges[i+1:]...)
				return c
			}
		}
	}
	b.challenges = append(b.challenges, newChallenge(p, req))
	return nil
}

// Accept looks a challenge up by password (which takes precedence) or id and
// removes it on a hit.
func (b *Board) Accept(p *player.Player, id, password string) *Challenge {
	for i, c := range b.challenges {
		if c.Player != p && c.Password != "" && c.Password == password {
			b.challenges = append(b.challenges[:i], b.challenges[i+1:]...)
			return c
		}
	}
	for i, c := range b.challenges {
		if c.Player != p && c.UUID == id {
			b.challenges = append(b.challenges[:i], b.challenges[i+1:]...)
			return c
		}
	}
	return nil
}

// RemoveBy drops every challenge owned by a player. Safe to call when none
// exists; both cancellation and disconnect funnel through here.
func (b *Board) RemoveBy(p *player.Player) {
	kept := b.challenges[:0]
	for _, c := range b.challenges {
		if c.Player != p {
			kept = append(kept, c)
		}
	}
	b.challenges = kept
}

// Listing returns the public view of the board. Password-protected challenges
// are withheld, and the owner's connection identity is replaced by a display
// name.
func (b *Board) Listing() []protocol.ChallengeInfo {
	listing := make([]protocol.ChallengeInfo, 0, len(b.challenges))
	for _, c := range b.challenges {
		if c.Password != "" {
			continue
		}
		name := c.Name
		if name == "" {
			name = c.Player.Name
		}
		listing = append(listing, protocol.ChallengeInfo{
			UUID:        c.UUID,
			Name:        name,
			GameType:    c.GameType,
			AutoMatch:   c.AutoMatch,
			Ranked:      c.Ranked,
			BotsAllowed: c.BotsAllowed,
		})
	}
	return listing
}

// Len reports the number of open challenges.
func (b *Board) Len() int { return len(b.challenges) }

func newChallenge(p *player.Player, req protocol.GameRequest) *Challenge {
	gameType := protocol.GameRealtime
	if req.GameType == protocol.GamePausing {
		gameType = protocol.GamePausing
	}
	return &Challenge{
		UUID:        uuid.NewString(),
		GameType:    gameType,
		AutoMatch:   req.AutoMatch,
		Ranked:      req.Ranked,
		BotsAllowed: req.BotsAllowed,
		Name:        sanitize.ClampString(req.Name, 255),
		Password:    sanitize.ClampString(req.Password, 255),
		Player:      p,
	}
}
