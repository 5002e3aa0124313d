// Package protocol defines the JSON wire messages exchanged between the game
// server, game clients and the persistence relay. Every message is a flat JSON
// object carrying a "type" discriminator.
package protocol

import "encoding/json"

type GameType string

const (
	GameRealtime GameType = "realtime"
	GamePausing  GameType = "pausing"
)

// Client -> Server

// TypeOf peeks at the discriminator without committing to a concrete message.
func TypeOf(raw []byte) (string, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", err
	}
	return probe.Type, nil
}

type GameRequest struct {
	Type        string   `json:"type"` // "game request"
	GameType    GameType `json:"gameType"`
	AutoMatch   bool     `json:"autoMatch"`
	Ranked      bool     `json:"ranked"`
	BotsAllowed bool     `json:"botsAllowed"`
	Name        string   `json:"name,omitempty"`
	Password    string   `json:"password,omitempty"`
}

type Ready struct {
	Type string `json:"type"` // "ready"
}

type SimpleStateRequest struct {
	Type string `json:"type"` // "simple state request"
}

// SelfMessage updates the sender's identity. The server forwards it to the
// relay (with SocketID filled in) so the user row can be upserted.
type SelfMessage struct {
	Type     string      `json:"type"` // "self"
	Username string      `json:"username,omitempty"`
	AuthUUID string      `json:"authUuid,omitempty"`
	IsBot    *bool       `json:"isBot,omitempty"`
	Info     *ClientInfo `json:"clientInfo,omitempty"`
	SocketID uint64      `json:"socketId,omitempty"`
}

type ClientInfo struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Resolved string `json:"resolved,omitempty"`
}

// ResultClaim is a self-reported outcome (resignation or a timeout claim).
type ResultClaim struct {
	Type   string `json:"type"` // "result"
	Reason string `json:"reason"`
}

type AcceptChallenge struct {
	Type     string `json:"type"` // "accept challenge"
	UUID     string `json:"uuid,omitempty"`
	Password string `json:"password,omitempty"`
}

type CancelGameRequest struct {
	Type string `json:"type"` // "cancel game request"
}

type ChallengeListRequest struct {
	Type string `json:"type"` // "challenge list"
}

// Server -> Client

type GameParams struct {
	Type     string         `json:"type"` // "game params"
	Params   PartialParams  `json:"params"`
	Identity int            `json:"identity"`
	Metadata ReplayMetadata `json:"metadata"`
}

// PartialParams is Params with the bag seeds withheld; clients learn the seeds
// only in the final result message so future pieces cannot be predicted.
type PartialParams struct {
	GarbageSeeds   [2]uint64 `json:"garbageSeeds"`
	ColorSelection []int     `json:"colorSelection"`
	InitialBags    [2][]int  `json:"initialBags"`
	TargetPoints   int       `json:"targetPoints"`
	MarginFrames   int       `json:"marginFrames"`
}

type Go struct {
	Type string `json:"type"` // "go"
}

type PieceMessage struct {
	Type   string `json:"type"` // "piece"
	Player int    `json:"player"`
	Time   int    `json:"time"`
	Piece  []int  `json:"piece"`
}

type TimerMessage struct {
	Type        string  `json:"type"` // "timer"
	Player      int     `json:"player"`
	MsRemaining float64 `json:"msRemaining"`
}

type GameResult struct {
	Type        string    `json:"type"` // "game result"
	Winner      *int      `json:"winner,omitempty"`
	Reason      string    `json:"reason"`
	MsSince1970 int64     `json:"msSince1970"`
	BagSeeds    [2]uint64 `json:"bagSeeds"`
	InitialBags [2][]int  `json:"initialBags"`
}

type SimpleState struct {
	Type  string          `json:"type"` // "simple state"
	State json.RawMessage `json:"state"`
}

type ChallengeInfo struct {
	UUID        string   `json:"uuid"`
	Name        string   `json:"name"`
	GameType    GameType `json:"gameType"`
	AutoMatch   bool     `json:"autoMatch"`
	Ranked      bool     `json:"ranked"`
	BotsAllowed bool     `json:"botsAllowed"`
}

type ChallengeList struct {
	Type       string          `json:"type"` // "challenge list"
	Challenges []ChallengeInfo `json:"challenges"`
}

type ChallengeNotFound struct {
	Type     string `json:"type"` // "challenge not found"
	UUID     string `json:"uuid,omitempty"`
	Password string `json:"password,omitempty"`
}

type UserUpdate struct {
	Type        string  `json:"type"` // "user"
	Username    string  `json:"username"`
	EloRealtime float64 `json:"eloRealtime"`
	EloPausing  float64 `json:"eloPausing"`
}

// Replay bookkeeping

type ReplayMetadata struct {
	Names       []string      `json:"names"`
	Elos        []float64     `json:"elos"`
	PriorWins   []int         `json:"priorWins"`
	Event       string        `json:"event"`
	Site        string        `json:"site"`
	Round       int           `json:"round"`
	MsSince1970 int64         `json:"msSince1970"`
	EndTime     int64         `json:"endTime,omitempty"`
	Type        GameType      `json:"type"`
	Server      *ClientInfo   `json:"server,omitempty"`
	Clients     []*ClientInfo `json:"clients"`
}

type ReplayResult struct {
	Winner *int   `json:"winner,omitempty"`
	Reason string `json:"reason"`
}

// Database side-channel (authenticated by a process-local secret)

type DatabaseHello struct {
	Type          string `json:"type"` // "database:hello"
	Authorization string `json:"authorization"`
}

type DatabaseUser struct {
	Type          string     `json:"type"` // "database:user"
	Authorization string     `json:"authorization"`
	SocketID      uint64     `json:"socketId"`
	Payload       UserUpdate `json:"payload"`
}

type EloUpdate struct {
	Type      string   `json:"type"` // "elo update"
	GameType  GameType `json:"gameType"`
	Winner    *int     `json:"winner,omitempty"`
	AuthUUIDs []string `json:"authUuids"`
}

type ReplayInsert struct {
	Type      string          `json:"type"` // "replay"
	Replay    json.RawMessage `json:"replay"`
	AuthUUIDs []string        `json:"authUuids"`
}

// DatabaseTypes enumerates the side-channel message types subject to the
// authorization check. Anything else is ordinary client traffic.
var DatabaseTypes = map[string]bool{
	"database:hello": true,
	"database:user":  true,
	"database:self":  true,
	"elo update":     true,
	"replay":         true,
}
