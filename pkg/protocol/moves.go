package protocol

import "encoding/json"

// Move payloads arrive from untrusted clients, so every numeric field is kept
// as raw JSON until the sanitizer has coerced and clamped it. A RawMessage is
// nil when the field was absent, which the sanitizer uses to distinguish an
// orientation code from a second coordinate pair.

type PausingMoveMsg struct {
	Type        string          `json:"type"` // "pausing move"
	Pass        bool            `json:"pass,omitempty"`
	X1          json.RawMessage `json:"x1,omitempty"`
	Y1          json.RawMessage `json:"y1,omitempty"`
	X2          json.RawMessage `json:"x2,omitempty"`
	Y2          json.RawMessage `json:"y2,omitempty"`
	Orientation json.RawMessage `json:"orientation,omitempty"`
	HardDrop    bool            `json:"hardDrop,omitempty"`
	MsRemaining json.RawMessage `json:"msRemaining,omitempty"`
}

type RealtimeMoveMsg struct {
	Type        string          `json:"type"` // "realtime move"
	X1          json.RawMessage `json:"x1,omitempty"`
	Y1          json.RawMessage `json:"y1,omitempty"`
	X2          json.RawMessage `json:"x2,omitempty"`
	Y2          json.RawMessage `json:"y2,omitempty"`
	Orientation json.RawMessage `json:"orientation,omitempty"`
	HardDrop    bool            `json:"hardDrop,omitempty"`
	Time        json.RawMessage `json:"time,omitempty"`
}

// Server move echoes carry the canonical coordinates decided by the engine.

type ServerPausingMove struct {
	Type        string  `json:"type"` // "pausing move"
	Player      int     `json:"player"`
	Time        int     `json:"time"`
	X1          int     `json:"x1"`
	Y1          int     `json:"y1"`
	X2          int     `json:"x2"`
	Y2          int     `json:"y2"`
	Orientation int     `json:"orientation"`
	HardDrop    bool    `json:"hardDrop"`
	Pass        bool    `json:"pass"`
	MsRemaining float64 `json:"msRemaining"`
}

type ServerRealtimeMove struct {
	Type        string `json:"type"` // "realtime move"
	Player      int    `json:"player"`
	Time        int    `json:"time"`
	X1          int    `json:"x1"`
	Y1          int    `json:"y1"`
	X2          int    `json:"x2"`
	Y2          int    `json:"y2"`
	Orientation int    `json:"orientation"`
	HardDrop    bool   `json:"hardDrop"`
}

type Retcon struct {
	Type          string               `json:"type"` // "retcon"
	Time          int                  `json:"time"`
	RejectedMoves []ServerRealtimeMove `json:"rejectedMoves"`
}
