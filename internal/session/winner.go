package session

import "encoding/json"

// Winner distinguishes a draw from a win without resorting to sentinel
// indices. The zero value is a draw.
type Winner struct {
	idx int // player index + 1; 0 means draw
}

func Draw() Winner { return Winner{} }

func WinnerPlayer(player int) Winner { return Winner{idx: player + 1} }

func (w Winner) IsDraw() bool { return w.idx == 0 }

// Player returns the winning player index, if any.
func (w Winner) Player() (int, bool) {
	if w.idx == 0 {
		return 0, false
	}
	return w.idx - 1, true
}

// Ptr renders the winner the way the wire protocol expects: nil for a draw,
// otherwise a pointer to the player index.
func (w Winner) Ptr() *int {
	if w.idx == 0 {
		return nil
	}
	i := w.idx - 1
	return &i
}

func (w Winner) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Ptr())
}

func (w *Winner) UnmarshalJSON(data []byte) error {
	var i *int
	if err := json.Unmarshal(data, &i); err != nil {
		return err
	}
	if i == nil {
		*w = Draw()
	} else {
		*w = WinnerPlayer(*i)
	}
	return nil
}

// Reason is the closed set of game-over causes.
type Reason string

const (
	ReasonLockout       Reason = "lockout"
	ReasonDoubleLockout Reason = "double lockout"
	ReasonImpasse       Reason = "impasse"
	ReasonMaxTime       Reason = "max time exceeded"
	ReasonTimeout       Reason = "timeout"
	ReasonDisconnect    Reason = "disconnect"
	ReasonResignation   Reason = "resignation"
	ReasonLagging       Reason = "lagging"
	ReasonAdvancing     Reason = "advancing"
)

// claimableReasons are the outcomes a client may self-report. Anything else in
// a result claim is treated as a resignation.
var claimableReasons = map[Reason]bool{
	ReasonResignation: true,
	ReasonTimeout:     true,
}

func sanitizeClaim(raw string) Reason {
	r := Reason(raw)
	if claimableReasons[r] {
		return r
	}
	return ReasonResignation
}
