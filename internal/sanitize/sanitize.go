// Package sanitize normalizes untrusted client payloads into canonical values.
// Everything here is pure: identical input yields identical output and no
// session state is touched, so it unit-tests without a running server.
package sanitize

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/chainduel/backend/internal/sim"
	"github.com/chainduel/backend/pkg/protocol"
)

// ErrMoveGeometry flags a coordinate pair whose displacement is not one of the
// four orthogonal unit steps. This cannot come from a well-behaved client.
var ErrMoveGeometry = errors.New("unable to derive orientation from move coordinates")

// Move is a validated, canonical move record.
type Move struct {
	Pass        bool
	X1          int
	Y1          int
	Orientation int
	HardDrop    bool
	// Pausing: client-reported clock remainder.
	MsRemaining float64
	// Realtime: claimed virtual frame, already defaulted to the server age.
	Time int
}

// PausingMove validates a pausing-mode move. A pass short-circuits coordinate
// handling entirely.
func PausingMove(msg protocol.PausingMoveMsg) (Move, error) {
	if msg.Pass {
		return Move{Pass: true, MsRemaining: toFloat(msg.MsRemaining)}, nil
	}
	orientation, err := orientationOf(msg.Orientation, msg.X1, msg.Y1, msg.X2, msg.Y2)
	if err != nil {
		return Move{}, err
	}
	return Move{
		X1:          clampX(msg.X1),
		Y1:          clampY(msg.Y1),
		Orientation: orientation,
		HardDrop:    msg.HardDrop,
		MsRemaining: toFloat(msg.MsRemaining),
	}, nil
}

// RealtimeMove validates a realtime move, binding its claimed virtual time to
// the client value when present and to the current server age otherwise.
func RealtimeMove(age int, msg protocol.RealtimeMoveMsg) (Move, error) {
	orientation, err := orientationOf(msg.Orientation, msg.X1, msg.Y1, msg.X2, msg.Y2)
	if err != nil {
		return Move{}, err
	}
	t := age
	if v, ok := toNumber(msg.Time); ok && int(v) != 0 {
		t = int(v)
	}
	return Move{
		X1:          clampX(msg.X1),
		Y1:          clampY(msg.Y1),
		Orientation: orientation,
		HardDrop:    msg.HardDrop,
		Time:        t,
	}, nil
}

// SecondCell derives the partner coordinates of an oriented move.
// Orientation 0 puts the second cell above, 1 left, 2 below, 3 right.
func SecondCell(x1, y1, orientation int) (x2, y2 int) {
	switch orientation & 3 {
	case 0:
		return x1, y1 - 1
	case 1:
		return x1 - 1, y1
	case 2:
		return x1, y1 + 1
	default:
		return x1 + 1, y1
	}
}

// OrientationOf is the inverse of SecondCell.
func OrientationOf(x1, y1, x2, y2 int) (int, error) {
	switch {
	case x2 == x1 && y2 == y1-1:
		return 0, nil
	case x2 == x1-1 && y2 == y1:
		return 1, nil
	case x2 == x1 && y2 == y1+1:
		return 2, nil
	case x2 == x1+1 && y2 == y1:
		return 3, nil
	default:
		return 0, ErrMoveGeometry
	}
}

// ClampString truncates to a rune count, never splitting a rune.
func ClampString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// ClientInfo scrubs a client-reported application descriptor.
func ClientInfo(info protocol.ClientInfo) protocol.ClientInfo {
	return protocol.ClientInfo{
		Name:     ClampString(info.Name, 255),
		Version:  ClampString(info.Version, 255),
		Resolved: ClampString(info.Resolved, 255),
	}
}

func orientationOf(orientation, x1, y1, x2, y2 json.RawMessage) (int, error) {
	if orientation != nil {
		v, _ := toNumber(orientation)
		return int(v) & 3, nil
	}
	// No orientation: the client sent a second coordinate pair instead.
	ax, _ := toNumber(x1)
	ay, _ := toNumber(y1)
	bx, bxOK := toNumber(x2)
	by, byOK := toNumber(y2)
	if !bxOK && !byOK {
		return 0, ErrMoveGeometry
	}
	return OrientationOf(int(ax), int(ay), int(bx), int(by))
}

func clampX(raw json.RawMessage) int {
	v, _ := toNumber(raw)
	x := int(v)
	if x < 0 {
		x = 0
	}
	if x > sim.Width-1 {
		x = sim.Width - 1
	}
	return x
}

func clampY(raw json.RawMessage) int {
	v, ok := toNumber(raw)
	y := int(v)
	if !ok {
		y = 1
	}
	if y < 1 {
		y = 1
	}
	if y > sim.Height-1 {
		y = sim.Height - 1
	}
	return y
}

// toNumber coerces a raw JSON scalar (number, numeric string, anything else)
// to a float. The bool reports whether a usable number was found.
func toNumber(raw json.RawMessage) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toFloat(raw json.RawMessage) float64 {
	v, _ := toNumber(raw)
	return v
}
