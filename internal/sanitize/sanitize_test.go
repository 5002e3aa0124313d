package sanitize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainduel/backend/internal/sim"
	"github.com/chainduel/backend/pkg/protocol"
)

func rawNum(n int) json.RawMessage {
	raw, _ := json.Marshal(n)
	return raw
}

func TestOrientationRoundTrip(t *testing.T) {
	for orientation := 0; orientation < 4; orientation++ {
		x2, y2 := SecondCell(3, 8, orientation)
		back, err := OrientationOf(3, 8, x2, y2)
		require.NoError(t, err)
		assert.Equal(t, orientation, back, "orientation %d did not round-trip", orientation)
	}
}

func TestOrientationOfRejectsNonUnitDisplacement(t *testing.T) {
	cases := []struct {
		name   string
		x2, y2 int
	}{
		{"same cell", 3, 8},
		{"diagonal", 4, 9},
		{"two apart", 5, 8},
		{"knight", 4, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := OrientationOf(3, 8, tc.x2, tc.y2)
			assert.ErrorIs(t, err, ErrMoveGeometry)
		})
	}
}

func TestPausingMoveClampsCoordinates(t *testing.T) {
	cases := []struct {
		name   string
		x1, y1 json.RawMessage
		wantX  int
		wantY  int
	}{
		{"negative", rawNum(-5), rawNum(-3), 0, 1},
		{"too large", rawNum(99), rawNum(99), sim.Width - 1, sim.Height - 1},
		{"y zero is below the visible field", rawNum(2), rawNum(0), 2, 1},
		{"numeric string", json.RawMessage(`"4"`), json.RawMessage(`"7"`), 4, 7},
		{"garbage coerces to minimum", json.RawMessage(`{"x":1}`), json.RawMessage(`[1]`), 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := PausingMove(protocol.PausingMoveMsg{
				X1:          tc.x1,
				Y1:          tc.y1,
				Orientation: rawNum(0),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantX, m.X1)
			assert.Equal(t, tc.wantY, m.Y1)
		})
	}
}

func TestPausingMoveOrientationMasked(t *testing.T) {
	m, err := PausingMove(protocol.PausingMoveMsg{
		X1:          rawNum(2),
		Y1:          rawNum(5),
		Orientation: rawNum(-7), // &3 == 1
	})
	require.NoError(t, err)
	assert.Equal(t, -7&3, m.Orientation)
}

func TestPausingMoveFromCoordinatePair(t *testing.T) {
	m, err := PausingMove(protocol.PausingMoveMsg{
		X1: rawNum(2), Y1: rawNum(5),
		X2: rawNum(2), Y2: rawNum(4),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, m.Orientation)

	_, err = PausingMove(protocol.PausingMoveMsg{
		X1: rawNum(2), Y1: rawNum(5),
		X2: rawNum(4), Y2: rawNum(5),
	})
	assert.ErrorIs(t, err, ErrMoveGeometry)
}

func TestPassShortCircuits(t *testing.T) {
	// Geometry that would otherwise fail must be ignored on a pass.
	m, err := PausingMove(protocol.PausingMoveMsg{
		Pass:        true,
		X2:          rawNum(9),
		Y2:          rawNum(9),
		MsRemaining: rawNum(1234),
	})
	require.NoError(t, err)
	assert.True(t, m.Pass)
	assert.Equal(t, 1234.0, m.MsRemaining)
}

func TestRealtimeMoveTimeDefaulting(t *testing.T) {
	cases := []struct {
		name string
		time json.RawMessage
		want int
	}{
		{"absent uses server age", nil, 640},
		{"zero uses server age", rawNum(0), 640},
		{"explicit time is kept", rawNum(633), 633},
		{"numeric string is kept", json.RawMessage(`"630"`), 630},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := RealtimeMove(640, protocol.RealtimeMoveMsg{
				X1:          rawNum(1),
				Y1:          rawNum(4),
				Orientation: rawNum(2),
				Time:        tc.time,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, m.Time)
		})
	}
}

func TestClampString(t *testing.T) {
	assert.Equal(t, "abc", ClampString("abc", 10))
	assert.Equal(t, "ab", ClampString("abcdef", 2))
	// Never splits a multi-byte rune.
	assert.Equal(t, "日本", ClampString("日本語", 2))
}
