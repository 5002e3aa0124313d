package board

import (
	"testing"

	"go.uber.org/zap"

	"github.com/chainduel/backend/internal/player"
	"github.com/chainduel/backend/pkg/protocol"
)

func testPlayer(id uint64, name string) *player.Player {
	return player.New(id, name, make(chan []byte, 16), func() {}, zap.NewNop())
}

func TestAutoMatchPairsCompatibleRequests(t *testing.T) {
	b := New()
	alice := testPlayer(1, "alice")
	bob := testPlayer(2, "bob")

	req := protocol.GameRequest{GameType: protocol.GamePausing, AutoMatch: true, Ranked: true}
	if c := b.Request(alice, req); c != nil {
		t.Fatalf("first request should register, not match; got %+v", c)
	}
	if b.Len() != 1 {
		t.Fatalf("want one open challenge, got %d", b.Len())
	}

	c := b.Request(bob, req)
	if c == nil {
		t.Fatal("second identical request should match")
	}
	if c.Player != alice {
		t.Fatalf("matched challenge should belong to alice, got %s", c.Player.Name)
	}
	if b.Len() != 0 {
		t.Fatalf("matched challenge must leave the board, %d remain", b.Len())
	}
}

func TestAutoMatchRespectsCompatibility(t *testing.T) {
	cases := []struct {
		name      string
		open      protocol.GameRequest
		incoming  protocol.GameRequest
		wantMatch bool
	}{
		{
			"different game type",
			protocol.GameRequest{GameType: protocol.GamePausing, AutoMatch: true},
			protocol.GameRequest{GameType: protocol.GameRealtime, AutoMatch: true},
			false,
		},
		{
			"ranked mismatch",
			protocol.GameRequest{GameType: protocol.GameRealtime, AutoMatch: true, Ranked: true},
			protocol.GameRequest{GameType: protocol.GameRealtime, AutoMatch: true},
			false,
		},
		{
			"non-automatch challenge is never scanned",
			protocol.GameRequest{GameType: protocol.GameRealtime},
			protocol.GameRequest{GameType: protocol.GameRealtime, AutoMatch: true},
			false,
		},
		{
			"password-protected challenge is never scanned",
			protocol.GameRequest{GameType: protocol.GameRealtime, AutoMatch: true, Password: "hunter2"},
			protocol.GameRequest{GameType: protocol.GameRealtime, AutoMatch: true},
			false,
		},
		{
			"compatible",
			protocol.GameRequest{GameType: protocol.GameRealtime, AutoMatch: true},
			protocol.GameRequest{GameType: protocol.GameRealtime, AutoMatch: true},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := New()
			b.Request(testPlayer(1, "opener"), tc.open)
			got := b.Request(testPlayer(2, "incoming"), tc.incoming)
			if (got != nil) != tc.wantMatch {
				t.Fatalf("match=%v, want %v", got != nil, tc.wantMatch)
			}
		})
	}
}

func TestAutoMatchBotCompatibilityIsMutual(t *testing.T) {
	b := New()
	bot := testPlayer(1, "bot")
	bot.IsBot = true
	human := testPlayer(2, "human")

	b.Request(bot, protocol.GameRequest{GameType: protocol.GameRealtime, AutoMatch: true, BotsAllowed: true})

	// Human not accepting bots must skip the bot's challenge.
	if c := b.Request(human, protocol.GameRequest{GameType: protocol.GameRealtime, AutoMatch: true}); c != nil {
		t.Fatal("bot-averse player matched a bot challenge")
	}
	// Accepting bots matches it.
	if c := b.Request(human, protocol.GameRequest{GameType: protocol.GameRealtime, AutoMatch: true, BotsAllowed: true}); c == nil {
		t.Fatal("bot-accepting player should have matched")
	}
}

func TestAcceptPrefersPasswordOverID(t *testing.T) {
	b := New()
	owner := testPlayer(1, "owner")
	other := testPlayer(2, "other")
	guest := testPlayer(3, "guest")

	b.Request(owner, protocol.GameRequest{GameType: protocol.GamePausing, Password: "sesame"})
	b.Request(other, protocol.GameRequest{GameType: protocol.GamePausing})
	listed := b.Listing()
	if len(listed) != 1 {
		t.Fatalf("only the open challenge should list, got %d", len(listed))
	}

	// Password hit wins even when the id matches the other challenge.
	c := b.Accept(guest, listed[0].UUID, "sesame")
	if c == nil || c.Player != owner {
		t.Fatalf("password should take precedence, got %+v", c)
	}

	c = b.Accept(guest, listed[0].UUID, "")
	if c == nil || c.Player != other {
		t.Fatalf("id lookup should find the remaining challenge, got %+v", c)
	}

	if c := b.Accept(guest, "nope", "nope"); c != nil {
		t.Fatalf("miss should return nil, got %+v", c)
	}
}

func TestAcceptSkipsOwnChallenge(t *testing.T) {
	b := New()
	owner := testPlayer(1, "owner")
	b.Request(owner, protocol.GameRequest{GameType: protocol.GamePausing, Password: "sesame"})
	if c := b.Accept(owner, "", "sesame"); c != nil {
		t.Fatal("players must not accept their own challenges")
	}
}

func TestRemoveByIsIdempotent(t *testing.T) {
	b := New()
	p := testPlayer(1, "p")
	b.Request(p, protocol.GameRequest{GameType: protocol.GamePausing})
	b.RemoveBy(p)
	if b.Len() != 0 {
		t.Fatalf("challenge should be gone, %d remain", b.Len())
	}
	b.RemoveBy(p) // no-op
	b.RemoveBy(testPlayer(2, "never registered"))
}

func TestListingHidesIdentity(t *testing.T) {
	b := New()
	p := testPlayer(7, "secretive")
	b.Request(p, protocol.GameRequest{GameType: protocol.GameRealtime, Name: "come fight"})

	listed := b.Listing()
	if len(listed) != 1 {
		t.Fatalf("want 1 listing, got %d", len(listed))
	}
	if listed[0].Name != "come fight" {
		t.Fatalf("listing should carry the display name, got %q", listed[0].Name)
	}
	if listed[0].UUID == "" {
		t.Fatal("listing needs the challenge id for accepts")
	}
}
