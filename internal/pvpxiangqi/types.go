package pvpxiangqi

import (
	"time"

	"github.com/park285/Cheese-Xiangqi-bot/internal/xiangqi"
)

// Status represents a session lifecycle state.
type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusPlaying  Status = "PLAYING"
	StatusFinished Status = "FINISHED"
)

// Reason records why a game finished.
type Reason string

const (
	ReasonCheckmate Reason = "checkmate"
	ReasonStalemate Reason = "stalemate"
	ReasonSurrender Reason = "surrender"
	ReasonAbandoned Reason = "abandoned"
)

// Move is one ledger entry. Entries are never edited; a takeback pops the last one.
type Move struct {
	Seq      int              `json:"seq"`
	PlayerID string           `json:"player_id"`
	From     xiangqi.Position `json:"from"`
	To       xiangqi.Position `json:"to"`
	Piece    xiangqi.Piece    `json:"piece"`
	Captured xiangqi.Piece    `json:"captured,omitempty"`
	At       time.Time        `json:"at"`
}

// Notation returns the ICCS form, e.g. "h2e2".
func (m Move) Notation() string { return xiangqi.FormatMove(m.From, m.To) }

// RegretNegotiation is a pending takeback request. A game holds at most one.
type RegretNegotiation struct {
	RequesterID string    `json:"requester_id"`
	At          time.Time `json:"at"`
}

// Result is set once the game is Finished. Winner is NoSide for a draw or an abandoned game.
type Result struct {
	Winner   xiangqi.Side `json:"winner"`
	WinnerID string       `json:"winner_id,omitempty"`
	Reason   Reason       `json:"reason"`
}

// Game is the authoritative state of one room. It is owned by the room's Session worker;
// everything handed out is a copy.
type Game struct {
	ID        string             `json:"id"`
	RoomID    string             `json:"room_id"`
	RedID     string             `json:"red_id"`
	BlackID   string             `json:"black_id,omitempty"`
	Board     xiangqi.Board      `json:"board"`
	Turn      xiangqi.Side       `json:"turn"`
	Status    Status             `json:"status"`
	Moves     []Move             `json:"moves"`
	Regret    *RegretNegotiation `json:"regret,omitempty"`
	Result    *Result            `json:"result,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	StartedAt time.Time          `json:"started_at,omitempty"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// SideOf returns the side playerID plays, or NoSide for an outsider.
func (g *Game) SideOf(playerID string) xiangqi.Side {
	switch {
	case playerID == "":
		return xiangqi.NoSide
	case playerID == g.RedID:
		return xiangqi.Red
	case playerID == g.BlackID:
		return xiangqi.Black
	}
	return xiangqi.NoSide
}

// PlayerOf returns the id seated on side s.
func (g *Game) PlayerOf(s xiangqi.Side) string {
	switch s {
	case xiangqi.Red:
		return g.RedID
	case xiangqi.Black:
		return g.BlackID
	}
	return ""
}

// Opponent returns the other seated player's id.
func (g *Game) Opponent(playerID string) string {
	return g.PlayerOf(g.SideOf(playerID).Opponent())
}

// LastMove returns the newest ledger entry, or nil.
func (g *Game) LastMove() *Move {
	if len(g.Moves) == 0 {
		return nil
	}
	m := g.Moves[len(g.Moves)-1]
	return &m
}

// Clone returns a deep copy safe to hand to other goroutines.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.Moves = make([]Move, len(g.Moves))
	copy(c.Moves, g.Moves)
	if g.Regret != nil {
		r := *g.Regret
		c.Regret = &r
	}
	if g.Result != nil {
		r := *g.Result
		c.Result = &r
	}
	return &c
}

// Outcome is what a successful command returns.
type Outcome struct {
	// Game is a snapshot taken after the command.
	Game *Game
	// Move is the applied move (Move) or the move taken back (accepted RegretResponse).
	Move *Move
	// Notify is the player owed a side-channel notice, e.g. the opponent of a regret requester.
	Notify string
	// Finished is set when this command ended the game.
	Finished bool
	// Evicted is set when an idle sweep closed the session.
	Evicted bool
}
