package xqdto

import "time"

type Square struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type MoveView struct {
	Seq      int       `json:"seq"`
	PlayerID string    `json:"player_id"`
	Notation string    `json:"notation"`
	From     Square    `json:"from"`
	To       Square    `json:"to"`
	Piece    int8      `json:"piece"`
	Captured int8      `json:"captured,omitempty"`
	At       time.Time `json:"at"`
}

type RegretView struct {
	RequesterID string    `json:"requester_id"`
	Status      string    `json:"status"`
	At          time.Time `json:"at"`
}

type ResultView struct {
	Winner   string `json:"winner"`
	WinnerID string `json:"winner_id,omitempty"`
	Reason   string `json:"reason"`
}

// SessionState is the public snapshot broadcast to room members and spectators.
type SessionState struct {
	Room          string      `json:"room"`
	GameID        string      `json:"game_id"`
	Status        string      `json:"status"`
	Turn          string      `json:"turn"`
	Board         [][]int8    `json:"board"`
	Moves         []MoveView  `json:"moves"`
	MoveCount     int         `json:"move_count"`
	PendingRegret *RegretView `json:"pending_regret,omitempty"`
	RedID         string      `json:"red_id"`
	BlackID       string      `json:"black_id,omitempty"`
	Check         bool        `json:"check"`
	Result        *ResultView `json:"result,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
	BoardImage    []byte      `json:"-"`
}

// LastMove returns the newest move, or nil.
func (s *SessionState) LastMove() *MoveView {
	if s == nil || len(s.Moves) == 0 {
		return nil
	}
	return &s.Moves[len(s.Moves)-1]
}

// PlayerRecord is a player's win/loss tally.
type PlayerRecord struct {
	PlayerID string
	Wins     int
	Losses   int
	Draws    int
	Recent   []GameSummary
}

// GameSummary is one finished game seen from a single player's side.
type GameSummary struct {
	OpponentID string
	Outcome    string // win, loss or draw
	Reason     string
	MoveCount  int
	EndedAt    time.Time
}
