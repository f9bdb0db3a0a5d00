package domain

import "time"

// XiangqiMove is one persisted ledger entry. Squares use ICCS names ("h2").
type XiangqiMove struct {
	Seq      int       `json:"seq"`
	PlayerID string    `json:"player_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Piece    int8      `json:"piece"`
	Captured int8      `json:"captured,omitempty"`
	At       time.Time `json:"at"`
}

// XiangqiGame is the result record handed to persistence when a game finishes.
type XiangqiGame struct {
	GameID    string
	RoomID    string
	RedID     string
	BlackID   string
	Winner    string // red, black or draw
	WinnerID  string
	Reason    string
	Moves     []XiangqiMove
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// XiangqiRecord is the per-player tally kept alongside results.
type XiangqiRecord struct {
	PlayerID     string
	Wins         int
	Losses       int
	Draws        int
	LastPlayedAt time.Time
}
