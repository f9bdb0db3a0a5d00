package xqpresenter

import (
	"fmt"
	"strings"
	"sync"

	"github.com/park285/Cheese-Xiangqi-bot/internal/msgcat"
	"github.com/park285/Cheese-Xiangqi-bot/internal/util"
	"github.com/park285/Cheese-Xiangqi-bot/internal/xiangqi"
	"github.com/park285/Cheese-Xiangqi-bot/pkg/xqdto"
)

const ledgerFoldLines = 12

// PrefixProvider exposes the Prefix that Kakao messages should use.
type PrefixProvider interface {
	Prefix() string
}

// Names remembers the latest display name seen for each user id.
type Names struct {
	m sync.Map
}

func (n *Names) Remember(userID, name string) {
	if n == nil || strings.TrimSpace(userID) == "" || strings.TrimSpace(name) == "" {
		return
	}
	n.m.Store(userID, strings.TrimSpace(name))
}

func (n *Names) Lookup(userID string) string {
	if n != nil {
		if v, ok := n.m.Load(userID); ok {
			return v.(string)
		}
	}
	if userID == "" {
		return "-"
	}
	return userID
}

// Formatter renders dispatcher responses into Kakao text through the message catalog.
type Formatter struct {
	cat            *msgcat.Catalog
	prefixProvider PrefixProvider
	names          *Names
}

func NewFormatter(cat *msgcat.Catalog, provider PrefixProvider, names *Names) *Formatter {
	if cat == nil {
		cat = msgcat.MustDefault()
	}
	return &Formatter{cat: cat, prefixProvider: provider, names: names}
}

func (f *Formatter) Prefix() string {
	if f == nil || f.prefixProvider == nil {
		return ""
	}
	return strings.TrimSpace(f.prefixProvider.Prefix())
}

func (f *Formatter) text(key string, data map[string]any) string {
	if data == nil {
		data = map[string]any{}
	}
	data["Prefix"] = f.Prefix()
	return f.cat.Text(key, data, key)
}

// Reply is the room message for resp. It is empty when the board image says it all.
func (f *Formatter) Reply(resp *xqdto.Response) string {
	if resp == nil {
		return ""
	}
	if !resp.Success {
		return f.Error(resp.ErrorKind)
	}
	st := resp.State
	var body string
	switch resp.Kind {
	case xqdto.CommandHelp:
		return f.Help()
	case xqdto.CommandRecord:
		return f.Record(resp.Record)
	case xqdto.CommandCreate:
		body = f.text("xq.reply.create", map[string]any{"Red": f.names.Lookup(st.RedID)})
	case xqdto.CommandJoin:
		body = f.text("xq.reply.join", map[string]any{"Red": f.names.Lookup(st.RedID), "Black": f.names.Lookup(st.BlackID)})
	case xqdto.CommandMove:
		if !resp.Finished {
			body = f.Move(resp.Move, st)
		}
	case xqdto.CommandRegret:
		requester, opponent := "", ""
		if st.PendingRegret != nil {
			requester = st.PendingRegret.RequesterID
		}
		if resp.Notice != nil {
			opponent = resp.Notice.PlayerID
		}
		body = f.text("xq.reply.regret_request", map[string]any{"Requester": f.names.Lookup(requester), "Opponent": f.names.Lookup(opponent)})
	case xqdto.CommandRegretResponse:
		if resp.Undone == nil {
			body = f.text("xq.reply.regret_deny", nil)
		} else {
			body = f.text("xq.reply.regret_accept", map[string]any{"Notation": resp.Undone.Notation, "Turn": f.side(st.Turn)})
		}
	case xqdto.CommandSurrender:
		body = f.text("xq.reply.surrender", nil)
	case xqdto.CommandState:
		body = f.State(st)
	case xqdto.CommandLedger:
		return f.Ledger(st)
	}
	if resp.Finished && st != nil {
		end := f.GameEnd(st)
		if body == "" {
			return end
		}
		return body + "\n" + end
	}
	return body
}

func (f *Formatter) Error(kind string) string {
	if kind == "" {
		kind = "internal"
	}
	return f.text("xq.error."+kind, nil)
}

func (f *Formatter) Move(mv *xqdto.MoveView, st *xqdto.SessionState) string {
	if mv == nil || st == nil {
		return ""
	}
	return f.text("xq.reply.move", map[string]any{
		"Seq":      mv.Seq,
		"Notation": mv.Notation,
		"Captured": mv.Captured != 0,
		"Turn":     f.side(st.Turn),
		"Check":    st.Check,
	})
}

func (f *Formatter) State(st *xqdto.SessionState) string {
	if st == nil {
		return f.Error("no_session")
	}
	last, regret := "", ""
	if mv := st.LastMove(); mv != nil {
		last = mv.Notation
	}
	if st.PendingRegret != nil {
		regret = f.names.Lookup(st.PendingRegret.RequesterID)
	}
	return f.text("xq.reply.state", map[string]any{
		"Status":    f.text("xq.status."+st.Status, nil),
		"Red":       f.names.Lookup(st.RedID),
		"Black":     f.names.Lookup(st.BlackID),
		"MoveCount": st.MoveCount,
		"Last":      last,
		"Turn":      f.side(st.Turn),
		"Check":     st.Check,
		"Regret":    regret,
	})
}

// Ledger lists every move, folded behind Kakao's see-more when long.
func (f *Formatter) Ledger(st *xqdto.SessionState) string {
	header := f.text("xq.reply.ledger_header", nil)
	if st == nil || len(st.Moves) == 0 {
		return header + "\n" + f.text("xq.reply.ledger_empty", nil)
	}
	var sb strings.Builder
	for _, mv := range st.Moves {
		piece := xiangqi.Piece(mv.Piece)
		sb.WriteString(fmt.Sprintf("%d. %s %s", mv.Seq, f.side(piece.Side().String()), mv.Notation))
		if mv.Captured != 0 {
			sb.WriteString(" x")
			sb.WriteByte(xiangqi.Piece(mv.Captured).Letter())
		}
		sb.WriteString(fmt.Sprintf(" (%s)\n", util.FormatKST(mv.At, "15:04")))
	}
	return util.FoldIfLong(header, sb.String(), ledgerFoldLines)
}

func (f *Formatter) Record(rec *xqdto.PlayerRecord) string {
	if rec == nil {
		return f.Error("unavailable")
	}
	total := rec.Wins + rec.Losses + rec.Draws
	rate := 0
	if total > 0 {
		rate = rec.Wins * 100 / total
	}
	out := f.text("xq.reply.record", map[string]any{
		"Player": f.names.Lookup(rec.PlayerID),
		"Wins":   rec.Wins,
		"Losses": rec.Losses,
		"Draws":  rec.Draws,
		"Total":  total,
		"Rate":   rate,
	})
	if len(rec.Recent) == 0 {
		return out
	}
	lines := []string{out, "", f.text("xq.reply.record_recent_header", nil)}
	for _, g := range rec.Recent {
		lines = append(lines, f.text("xq.reply.record_recent", map[string]any{
			"Date":      util.FormatKST(g.EndedAt, "01/02 15:04"),
			"Opponent":  f.names.Lookup(g.OpponentID),
			"Outcome":   f.text("xq.outcome."+g.Outcome, nil),
			"Reason":    f.text("xq.reason."+g.Reason, nil),
			"MoveCount": g.MoveCount,
		}))
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) GameEnd(st *xqdto.SessionState) string {
	if st == nil || st.Result == nil {
		return ""
	}
	r := st.Result
	return f.text("xq.reply.game_end", map[string]any{
		"Reason":     f.text("xq.reason."+r.Reason, nil),
		"Draw":       r.Winner == "draw" || r.WinnerID == "",
		"Winner":     f.names.Lookup(r.WinnerID),
		"WinnerSide": "(" + f.side(r.Winner) + ")",
		"MoveCount":  st.MoveCount,
	})
}

// Notice is the side-channel message for n, addressed by name in the room.
func (f *Formatter) Notice(n *xqdto.Notice) string {
	if n == nil {
		return ""
	}
	return f.text(n.Key, map[string]any{"Player": f.names.Lookup(n.PlayerID)})
}

func (f *Formatter) Evicted() string {
	return f.text("xq.reply.evicted", nil)
}

func (f *Formatter) Help() string {
	header := f.text("xq.help.header", nil)
	return util.SeeMore(header, f.text("xq.help.body", nil))
}

func (f *Formatter) side(s string) string {
	switch s {
	case "red", "black", "draw":
		return f.text("xq.side."+s, nil)
	default:
		return s
	}
}
