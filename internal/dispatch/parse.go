package dispatch

import (
	"errors"
	"strings"

	"github.com/park285/Cheese-Xiangqi-bot/pkg/xqdto"
)

// Parse failures. Their kinds are reported the same way as rule rejections.
var (
	ErrUnknownCommand = errors.New("unknown_command")
	ErrBadNotation    = errors.New("bad_notation")
)

var keywords = map[string]xqdto.CommandKind{
	"시작": xqdto.CommandCreate, "start": xqdto.CommandCreate,
	"참가": xqdto.CommandJoin, "join": xqdto.CommandJoin,
	"무르기": xqdto.CommandRegret, "undo": xqdto.CommandRegret, "regret": xqdto.CommandRegret,
	"수락": xqdto.CommandRegretResponse, "accept": xqdto.CommandRegretResponse,
	"거절": xqdto.CommandRegretResponse, "deny": xqdto.CommandRegretResponse,
	"기권": xqdto.CommandSurrender, "resign": xqdto.CommandSurrender,
	"현황": xqdto.CommandState, "status": xqdto.CommandState,
	"기보": xqdto.CommandLedger, "moves": xqdto.CommandLedger,
	"전적": xqdto.CommandRecord, "record": xqdto.CommandRecord,
	"도움말": xqdto.CommandHelp, "help": xqdto.CommandHelp,
}

// Addressed reports whether text starts with prefix and returns the remainder.
func Addressed(prefix, text string) (string, bool) {
	text = strings.TrimSpace(text)
	prefix = strings.TrimSpace(prefix)
	if prefix != "" {
		if !strings.HasPrefix(text, prefix) {
			return "", false
		}
		text = text[len(prefix):]
	}
	return strings.TrimSpace(text), true
}

// Parse decodes the text after the bot prefix into a Request. An empty body is help.
// Move squares are decoded without range checks so that off-board coordinates reach
// the session and come back as invalid_coordinate.
func Parse(meta xqdto.RequestMeta, body string) (xqdto.Request, error) {
	req := xqdto.Request{Meta: meta}
	fields := strings.Fields(strings.ToLower(body))
	if len(fields) == 0 {
		req.Kind = xqdto.CommandHelp
		return req, nil
	}
	if kind, ok := keywords[fields[0]]; ok {
		req.Kind = kind
		req.Accept = fields[0] == "수락" || fields[0] == "accept"
		return req, nil
	}

	from, to, err := parseSquares(strings.Join(fields, ""))
	if err != nil {
		return req, err
	}
	req.Kind = xqdto.CommandMove
	req.From, req.To = from, to
	return req, nil
}

// parseSquares reads "h2e2" or "h2-e2". File letters past 'i' and the digit range are
// left for the engine to reject.
func parseSquares(s string) (xqdto.Square, xqdto.Square, error) {
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 4 {
		if looksLikeSquares(s) {
			return xqdto.Square{}, xqdto.Square{}, ErrBadNotation
		}
		return xqdto.Square{}, xqdto.Square{}, ErrUnknownCommand
	}
	from, ok1 := square(s[0], s[1])
	to, ok2 := square(s[2], s[3])
	if !ok1 || !ok2 {
		if looksLikeSquares(s) {
			return xqdto.Square{}, xqdto.Square{}, ErrBadNotation
		}
		return xqdto.Square{}, xqdto.Square{}, ErrUnknownCommand
	}
	return from, to, nil
}

func square(file, rank byte) (xqdto.Square, bool) {
	if file < 'a' || file > 'z' || rank < '0' || rank > '9' {
		return xqdto.Square{}, false
	}
	return xqdto.Square{X: int(file - 'a'), Y: 9 - int(rank-'0')}, true
}

// looksLikeSquares is true for short ascii tokens that mix letters and digits, the
// usual shape of a mistyped move.
func looksLikeSquares(s string) bool {
	if len(s) < 2 || len(s) > 6 {
		return false
	}
	var letters, digits int
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= 'a' && c <= 'z':
			letters++
		case c >= '0' && c <= '9':
			digits++
		default:
			return false
		}
	}
	return letters > 0 && digits > 0
}
