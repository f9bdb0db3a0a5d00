package dispatch

import (
	"errors"
	"testing"

	"github.com/park285/Cheese-Xiangqi-bot/pkg/xqdto"
)

func TestAddressed(t *testing.T) {
	cases := []struct {
		prefix, text, body string
		ok                 bool
	}{
		{"!", " !h2e2 ", "h2e2", true},
		{"!장기", "!장기 시작", "시작", true},
		{"!장기", "장기 시작", "", false},
		{"", "현황", "현황", true},
	}
	for _, tc := range cases {
		body, ok := Addressed(tc.prefix, tc.text)
		if body != tc.body || ok != tc.ok {
			t.Errorf("Addressed(%q, %q) = %q, %v; want %q, %v", tc.prefix, tc.text, body, ok, tc.body, tc.ok)
		}
	}
}

func TestParse(t *testing.T) {
	meta := xqdto.RequestMeta{Room: "r", PlayerID: "p"}
	cases := []struct {
		body   string
		kind   xqdto.CommandKind
		accept bool
		from   xqdto.Square
		to     xqdto.Square
	}{
		{"", xqdto.CommandHelp, false, xqdto.Square{}, xqdto.Square{}},
		{"시작", xqdto.CommandCreate, false, xqdto.Square{}, xqdto.Square{}},
		{"참가", xqdto.CommandJoin, false, xqdto.Square{}, xqdto.Square{}},
		{"무르기", xqdto.CommandRegret, false, xqdto.Square{}, xqdto.Square{}},
		{"수락", xqdto.CommandRegretResponse, true, xqdto.Square{}, xqdto.Square{}},
		{"거절", xqdto.CommandRegretResponse, false, xqdto.Square{}, xqdto.Square{}},
		{"기권", xqdto.CommandSurrender, false, xqdto.Square{}, xqdto.Square{}},
		{"현황", xqdto.CommandState, false, xqdto.Square{}, xqdto.Square{}},
		{"기보", xqdto.CommandLedger, false, xqdto.Square{}, xqdto.Square{}},
		{"전적", xqdto.CommandRecord, false, xqdto.Square{}, xqdto.Square{}},
		{"HELP", xqdto.CommandHelp, false, xqdto.Square{}, xqdto.Square{}},
		{"h2e2", xqdto.CommandMove, false, xqdto.Square{X: 7, Y: 7}, xqdto.Square{X: 4, Y: 7}},
		{"H2-E2", xqdto.CommandMove, false, xqdto.Square{X: 7, Y: 7}, xqdto.Square{X: 4, Y: 7}},
		{"b0 c2", xqdto.CommandMove, false, xqdto.Square{X: 1, Y: 9}, xqdto.Square{X: 2, Y: 7}},
		// off-board file letters are left for the engine
		{"z9a0", xqdto.CommandMove, false, xqdto.Square{X: 25, Y: 0}, xqdto.Square{X: 0, Y: 9}},
	}
	for _, tc := range cases {
		req, err := Parse(meta, tc.body)
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.body, err)
			continue
		}
		if req.Kind != tc.kind || req.Accept != tc.accept || req.From != tc.from || req.To != tc.to {
			t.Errorf("Parse(%q) = %+v", tc.body, req)
		}
		if req.Meta != meta {
			t.Errorf("Parse(%q) dropped meta", tc.body)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]error{
		"h2e":      ErrBadNotation,
		"h2e22":    ErrBadNotation,
		"e2e4e5x9": ErrUnknownCommand,
		"안녕":       ErrUnknownCommand,
		"abcd":     ErrUnknownCommand,
	}
	for body, want := range cases {
		if _, err := Parse(xqdto.RequestMeta{}, body); !errors.Is(err, want) {
			t.Errorf("Parse(%q): want %v, got %v", body, want, err)
		}
	}
}
