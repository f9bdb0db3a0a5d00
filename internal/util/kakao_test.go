package util

import (
	"strings"
	"testing"
	"time"
)

func TestSeeMore(t *testing.T) {
	out := SeeMore(" ♜ 기보 ", "본문")
	if !strings.HasPrefix(out, "♜ 기보"+KakaoZeroWidthSpace) {
		t.Fatalf("instruction should lead: %q", out[:20])
	}
	if strings.Count(out, KakaoZeroWidthSpace) != KakaoSeeMorePadding || !strings.HasSuffix(out, "\n본문") {
		t.Fatalf("padding or body wrong")
	}
	if SeeMore("x", "  ") != "  " {
		t.Fatalf("blank text must pass through")
	}
}

func TestFoldIfLong(t *testing.T) {
	if got := FoldIfLong("H", "a\nb", 3); got != "H\na\nb" {
		t.Fatalf("short: %q", got)
	}
	long := strings.Repeat("line\n", 10)
	got := FoldIfLong("H", long, 3)
	if !strings.HasPrefix(got, "H"+KakaoZeroWidthSpace) || !strings.HasSuffix(got, "line") {
		t.Fatalf("long text should be folded under the header")
	}
	dup := FoldIfLong("H", "H\n\n"+long, 3)
	if strings.Count(dup, "H") != 1 {
		t.Fatalf("a repeated header should be dropped from the body")
	}
}

func TestFormatKST(t *testing.T) {
	ts := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	if got := FormatKST(ts, "2006-01-02 15:04"); got != "2026-03-02 00:30" {
		t.Fatalf("FormatKST: %s", got)
	}
}
