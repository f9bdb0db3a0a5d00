package util

import "strings"

const (
	KakaoSeeMorePadding = 500
	KakaoZeroWidthSpace = "\u200b"
)

// 카카오톡은 긴 제로폭 패딩 뒤의 내용을 '전체보기'로 접는다.
// instruction은 접히기 전에 보이는 첫 줄이 된다.
func SeeMore(instruction, body string) string {
	if strings.TrimSpace(body) == "" {
		return body
	}
	instruction = strings.TrimSpace(instruction)

	var b strings.Builder
	b.Grow(len(instruction) + KakaoSeeMorePadding*len(KakaoZeroWidthSpace) + len(body) + 1)
	b.WriteString(instruction)
	b.WriteString(strings.Repeat(KakaoZeroWidthSpace, KakaoSeeMorePadding))
	if !strings.HasPrefix(body, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(body)
	return b.String()
}

// 본문 첫 줄이 헤더와 같으면 뒤따르는 빈 줄까지 떼어낸다.
func trimHeader(body, header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return body
	}
	rest, ok := strings.CutPrefix(body, header)
	if !ok {
		return body
	}
	return strings.TrimLeft(rest, "\r\n")
}

// maxLines 이하인 본문은 헤더 아래 그대로 붙이고, 넘치면 헤더를 지침으로 삼아 접는다.
func FoldIfLong(header, body string, maxLines int) string {
	body = strings.TrimRight(body, "\n")
	if strings.Count(body, "\n")+1 > maxLines {
		return SeeMore(header, trimHeader(body, header))
	}
	if strings.TrimSpace(header) == "" {
		return body
	}
	return header + "\n" + body
}
