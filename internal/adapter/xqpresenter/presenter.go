package xqpresenter

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/park285/Cheese-Xiangqi-bot/pkg/xqdto"
)

// Sender is the outbound half of the chat transport.
type Sender interface {
	SendText(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room, imageBase64 string) error
}

// Presenter delivers formatted messages and board images without coupling to the command layer.
type Presenter struct {
	out       Sender
	formatter *Formatter
}

func NewPresenter(out Sender, formatter *Formatter) *Presenter {
	return &Presenter{out: out, formatter: formatter}
}

// Deliver sends the reply text, then the board image, then any notice owed to a player.
func (p *Presenter) Deliver(ctx context.Context, room string, resp *xqdto.Response) error {
	if p == nil || resp == nil {
		return nil
	}
	if err := p.Board(ctx, room, p.formatter.Reply(resp), resp.State); err != nil {
		return err
	}
	if resp.Notice != nil {
		if text := p.formatter.Notice(resp.Notice); strings.TrimSpace(text) != "" {
			return p.out.SendText(ctx, room, text)
		}
	}
	return nil
}

// Board sends message, if any, followed by the state's board image, if any.
func (p *Presenter) Board(ctx context.Context, room, message string, state *xqdto.SessionState) error {
	if strings.TrimSpace(message) != "" {
		if err := p.out.SendText(ctx, room, message); err != nil {
			return err
		}
	}
	if state != nil && len(state.BoardImage) > 0 {
		encoded := base64.StdEncoding.EncodeToString(state.BoardImage)
		if err := p.out.SendImage(ctx, room, encoded); err != nil {
			return err
		}
	}
	return nil
}

// Text sends a plain message.
func (p *Presenter) Text(ctx context.Context, room, message string) error {
	if p == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.out.SendText(ctx, room, message)
}

// Formatter exposes the formatter for callers that compose their own messages.
func (p *Presenter) Formatter() *Formatter { return p.formatter }
