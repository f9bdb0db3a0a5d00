package irisfast

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_SendMessage(t *testing.T) {
	var got ReplyRequest
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reply" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		header = r.Header.Get("X-User-Id")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-User-Id": "bot", "X-Empty": " "}
	}))
	if err := c.SendMessage(context.Background(), "room-1", "안녕"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got.Type != "text" || got.Room != "room-1" || got.Data != "안녕" {
		t.Fatalf("body: %+v", got)
	}
	if header != "bot" {
		t.Fatalf("header provider not applied: %q", header)
	}
	if err := c.SendImage(context.Background(), " ", "abc"); err == nil {
		t.Fatalf("empty room should be rejected")
	}
}

func TestClient_RetriesOnlyIdempotentCalls(t *testing.T) {
	var decryptCalls, replyCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/decrypt":
			if decryptCalls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(DecryptResponse{Decrypted: "plain"})
		case "/reply":
			replyCalls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(3), WithTimeout(2*time.Second))
	out, err := c.Decrypt(context.Background(), "cipher")
	if err != nil || out != "plain" {
		t.Fatalf("Decrypt: %q %v", out, err)
	}
	if decryptCalls.Load() != 3 {
		t.Fatalf("decrypt attempts: %d", decryptCalls.Load())
	}

	err = c.SendMessage(context.Background(), "room-1", "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway || !apiErr.Temporary() {
		t.Fatalf("expected a 502 APIError, got %v", err)
	}
	if replyCalls.Load() != 1 {
		t.Fatalf("reply must not be retried, got %d calls", replyCalls.Load())
	}
}

func TestMessage_Identity(t *testing.T) {
	name := "  철수 "
	m := &Message{Msg: "!h2e2", Room: "r", Sender: &name}
	if m.UserID() != "철수" || m.SenderName() != "철수" {
		t.Fatalf("sender fallback: %q %q", m.UserID(), m.SenderName())
	}
	m.JSON = &MessageJSON{UserID: "12345"}
	if m.UserID() != "12345" || m.SenderName() != "철수" {
		t.Fatalf("json user id: %q %q", m.UserID(), m.SenderName())
	}
	if WSStateReconnecting.String() != "reconnecting" {
		t.Fatalf("state string")
	}
}
