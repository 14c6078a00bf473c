package statesync

import (
	"context"
	"errors"
	"testing"

	"github.com/mcdev12/werewolf/go/clients"
	"github.com/mcdev12/werewolf/go/internal/models"
)

func TestBroadcasterLatestWins(t *testing.T) {
	b := NewBroadcaster()
	views, unsubscribe := b.Subscribe()
	defer unsubscribe()

	ctx := context.Background()
	for seq := uint64(1); seq <= 3; seq++ {
		if err := b.Publish(ctx, View{Seq: seq}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	if v := <-views; v.Seq != 3 {
		t.Errorf("Expected slow subscriber to see seq 3, got %d", v.Seq)
	}
	select {
	case v := <-views:
		t.Errorf("Expected no further views, got seq %d", v.Seq)
	default:
	}
}

func TestBroadcasterReplaysLatestOnSubscribe(t *testing.T) {
	b := NewBroadcaster()
	_ = b.Publish(context.Background(), View{Seq: 7})

	views, unsubscribe := b.Subscribe()
	defer unsubscribe()

	if v := <-views; v.Seq != 7 {
		t.Errorf("Expected replay of seq 7, got %d", v.Seq)
	}
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	views, unsubscribe := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", b.Subscribers())
	}

	unsubscribe()
	unsubscribe()

	if b.Subscribers() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", b.Subscribers())
	}
	if _, ok := <-views; ok {
		t.Error("Expected channel to be closed")
	}
	if err := b.Publish(context.Background(), View{Seq: 1}); err != nil {
		t.Errorf("Publish() after unsubscribe error = %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transport", &clients.TransportError{Err: context.DeadlineExceeded}, MessageNetworkError},
		{"plain", errors.New("dial tcp: refused"), MessageNetworkError},
		{"status", &clients.StatusError{StatusCode: 404}, MessageFetchFailed},
		{"malformed", models.ErrMalformedPayload, MessageFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestViewSubject(t *testing.T) {
	if got := ViewSubject("werewolf", "g-1"); got != "werewolf.games.g-1.view" {
		t.Errorf("ViewSubject() = %q", got)
	}
}
