package intent

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestChannelSink_DeliversInOrder(t *testing.T) {
	ctx := context.Background()
	sink := NewChannelSink(4)

	emitted := []Intent{
		PresentSignIn{},
		DisplaySecret{Share: "sh-1"},
		DismissSignIn{},
		DisplayError{Err: errors.New("boom")},
	}
	for _, it := range emitted {
		if err := sink.Emit(ctx, it); err != nil {
			t.Fatalf("Emit(%v): %v", it, err)
		}
	}
	sink.Close()

	var got []Intent
	for it := range sink.Intents() {
		got = append(got, it)
	}
	if len(got) != len(emitted) {
		t.Fatalf("received %d intents, want %d", len(got), len(emitted))
	}
	for i, it := range emitted {
		if got[i].String() != it.String() {
			t.Errorf("intent %d = %v, want %v", i, got[i], it)
		}
	}
}

func TestChannelSink_EmitFailsOnCancelledContext(t *testing.T) {
	sink := NewChannelSink(1)

	// Fill the buffer so the next Emit has to block.
	if err := sink.Emit(context.Background(), PresentSignIn{}); err != nil {
		t.Fatalf("Emit into empty buffer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan error, 1)
	go func() { done <- sink.Emit(ctx, DismissSignIn{}) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Emit err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Emit did not return after context cancellation")
	}

	// The buffered intent is still deliverable.
	if it := <-sink.Intents(); it.String() != (PresentSignIn{}).String() {
		t.Errorf("buffered intent = %v, want PresentSignIn", it)
	}
}
