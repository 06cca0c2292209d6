package event

import (
	"context"
	"testing"
	"time"

	"github.com/hszk-dev/clipforge/internal/domain/model"
)

func TestBus_PublishDispatchesToAllHandlers(t *testing.T) {
	bus := NewBus()

	got := make(chan VideoStatusChanged, 2)
	bus.Subscribe(func(_ context.Context, ev VideoStatusChanged) { got <- ev })
	bus.Subscribe(func(_ context.Context, ev VideoStatusChanged) { got <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	want := VideoStatusChanged{
		VideoID:  7,
		PublicID: "pub-7",
		Owner:    "alice",
		Status:   model.StatusReady,
	}
	bus.Publish(want)

	for i := 0; i < 2; i++ {
		select {
		case ev := <-got:
			if ev != want {
				t.Errorf("handler got %+v, want %+v", ev, want)
			}
		case <-time.After(time.Second):
			t.Fatal("handler was not invoked")
		}
	}
}

func TestBus_PublishWithFullBufferDoesNotBlock(t *testing.T) {
	bus := NewBus()
	// No Run loop: the buffer fills and further publishes must drop, not hang.
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBufferSize+10; i++ {
			bus.Publish(VideoStatusChanged{VideoID: int64(i), Status: model.StatusFailed})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on full buffer")
	}
}

func TestBus_RunStopsOnContextCancel(t *testing.T) {
	bus := NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		bus.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
