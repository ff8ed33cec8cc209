package stream_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/events"
	"github.com/evetabi/matchsim/internal/stream"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestEncode_KeysByMatch(t *testing.T) {
	id := uuid.New()
	msg, err := stream.Encode(events.Goal{
		Header: events.Header{MatchID: id, MatchNumber: 3, At: time.Now()},
		Goal:   domain.GoalEvent{Minute: 12, Team: domain.TeamHome, Half: 1},
		Score:  domain.Score{Home: 1},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(msg.Key) != id.String() {
		t.Errorf("key = %s, want %s", msg.Key, id)
	}

	var got struct {
		Type string `json:"type"`
		Data struct {
			MatchNumber int `json:"match_number"`
			Goal        struct {
				Minute int `json:"minute"`
			} `json:"goal"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "goal" || got.Data.MatchNumber != 3 || got.Data.Goal.Minute != 12 {
		t.Errorf("payload = %s", msg.Value)
	}
}

func TestPublisher_ForwardsAndFlushesOnShutdown(t *testing.T) {
	w := &fakeWriter{}
	pub := stream.NewPublisher(w, 16, quietLogger())
	bus := events.NewBus(quietLogger())
	pub.Attach(bus)

	h := events.Header{MatchID: uuid.New(), MatchNumber: 1, At: time.Now()}
	bus.Publish(events.MatchStart{Header: h})
	bus.Publish(events.Countdown{Header: h, Remaining: 5})
	bus.Publish(events.Kickoff{Header: h, Half: 1})

	ctx, cancel := context.WithCancel(context.Background())
	go pub.Run(ctx)
	cancel()
	<-pub.Done()

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.msgs) != 2 {
		t.Errorf("published = %d, want 2 (countdown skipped)", len(w.msgs))
	}
	if !w.closed {
		t.Error("writer not closed on shutdown")
	}
}

func TestPublisher_DropsWhenFull(t *testing.T) {
	pub := stream.NewPublisher(&fakeWriter{}, 1, quietLogger())
	h := events.Header{MatchID: uuid.New(), At: time.Now()}

	if !pub.Enqueue(events.Kickoff{Header: h}) {
		t.Fatal("first event should be queued")
	}
	if pub.Enqueue(events.Kickoff{Header: h}) {
		t.Error("second event should be dropped")
	}
	if pub.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", pub.Dropped())
	}
}
