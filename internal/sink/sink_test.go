package sink

import (
	"context"
	"testing"

	"solana-asset-radar/internal/domain"
)

func TestChannelSink_DeliversInOrder(t *testing.T) {
	s := NewChannelSink(4)
	s.Deliver(context.Background(), &domain.EnrichedRecord{AssetID: "a"})
	s.Deliver(context.Background(), &domain.EnrichedRecord{AssetID: "b"})

	if got := (<-s.Records()).AssetID; got != "a" {
		t.Errorf("first record = %q, want a", got)
	}
	if got := (<-s.Records()).AssetID; got != "b" {
		t.Errorf("second record = %q, want b", got)
	}
}

func TestChannelSink_DropsWhenFullWithoutBlocking(t *testing.T) {
	s := NewChannelSink(1)
	s.Deliver(context.Background(), &domain.EnrichedRecord{AssetID: "a"})

	done := make(chan struct{})
	go func() {
		s.Deliver(context.Background(), &domain.EnrichedRecord{AssetID: "b"})
		close(done)
	}()
	<-done

	if got := (<-s.Records()).AssetID; got != "a" {
		t.Errorf("surviving record = %q, want the first delivered", got)
	}
	select {
	case rec := <-s.Records():
		t.Errorf("unexpected extra record %q", rec.AssetID)
	default:
	}
}

func TestMultiSink_FansOut(t *testing.T) {
	a := NewChannelSink(1)
	b := NewChannelSink(1)
	m := MultiSink{a, b}

	m.Deliver(context.Background(), &domain.EnrichedRecord{AssetID: "x"})

	if (<-a.Records()).AssetID != "x" || (<-b.Records()).AssetID != "x" {
		t.Error("record should reach every member sink")
	}
}
