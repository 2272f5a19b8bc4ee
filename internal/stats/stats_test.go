package stats

import (
	"testing"
	"time"
)

func TestCountersSnapshot(t *testing.T) {
	c := &Counters{}
	c.RecordIn(100, 250*time.Millisecond)
	c.RecordOut(80)
	snap := c.Snapshot()
	if snap.FramesIn != 1 || snap.BytesIn != 100 {
		t.Fatalf("unexpected in snapshot: %+v", snap)
	}
	if snap.FramesOut != 1 || snap.BytesOut != 80 {
		t.Fatalf("unexpected out snapshot: %+v", snap)
	}
	if snap.LastPts != 250*time.Millisecond {
		t.Fatalf("unexpected last pts: %v", snap.LastPts)
	}
}

func TestRegistryRemoveRestoresState(t *testing.T) {
	r := NewRegistry()
	before := len(r.SnapshotAll())
	r.For("input-1").RecordIn(10, 0)
	r.Remove("input-1")
	after := len(r.SnapshotAll())
	if before != after {
		t.Fatalf("registry not restored: before=%d after=%d", before, after)
	}
}

func TestBusPublishSubscribeDropsOnFullChannel(t *testing.T) {
	b := NewBus(nil)
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Kind: EventQueueStall, InputId: "x"})
	b.Publish(Event{Kind: EventQueueStallResolved, InputId: "x"}) // should be dropped, channel full

	select {
	case e := <-ch:
		if e.Kind != EventQueueStall {
			t.Fatalf("unexpected event: %+v", e)
		}
	default:
		t.Fatalf("expected buffered event")
	}
}
