package behaviors

import (
	"testing"

	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

func kindPtr(k items.Kind) *items.Kind {
	v := k
	return &v
}

func storageCounts(ctx *Context, key store.Key) map[items.Kind]int {
	b, err := ctx.Store.GetBuilding(key)
	if err != nil || b.State.Storage == nil {
		return nil
	}
	total := make(map[items.Kind]int)
	for k, n := range b.State.Storage.Counts {
		total[k] += n
	}
	for k, n := range b.State.Storage.Inserted {
		total[k] += n
	}
	return total
}

func TestSplitterAlternation(t *testing.T) {
	ctx := newTestContext()
	splitter := store.Key{Face: 0, Row: 5, Col: 5}
	south := store.Key{Face: 0, Row: 6, Col: 5}
	north := store.Key{Face: 0, Row: 4, Col: 5}

	sp := place(ctx, splitter, store.KindSplitter, int(geometry.East))
	place(ctx, south, store.KindStorageContainer, 0)
	place(ctx, north, store.KindStorageContainer, 0)

	// Feed four items one per tick; expect S, N, S, N.
	wantSouth, wantNorth := 0, 0
	for i := 0; i < 4; i++ {
		sp.State.Router.Held = kindPtr(items.ItemIronOre)
		ResolvePushes(ctx)
		if sp.State.Router.Held != nil {
			t.Fatalf("push %d did not resolve", i)
		}
		if i%2 == 0 {
			wantSouth++
		} else {
			wantNorth++
		}
		if got := storageCounts(ctx, south)[items.ItemIronOre]; got != wantSouth {
			t.Fatalf("after push %d south = %d, want %d", i, got, wantSouth)
		}
		if got := storageCounts(ctx, north)[items.ItemIronOre]; got != wantNorth {
			t.Fatalf("after push %d north = %d, want %d", i, got, wantNorth)
		}
	}
}

func TestSplitterBlockedSideDoesNotAdvanceAlternation(t *testing.T) {
	ctx := newTestContext()
	splitter := store.Key{Face: 0, Row: 5, Col: 5}
	sp := place(ctx, splitter, store.KindSplitter, int(geometry.East))
	// No neighbours at all: both destinations fail.
	sp.State.Router.Held = kindPtr(items.ItemIronOre)
	ResolvePushes(ctx)
	if sp.State.Router.Held == nil {
		t.Fatal("push resolved with no destination")
	}
	if sp.State.Router.AltBit {
		t.Fatal("alternation bit advanced on a fully blocked push")
	}
}

func TestConveyorFIFO(t *testing.T) {
	ctx := newTestContext()
	conv := store.Key{Face: 0, Row: 5, Col: 5}
	sink := store.Key{Face: 0, Row: 5, Col: 6}
	cv := place(ctx, conv, store.KindConveyorT3, int(geometry.East))
	place(ctx, sink, store.KindStorageContainer, 0)

	// Load three distinct items in order via the tail slot.
	feed := []items.Kind{items.ItemIronOre, items.ItemCopperOre, items.ItemQuartzOre}
	var emerged []items.Kind
	fi := 0
	for tickN := 0; tickN < 10 && len(emerged) < 3; tickN++ {
		if fi < len(feed) && cv.State.Conveyor.Slots[2] == nil {
			cv.State.Conveyor.Slots[2] = kindPtr(feed[fi])
			fi++
		}
		before := storageCounts(ctx, sink)
		flights := ResolvePushes(ctx)
		after := storageCounts(ctx, sink)
		for kind := range after {
			if after[kind] > before[kind] {
				for n := 0; n < after[kind]-before[kind]; n++ {
					emerged = append(emerged, kind)
				}
			}
		}
		_ = flights
	}
	if len(emerged) != 3 {
		t.Fatalf("only %d items emerged", len(emerged))
	}
	for i, kind := range feed {
		if emerged[i] != kind {
			t.Fatalf("FIFO violated: emerged %v, fed %v", emerged, feed)
		}
	}
}

func TestPriorityMergerLeftWins(t *testing.T) {
	ctx := newTestContext()
	merger := store.Key{Face: 0, Row: 5, Col: 5}
	sink := store.Key{Face: 0, Row: 5, Col: 6}
	m := place(ctx, merger, store.KindPriorityMerger, int(geometry.East))
	place(ctx, sink, store.KindStorageContainer, 0)

	m.State.Router.HeldL = kindPtr(items.ItemIronOre)
	m.State.Router.HeldR = kindPtr(items.ItemCopperOre)

	Tick(ctx, merger, m) // drain phase picks a side
	ResolvePushes(ctx)
	if got := storageCounts(ctx, sink)[items.ItemIronOre]; got != 1 {
		t.Fatalf("left item not drained first: sink = %v", storageCounts(ctx, sink))
	}
	if m.State.Router.HeldR == nil {
		t.Fatal("right item should still be waiting")
	}
}

func TestOverflowGatePrefersForward(t *testing.T) {
	ctx := newTestContext()
	gate := store.Key{Face: 0, Row: 5, Col: 5}
	forward := store.Key{Face: 0, Row: 5, Col: 6}
	left := store.Key{Face: 0, Row: 6, Col: 5}
	g := place(ctx, gate, store.KindOverflowGate, int(geometry.East))
	fwd := place(ctx, forward, store.KindConveyorT1, int(geometry.East))
	place(ctx, left, store.KindStorageContainer, 0)

	g.State.Router.Held = kindPtr(items.ItemIronOre)
	ResolvePushes(ctx)
	if fwd.State.Conveyor.Slots[0] == nil {
		t.Fatal("forward path not preferred")
	}

	// Forward now full: the next item overflows left.
	g.State.Router.Held = kindPtr(items.ItemCopperOre)
	ResolvePushes(ctx)
	if got := storageCounts(ctx, left)[items.ItemCopperOre]; got != 1 {
		t.Fatalf("overflow not routed left: %v", storageCounts(ctx, left))
	}
}

func TestFilteredSplitterRouting(t *testing.T) {
	ctx := newTestContext()
	fs := store.Key{Face: 0, Row: 5, Col: 5}
	left := store.Key{Face: 0, Row: 6, Col: 5}
	right := store.Key{Face: 0, Row: 4, Col: 5}
	f := place(ctx, fs, store.KindFilteredSplitter, int(geometry.East))
	place(ctx, left, store.KindStorageContainer, 0)
	place(ctx, right, store.KindStorageContainer, 0)
	f.State.Router.FilterItem = items.ItemIronOre

	f.State.Router.Held = kindPtr(items.ItemIronOre)
	ResolvePushes(ctx)
	f.State.Router.Held = kindPtr(items.ItemCopperOre)
	ResolvePushes(ctx)

	if got := storageCounts(ctx, left)[items.ItemIronOre]; got != 1 {
		t.Fatalf("matching item not routed left: %v", storageCounts(ctx, left))
	}
	if got := storageCounts(ctx, right)[items.ItemCopperOre]; got != 1 {
		t.Fatalf("non-matching item not routed right: %v", storageCounts(ctx, right))
	}
}

func TestConduitTeleport(t *testing.T) {
	ctx := newTestContext()
	a := store.Key{Face: 0, Row: 3, Col: 3}
	b := store.Key{Face: 0, Row: 3, Col: 20}
	exit := store.Key{Face: 0, Row: 3, Col: 21}
	between := store.Key{Face: 0, Row: 3, Col: 10}

	ba := place(ctx, a, store.KindUndergroundConduit, int(geometry.East))
	bb := place(ctx, b, store.KindUndergroundConduit, int(geometry.East))
	place(ctx, exit, store.KindStorageContainer, 0)
	place(ctx, between, store.KindStorageContainer, 0)

	la, lb := b, a
	ba.State.Conduit.LinkedTo = &la
	bb.State.Conduit.LinkedTo = &lb

	ba.State.Conduit.Held = kindPtr(items.ItemIronOre)
	flights := ResolvePushes(ctx)

	if got := storageCounts(ctx, exit)[items.ItemIronOre]; got != 1 {
		t.Fatalf("item did not appear at partner's forward neighbour: %v", storageCounts(ctx, exit))
	}
	if got := storageCounts(ctx, between)[items.ItemIronOre]; got != 0 {
		t.Fatal("item appeared on a tile between the conduits")
	}
	if len(flights) != 1 || flights[0].To != exit {
		t.Fatalf("flight = %+v", flights)
	}
}

func TestUnlinkedConduitHoldsItem(t *testing.T) {
	ctx := newTestContext()
	a := store.Key{Face: 0, Row: 3, Col: 3}
	ba := place(ctx, a, store.KindUndergroundConduit, int(geometry.East))
	ba.State.Conduit.Held = kindPtr(items.ItemIronOre)
	ResolvePushes(ctx)
	if ba.State.Conduit.Held == nil {
		t.Fatal("unlinked conduit pushed its item")
	}
}

func TestCrossoverStreamsShareNoSlot(t *testing.T) {
	ctx := newTestContext()
	x := store.Key{Face: 0, Row: 5, Col: 5}
	east := store.Key{Face: 0, Row: 5, Col: 6}
	south := store.Key{Face: 0, Row: 6, Col: 5}
	xb := place(ctx, x, store.KindCrossover, int(geometry.East))
	place(ctx, east, store.KindStorageContainer, 0)
	place(ctx, south, store.KindStorageContainer, 0)

	r := xb.State.Router
	r.HeldH = kindPtr(items.ItemIronOre)
	r.HeldHDir = int(geometry.East)
	r.HeldV = kindPtr(items.ItemCopperOre)
	r.HeldVDir = int(geometry.South)

	ResolvePushes(ctx)

	if got := storageCounts(ctx, east)[items.ItemIronOre]; got != 1 {
		t.Fatalf("horizontal stream lost: %v", storageCounts(ctx, east))
	}
	if got := storageCounts(ctx, south)[items.ItemCopperOre]; got != 1 {
		t.Fatalf("vertical stream lost: %v", storageCounts(ctx, south))
	}
}

func TestPushToEmptyTileFails(t *testing.T) {
	ctx := newTestContext()
	key := store.Key{Face: 0, Row: 5, Col: 5}
	cv := place(ctx, key, store.KindConveyorT1, int(geometry.East))
	cv.State.Conveyor.Slots[0] = kindPtr(items.ItemIronOre)
	ResolvePushes(ctx)
	if cv.State.Conveyor.Slots[0] == nil {
		t.Fatal("item left the conveyor with no downstream building")
	}
}
