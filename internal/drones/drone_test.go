package drones

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/behaviors"
	"github.com/sphericsim/worldcore/internal/config"
	"github.com/sphericsim/worldcore/internal/entities"
	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

func newTestWorld() *behaviors.Context {
	bal := config.DefaultBalanceConfig()
	geom := geometry.NewTable(geometry.Subdivisions)
	return &behaviors.Context{
		Store:     store.New(),
		Geom:      geom,
		Recipes:   items.DefaultRecipes(),
		Balance:   &bal,
		Creatures: entities.NewCreatures(geom, 8, 0),
		Hiss:      entities.NewHissSwarm(geom),
	}
}

func placeBay(ctx *behaviors.Context, key store.Key, reserveFuel int) *store.Building {
	b := &store.Building{Kind: store.KindDroneBay}
	b.State = behaviors.InitialState(store.KindDroneBay, ctx.Balance)
	b.State.DroneBay.DeliveryDroneEnabled = true
	b.State.DroneBay.ReserveFuel = reserveFuel
	ctx.Store.PutBuilding(key, b)
	return b
}

func placeStorage(ctx *behaviors.Context, key store.Key, kind items.Kind, n int) *store.Building {
	b := &store.Building{Kind: store.KindStorageContainer}
	b.State = behaviors.InitialState(store.KindStorageContainer, ctx.Balance)
	b.State.Storage.Counts[kind] = n
	ctx.Store.PutBuilding(key, b)
	return b
}

func placeSite(ctx *behaviors.Context, key store.Key, kind items.Kind, need uint16) *store.Building {
	b := &store.Building{
		Kind: store.KindSmelter,
		Construction: &store.ConstructionState{
			Required:  map[items.Kind]uint16{kind: need},
			Delivered: make(map[items.Kind]uint16),
		},
	}
	ctx.Store.PutBuilding(key, b)
	return b
}

func fixedIDs() func() uuid.UUID {
	n := byte(0)
	return func() uuid.UUID {
		n++
		var b [16]byte
		b[0] = n
		b[6] = 0x40
		b[8] = 0x80
		return uuid.UUID(b)
	}
}

func TestDroneDeliversToSite(t *testing.T) {
	ctx := newTestWorld()
	bal := ctx.Balance.Drone
	fleet := NewFleet(&bal, 200)

	bay := store.Key{Face: 0, Row: 0, Col: 0}
	storage := store.Key{Face: 0, Row: 0, Col: 2}
	site := store.Key{Face: 0, Row: 0, Col: 8}
	placeBay(ctx, bay, 0)
	placeStorage(ctx, storage, items.ItemIronIngot, 10)
	sb := placeSite(ctx, site, items.ItemIronIngot, 2)

	ids := fixedIDs()
	for i := 0; i < 60; i++ {
		fleet.Step(ctx, ids)
	}
	if sb.Construction != nil {
		t.Fatalf("site not completed: delivered=%v", sb.Construction.Delivered)
	}
	d := fleet.Drones[bay]
	if d == nil || d.Phase != PhaseIdleAtBay {
		t.Fatalf("drone not back at bay: %+v", d)
	}
}

func TestDroneFuelExhaustionDropsCargo(t *testing.T) {
	ctx := newTestWorld()
	bal := ctx.Balance.Drone
	bal.BaseFuelSeconds = 2 // 10 ticks of flight at 200ms per tick
	fleet := NewFleet(&bal, 200)

	bay := store.Key{Face: 0, Row: 0, Col: 0}
	storage := store.Key{Face: 0, Row: 0, Col: 2}
	site := store.Key{Face: 0, Row: 0, Col: 30} // too far for ten ticks of fuel
	placeBay(ctx, bay, 0)
	placeStorage(ctx, storage, items.ItemIronIngot, 10)
	placeSite(ctx, site, items.ItemIronIngot, 4)

	ids := fixedIDs()
	var crashTile *store.Key
	for i := 0; i < 40; i++ {
		fleet.Step(ctx, ids)
		d := fleet.Drones[bay]
		if crashTile == nil && d != nil && d.Phase == PhaseIdleAtBay && i > 2 {
			// Find the dropped cargo.
			for col := 0; col <= 30; col++ {
				k := store.Key{Face: 0, Row: 0, Col: col}
				if ctx.Store.GroundGet(k)[items.ItemIronIngot] > 0 {
					crashTile = &k
					break
				}
			}
			break
		}
	}
	if crashTile == nil {
		t.Fatal("drone never exhausted fuel and dropped cargo")
	}
	d := fleet.Drones[bay]
	if d.Phase != PhaseIdleAtBay || d.Pos != bay {
		t.Fatalf("drone did not return to idle at bay: %+v", d)
	}
}

func TestDroneReloadsFromReserve(t *testing.T) {
	ctx := newTestWorld()
	bal := ctx.Balance.Drone
	bal.BaseFuelSeconds = 2
	fleet := NewFleet(&bal, 200)

	bay := store.Key{Face: 0, Row: 0, Col: 0}
	storage := store.Key{Face: 0, Row: 0, Col: 2}
	site := store.Key{Face: 0, Row: 0, Col: 12}
	bayB := placeBay(ctx, bay, 3) // three reserve tanks
	placeStorage(ctx, storage, items.ItemIronIngot, 10)
	sb := placeSite(ctx, site, items.ItemIronIngot, 2)

	ids := fixedIDs()
	for i := 0; i < 120; i++ {
		fleet.Step(ctx, ids)
	}
	if sb.Construction != nil {
		t.Fatalf("delivery failed despite reserve fuel: %+v", sb.Construction.Delivered)
	}
	if bayB.State.DroneBay.ReserveFuel >= 3 {
		t.Fatal("no reserve tank was consumed")
	}
}

func TestDroneRangeCheck(t *testing.T) {
	ctx := newTestWorld()
	bal := ctx.Balance.Drone
	fleet := NewFleet(&bal, 200)

	bay := store.Key{Face: 0, Row: 0, Col: 0} // cell (0,0); range 1 cell
	placeBay(ctx, bay, 0)
	placeStorage(ctx, store.Key{Face: 0, Row: 0, Col: 2}, items.ItemIronIngot, 10)
	placeSite(ctx, store.Key{Face: 0, Row: 48, Col: 48}, items.ItemIronIngot, 2) // cell (3,3)

	ids := fixedIDs()
	fleet.Step(ctx, ids)
	d := fleet.Drones[bay]
	if d == nil {
		t.Fatal("drone not spawned")
	}
	if d.Phase != PhaseIdleAtBay {
		t.Fatalf("drone dispatched to an out-of-range site: %+v", d)
	}
}
