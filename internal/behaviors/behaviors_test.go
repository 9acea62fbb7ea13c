package behaviors

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/config"
	"github.com/sphericsim/worldcore/internal/entities"
	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

func newTestContext() *Context {
	bal := config.DefaultBalanceConfig()
	geom := geometry.NewTable(geometry.Subdivisions)
	return &Context{
		Store:     store.New(),
		Geom:      geom,
		Recipes:   items.DefaultRecipes(),
		Balance:   &bal,
		Creatures: entities.NewCreatures(geom, 8, 0),
		Hiss:      entities.NewHissSwarm(geom),
	}
}

func place(ctx *Context, key store.Key, kind store.BuildingKind, orientation int) *store.Building {
	b := &store.Building{Kind: kind, Orientation: orientation, OwnerID: uuid.Nil}
	b.State = InitialState(kind, ctx.Balance)
	ctx.Store.PutBuilding(key, b)
	return b
}

func TestProductionStateMachine(t *testing.T) {
	ctx := newTestContext()
	key := store.Key{Face: 0, Row: 5, Col: 5}
	ctx.Store.PutTile(key, store.Tile{Terrain: store.Grassland})
	b := place(ctx, key, store.KindSmelter, int(geometry.East))
	p := b.State.Production

	// Idle with no inputs: no progress.
	Tick(ctx, key, b)
	if p.Phase != store.PhaseIdle {
		t.Fatalf("phase = %s, want idle", p.Phase)
	}

	// One ore is not enough for smelt_iron (needs 2).
	if !acceptProduction(ctx, b, items.ItemIronOre) {
		t.Fatal("first ore refused")
	}
	Tick(ctx, key, b)
	if p.Phase != store.PhaseIdle {
		t.Fatalf("phase with partial inputs = %s, want idle", p.Phase)
	}

	if !acceptProduction(ctx, b, items.ItemIronOre) {
		t.Fatal("second ore refused")
	}
	Tick(ctx, key, b)
	if p.Phase != store.PhaseProcessing {
		t.Fatalf("phase = %s, want processing", p.Phase)
	}

	// Full slot refuses further ore.
	if acceptProduction(ctx, b, items.ItemIronOre) {
		t.Fatal("full slot accepted a third ore")
	}

	for i := 0; i < 10; i++ {
		Tick(ctx, key, b)
	}
	if p.Phase != store.PhaseDrain {
		t.Fatalf("phase after rate ticks = %s, want drain", p.Phase)
	}
	if p.OutputBuffer == nil || *p.OutputBuffer != items.ItemIronIngot {
		t.Fatalf("output = %v, want iron_ingot", p.OutputBuffer)
	}
	if len(p.Slots) != 0 {
		t.Fatalf("inputs not consumed: %v", p.Slots)
	}

	// Drain completes once the push phase clears the buffer.
	clearProductionOutput(p)
	Tick(ctx, key, b)
	if p.Phase != store.PhaseIdle {
		t.Fatalf("phase after drain = %s, want idle", p.Phase)
	}
}

func TestMultiSlotAcceptanceConsistency(t *testing.T) {
	ctx := newTestContext()
	key := store.Key{Face: 0, Row: 1, Col: 1}
	ctx.Store.PutTile(key, store.Tile{})
	b := place(ctx, key, store.KindAdvancedSmelter, 0)

	// Iron in slot 0 selects forge_steel; titanium is now inconsistent.
	if !acceptProduction(ctx, b, items.ItemIronOre) {
		t.Fatal("iron refused")
	}
	if acceptProduction(ctx, b, items.ItemTitaniumOre) {
		t.Fatal("titanium accepted alongside iron")
	}
	if !acceptProduction(ctx, b, items.ItemSulfurOre) {
		t.Fatal("sulfur refused for slot 1")
	}
}

func TestRequiresCreatureBlocksTick(t *testing.T) {
	ctx := newTestContext()
	key := store.Key{Face: 0, Row: 2, Col: 2}
	ctx.Store.PutTile(key, store.Tile{})
	b := place(ctx, key, store.KindReactorAssembler, 0)
	p := b.State.Production

	for i := 0; i < 3; i++ {
		acceptProduction(ctx, b, items.ItemUraniumOre)
	}
	for i := 0; i < 2; i++ {
		acceptProduction(ctx, b, items.ItemSteelIngot)
	}
	acceptProduction(ctx, b, items.ItemGlassPane)

	Tick(ctx, key, b)
	if p.Phase != store.PhaseIdle {
		t.Fatalf("assembler ticked without an assigned creature")
	}
}

func TestConstructionSiteDoesNotTick(t *testing.T) {
	ctx := newTestContext()
	key := store.Key{Face: 0, Row: 3, Col: 3}
	ctx.Store.PutTile(key, store.Tile{})
	b := &store.Building{
		Kind: store.KindSmelter,
		Construction: &store.ConstructionState{
			Required:  map[items.Kind]uint16{items.ItemIronIngot: 2},
			Delivered: map[items.Kind]uint16{},
		},
	}
	ctx.Store.PutBuilding(key, b)

	res := Tick(ctx, key, b)
	if res.Changed {
		t.Fatal("construction site ticked behaviour")
	}
	// Sites accept only required items.
	if acceptConstruction(b, items.ItemCopperOre) {
		t.Fatal("site accepted an unrequired item")
	}
	if !acceptConstruction(b, items.ItemIronIngot) {
		t.Fatal("site refused a required item")
	}
	if acceptConstruction(b, items.ItemIronIngot) && b.Construction.Delivered[items.ItemIronIngot] > 2 {
		t.Fatal("site over-accepted past requirement")
	}
}

func TestExtractorDepletesTile(t *testing.T) {
	ctx := newTestContext()
	key := store.Key{Face: 0, Row: 4, Col: 4}
	ctx.Store.PutTile(key, store.Tile{Resource: &store.ResourceStock{Kind: items.Iron, Amount: 2}})
	b := place(ctx, key, store.KindExtractor, int(geometry.East))
	e := b.State.Extractor

	rate := ctx.Balance.Extraction.DefaultRateTicks
	for i := 0; i < rate; i++ {
		Tick(ctx, key, b)
	}
	if e.Output == nil || *e.Output != items.ItemIronOre {
		t.Fatalf("output = %v, want iron_ore", e.Output)
	}
	tile, _ := ctx.Store.GetTile(key)
	if tile.Resource == nil || tile.Resource.Amount != 1 {
		t.Fatalf("tile after extract = %+v", tile.Resource)
	}

	// Second extraction empties the vein.
	e.Output = nil
	for i := 0; i < rate; i++ {
		Tick(ctx, key, b)
	}
	tile, _ = ctx.Store.GetTile(key)
	if tile.Resource != nil {
		t.Fatalf("depleted tile still holds %+v", tile.Resource)
	}
}

func TestEffectiveRateModifierStack(t *testing.T) {
	ctx := newTestContext()
	key := store.Key{Face: 0, Row: 6, Col: 6}
	b := place(ctx, key, store.KindSmelter, 0)

	// No tile, no modifiers: base rate unchanged.
	if got := EffectiveRate(ctx, key, b, 10); got != 10 {
		t.Fatalf("bare rate = %d, want 10", got)
	}

	// Accelerant altered tile speeds the building up.
	ctx.Store.PutTile(key, store.Tile{Altered: store.AlteredAccelerant})
	if got := EffectiveRate(ctx, key, b, 10); got >= 10 {
		t.Fatalf("accelerant rate = %d, want < 10", got)
	}

	// Rate never drops below one tick.
	if got := EffectiveRate(ctx, key, b, 1); got < 1 {
		t.Fatalf("rate floor violated: %d", got)
	}
}
