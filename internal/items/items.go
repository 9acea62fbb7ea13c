// Package items defines the closed set of item and resource kinds that
// flow through tiles, buildings, and ground stacks, plus the registries
// that describe them. Kinds are tagged enumerations (not free strings) so
// every value is round-trippable through persistence, per the source
// re-architecture notes.
package items

// ResourceKind is a raw material embedded in a tile.
type ResourceKind string

const (
	Iron     ResourceKind = "iron"
	Copper   ResourceKind = "copper"
	Quartz   ResourceKind = "quartz"
	Titanium ResourceKind = "titanium"
	Oil      ResourceKind = "oil"
	Sulfur   ResourceKind = "sulfur"
	Uranium  ResourceKind = "uranium"
	Ice      ResourceKind = "ice"
)

// AllResourceKinds lists every resource kind the world generator may seed
// a tile with.
var AllResourceKinds = []ResourceKind{Iron, Copper, Quartz, Titanium, Oil, Sulfur, Uranium, Ice}

// Kind is an item identity: raw ores once extracted, crafted
// intermediates/outputs, and reserved opaque values for forward
// compatibility with persisted state this build doesn't recognise.
type Kind string

const (
	// Raw, freshly extracted from a ResourceKind 1:1.
	ItemIronOre     Kind = "iron_ore"
	ItemCopperOre   Kind = "copper_ore"
	ItemQuartzOre   Kind = "quartz_ore"
	ItemTitaniumOre Kind = "titanium_ore"
	ItemCrudeOil    Kind = "crude_oil"
	ItemSulfurOre   Kind = "sulfur_ore"
	ItemUraniumOre  Kind = "uranium_ore"
	ItemIceChunk    Kind = "ice_chunk"

	// Smelted/refined intermediates.
	ItemIronIngot     Kind = "iron_ingot"
	ItemCopperIngot   Kind = "copper_ingot"
	ItemSteelIngot    Kind = "steel_ingot"
	ItemTitaniumPlate Kind = "titanium_plate"
	ItemRefinedFuel   Kind = "refined_fuel"
	ItemEnrichedCore  Kind = "enriched_core"
	ItemGlassPane     Kind = "glass_pane"

	// Components built from intermediates.
	ItemCircuitBoard  Kind = "circuit_board"
	ItemPowerCell     Kind = "power_cell"
	ItemStructuralBeam Kind = "structural_beam"

	// Byproducts / ambient drops, not produced by a recipe.
	ItemHissResidue Kind = "hiss_residue"

	// Reserved for persisted values this build does not recognise
	// (§9 "opaque variant"); never produced, only round-tripped.
	ItemOpaque Kind = "__opaque__"
)

// ResourceToItem maps an extracted resource to the raw item a miner
// produces from it (§4.D.5: "Resource-kind → item-kind mapping is
// fixed").
var ResourceToItem = map[ResourceKind]Kind{
	Iron:     ItemIronOre,
	Copper:   ItemCopperOre,
	Quartz:   ItemQuartzOre,
	Titanium: ItemTitaniumOre,
	Oil:      ItemCrudeOil,
	Sulfur:   ItemSulfurOre,
	Uranium:  ItemUraniumOre,
	Ice:      ItemIceChunk,
}

// Definition describes a kind's static properties.
type Definition struct {
	Kind      Kind
	Name      string
	MaxStack  int
	Placeable bool
}

// Registry is a thread-naive, load-once-at-startup catalogue: the world
// store's single-writer contract means nothing mutates it concurrently
// with reads after boot.
type Registry struct {
	defs map[Kind]Definition
}

// NewRegistry returns an empty registry; use Register or
// DefaultRegistry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[Kind]Definition)}
}

func (r *Registry) Register(d Definition) {
	r.defs[d.Kind] = d
}

func (r *Registry) Get(k Kind) (Definition, bool) {
	d, ok := r.defs[k]
	return d, ok
}

func (r *Registry) GetAll() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	return out
}

// DefaultRegistry registers every item kind named above except
// ItemOpaque, each with the standard stack size of 50.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, k := range []Kind{
		ItemIronOre, ItemCopperOre, ItemQuartzOre, ItemTitaniumOre,
		ItemCrudeOil, ItemSulfurOre, ItemUraniumOre, ItemIceChunk,
		ItemIronIngot, ItemCopperIngot, ItemSteelIngot, ItemTitaniumPlate,
		ItemRefinedFuel, ItemEnrichedCore, ItemGlassPane,
		ItemCircuitBoard, ItemPowerCell, ItemStructuralBeam,
		ItemHissResidue,
	} {
		r.Register(Definition{Kind: k, Name: string(k), MaxStack: 50})
	}
	return r
}
