package items

// IngredientSet is the required count of each item in a recipe's input
// slots, keyed by slot index (0, 1, or 2 per §4.D.1's 1..3 input slots).
type IngredientSet map[int]Ingredient

type Ingredient struct {
	Item Kind
	Qty  int
}

// Output is the yield of a recipe: item kind and quantity per craft.
type Output struct {
	Item Kind
	Qty  int
}

// Recipe is one production-template recipe: a fixed slot -> ingredient
// mapping and a single output. §4.D.7: when multiple recipes match a
// slot configuration, the one declared first in the table wins, so
// Recipe carries its declaration index.
type Recipe struct {
	ID      string
	Inputs  IngredientSet
	Output  Output
	Declared int
}

// Table is the recipe catalogue for one production-template building
// kind (e.g. "smelter"), ordered by declaration.
type Table struct {
	BuildingKind string
	Recipes      []Recipe
}

// MatchSlots returns the first declared recipe whose every ingredient is
// satisfied by the given slot contents (slot index -> (item, count)),
// or false if none match yet.
func (t *Table) MatchSlots(slots map[int]Ingredient) (Recipe, bool) {
	for _, r := range t.Recipes {
		if recipeSatisfied(r, slots) {
			return r, true
		}
	}
	return Recipe{}, false
}

func recipeSatisfied(r Recipe, slots map[int]Ingredient) bool {
	for slot, need := range r.Inputs {
		got, ok := slots[slot]
		if !ok || got.Item != need.Item || got.Qty < need.Qty {
			return false
		}
	}
	return true
}

// AcceptsAtSlot reports whether item could ever fill slot k for some
// recipe in the table. It looks only at the recipes, not at what already
// occupies the other slots; the production template's acceptProduction
// does that check itself (slotsConsistent).
func (t *Table) AcceptsAtSlot(slot int, item Kind) bool {
	for _, r := range t.Recipes {
		if ing, ok := r.Inputs[slot]; ok && ing.Item == item {
			return true
		}
	}
	return false
}

// RecipeRegistry holds one recipe Table per production building kind.
type RecipeRegistry struct {
	tables map[string]*Table
}

func NewRecipeRegistry() *RecipeRegistry {
	return &RecipeRegistry{tables: make(map[string]*Table)}
}

func (r *RecipeRegistry) Register(t *Table) {
	for i := range t.Recipes {
		t.Recipes[i].Declared = i
	}
	r.tables[t.BuildingKind] = t
}

func (r *RecipeRegistry) Get(buildingKind string) (*Table, bool) {
	t, ok := r.tables[buildingKind]
	return t, ok
}

// DefaultRecipes provides the recipe tables for the standard production
// buildings named in §4.D.6/§8 scenario 1 (smelter) and a couple of
// representative multi-slot crafters to exercise the 2/3-input
// slot-acceptance logic.
func DefaultRecipes() *RecipeRegistry {
	r := NewRecipeRegistry()

	r.Register(&Table{
		BuildingKind: "smelter",
		Recipes: []Recipe{
			{ID: "smelt_iron", Inputs: IngredientSet{0: {Item: ItemIronOre, Qty: 2}}, Output: Output{Item: ItemIronIngot, Qty: 1}},
			{ID: "smelt_copper", Inputs: IngredientSet{0: {Item: ItemCopperOre, Qty: 2}}, Output: Output{Item: ItemCopperIngot, Qty: 1}},
			{ID: "smelt_quartz", Inputs: IngredientSet{0: {Item: ItemQuartzOre, Qty: 2}}, Output: Output{Item: ItemGlassPane, Qty: 1}},
		},
	})

	r.Register(&Table{
		BuildingKind: "advanced_smelter",
		Recipes: []Recipe{
			{
				ID: "forge_steel",
				Inputs: IngredientSet{
					0: {Item: ItemIronOre, Qty: 2},
					1: {Item: ItemSulfurOre, Qty: 1},
				},
				Output: Output{Item: ItemSteelIngot, Qty: 1},
			},
			{
				ID: "forge_titanium_plate",
				Inputs: IngredientSet{
					0: {Item: ItemTitaniumOre, Qty: 3},
					1: {Item: ItemCrudeOil, Qty: 1},
				},
				Output: Output{Item: ItemTitaniumPlate, Qty: 1},
			},
		},
	})

	r.Register(&Table{
		BuildingKind: "refinery",
		Recipes: []Recipe{
			{ID: "refine_fuel", Inputs: IngredientSet{0: {Item: ItemCrudeOil, Qty: 3}}, Output: Output{Item: ItemRefinedFuel, Qty: 1}},
		},
	})

	r.Register(&Table{
		BuildingKind: "reactor_assembler",
		Recipes: []Recipe{
			{
				ID: "assemble_core",
				Inputs: IngredientSet{
					0: {Item: ItemUraniumOre, Qty: 2},
					1: {Item: ItemSteelIngot, Qty: 2},
					2: {Item: ItemGlassPane, Qty: 1},
				},
				Output: Output{Item: ItemEnrichedCore, Qty: 1},
			},
		},
	})

	r.Register(&Table{
		BuildingKind: "fabricator",
		Recipes: []Recipe{
			{
				ID: "fab_circuit",
				Inputs: IngredientSet{
					0: {Item: ItemCopperIngot, Qty: 2},
					1: {Item: ItemQuartzOre, Qty: 1},
				},
				Output: Output{Item: ItemCircuitBoard, Qty: 1},
			},
			{
				ID: "fab_power_cell",
				Inputs: IngredientSet{
					0: {Item: ItemCopperIngot, Qty: 1},
					1: {Item: ItemIceChunk, Qty: 2},
				},
				Output: Output{Item: ItemPowerCell, Qty: 1},
			},
			{
				ID: "fab_beam",
				Inputs: IngredientSet{
					0: {Item: ItemSteelIngot, Qty: 2},
					1: {Item: ItemTitaniumPlate, Qty: 1},
				},
				Output: Output{Item: ItemStructuralBeam, Qty: 1},
			},
		},
	})

	return r
}
