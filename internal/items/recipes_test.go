package items

import "testing"

func TestMatchSlotsFirstDeclaredWins(t *testing.T) {
	table := &Table{
		BuildingKind: "test",
		Recipes: []Recipe{
			{ID: "first", Inputs: IngredientSet{0: {Item: ItemIronOre, Qty: 1}}, Output: Output{Item: ItemIronIngot, Qty: 1}},
			{ID: "second", Inputs: IngredientSet{0: {Item: ItemIronOre, Qty: 1}}, Output: Output{Item: ItemSteelIngot, Qty: 1}},
		},
	}
	r, ok := table.MatchSlots(map[int]Ingredient{0: {Item: ItemIronOre, Qty: 1}})
	if !ok || r.ID != "first" {
		t.Fatalf("match = %v %v, want first recipe", r.ID, ok)
	}
}

func TestMatchSlotsRequiresQuantity(t *testing.T) {
	reg := DefaultRecipes()
	table, ok := reg.Get("smelter")
	if !ok {
		t.Fatal("no smelter table")
	}
	if _, ok := table.MatchSlots(map[int]Ingredient{0: {Item: ItemIronOre, Qty: 1}}); ok {
		t.Fatal("matched with insufficient quantity")
	}
	if r, ok := table.MatchSlots(map[int]Ingredient{0: {Item: ItemIronOre, Qty: 2}}); !ok || r.ID != "smelt_iron" {
		t.Fatalf("match = %v %v", r.ID, ok)
	}
}

func TestAcceptsAtSlot(t *testing.T) {
	reg := DefaultRecipes()
	table, _ := reg.Get("advanced_smelter")

	cases := []struct {
		slot int
		item Kind
		want bool
	}{
		{0, ItemIronOre, true},
		{1, ItemSulfurOre, true},
		{1, ItemIronOre, false},
		{0, ItemTitaniumOre, true},
		{2, ItemIronOre, false},
	}
	for _, tc := range cases {
		if got := table.AcceptsAtSlot(tc.slot, tc.item); got != tc.want {
			t.Errorf("AcceptsAtSlot(%d, %s) = %v, want %v", tc.slot, tc.item, got, tc.want)
		}
	}
}

func TestDeclarationOrderAssigned(t *testing.T) {
	reg := NewRecipeRegistry()
	reg.Register(&Table{
		BuildingKind: "test",
		Recipes: []Recipe{
			{ID: "a", Inputs: IngredientSet{}, Output: Output{Item: ItemIronIngot, Qty: 1}},
			{ID: "b", Inputs: IngredientSet{}, Output: Output{Item: ItemSteelIngot, Qty: 1}},
		},
	})
	table, _ := reg.Get("test")
	for i, r := range table.Recipes {
		if r.Declared != i {
			t.Fatalf("recipe %s declared = %d, want %d", r.ID, r.Declared, i)
		}
	}
}
