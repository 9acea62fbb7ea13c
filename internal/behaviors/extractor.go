package behaviors

import (
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

// tickExtractor mines one ore from the underlying tile every effective
// rate ticks. A depleted tile falls back to adjacent tiles within the
// creature-boosted area radius.
func tickExtractor(ctx *Context, key store.Key, b *store.Building) bool {
	e := b.State.Extractor
	if e == nil || e.Output != nil {
		return false
	}
	rate := EffectiveRate(ctx, key, b, ctx.Balance.Extraction.DefaultRateTicks)
	e.Progress++
	if e.Progress < rate {
		return true
	}
	e.Progress = 0

	if item, ok := extractAt(ctx, key); ok {
		e.Output = &item
		return true
	}
	// Area boost: try adjacent tiles in radius order, lexicographic
	// within each ring.
	radius := AreaBonus(ctx, key)
	if radius == 0 {
		return true
	}
	n := ctx.Geom.Size()
	for dr := -radius; dr <= radius; dr++ {
		for dc := -radius; dc <= radius; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			r, c := key.Row+dr, key.Col+dc
			if r < 0 || r >= n || c < 0 || c >= n {
				continue
			}
			if item, ok := extractAt(ctx, store.Key{Face: key.Face, Row: r, Col: c}); ok {
				e.Output = &item
				return true
			}
		}
	}
	return true
}

// extractAt depletes one unit from the tile's resource and returns the
// corresponding item.
func extractAt(ctx *Context, key store.Key) (items.Kind, bool) {
	tile, err := ctx.Store.GetTile(key)
	if err != nil || tile.Resource == nil {
		return "", false
	}
	kind := tile.Resource.Kind
	if tile.Deplete(1) == 0 {
		return "", false
	}
	ctx.Store.PutTile(key, tile)
	return items.ResourceToItem[kind], true
}
