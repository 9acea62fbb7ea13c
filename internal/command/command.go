// Package command defines the player-facing command API of the world
// server: the command types, the typed errors they can fail with, and
// the handlers the tick processor applies at the start of each tick.
// Handlers never mutate state on failure.
package command

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/store"
)

// Type enumerates the accepted commands.
type Type string

const (
	TypePlace                Type = "place"
	TypePlaceBatch           Type = "place_batch"
	TypeRemove               Type = "remove"
	TypeLinkConduit          Type = "link_conduit"
	TypeLinkTrade            Type = "link_trade"
	TypeEject                Type = "eject"
	TypeTogglePower          Type = "toggle_power"
	TypeSelectUpgrade        Type = "select_upgrade"
	TypeActivateBoardContact Type = "activate_board_contact"
)

// ErrorKind is the closed set of command failure kinds.
type ErrorKind string

const (
	ErrTileOccupied       ErrorKind = "tile_occupied"
	ErrInvalidTile        ErrorKind = "invalid_tile"
	ErrInvalidPlacement   ErrorKind = "invalid_placement"
	ErrInvalidKind        ErrorKind = "invalid_kind"
	ErrNoClearance        ErrorKind = "no_clearance"
	ErrTerritoryViolation ErrorKind = "territory_violation"
	ErrNoBuilding         ErrorKind = "no_building"
	ErrNotOwner           ErrorKind = "not_owner"
	ErrAlreadyLinked      ErrorKind = "already_linked"
	ErrNotConduit         ErrorKind = "not_conduit"
	ErrAlreadyPurchased   ErrorKind = "already_purchased"
)

// CommandError carries an enumerated kind plus a human-readable detail.
type CommandError struct {
	Kind    ErrorKind
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func fail(kind ErrorKind, format string, args ...any) Result {
	return Result{Err: &CommandError{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// PlaceSpec is one element of a batch placement.
type PlaceSpec struct {
	Key         store.Key
	Kind        store.BuildingKind
	Orientation int
}

// Command is one queued player command. Reply, when non-nil, receives
// the result after the command is applied at the next tick boundary.
type Command struct {
	ID          uuid.UUID
	Type        Type
	Owner       uuid.UUID
	Key         store.Key
	Kind        store.BuildingKind
	Orientation int
	Other       store.Key // link_conduit partner
	TradeID     uuid.UUID
	Upgrade     string
	Batch       []PlaceSpec

	Reply chan Result `json:"-"`
}

// Result is a command's outcome: Err nil means ok. Batch placements
// carry one result per element.
type Result struct {
	Err   *CommandError
	Batch []Result
}

// OK reports success.
func (r Result) OK() bool {
	return r.Err == nil
}
