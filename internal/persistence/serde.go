package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/sphericsim/worldcore/internal/store"
)

// stateSchemaVersion guards the behaviour-state JSON layout. Rows with
// an unknown version fail deserialization and are skipped at load.
const stateSchemaVersion = 1

// stateEnvelope is the persisted shape of a building's behaviour state.
// All enum-like values (kinds, phases, item names) serialize as their
// lowercase snake_case strings; unknown strings survive a round trip
// intact because every enum is string-typed. Only items.Kind declares a
// reserved opaque value (ItemOpaque).
type stateEnvelope struct {
	Version  int                 `json:"v"`
	Disabled bool                `json:"disabled,omitempty"`
	HP       int                 `json:"hp,omitempty"`
	Build    *store.ConstructionState `json:"build,omitempty"`
	State    store.BehaviorState `json:"state"`
}

// MarshalState serializes a building's mutable state to the state_json
// column format.
func MarshalState(b *store.Building) (string, error) {
	env := stateEnvelope{
		Version:  stateSchemaVersion,
		Disabled: b.Disabled,
		HP:       b.HP,
		Build:    b.Construction,
		State:    b.State,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("persistence: marshal state: %w", err)
	}
	return string(data), nil
}

// UnmarshalState restores a building's mutable state from state_json.
func UnmarshalState(b *store.Building, stateJSON string) error {
	var env stateEnvelope
	if err := json.Unmarshal([]byte(stateJSON), &env); err != nil {
		return fmt.Errorf("persistence: unmarshal state: %w", err)
	}
	if env.Version != stateSchemaVersion {
		return fmt.Errorf("persistence: unsupported state schema version %d", env.Version)
	}
	b.Disabled = env.Disabled
	b.HP = env.HP
	b.Construction = env.Build
	b.State = env.State
	return nil
}
