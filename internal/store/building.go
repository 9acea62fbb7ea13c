package store

import (
	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/items"
)

// BuildingKind is a closed tagged enumeration of every placeable
// building (source re-architecture note in §9: kinds are tagged
// enumerations, not runtime strings compared ad hoc).
type BuildingKind string

const (
	KindExtractor          BuildingKind = "extractor"
	KindConveyorT1         BuildingKind = "conveyor_t1"
	KindConveyorT2         BuildingKind = "conveyor_t2"
	KindConveyorT3         BuildingKind = "conveyor_t3"
	KindSplitter           BuildingKind = "splitter"
	KindMerger             BuildingKind = "merger"
	KindPriorityMerger     BuildingKind = "priority_merger"
	KindBalancer           BuildingKind = "balancer"
	KindFilteredSplitter   BuildingKind = "filtered_splitter"
	KindOverflowGate       BuildingKind = "overflow_gate"
	KindCrossover          BuildingKind = "crossover"
	KindUndergroundConduit BuildingKind = "underground_conduit"
	KindArm                BuildingKind = "arm"
	KindStorageContainer   BuildingKind = "storage_container"
	KindSmelter            BuildingKind = "smelter"
	KindAdvancedSmelter    BuildingKind = "advanced_smelter"
	KindRefinery           BuildingKind = "refinery"
	KindReactorAssembler   BuildingKind = "reactor_assembler"
	KindFabricator         BuildingKind = "fabricator"
	KindSubmissionTerminal BuildingKind = "submission_terminal"
	KindTradeTerminal      BuildingKind = "trade_terminal"
	KindContainmentTrap    BuildingKind = "containment_trap"
	KindPurificationBeacon BuildingKind = "purification_beacon"
	KindDimensionalStab    BuildingKind = "dimensional_stabilizer"
	KindDefenseTurret      BuildingKind = "defense_turret"
	KindBioGenerator       BuildingKind = "bio_generator"
	KindShadowPanel        BuildingKind = "shadow_panel"
	KindSubstation         BuildingKind = "substation"
	KindTransferStation    BuildingKind = "transfer_station"
	KindDroneBay           BuildingKind = "drone_bay"
	KindJurisdictionBeacon BuildingKind = "jurisdiction_beacon"
	KindLamp               BuildingKind = "lamp"
)

// ProductionKinds are the building kinds driven by the shared production
// template (§4.D.1) rather than bespoke behaviour code.
var ProductionKinds = map[BuildingKind]bool{
	KindSmelter:          true,
	KindAdvancedSmelter:  true,
	KindRefinery:         true,
	KindReactorAssembler: true,
	KindFabricator:       true,
}

// ConveyorTiers maps a conveyor kind to its FIFO slot count (§4.D.2).
var ConveyorTiers = map[BuildingKind]int{
	KindConveyorT1: 1,
	KindConveyorT2: 2,
	KindConveyorT3: 3,
}

// Building is a placed entity at a tile key. At most one exists per key
// (§3.3 invariant 1). State is a flat struct with one populated pointer
// field per behaviour family — the "unused fields are nil" variant
// picked in §9 over a tagged union, matching this codebase's preference
// for plain structs over interface{}-heavy polymorphism.
type Building struct {
	Kind         BuildingKind
	Orientation  int // 0..3, {W,S,E,N}
	OwnerID      uuid.UUID
	Construction *ConstructionState // non-nil until construction completes
	State        BehaviorState
	Powered      bool // mirror of the most recent power resolution; behaviors never set this
	Disabled     bool // toggled off by the owner; excluded from power draw and never ticks
	HP           int  // hit points remaining under hiss attack; 0 means full/untracked until first hit
}

// ConstructionState tracks a placed-but-incomplete building (§3.2, §3.3
// invariant 5, §8 invariant 8).
type ConstructionState struct {
	Required  map[items.Kind]uint16
	Delivered map[items.Kind]uint16
}

// Complete reports whether every required item has been delivered in
// full.
func (c *ConstructionState) Complete() bool {
	for item, need := range c.Required {
		if c.Delivered[item] < need {
			return false
		}
	}
	return true
}

// BehaviorState holds every building-kind-specific mutable field. Only
// the fields relevant to a building's Kind are populated; the rest stay
// at their zero value.
type BehaviorState struct {
	Production *ProductionState
	Conveyor   *ConveyorState
	Router     *RouterState
	Conduit    *ConduitState
	Arm        *ArmState
	Storage    *StorageState
	Extractor  *ExtractorState
	Trap       *TrapState
	Turret     *TurretState
	Power      *PowerProducerState
	DroneBay   *DroneBayState
	Beacon     *BeaconState
	Terminal   *TerminalState
}

// ProductionPhase is the §4.D.1 state machine phase.
type ProductionPhase string

const (
	PhaseIdle       ProductionPhase = "idle"
	PhaseProcessing ProductionPhase = "processing"
	PhaseDrain      ProductionPhase = "drain"
)

// ProductionState is the shared production-template state for every
// crafting building (§4.D.1).
type ProductionState struct {
	Phase            ProductionPhase
	Slots            map[int]items.Ingredient // current slot contents
	SelectedRecipe    string
	Progress         int
	OutputBuffer     *items.Kind
	OutputRemaining  int
	RequiresCreature bool
	AssignedCreature uuid.UUID // zero value = none
}

// ConveyorState is a tier-k FIFO (§4.D.2); Slots[0] is the leading,
// extractable item.
type ConveyorState struct {
	Tier  int
	Slots []*items.Kind
}

// RouterKind distinguishes the routing policies sharing RouterState
// (§4.D.3).
type RouterKind string

const (
	RouterSplitter         RouterKind = "splitter"
	RouterMerger           RouterKind = "merger"
	RouterPriorityMerger   RouterKind = "priority_merger"
	RouterBalancer         RouterKind = "balancer"
	RouterFilteredSplitter RouterKind = "filtered_splitter"
	RouterOverflowGate     RouterKind = "overflow_gate"
	RouterCrossover        RouterKind = "crossover"
)

type RouterState struct {
	Router     RouterKind
	AltBit     bool       // splitter/balancer L/R alternation
	Mirror     bool       // priority_merger mirror flag
	FilterItem items.Kind // filtered_splitter
	DualFilter bool

	Held     *items.Kind // output slot for single-stream routers
	HeldL    *items.Kind // merger left input
	HeldR    *items.Kind // merger right input
	HeldH    *items.Kind // crossover slot for the stream on the facing axis
	HeldHDir int         // absolute direction of travel for HeldH
	HeldV    *items.Kind // crossover slot for the perpendicular stream
	HeldVDir int
}

type ConduitState struct {
	LinkedTo  *uuidKey // partner conduit building key, set via link_conduit
	Held      *items.Kind
}

// uuidKey is an alias of the store's Key type (geometry.Key, re-exported
// as Key in store.go).
type uuidKey = Key

type ArmState struct {
	Source      Key
	Destination Key
	StackUpgrade bool
}

// StorageState separates extractable Count from Inserted (pending arm
// transfers this tick); consolidation at end-of-tick folds Inserted into
// Count so no item can cross more than one arm hop per tick (§4.D.4
// fairness invariant, §8 invariant 7).
type StorageState struct {
	Counts   map[items.Kind]int
	Inserted map[items.Kind]int
}

type ExtractorState struct {
	Progress int
	Output   *items.Kind
}

type TrapState struct {
	CaptureProgress int
}

type TurretState struct {
	Output *items.Kind
}

type PowerProducerState struct {
	FuelRemainingTicks int // bio generator only; shadow panel ignores this
	OutputCapacity     int
}

type DroneBayPhase string

const (
	DroneBayIdle      DroneBayPhase = "idle"
	DroneBayAccepting DroneBayPhase = "accepting"
	DroneBayComplete  DroneBayPhase = "complete"
)

type DroneBayState struct {
	Phase                DroneBayPhase
	DeliveryDroneEnabled bool
	CargoUpgrade         bool
	ReserveFuel          int // biofuel items held back for the drone's reserve tank
}

type BeaconState struct {
	Radius int
}

// TerminalState backs the submission and trade terminals: a one-slot-per
// kind input buffer drained in the consumption phase (§4.E.1 step 4).
type TerminalState struct {
	Buffer         map[items.Kind]int
	TotalSubmitted int
	TradeID        *uuid.UUID // trade terminal only, set via link_trade
}
