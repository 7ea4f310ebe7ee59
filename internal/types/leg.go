package types

// LegRole is the role of a leg within a strategy.
type LegRole string

const (
	LegRoleMain  LegRole = "MAIN"
	LegRoleHedge LegRole = "HEDGE"
)

// Side is the direction of a leg.
type Side string

const (
	SideShort Side = "SHORT"
	SideLong  Side = "LONG"
)

// MoneynessType positions a strike relative to at-the-money.
type MoneynessType string

const (
	MoneynessATM MoneynessType = "ATM"
	MoneynessITM MoneynessType = "ITM"
	MoneynessOTM MoneynessType = "OTM"
)

// Moneyness is a moneyness type plus a number of strike steps away from ATM.
type Moneyness struct {
	Type  MoneynessType `json:"type" yaml:"type" validate:"required,oneof=ATM ITM OTM"`
	Steps int           `json:"steps" yaml:"steps" validate:"gte=0"`
}

// LegSpec describes one leg of a strategy.
type LegSpec struct {
	Role      LegRole   `json:"role" yaml:"role" validate:"required,oneof=MAIN HEDGE"`
	Side      Side      `json:"side" yaml:"side" validate:"required,oneof=SHORT LONG"`
	Moneyness Moneyness `json:"moneyness" yaml:"moneyness"`
}
