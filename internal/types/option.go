package types

import (
	"strings"
	"time"
)

// OptionType is the right of an option contract.
type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// ParseOptionType accepts the spellings seen in tick feeds (CALL, call, C, CE,
// call_options, PUT, P, PE, put_options). The boolean is false when the value
// is not recognised.
func ParseOptionType(raw string) (OptionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CALL", "C", "CE", "CALL_OPTIONS", "CALL_OPTION":
		return OptionTypeCall, true
	case "PUT", "P", "PE", "PUT_OPTIONS", "PUT_OPTION":
		return OptionTypePut, true
	default:
		return "", false
	}
}

// Instrument is one option contract. It is immutable and identified by ID.
type Instrument struct {
	ID         string     `json:"id" yaml:"id"`
	Strike     float64    `json:"strike" yaml:"strike"`
	OptionType OptionType `json:"option_type" yaml:"option_type"`
	Expiry     string     `json:"expiry" yaml:"expiry"`
}

// InstrumentRecord is the raw metadata a tick source reports for an instrument,
// taken from its first observed tick. Strike and OptionType are unparsed.
type InstrumentRecord struct {
	ID         string
	Strike     string
	OptionType string
	Expiry     string
}

// TimeWindow is a closed interval [Start, End].
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// IsEmpty reports whether the window contains no instant.
func (w TimeWindow) IsEmpty() bool {
	return w.End.Before(w.Start)
}

// OptionChain is a point-in-time snapshot of the listed contracts of one expiry.
// Puts and Calls are sorted ascending by strike.
type OptionChain struct {
	Expiry     string       `json:"expiry"`
	AsOfWindow TimeWindow   `json:"as_of_window"`
	Puts       []Instrument `json:"puts"`
	Calls      []Instrument `json:"calls"`
}

// Ladder returns the strike ladder of the given option type.
func (c OptionChain) Ladder(optionType OptionType) []Instrument {
	if optionType == OptionTypeCall {
		return c.Calls
	}

	return c.Puts
}

// ContractFilter narrows tick queries to one family of contracts.
type ContractFilter struct {
	ContractType string `json:"contract_type" yaml:"contract_type"`
	Asset        string `json:"asset" yaml:"asset"`
	Currency     string `json:"currency" yaml:"currency"`
}

// Tick is one traded or quoted price of an instrument.
type Tick struct {
	InstrumentID string    `json:"instrument_id"`
	Time         time.Time `json:"time"`
	Price        float64   `json:"price"`
}

// TickRecord is a tick together with the contract metadata stored on the tick row.
type TickRecord struct {
	Tick
	Strike       string
	OptionType   string
	Expiry       string
	ContractType string
	Asset        string
	Currency     string
}

// BoundDirection tells on which side of a price level a bound fires.
type BoundDirection string

const (
	// BoundAtOrAbove fires on the first price >= level.
	BoundAtOrAbove BoundDirection = "AT_OR_ABOVE"
	// BoundAtOrBelow fires on the first price <= level.
	BoundAtOrBelow BoundDirection = "AT_OR_BELOW"
)

// PriceBound is a price threshold used by range scans.
type PriceBound struct {
	Level     float64
	Direction BoundDirection
}

// Hit reports whether price crosses the bound.
func (b PriceBound) Hit(price float64) bool {
	if b.Direction == BoundAtOrAbove {
		return price >= b.Level
	}

	return price <= b.Level
}
