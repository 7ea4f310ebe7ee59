package types

import (
	"time"
)

// OutcomeReason tags an attempt that did not become a trade.
type OutcomeReason string

const (
	ReasonNoCandles              OutcomeReason = "NO_CANDLES"
	ReasonNoEntrySignal          OutcomeReason = "NO_ENTRY_SIGNAL"
	ReasonEntryAfterExitTime     OutcomeReason = "ENTRY_AFTER_EXIT_TIME"
	ReasonNoExpiry               OutcomeReason = "NO_EXPIRY"
	ReasonNoPutChain             OutcomeReason = "NO_PUT_CHAIN"
	ReasonNoCallChain            OutcomeReason = "NO_CALL_CHAIN"
	ReasonInvalidUnderlyingPrice OutcomeReason = "INVALID_UNDERLYING_PRICE"
	ReasonMoneynessOutOfRange    OutcomeReason = "MONEYNESS_OUT_OF_RANGE"
	ReasonNoEntryTickMain        OutcomeReason = "NO_ENTRY_TICK_MAIN"
	ReasonNoEntryTickHedge       OutcomeReason = "NO_ENTRY_TICK_HEDGE"
	ReasonNoExitTickMain         OutcomeReason = "NO_EXIT_TICK_MAIN"
	ReasonNoExitTickHedge        OutcomeReason = "NO_EXIT_TICK_HEDGE"
	ReasonInvalidPrice           OutcomeReason = "INVALID_PRICE"
)

// ExitReason tells why a taken trade was closed.
type ExitReason string

const (
	ExitStopLossHitMain ExitReason = "STOPLOSS_HIT_MAIN"
	ExitTargetHitMain   ExitReason = "TARGET_HIT_MAIN"
	ExitSellSignal      ExitReason = "SELL_SIGNAL"
	ExitTimeExit        ExitReason = "TIME_EXIT"
	ExitDayEnd          ExitReason = "DAY_END"
)

// IsRiskExit reports whether the exit was triggered by the stop-loss or target scan.
func (r ExitReason) IsRiskExit() bool {
	return r == ExitStopLossHitMain || r == ExitTargetHitMain
}

// LegFill is the realized entry and exit of one leg.
type LegFill struct {
	Role       LegRole    `json:"role" csv:"role"`
	Side       Side       `json:"side" csv:"side"`
	Instrument Instrument `json:"instrument" csv:"instrument"`
	EntryTime  time.Time  `json:"entry_time" csv:"entry_time"`
	EntryPrice float64    `json:"entry_price" csv:"entry_price"`
	ExitTime   time.Time  `json:"exit_time" csv:"exit_time"`
	ExitPrice  float64    `json:"exit_price" csv:"exit_price"`
	// Points is the signed per-unit result: entry-exit for a short leg, exit-entry for a long leg.
	Points float64 `json:"points" csv:"points"`
}

// Trade is one result row of the scheduler. A row with Took=false records an
// attempt (or a day) that did not become a position, with the reason in Reason.
// Rows are never mutated after they are appended to a run.
type Trade struct {
	Date            string        `json:"date" csv:"date"`
	Took            bool          `json:"took" csv:"took"`
	Reason          OutcomeReason `json:"reason,omitempty" csv:"reason"`
	FailedLeg       LegRole       `json:"failed_leg,omitempty" csv:"failed_leg"`
	SignalTime      time.Time     `json:"signal_time" csv:"signal_time"`
	PlannedExitTime time.Time     `json:"planned_exit_time" csv:"planned_exit_time"`
	EntryTime       time.Time     `json:"entry_time" csv:"entry_time"`
	ExitTime        time.Time     `json:"exit_time" csv:"exit_time"`
	Expiry          string        `json:"expiry,omitempty" csv:"expiry"`
	UnderlyingPrice float64       `json:"underlying_price" csv:"underlying_price"`
	Legs            []LegFill     `json:"legs,omitempty" csv:"-"`
	ExitReason      ExitReason    `json:"exit_reason,omitempty" csv:"exit_reason"`
	NetPoints       float64       `json:"net_points" csv:"net_points"`
	NetPnl          float64       `json:"net_pnl" csv:"net_pnl"`
}

// Leg returns the fill of the leg with the given role.
func (t Trade) Leg(role LegRole) (LegFill, bool) {
	for _, leg := range t.Legs {
		if leg.Role == role {
			return leg, true
		}
	}

	return LegFill{}, false
}
