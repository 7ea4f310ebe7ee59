package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-options/internal/indicator"
	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/internal/version"
	"github.com/rxtech-lab/argo-options/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	dateLayout       = "2006-01-02"
	legacyDateLayout = "02-01-2006"
	clockLayout      = "15:04"

	defaultDecimalPrecision = 2
	maxDecimalPrecision     = 8
)

// ExpiryMode selects how the expiry of a trade is chosen.
type ExpiryMode string

const (
	// ExpiryModeFixed uses the configured expiry date for every trade.
	ExpiryModeFixed ExpiryMode = "FIXED"
	// ExpiryModeAuto picks the nearest listed expiry inside a lookahead window.
	ExpiryModeAuto ExpiryMode = "AUTO"
)

// EntryMode controls whether an already established trend can open the first trade of a day.
type EntryMode string

const (
	EntryModeSignalOnly    EntryMode = "SIGNAL_ONLY"
	EntryModeTrendFallback EntryMode = "TREND_FALLBACK"
)

// ATMTieBreak picks between two strikes equally distant from the reference price.
type ATMTieBreak string

const (
	ATMTieBreakBelow ATMTieBreak = "below"
	ATMTieBreakAbove ATMTieBreak = "above"
)

type IndicatorConfig struct {
	Name         types.IndicatorType   `yaml:"name" json:"name" validate:"required,oneof=supertrend ema ma rsi macd" jsonschema:"title=Indicator,description=Indicator driving entries and exits,enum=supertrend,enum=ema,enum=ma,enum=rsi,enum=macd"`
	ATRPeriod    int                   `yaml:"atr_period" json:"atr_period,omitempty" validate:"gte=0" jsonschema:"title=ATR Period,description=Supertrend ATR window (default 10),minimum=1"`
	Multiplier   float64               `yaml:"multiplier" json:"multiplier,omitempty" validate:"gte=0" jsonschema:"title=Multiplier,description=Supertrend band multiplier (default 3)"`
	UseWilder    optional.Option[bool] `yaml:"-" json:"use_wilder,omitempty" jsonschema:"title=Wilder Smoothing,description=Smooth ATR with Wilder's average instead of a simple average (default true)"`
	Period       int                   `yaml:"period" json:"period,omitempty" validate:"gte=0" jsonschema:"title=Period,description=Window for ema/ma/rsi"`
	FastPeriod   int                   `yaml:"fast_period" json:"fast_period,omitempty" validate:"gte=0" jsonschema:"title=Fast Period,description=MACD fast EMA window"`
	SlowPeriod   int                   `yaml:"slow_period" json:"slow_period,omitempty" validate:"gte=0" jsonschema:"title=Slow Period,description=MACD slow EMA window"`
	SignalPeriod int                   `yaml:"signal_period" json:"signal_period,omitempty" validate:"gte=0" jsonschema:"title=Signal Period,description=MACD signal EMA window"`
}

// UnmarshalYAML implements custom unmarshaling for IndicatorConfig.
func (c *IndicatorConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain IndicatorConfig
	if err := value.Decode((*plain)(c)); err != nil {
		return err
	}

	var aux struct {
		UseWilder *bool `yaml:"use_wilder"`
	}

	if err := value.Decode(&aux); err != nil {
		return err
	}

	c.UseWilder = optional.FromNillable(aux.UseWilder)

	return nil
}

// Params returns the parameters passed to Indicator.Config.
func (c IndicatorConfig) Params() []any {
	switch c.Name {
	case types.IndicatorTypeSupertrend:
		return []any{orDefault(c.ATRPeriod, 10), orDefaultFloat(c.Multiplier, 3), c.UseWilder.TakeOr(true)}
	case types.IndicatorTypeMACD:
		return []any{orDefault(c.FastPeriod, 12), orDefault(c.SlowPeriod, 26), orDefault(c.SignalPeriod, 9)}
	case types.IndicatorTypeRSI:
		return []any{orDefault(c.Period, 14)}
	default:
		return []any{orDefault(c.Period, 20)}
	}
}

type OptionConfig struct {
	Asset        string           `yaml:"asset" json:"asset" validate:"required" jsonschema:"title=Asset,description=Underlying asset of the option contracts"`
	Currency     string           `yaml:"currency" json:"currency,omitempty" jsonschema:"title=Currency"`
	ContractType string           `yaml:"contract_type" json:"contract_type,omitempty" jsonschema:"title=Contract Type,description=Contract type stored on the ticks (e.g. OPTIDX)"`
	OptionType   types.OptionType `yaml:"option_type" json:"option_type" validate:"required,oneof=PUT CALL" jsonschema:"title=Option Type,enum=PUT,enum=CALL"`
	ATMTieBreak  ATMTieBreak      `yaml:"atm_tie_break" json:"atm_tie_break,omitempty" validate:"omitempty,oneof=below above" jsonschema:"title=ATM Tie Break,description=Strike preferred when two strikes are equally close (default below),enum=below,enum=above"`
}

type RiskConfig struct {
	StopLossPct optional.Option[float64] `yaml:"-" json:"stop_loss_pct,omitempty" jsonschema:"title=Stop Loss %,description=Stop-loss distance from the MAIN entry price in percent"`
	TargetPct   optional.Option[float64] `yaml:"-" json:"target_pct,omitempty" jsonschema:"title=Target %,description=Target distance from the MAIN entry price in percent"`
}

// UnmarshalYAML implements custom unmarshaling for RiskConfig.
func (c *RiskConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		StopLossPct *float64 `yaml:"stop_loss_pct"`
		TargetPct   *float64 `yaml:"target_pct"`
	}

	if err := value.Decode(&aux); err != nil {
		return err
	}

	c.StopLossPct = optional.FromNillable(aux.StopLossPct)
	c.TargetPct = optional.FromNillable(aux.TargetPct)

	return nil
}

type ExpiryConfig struct {
	Mode          ExpiryMode              `yaml:"mode" json:"mode" validate:"required,oneof=FIXED AUTO" jsonschema:"title=Mode,enum=FIXED,enum=AUTO"`
	Date          optional.Option[string] `yaml:"-" json:"date,omitempty" jsonschema:"title=Date,description=Expiry for FIXED mode (YYYY-MM-DD or DD-MM-YYYY)"`
	DaysOut       int                     `yaml:"days_out" json:"days_out,omitempty" validate:"gte=0" jsonschema:"title=Days Out,description=Minimum days between entry and expiry in AUTO mode"`
	LookaheadDays int                     `yaml:"lookahead_days" json:"lookahead_days,omitempty" validate:"gte=0" jsonschema:"title=Lookahead Days,description=Maximum days between entry and expiry in AUTO mode"`
}

// UnmarshalYAML implements custom unmarshaling for ExpiryConfig.
func (c *ExpiryConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain ExpiryConfig
	if err := value.Decode((*plain)(c)); err != nil {
		return err
	}

	var aux struct {
		Date *string `yaml:"date"`
	}

	if err := value.Decode(&aux); err != nil {
		return err
	}

	c.Date = optional.FromNillable(aux.Date)

	return nil
}

// BacktestConfig is the full parameter set of one run.
type BacktestConfig struct {
	Name                string                  `yaml:"name" json:"name,omitempty" jsonschema:"title=Name,description=Run name used for the result folder"`
	Version             optional.Option[string] `yaml:"-" json:"version,omitempty" jsonschema:"title=Version,description=Engine version the configuration was written for"`
	Symbol              string                  `yaml:"symbol" json:"symbol" validate:"required" jsonschema:"title=Symbol,description=Underlying symbol"`
	Timeframe           types.Timeframe         `yaml:"timeframe" json:"timeframe" validate:"required,oneof=1m 3m 5m 10m 15m 30m 1h 2h 4h 1d" jsonschema:"title=Timeframe"`
	StartDate           string                  `yaml:"start_date" json:"start_date" validate:"required" jsonschema:"title=Start Date,description=First trading day (YYYY-MM-DD)"`
	EndDate             string                  `yaml:"end_date" json:"end_date" validate:"required" jsonschema:"title=End Date,description=Last trading day (YYYY-MM-DD)"`
	Timezone            string                  `yaml:"timezone" json:"timezone,omitempty" jsonschema:"title=Timezone,description=IANA timezone of the trading session (default UTC)"`
	WarmupCandles       int                     `yaml:"warmup_candles" json:"warmup_candles,omitempty" validate:"gte=0" jsonschema:"title=Warmup Candles,description=Candles loaded before start_date to seed the indicator (default 100)"`
	Indicator           IndicatorConfig         `yaml:"indicator" json:"indicator"`
	Option              OptionConfig            `yaml:"option" json:"option"`
	Legs                []types.LegSpec         `yaml:"legs" json:"legs" validate:"required,min=1,max=2,dive" jsonschema:"title=Legs,description=One MAIN leg and an optional HEDGE leg"`
	Risk                RiskConfig              `yaml:"risk" json:"risk,omitempty"`
	Expiry              ExpiryConfig            `yaml:"expiry" json:"expiry"`
	MaxTradesPerDay     int                     `yaml:"max_trades_per_day" json:"max_trades_per_day,omitempty" validate:"gte=0" jsonschema:"title=Max Trades Per Day,description=Default 1"`
	EntryMode           EntryMode               `yaml:"entry_mode" json:"entry_mode,omitempty" validate:"omitempty,oneof=SIGNAL_ONLY TREND_FALLBACK" jsonschema:"title=Entry Mode,enum=SIGNAL_ONLY,enum=TREND_FALLBACK"`
	Quantity            float64                 `yaml:"quantity" json:"quantity,omitempty" jsonschema:"title=Quantity,description=P&L multiplier; non-positive values fall back to 1"`
	ExitTime            optional.Option[string] `yaml:"-" json:"exit_time,omitempty" jsonschema:"title=Exit Time,description=Fixed time-of-day exit (HH:MM) in the configured timezone"`
	DecimalPrecision    optional.Option[int]    `yaml:"-" json:"decimal_precision,omitempty" jsonschema:"title=Decimal Precision,description=Decimal places of P&L figures from 0 to 8 (default 2)"`
	HedgeExitTolerances []time.Duration         `yaml:"hedge_exit_tolerances" json:"hedge_exit_tolerances,omitempty" jsonschema:"title=Hedge Exit Tolerances,description=Forward windows searched for the hedge exit tick (default 1m 5m 15m)"`
	Parallelism         int                     `yaml:"parallelism" json:"parallelism,omitempty" validate:"gte=0" jsonschema:"title=Parallelism,description=Runs executed concurrently (default 4)"`

	location *time.Location
}

// UnmarshalYAML implements custom unmarshaling for BacktestConfig.
func (c *BacktestConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain BacktestConfig
	if err := value.Decode((*plain)(c)); err != nil {
		return err
	}

	var aux struct {
		Version          *string `yaml:"version"`
		ExitTime         *string `yaml:"exit_time"`
		DecimalPrecision *int    `yaml:"decimal_precision"`
	}

	if err := value.Decode(&aux); err != nil {
		return err
	}

	c.Version = optional.FromNillable(aux.Version)
	c.ExitTime = optional.FromNillable(aux.ExitTime)
	c.DecimalPrecision = optional.FromNillable(aux.DecimalPrecision)

	return nil
}

// Precision returns the number of decimal places P&L figures are rounded to.
func (c BacktestConfig) Precision() int {
	return c.DecimalPrecision.TakeOr(defaultDecimalPrecision)
}

// ParseConfig decodes a YAML configuration, applies defaults and validates it.
func ParseConfig(content string) (BacktestConfig, error) {
	var config BacktestConfig
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return BacktestConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse configuration", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return BacktestConfig{}, err
	}

	return config, nil
}

// ApplyDefaults fills every unset field with its default.
func (c *BacktestConfig) ApplyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}

	if c.WarmupCandles == 0 {
		c.WarmupCandles = 100
	}

	if c.Option.ATMTieBreak == "" {
		c.Option.ATMTieBreak = ATMTieBreakBelow
	}

	if c.MaxTradesPerDay == 0 {
		c.MaxTradesPerDay = 1
	}

	if c.EntryMode == "" {
		c.EntryMode = EntryModeSignalOnly
	}

	if math.IsNaN(c.Quantity) || math.IsInf(c.Quantity, 0) || c.Quantity <= 0 {
		c.Quantity = 1
	}

	if c.DecimalPrecision.IsNone() {
		c.DecimalPrecision = optional.Some(defaultDecimalPrecision)
	}

	if len(c.HedgeExitTolerances) == 0 {
		c.HedgeExitTolerances = []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute}
	}

	if c.Parallelism == 0 {
		c.Parallelism = 4
	}

	if c.Name == "" {
		c.Name = fmt.Sprintf("%s_%s_%s", c.Symbol, c.StartDate, c.EndDate)
	}
}

// Validate checks the configuration before any data access. The first
// failure is returned, wrapped in ErrCodeInvalidConfiguration.
func (c *BacktestConfig) Validate() error {
	if err := c.validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return nil
}

func (c *BacktestConfig) validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid field", err)
	}

	if c.Version.IsSome() {
		if err := version.CheckConfigVersion(version.GetVersion(), c.Version.Unwrap()); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidVersion, "incompatible configuration version", err)
		}
	}

	location, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidTimezone, err, "unknown timezone %q", c.Timezone)
	}

	c.location = location

	start, err := time.ParseInLocation(dateLayout, c.StartDate, location)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidDate, err, "start_date %q must be YYYY-MM-DD", c.StartDate)
	}

	end, err := time.ParseInLocation(dateLayout, c.EndDate, location)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidDate, err, "end_date %q must be YYYY-MM-DD", c.EndDate)
	}

	if end.Before(start) {
		return errors.Newf(errors.ErrCodeInvalidDate, "end_date %s is before start_date %s", c.EndDate, c.StartDate)
	}

	if !c.Timeframe.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidTimeframe, "unknown timeframe %q", c.Timeframe)
	}

	if err := c.validateIndicator(); err != nil {
		return err
	}

	if err := c.validateLegs(); err != nil {
		return err
	}

	if err := c.validateRisk(); err != nil {
		return err
	}

	if err := c.validateExpiry(); err != nil {
		return err
	}

	if c.ExitTime.IsSome() {
		if _, err := time.Parse(clockLayout, c.ExitTime.Unwrap()); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidExitTime, err, "exit_time %q must be HH:MM", c.ExitTime.Unwrap())
		}
	}

	if p := c.Precision(); p < 0 || p > maxDecimalPrecision {
		return errors.Newf(errors.ErrCodeInvalidParameter, "decimal_precision must be between 0 and %d, got %d", maxDecimalPrecision, p)
	}

	for _, tolerance := range c.HedgeExitTolerances {
		if tolerance <= 0 {
			return errors.Newf(errors.ErrCodeInvalidParameter, "hedge exit tolerance must be positive, got %s", tolerance)
		}
	}

	return nil
}

func (c *BacktestConfig) validateIndicator() error {
	instance, err := indicator.NewDefaultRegistry().GetIndicator(c.Indicator.Name)
	if err != nil {
		return err
	}

	return instance.Config(c.Indicator.Params()...)
}

func (c *BacktestConfig) validateLegs() error {
	mains, hedges := 0, 0

	for _, leg := range c.Legs {
		switch leg.Role {
		case types.LegRoleMain:
			mains++
		case types.LegRoleHedge:
			hedges++
		}

		if leg.Moneyness.Type == types.MoneynessATM && leg.Moneyness.Steps != 0 {
			return errors.Newf(errors.ErrCodeInvalidLegSpec, "%s leg: ATM moneyness takes no steps", leg.Role)
		}
	}

	if mains != 1 {
		return errors.Newf(errors.ErrCodeInvalidLegSpec, "exactly one MAIN leg is required, got %d", mains)
	}

	if hedges > 1 {
		return errors.Newf(errors.ErrCodeInvalidLegSpec, "at most one HEDGE leg is allowed, got %d", hedges)
	}

	return nil
}

func (c *BacktestConfig) validateRisk() error {
	for _, check := range []struct {
		name string
		pct  optional.Option[float64]
		code errors.ErrorCode
	}{
		{name: "stop_loss_pct", pct: c.Risk.StopLossPct, code: errors.ErrCodeInvalidStopLoss},
		{name: "target_pct", pct: c.Risk.TargetPct, code: errors.ErrCodeInvalidTarget},
	} {
		if check.pct.IsNone() {
			continue
		}

		if v := check.pct.Unwrap(); math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return errors.Newf(check.code, "%s must be a positive number, got %v", check.name, v)
		}
	}

	if c.Risk.TargetPct.IsSome() && c.Risk.TargetPct.Unwrap() >= 100 && c.MainLeg().Side == types.SideShort {
		return errors.Newf(errors.ErrCodeInvalidTarget, "target_pct must be below 100 for a short MAIN leg, got %v", c.Risk.TargetPct.Unwrap())
	}

	if c.Risk.StopLossPct.IsSome() && c.Risk.StopLossPct.Unwrap() >= 100 && c.MainLeg().Side == types.SideLong {
		return errors.Newf(errors.ErrCodeInvalidStopLoss, "stop_loss_pct must be below 100 for a long MAIN leg, got %v", c.Risk.StopLossPct.Unwrap())
	}

	return nil
}

func (c *BacktestConfig) validateExpiry() error {
	switch c.Expiry.Mode {
	case ExpiryModeFixed:
		if c.Expiry.Date.IsNone() {
			return errors.New(errors.ErrCodeInvalidExpiry, "expiry.date is required in FIXED mode")
		}

		normalized, err := NormalizeExpiry(c.Expiry.Date.Unwrap())
		if err != nil {
			return err
		}

		c.Expiry.Date = optional.Some(normalized)
	case ExpiryModeAuto:
		if c.Expiry.LookaheadDays < c.Expiry.DaysOut {
			return errors.Newf(errors.ErrCodeInvalidExpiry,
				"expiry.lookahead_days (%d) must not be less than expiry.days_out (%d)", c.Expiry.LookaheadDays, c.Expiry.DaysOut)
		}
	}

	return nil
}

// Location returns the session timezone. Valid after Validate.
func (c BacktestConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}

	return c.location
}

// DateRange returns midnight of the first day and midnight after the last day.
func (c BacktestConfig) DateRange() (time.Time, time.Time) {
	start, _ := time.ParseInLocation(dateLayout, c.StartDate, c.Location())
	end, _ := time.ParseInLocation(dateLayout, c.EndDate, c.Location())

	return start, end.AddDate(0, 0, 1)
}

// ExitClock returns the fixed exit time-of-day on the given trading day.
func (c BacktestConfig) ExitClock(day time.Time) optional.Option[time.Time] {
	if c.ExitTime.IsNone() {
		return optional.None[time.Time]()
	}

	clock, err := time.Parse(clockLayout, c.ExitTime.Unwrap())
	if err != nil {
		return optional.None[time.Time]()
	}

	y, m, d := day.In(c.Location()).Date()

	return optional.Some(time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, c.Location()))
}

// Filter returns the contract filter applied to tick queries.
func (c BacktestConfig) Filter() types.ContractFilter {
	return types.ContractFilter{
		ContractType: c.Option.ContractType,
		Asset:        c.Option.Asset,
		Currency:     c.Option.Currency,
	}
}

// MainLeg returns the MAIN leg spec.
func (c BacktestConfig) MainLeg() types.LegSpec {
	for _, leg := range c.Legs {
		if leg.Role == types.LegRoleMain {
			return leg
		}
	}

	return types.LegSpec{}
}

// HedgeLeg returns the HEDGE leg spec, if configured.
func (c BacktestConfig) HedgeLeg() optional.Option[types.LegSpec] {
	for _, leg := range c.Legs {
		if leg.Role == types.LegRoleHedge {
			return optional.Some(leg)
		}
	}

	return optional.None[types.LegSpec]()
}

// WithFixedExpiry returns a copy of the configuration pinned to one expiry.
func (c BacktestConfig) WithFixedExpiry(expiry string) (BacktestConfig, error) {
	normalized, err := NormalizeExpiry(expiry)
	if err != nil {
		return BacktestConfig{}, err
	}

	c.Expiry.Mode = ExpiryModeFixed
	c.Expiry.Date = optional.Some(normalized)
	c.Legs = append([]types.LegSpec(nil), c.Legs...)
	c.HedgeExitTolerances = append([]time.Duration(nil), c.HedgeExitTolerances...)
	c.Name = fmt.Sprintf("%s_exp_%s", c.Name, normalized)

	return c, nil
}

// NormalizeExpiry converts an expiry to YYYY-MM-DD. DD-MM-YYYY is accepted as a legacy form.
func NormalizeExpiry(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	for _, layout := range []string{dateLayout, legacyDateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateLayout), nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidExpiry, "expiry %q must be YYYY-MM-DD or DD-MM-YYYY", raw)
}

// GenerateSchema generates a JSON schema for the BacktestConfig
func (c *BacktestConfig) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t.String() {
			case "optional.Option[string]":
				return &jsonschema.Schema{Type: "string"}
			case "optional.Option[int]":
				return &jsonschema.Schema{Type: "integer"}
			case "optional.Option[float64]":
				return &jsonschema.Schema{Type: "number"}
			case "optional.Option[bool]":
				return &jsonschema.Schema{Type: "boolean"}
			case "time.Duration":
				return &jsonschema.Schema{Type: "string", Description: "Go duration, e.g. 5m"}
			case "types.Timeframe":
				return &jsonschema.Schema{Type: "string", Enum: types.AllTimeframes}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for the options backtest engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestConfig
func (c *BacktestConfig) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}

	return v
}

func orDefaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}

	return v
}
