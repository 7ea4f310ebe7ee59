package mocks

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-options/internal/types"
)

// DataGenerator generates realistic market data for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Symbol is the underlying symbol (e.g., "NIFTY", "BTC")
	Symbol string
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of data points to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical daily volatility)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		StartTime:      time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          10000,
		InitialPrice:   100.0,
		Volatility:     0.002, // 0.2% per bar
		Trend:          0.0,   // neutral
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates underlying candles following a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Candle {
	data := make([]types.Candle, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		// Generate OHLCV using geometric Brownian motion
		open := currentPrice

		z := g.normal()

		// Price change with trend and volatility
		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count) // Distribute trend across bars

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99 // Prevent negative prices
		}

		// High and low are within the open-close range plus some extension
		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		// Volume with variance
		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		data[i] = types.Candle{
			Symbol: config.Symbol,
			Time:   currentTime,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(close, 4),
			Volume: roundToDecimals(volume, 2),
		}

		currentPrice = close
		currentTime = currentTime.Add(config.Interval)
	}

	return data
}

// OptionTickConfig configures synthetic option ticks for one expiry.
type OptionTickConfig struct {
	Asset        string
	Currency     string
	ContractType string
	Expiry       string
	// Strikes listed for both puts and calls.
	Strikes []float64
	// Underlying drives the premiums; one tick per instrument is emitted per candle.
	Underlying []types.Candle
	// TimeValue is the extrinsic premium added to intrinsic value.
	TimeValue float64
	// Noise is the relative jitter applied to each premium.
	Noise float64
}

// GenerateOptionTicks prices every strike of the chain from the underlying
// close with intrinsic value plus a jittered time value.
func (g *DataGenerator) GenerateOptionTicks(config OptionTickConfig) []types.TickRecord {
	records := make([]types.TickRecord, 0, len(config.Underlying)*len(config.Strikes)*2)

	for _, candle := range config.Underlying {
		for _, strike := range config.Strikes {
			for _, optionType := range []types.OptionType{types.OptionTypePut, types.OptionTypeCall} {
				intrinsic := math.Max(strike-candle.Close, 0)
				if optionType == types.OptionTypeCall {
					intrinsic = math.Max(candle.Close-strike, 0)
				}

				premium := (intrinsic + config.TimeValue) * (1 + config.Noise*g.normal())
				if premium <= 0 {
					premium = 0.05
				}

				records = append(records, types.TickRecord{
					Tick: types.Tick{
						InstrumentID: InstrumentID(config.Asset, optionType, strike, config.Expiry),
						Time:         candle.Time.Add(time.Duration(g.rng.Intn(30)) * time.Second),
						Price:        roundToDecimals(premium, 2),
					},
					Strike:       fmt.Sprintf("%g", strike),
					OptionType:   string(optionType),
					Expiry:       config.Expiry,
					ContractType: config.ContractType,
					Asset:        config.Asset,
					Currency:     config.Currency,
				})
			}
		}
	}

	return records
}

// InstrumentID builds the identifier used by the generator, e.g. P-NIFTY-22000-2024-03-07.
func InstrumentID(asset string, optionType types.OptionType, strike float64, expiry string) string {
	return fmt.Sprintf("%s-%s-%g-%s", optionType[:1], asset, strike, expiry)
}

// normal draws from N(0, 1) with the Box-Muller transform.
func (g *DataGenerator) normal() float64 {
	u1 := g.rng.Float64()
	u2 := g.rng.Float64()

	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
