package types

import (
	"fmt"
	"time"
)

// Timeframe is the bar size of the underlying candle series.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe3m  Timeframe = "3m"
	Timeframe5m  Timeframe = "5m"
	Timeframe10m Timeframe = "10m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe2h  Timeframe = "2h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

var timeframeMinutes = map[Timeframe]int{
	Timeframe1m:  1,
	Timeframe3m:  3,
	Timeframe5m:  5,
	Timeframe10m: 10,
	Timeframe15m: 15,
	Timeframe30m: 30,
	Timeframe1h:  60,
	Timeframe2h:  120,
	Timeframe4h:  240,
	Timeframe1d:  1440,
}

// AllTimeframes lists the supported timeframes, used for schema enums.
var AllTimeframes = []any{
	Timeframe1m, Timeframe3m, Timeframe5m, Timeframe10m, Timeframe15m,
	Timeframe30m, Timeframe1h, Timeframe2h, Timeframe4h, Timeframe1d,
}

// Minutes returns the bar size in minutes.
func (t Timeframe) Minutes() (int, error) {
	minutes, ok := timeframeMinutes[t]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe %q", string(t))
	}

	return minutes, nil
}

// Duration returns the bar size as a time.Duration.
func (t Timeframe) Duration() (time.Duration, error) {
	minutes, err := t.Minutes()
	if err != nil {
		return 0, err
	}

	return time.Duration(minutes) * time.Minute, nil
}

// IsValid reports whether the timeframe is supported.
func (t Timeframe) IsValid() bool {
	_, ok := timeframeMinutes[t]

	return ok
}
