// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations, DTOs, and constants.

package api

// PoolFlags selects the acquire policy of a pool.
type PoolFlags uint32

const (
	// FlagRingBuffer enables strict rotation: acquire never skips a locked slot.
	FlagRingBuffer PoolFlags = 1 << iota
)

func (f PoolFlags) RingMode() bool { return f&FlagRingBuffer != 0 }

func (f PoolFlags) String() string {
	if f.RingMode() {
		return "ring"
	}
	return "general"
}

// ParamID names a tunable pool or queue parameter.
type ParamID int

const (
	ParamHighWatermark ParamID = iota + 1
	ParamLowWatermark
)

func (p ParamID) String() string {
	switch p {
	case ParamHighWatermark:
		return "high_watermark"
	case ParamLowWatermark:
		return "low_watermark"
	default:
		return "unknown"
	}
}

// MaxWatermark bounds watermark values; 0 disables a watermark.
const MaxWatermark = 1<<16 - 1

// MaxBufNum bounds the slot count so a fill level shifted to 16.16 fits the
// signed 32-bit average.
const MaxBufNum = 1<<15 - 1

// Fixed is an unsigned 16.16 fixed point number.
type Fixed uint32

// FixedFromInt converts an integer level to 16.16.
func FixedFromInt(v int) Fixed { return Fixed(uint32(v) << 16) }

// Float64 converts to floating point for display.
func (f Fixed) Float64() float64 { return float64(f) / 65536.0 }

// QueueStats is a snapshot of queue fill statistics.
type QueueStats struct {
	CurrFillLevel  int   `json:"curr_fill_level"`
	MaxFillLevel   int   `json:"max_fill_level"`
	AvgFillLevel   Fixed `json:"avg_fill_level"`   // exponential moving average, 16.16
	MeanTargetArea Fixed `json:"mean_target_area"` // midpoint between watermarks, 16.16
}
