// File: queue/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fill level statistics shared by Queue and Shared.

package queue

import (
	"github.com/momentics/mediabuf/api"
)

// fillStats tracks the maximum fill level and its exponential moving average.
// The average is sampled on every enqueue and every final release, so its
// rate is the buffer rate, not wall clock time.
type fillStats struct {
	maxFillLevel int
	avgFillLevel int32 // 16.16
}

func (s *fillStats) observeMax(level int) {
	if level > s.maxFillLevel {
		s.maxFillLevel = level
	}
}

// updateAvg applies avg += (level<<16 - avg) >> 4.
func (s *fillStats) updateAvg(level int) {
	sample := int32(level) << 16
	s.avgFillLevel += (sample - s.avgFillLevel) >> 4
}

func (s *fillStats) reset() {
	*s = fillStats{}
}

func (s *fillStats) snapshot(curr, low, high int) api.QueueStats {
	return api.QueueStats{
		CurrFillLevel:  curr,
		MaxFillLevel:   s.maxFillLevel,
		AvgFillLevel:   api.Fixed(uint32(s.avgFillLevel)),
		MeanTargetArea: meanTargetArea(low, high),
	}
}

// meanTargetArea is low + (high-low)/2 in 16.16.
func meanTargetArea(low, high int) api.Fixed {
	v := int32(low)<<16 + int32(high-low)<<15
	return api.Fixed(uint32(v))
}
