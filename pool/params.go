// File: pool/params.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"github.com/momentics/mediabuf/api"
)

// SetParameter updates a watermark. It does not fire notifications for the
// current fill level.
func (p *Pool) SetParameter(id api.ParamID, value int) error {
	if !p.alive() {
		return api.ErrInvalidHandle
	}
	if err := checkWatermark(value); err != nil {
		return err
	}
	switch id {
	case api.ParamHighWatermark:
		p.highWatermark = value
	case api.ParamLowWatermark:
		p.lowWatermark = value
	default:
		return api.ErrInvalidParameter.WithContext("param", int(id))
	}
	return nil
}

// GetParameter reads a watermark.
func (p *Pool) GetParameter(id api.ParamID) (int, error) {
	if !p.alive() {
		return 0, api.ErrInvalidHandle
	}
	switch id {
	case api.ParamHighWatermark:
		return p.highWatermark, nil
	case api.ParamLowWatermark:
		return p.lowWatermark, nil
	default:
		return 0, api.ErrInvalidParameter.WithContext("param", int(id))
	}
}
