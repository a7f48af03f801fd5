// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mlx90640

import (
	"errors"
	"fmt"
)

// Params is the supply voltage and ambient temperature calibration,
// extracted from the EEPROM.
type Params struct {
	KVdd         int16
	Vdd25        int16
	KvPTAT       float64
	KtPTAT       float64
	VPTAT25      int16
	AlphaPTAT    float64
	ResolutionEE uint8
}

// ExtractParams decodes the calibration needed by Vdd and Ta.
func ExtractParams(ee *EEPROM) (*Params, error) {
	if ee == nil {
		return nil, errors.New("mlx90640: nil EEPROM")
	}
	p := &Params{
		KVdd:         int16(int8(ee[eeVdd]>>8)) * 32,
		Vdd25:        (int16(ee[eeVdd]&0xFF)-256)<<5 - 8192,
		KvPTAT:       float64(signed(ee[eePTAT]>>10, 6)) / 4096,
		KtPTAT:       float64(signed(ee[eePTAT]&0x03FF, 10)) / 8,
		VPTAT25:      int16(ee[eeVPTAT25]),
		AlphaPTAT:    float64(ee[eeScaleOcc]&0xF000)/(1<<14) + 8,
		ResolutionEE: uint8((ee[eeResolution] & 0x3000) >> 12),
	}
	if p.KVdd == 0 {
		return nil, fmt.Errorf("mlx90640: invalid EEPROM: kVdd is 0 (0x%04X)", ee[eeVdd])
	}
	if p.KtPTAT == 0 {
		return nil, fmt.Errorf("mlx90640: invalid EEPROM: KtPTAT is 0 (0x%04X)", ee[eePTAT])
	}
	return p, nil
}

// Vdd returns the supply voltage in volts at the time raw was measured.
func (p *Params) Vdd(raw *RawFrame) float64 {
	vdd := float64(int16(raw[ramVdd]))
	resRAM := (raw.Control() & controlResolutionMask) >> controlResolutionShift
	corr := float64(uint(1)<<p.ResolutionEE) / float64(uint(1)<<resRAM)
	return (corr*vdd-float64(p.Vdd25))/float64(p.KVdd) + 3.3
}

// Ta returns the sensor die temperature in °C at the time raw was measured.
func (p *Params) Ta(raw *RawFrame) float64 {
	vdd := p.Vdd(raw)
	ptat := float64(int16(raw[ramPTAT]))
	art := float64(int16(raw[ramPTATArt]))
	art = ptat / (ptat*p.AlphaPTAT + art) * (1 << 18)
	ta := art/(1+p.KvPTAT*(vdd-3.3)) - float64(p.VPTAT25)
	return ta/p.KtPTAT + 25
}

// signed sign extends the lower n bits of v.
func signed(v uint16, n uint) int16 {
	v &= 1<<n - 1
	if v >= 1<<(n-1) {
		return int16(v) - 1<<n
	}
	return int16(v)
}

// EEPROM word offsets.
const (
	eeScaleOcc   = 16
	eeVPTAT25    = 49
	eePTAT       = 50
	eeVdd        = 51
	eeResolution = 56
)

// RAM word offsets.
const (
	ramPTATArt = 768
	ramPTAT    = 800
	ramVdd     = 810
)
