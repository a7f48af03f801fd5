// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mlx90640 talks to a Melexis MLX90640 32x24 thermal sensor over
// I²C.
//
// MLX90640 Datasheet:
//
//	https://www.melexis.com/en/documents/documentation/datasheets/datasheet-mlx90640
//	p. 9    Memory map and registers.
//	p. 13   Status register; data ready and subpage bits.
//	p. 14   Control register 1; refresh rate, resolution, reading pattern.
//	p. 17   Chess and interleaved reading patterns.
//	p. 21   Supply voltage and ambient temperature calculation.
//
// Official driver, used as a reference for the transactions:
//
//	https://github.com/melexis/mlx90640-library
//
// The per pixel object temperature compensation is not implemented; it is
// provided by the caller.
package mlx90640

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/physic"
)

// DefaultAddr is the factory I²C address.
const DefaultAddr = 0x33

// Sizes in 16 bits words.
const (
	// PixelWords is the number of words of RAM holding pixel and auxiliary
	// data.
	PixelWords = 832
	// FrameWords is PixelWords plus the control register and the subpage.
	FrameWords = PixelWords + 2
	// EEPROMWords is the size of the calibration EEPROM.
	EEPROMWords = 832
)

// ErrNotReady is returned when the sensor keeps overwriting the RAM while it
// is being read.
var ErrNotReady = errors.New("mlx90640: frame data kept changing while being read")

// RawFrame is one subpage as read from the sensor RAM.
type RawFrame [FrameWords]uint16

// Control returns the control register 1 value at the time of the read.
func (r *RawFrame) Control() uint16 {
	return r[PixelWords]
}

// SubPage returns the subpage the frame holds, 0 or 1.
func (r *RawFrame) SubPage() int {
	return int(r[PixelWords+1])
}

// EEPROM is the calibration data.
type EEPROM [EEPROMWords]uint16

// RefreshRate is the subpage rate. A full frame takes two subpages.
type RefreshRate uint8

// Valid values for RefreshRate.
const (
	RefreshRate0_5Hz RefreshRate = 0
	RefreshRate1Hz   RefreshRate = 1
	RefreshRate2Hz   RefreshRate = 2 // Factory default.
	RefreshRate4Hz   RefreshRate = 3
	RefreshRate8Hz   RefreshRate = 4
	RefreshRate16Hz  RefreshRate = 5
	RefreshRate32Hz  RefreshRate = 6
	RefreshRate64Hz  RefreshRate = 7
)

var refreshRateNames = [...]string{"0.5Hz", "1Hz", "2Hz", "4Hz", "8Hz", "16Hz", "32Hz", "64Hz"}

func (r RefreshRate) String() string {
	if int(r) < len(refreshRateNames) {
		return refreshRateNames[r]
	}
	return fmt.Sprintf("RefreshRate(%d)", r)
}

// Frequency returns the subpage rate.
func (r RefreshRate) Frequency() physic.Frequency {
	return 500 * physic.MilliHertz << r
}

// Period returns the time between two subpages.
func (r RefreshRate) Period() time.Duration {
	return time.Duration(int64(time.Second) * int64(physic.Hertz) / int64(r.Frequency()))
}

// ParseRefreshRate parses "16Hz" or "16".
func ParseRefreshRate(s string) (RefreshRate, error) {
	t := strings.TrimSuffix(strings.TrimSpace(s), "Hz")
	for i, n := range refreshRateNames {
		if strings.TrimSuffix(n, "Hz") == t {
			return RefreshRate(i), nil
		}
	}
	return 0, fmt.Errorf("mlx90640: unknown refresh rate %q", s)
}

// Mode is the reading pattern.
type Mode uint8

// Valid values for Mode.
const (
	Interleaved Mode = 0
	Chess       Mode = 1 // Factory default.
)

func (m Mode) String() string {
	switch m {
	case Interleaved:
		return "Inter"
	case Chess:
		return "Chess"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// Opts is optional.
type Opts struct {
	Addr  uint16           // Default: DefaultAddr
	Speed physic.Frequency // Default: leave the bus as is. The sensor supports up to 1MHz.
}

// Dev is a handle to a MLX90640.
type Dev struct {
	c    i2c.Dev
	addr uint16
}

// New opens a handle to the sensor and pings it.
func New(b i2c.Bus, opts *Opts) (*Dev, error) {
	addr := uint16(DefaultAddr)
	if opts != nil {
		if opts.Addr != 0 {
			addr = opts.Addr
		}
		if opts.Speed != 0 {
			if err := b.SetSpeed(opts.Speed); err != nil {
				return nil, err
			}
		}
	}
	d := &Dev{c: i2c.Dev{Bus: b, Addr: addr}, addr: addr}
	if _, err := d.Status(); err != nil {
		return nil, fmt.Errorf("mlx90640: not detected at 0x%02X: %w", addr, err)
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("MLX90640{%s}", &d.c)
}

// Halt implements conn.Resource. The sensor free runs, there is nothing to
// stop.
func (d *Dev) Halt() error {
	return nil
}

// Status returns the status register.
func (d *Dev) Status() (uint16, error) {
	return d.readWord(regStatus)
}

// RefreshRate returns the current subpage rate.
func (d *Dev) RefreshRate() (RefreshRate, error) {
	ctrl, err := d.readWord(regControl)
	return RefreshRate((ctrl & controlRateMask) >> controlRateShift), err
}

// SetRefreshRate changes the subpage rate. The change is immediate but not
// persisted in EEPROM.
func (d *Dev) SetRefreshRate(r RefreshRate) error {
	if r > RefreshRate64Hz {
		return fmt.Errorf("mlx90640: invalid refresh rate %d", r)
	}
	ctrl, err := d.readWord(regControl)
	if err != nil {
		return err
	}
	ctrl = ctrl&^controlRateMask | uint16(r)<<controlRateShift
	return d.writeVerify(regControl, ctrl)
}

// Mode returns the reading pattern.
func (d *Dev) Mode() (Mode, error) {
	ctrl, err := d.readWord(regControl)
	return Mode((ctrl & controlChess) >> controlChessShift), err
}

// DumpEE reads the calibration EEPROM.
func (d *Dev) DumpEE() (*EEPROM, error) {
	out := &EEPROM{}
	return out, d.readWords(eepromStart, out[:])
}

// Params reads the EEPROM and extracts the calibration from it.
func (d *Dev) Params() (*Params, error) {
	ee, err := d.DumpEE()
	if err != nil {
		return nil, err
	}
	return ExtractParams(ee)
}

// FrameData waits for the next subpage and reads it.
//
// It polls the data ready bit until ctx is done.
func (d *Dev) FrameData(ctx context.Context) (*RawFrame, error) {
	for {
		status, err := d.readWord(regStatus)
		if err != nil {
			return nil, err
		}
		if status&statusDataReady != 0 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollPeriod):
		}
	}

	out := &RawFrame{}
	var status uint16
	for i := 0; ; i++ {
		if i == maxReads {
			return nil, ErrNotReady
		}
		// Clear data ready, keep overwrite enabled and start the next
		// measurement.
		if err := d.writeWord(regStatus, statusOverwrite|statusStart); err != nil {
			return nil, err
		}
		if err := d.readWords(ramStart, out[:PixelWords]); err != nil {
			return nil, err
		}
		var err error
		if status, err = d.readWord(regStatus); err != nil {
			return nil, err
		}
		if status&statusDataReady == 0 {
			break
		}
	}
	ctrl, err := d.readWord(regControl)
	if err != nil {
		return nil, err
	}
	out[PixelWords] = ctrl
	out[PixelWords+1] = status & statusSubPage
	return out, nil
}

// Private details.

// Register addresses.
const (
	ramStart    = 0x0400
	eepromStart = 0x2400
	regStatus   = 0x8000
	regControl  = 0x800D
)

// Status register bits.
const (
	statusSubPage   = 0x0001
	statusDataReady = 0x0008
	statusOverwrite = 0x0010
	statusStart     = 0x0020
)

// Control register 1 bits.
const (
	controlRateMask        = 0x0380
	controlRateShift       = 7
	controlResolutionMask  = 0x0C00
	controlResolutionShift = 10
	controlChess           = 0x1000
	controlChessShift      = 12
)

const (
	pollPeriod = 2 * time.Millisecond
	maxReads   = 5
)

func (d *Dev) readWord(addr uint16) (uint16, error) {
	var b [1]uint16
	err := d.readWords(addr, b[:])
	return b[0], err
}

// readWords reads consecutive big endian words.
func (d *Dev) readWords(addr uint16, out []uint16) error {
	var w [2]byte
	binary.BigEndian.PutUint16(w[:], addr)
	r := make([]byte, 2*len(out))
	if err := d.c.Tx(w[:], r); err != nil {
		return fmt.Errorf("mlx90640: read 0x%04X: %w", addr, err)
	}
	for i := range out {
		out[i] = binary.BigEndian.Uint16(r[2*i:])
	}
	return nil
}

func (d *Dev) writeWord(addr, v uint16) error {
	var w [4]byte
	binary.BigEndian.PutUint16(w[:], addr)
	binary.BigEndian.PutUint16(w[2:], v)
	if err := d.c.Tx(w[:], nil); err != nil {
		return fmt.Errorf("mlx90640: write 0x%04X: %w", addr, err)
	}
	return nil
}

// writeVerify writes a register and reads it back.
func (d *Dev) writeVerify(addr, v uint16) error {
	if err := d.writeWord(addr, v); err != nil {
		return err
	}
	got, err := d.readWord(addr)
	if err != nil {
		return err
	}
	if got != v {
		return fmt.Errorf("mlx90640: register 0x%04X: wrote 0x%04X, read 0x%04X", addr, v, got)
	}
	return nil
}
