// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package serialout

import (
	"bytes"
	"errors"
	"testing"

	"github.com/maruel/go-mlx90640/thermal"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestOptions_Normalize(t *testing.T) {
	got, err := Options{Parity: " even "}.Normalize()
	require.NoError(t, err)
	require.Equal(t, Options{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "E"}, got)

	for _, o := range []Options{{DataBits: 9}, {StopBits: 3}, {Parity: "mark"}} {
		_, err := o.Normalize()
		require.Error(t, err, "%+v", o)
	}
}

func TestOptions_SerialMode(t *testing.T) {
	m, err := Options{BaudRate: 9600, StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	require.Equal(t, &serial.Mode{BaudRate: 9600, DataBits: 8, StopBits: serial.TwoStopBits, Parity: serial.OddParity}, m)

	m, err = Options{}.SerialMode()
	require.NoError(t, err)
	require.Equal(t, serial.OneStopBit, m.StopBits)
	require.Equal(t, serial.NoParity, m.Parity)

	_, err = Options{DataBits: 4}.SerialMode()
	require.Error(t, err)
}

func TestWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	require.NoError(t, w.Write(&thermal.Readout{Min: 20, Max: 40.04, Center: 30.26, Vdd: 3.3186}))
	require.NoError(t, w.Write(&thermal.Readout{Min: -1.5, Max: 2, Center: 0, Vdd: 3.3}))
	require.Equal(t, "t_max,t_min,t_center,vdd\n40.0,20.0,30.3,3.32\n2.0,-1.5,0.0,3.30\n", buf.String())
	require.NoError(t, w.Close())
}

func TestWriter_err(t *testing.T) {
	w := NewWriter(failWriter{})
	require.Error(t, w.Write(&thermal.Readout{}))
}

func TestOpen_fail(t *testing.T) {
	_, err := Open("/dev/does-not-exist", Options{})
	require.Error(t, err)
	_, err = Open("/dev/does-not-exist", Options{Parity: "x"})
	require.Error(t, err)
}

//

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("port closed")
}
