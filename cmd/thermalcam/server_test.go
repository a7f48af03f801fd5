// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maruel/go-mlx90640/store"
	"github.com/maruel/go-mlx90640/thermal"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestWebServer_still(t *testing.T) {
	ws, srv := newTestServer(t)
	resp := get(t, srv.URL+"/still.png")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, ws.AddFrame(solid(color.RGBA{255, 0, 10, 255}), thermal.Readout{Seq: 1, Max: 30}))
	resp = get(t, srv.URL+"/still.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	r, g, b, _ := img.At(1, 1).RGBA()
	require.Equal(t, [3]uint32{255, 0, 10}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestWebServer_readout(t *testing.T) {
	ws, srv := newTestServer(t)
	require.NoError(t, ws.AddFrame(solid(color.RGBA{A: 255}), thermal.Readout{Seq: 1}))
	require.NoError(t, ws.AddFrame(solid(color.RGBA{A: 255}), thermal.Readout{Seq: 2, Max: 36.5, Vdd: 3.3}))
	resp := get(t, srv.URL+"/readout")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got thermal.Readout
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, 2, got.Seq)
	require.Equal(t, float32(36.5), got.Max)
}

func TestWebServer_root(t *testing.T) {
	_, srv := newTestServer(t)
	resp := get(t, srv.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "/stream")

	resp = get(t, srv.URL+"/missing")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebServer_history(t *testing.T) {
	ws, srv := newTestServer(t)
	resp := get(t, srv.URL+"/history.png")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r := thermal.Readout{Seq: i + 1, Time: base.Add(time.Duration(i) * time.Second), Min: 20, Max: 30 + float32(i), Center: 25, Vdd: 3.3}
		require.NoError(t, ws.store.Insert(context.Background(), "s", &r))
	}
	resp = get(t, srv.URL+"/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "Thermography history")

	resp = get(t, srv.URL+"/history.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = png.Decode(resp.Body)
	require.NoError(t, err)
}

func TestWebServer_stream(t *testing.T) {
	ws, srv := newTestServer(t)
	require.NoError(t, ws.AddFrame(solid(color.RGBA{A: 255}), thermal.Readout{Seq: 1}))
	require.NoError(t, ws.AddFrame(solid(color.RGBA{A: 255}), thermal.Readout{Seq: 2}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	// The latest frame is sent first.
	require.Equal(t, 2, receive(t, conn).Seq)
	require.NoError(t, ws.AddFrame(solid(color.RGBA{A: 255}), thermal.Readout{Seq: 3}))
	require.Equal(t, 3, receive(t, conn).Seq)
}

func TestWebServer_streamCatchUp(t *testing.T) {
	ws, srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, ws.AddFrame(solid(color.RGBA{A: 255}), thermal.Readout{Seq: 1}))
	require.Equal(t, 1, receive(t, conn).Seq)
	// Frames added while the client is not reading are all sent in order.
	for i := 2; i <= 4; i++ {
		require.NoError(t, ws.AddFrame(solid(color.RGBA{A: 255}), thermal.Readout{Seq: i}))
	}
	for i := 2; i <= 4; i++ {
		require.Equal(t, i, receive(t, conn).Seq)
	}
}

func TestLoggingHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := loggingHandler{http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("hello"))
	}), logger}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/tea", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Contains(t, buf.String(), "status=418")
	require.Contains(t, buf.String(), "size=5")
	require.Contains(t, buf.String(), "uri=/tea")
}

//

func newTestServer(t *testing.T) (*WebServer, *httptest.Server) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })
	ws := newWebServer(st, logger)
	srv := httptest.NewServer(loggingHandler{ws.mux, logger})
	t.Cleanup(srv.Close)
	return ws, srv
}

func get(t *testing.T, url string) *http.Response {
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func solid(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// receive reads one I frame and one M frame.
func receive(t *testing.T, conn *websocket.Conn) thermal.Readout {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg string
	require.NoError(t, websocket.Message.Receive(conn, &msg))
	require.True(t, strings.HasPrefix(msg, "I"), msg)
	data, err := base64.StdEncoding.DecodeString(msg[1:])
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	require.NoError(t, websocket.Message.Receive(conn, &msg))
	require.True(t, strings.HasPrefix(msg, "M"), msg)
	var r thermal.Readout
	require.NoError(t, json.Unmarshal([]byte(msg[1:]), &r))
	return r
}
