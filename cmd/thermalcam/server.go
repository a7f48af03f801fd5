// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/maruel/go-mlx90640/report"
	"github.com/maruel/go-mlx90640/store"
	"github.com/maruel/go-mlx90640/thermal"
	"github.com/maruel/interrupt"
	"golang.org/x/net/websocket"
)

// historyLen is the number of readouts shown on /history.
const historyLen = 600

// frame is one rendered screen. It is immutable once added.
type frame struct {
	png     []byte
	readout thermal.Readout
}

type WebServer struct {
	cond   sync.Cond
	frames [16]*frame // Two seconds worth of frames at 16Hz. Each frame is ~20kb.
	seq    int        // Number of frames added so far.
	store  *store.Store
	logger *slog.Logger
	mux    *http.ServeMux
}

func newWebServer(st *store.Store, logger *slog.Logger) *WebServer {
	w := &WebServer{
		store:  st,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	w.cond.L = &sync.Mutex{}
	w.mux.HandleFunc("/", w.root)
	w.mux.HandleFunc("/favicon.ico", w.still)
	w.mux.HandleFunc("/still.png", w.still)
	w.mux.HandleFunc("/readout", w.readout)
	w.mux.HandleFunc("/history", w.history)
	w.mux.HandleFunc("/history.png", w.historyPNG)
	w.mux.Handle("/stream", websocket.Handler(w.stream))
	go func() {
		<-interrupt.Channel
		w.cond.Broadcast()
	}()
	return w
}

// Start listens on port in the background.
func (s *WebServer) Start(port int) (net.Addr, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	s.logger.Info("listening", "addr", ln.Addr().String())
	go func() {
		if err := http.Serve(ln, loggingHandler{s.mux, s.logger}); err != nil {
			s.logger.Error("http server", "err", err)
		}
	}()
	return ln.Addr(), nil
}

// AddFrame encodes the screen and wakes up the streams.
func (s *WebServer) AddFrame(screen image.Image, r thermal.Readout) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, screen); err != nil {
		return err
	}
	f := &frame{png: buf.Bytes(), readout: r}
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.frames[s.seq%len(s.frames)] = f
	s.seq++
	s.cond.Broadcast()
	return nil
}

func (s *WebServer) last() *frame {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	if s.seq == 0 {
		return nil
	}
	return s.frames[(s.seq-1)%len(s.frames)]
}

func (s *WebServer) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write(read("root.html")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *WebServer) still(w http.ResponseWriter, r *http.Request) {
	f := s.last()
	if f == nil {
		http.Error(w, "No frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Write(f.png)
}

func (s *WebServer) readout(w http.ResponseWriter, r *http.Request) {
	f := s.last()
	if f == nil {
		http.Error(w, "No frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&f.readout); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *WebServer) history(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Recent(r.Context(), historyLen)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	var buf bytes.Buffer
	if err := report.Chart(&buf, records); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(buf.Bytes())
}

func (s *WebServer) historyPNG(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Recent(r.Context(), historyLen)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := report.WritePNG(&buf, records); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// stream sends the screens as WebSocket frames.
//
// It starts with the most recent screen, then sends each new one. A client
// that falls behind by more than the ring size skips the oldest ones.
func (s *WebServer) stream(w *websocket.Conn) {
	s.logger.Info("websocket", "remote", w.Request().RemoteAddr)
	defer w.Close()
	buf := &bytes.Buffer{}
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	next := s.seq - 1
	if next < 0 {
		next = 0
	}
	for !interrupt.IsSet() {
		if next == s.seq {
			s.cond.Wait()
			continue
		}
		if s.seq-next > len(s.frames) {
			next = s.seq - len(s.frames)
		}
		f := s.frames[next%len(s.frames)]
		next++
		s.cond.L.Unlock()
		// Do the actual I/O without the lock.
		err := sendFrame(w, buf, f)
		s.cond.L.Lock()
		// To break out of the loop, the lock must be held.
		if err != nil {
			s.logger.Info("websocket closed", "err", err)
			break
		}
	}
}

// sendFrame sends an I frame, for Image, with the base64 encoded PNG then a M
// frame, for Metadata, with the JSON encoded readout.
func sendFrame(w *websocket.Conn, buf *bytes.Buffer, f *frame) error {
	buf.Reset()
	buf.WriteString("I")
	encoder := base64.NewEncoder(base64.StdEncoding, buf)
	encoder.Write(f.png)
	encoder.Close()
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	buf.Reset()
	buf.WriteString("M")
	if err := json.NewEncoder(buf).Encode(&f.readout); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Private details.

type loggingHandler struct {
	handler http.Handler
	logger  *slog.Logger
}

type loggingResponseWriter struct {
	http.ResponseWriter
	length int
	status int
}

func (l *loggingResponseWriter) Write(data []byte) (size int, err error) {
	size, err = l.ResponseWriter.Write(data)
	l.length += size
	return
}

func (l *loggingResponseWriter) WriteHeader(status int) {
	l.ResponseWriter.WriteHeader(status)
	l.status = status
}

// Hijack is needed for websocket.
func (l *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h := l.ResponseWriter.(http.Hijacker)
	return h.Hijack()
}

// ServeHTTP logs each HTTP request at debug level.
func (l loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
	l.handler.ServeHTTP(lrw, r)
	l.logger.Debug("http", "remote", r.RemoteAddr, "status", lrw.status, "size", lrw.length, "method", r.Method, "uri", r.RequestURI)
}
