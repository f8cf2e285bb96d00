package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeTimeout = time.Second

// upgrader accepts connections from pages on the same host and from localhost.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil {
			return false
		}

		if u.Scheme != "http" && u.Scheme != "https" {
			return false
		}

		if strings.EqualFold(u.Host, r.Host) {
			return true
		}

		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return true
		}

		return false
	},
}

// meterServer streams meter readings to every connected WebSocket client.
type meterServer struct {
	logger zerolog.Logger
	srv    *http.Server
	ln     net.Listener

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// listenMeter starts serving readings on addr at "/meter".
func listenMeter(addr string, logger zerolog.Logger) (*meterServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &meterServer{
		logger: logger,
		ln:     ln,
		conns:  make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/meter", s.handle)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("meter server stopped")
		}
	}()

	logger.Info().Str("url", "ws://"+ln.Addr().String()+"/meter").Msg("serving meter readings")

	return s, nil
}

// Addr returns the listening address.
func (s *meterServer) Addr() string {
	return s.ln.Addr().String()
}

func (s *meterServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")

		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("meter client connected")

	// Clients only listen, reading detects the close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(conn)

				return
			}
		}
	}()
}

// Broadcast sends level to all clients, dropping the ones that fail.
func (s *meterServer) Broadcast(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(levelJSON{Level: level}); err != nil {
			delete(s.conns, conn)
			_ = conn.Close()
		}
	}
}

func (s *meterServer) drop(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[conn]; ok {
		delete(s.conns, conn)
		_ = conn.Close()
	}
}

// Close disconnects all clients and stops the server.
func (s *meterServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
		_ = conn.Close()
		delete(s.conns, conn)
	}
	s.mu.Unlock()

	return s.srv.Shutdown(ctx)
}
