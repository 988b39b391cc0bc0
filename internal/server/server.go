// Package server accepts inbound connections and multiplexes framed
// traffic across a peer table. The table is mutated only by the thread
// driving Start/Stop/Poll/Send; snapshots are safe to read anywhere.
package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/peerwire/internal/async"
	"github.com/danmuck/peerwire/internal/observability"
	"github.com/danmuck/peerwire/internal/peer"
	"github.com/danmuck/peerwire/internal/protocol"
	"github.com/rs/zerolog/log"
)

const scratchSize = 32 * 1024

type Config struct {
	BindHost string // empty binds all interfaces
	BindPort uint16
	MaxPeers int // 0 = unlimited
	Limits   protocol.Limits
}

// Events are push-style observations, invoked on the polling thread. A
// nil field is simply not invoked.
type Events struct {
	OnStarted          func()
	OnStopped          func()
	OnPeerConnected    func(p *peer.Peer)
	OnPeerDisconnected func(id uint32, reason string)
	OnMessage          func(peerID uint32, m protocol.Message)
	OnDecodeError      func(peerID uint32, err error)
}

type entry struct {
	peer    *peer.Peer
	conn    net.Conn
	asm     *protocol.Assembler
	scratch []byte
}

type Server struct {
	cfg    Config
	name   string
	events Events

	mu      sync.RWMutex
	ln      *net.TCPListener
	running bool
	peers   map[uint32]*entry
	nextID  uint32
	pings   *pingLedger
}

func New(cfg Config) *Server {
	return &Server{
		cfg:   cfg,
		name:  "server:" + net.JoinHostPort(cfg.BindHost, strconv.Itoa(int(cfg.BindPort))),
		peers: make(map[uint32]*entry),
		pings: newPingLedger(),
	}
}

// Handle registers the observation callbacks. Call before Start.
func (s *Server) Handle(ev Events) {
	s.events = ev
}

func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound listen address, useful when BindPort was 0.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	addr := net.JoinHostPort(s.cfg.BindHost, strconv.Itoa(int(s.cfg.BindPort)))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.ln = ln.(*net.TCPListener)
	s.running = true
	s.mu.Unlock()

	log.Info().Str("node", s.name).Str("addr", ln.Addr().String()).Msg("started")
	if s.events.OnStarted != nil {
		s.events.OnStarted()
	}
	return nil
}

// Stop closes the listener and forcibly disconnects every peer. A stopped
// server can be started again.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	if s.ln != nil {
		s.ln.Close()
		s.ln = nil
	}
	s.mu.Unlock()

	s.DisconnectAll()
	log.Info().Str("node", s.name).Msg("stopped")
	if s.events.OnStopped != nil {
		s.events.OnStopped()
	}
}

func (s *Server) GetPeer(id uint32) (*peer.Peer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.peers[id]
	if !ok {
		return nil, false
	}
	return e.peer, true
}

// GetPeers returns a snapshot of the table; the peers themselves are
// owned by the server.
func (s *Server) GetPeers() []*peer.Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*peer.Peer, 0, len(s.peers))
	for _, e := range s.peers {
		out = append(out, e.peer)
	}
	return out
}

func (s *Server) GetPeerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// DisconnectPeer removes id from the table, a no-op when unknown.
func (s *Server) DisconnectPeer(id uint32, reason string) {
	if s.removePeer(id, reason) {
		s.emitPeerDisconnected(id, reason)
	}
}

func (s *Server) DisconnectAll() {
	s.mu.RLock()
	ids := make([]uint32, 0, len(s.peers))
	for id := range s.peers {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	for _, id := range ids {
		s.DisconnectPeer(id, "")
	}
}

// Send writes m to one connected peer. A write failure is returned to the
// caller and tears the peer down through the normal disconnect path.
func (s *Server) Send(id uint32, m protocol.Message) error {
	s.mu.RLock()
	e, ok := s.peers[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrPeerNotFound, id)
	}
	if !e.peer.IsConnected() {
		return fmt.Errorf("%w: %d", ErrPeerNotConnected, id)
	}

	buf := protocol.Encode(m)
	if _, err := e.conn.Write(buf); err != nil {
		err = fmt.Errorf("%w: peer %d: %v", ErrSendFailed, id, err)
		s.DisconnectPeer(id, err.Error())
		return err
	}
	e.peer.Touch()
	observability.RecordMessageSent(s.name, m.Type.String(), len(buf))
	return nil
}

// SendAsync resolves its handle to the result Send would return.
func (s *Server) SendAsync(id uint32, m protocol.Message) *async.Op {
	return async.Run(func() error { return s.Send(id, m) })
}

// Broadcast writes m to every connected peer. One dead peer must not
// block delivery to the others: failures are collected per peer, the
// fan-out continues, and failing peers are disconnected afterwards.
func (s *Server) Broadcast(m protocol.Message) error {
	if !s.IsRunning() {
		return ErrNotRunning
	}
	type target struct {
		id uint32
		e  *entry
	}
	s.mu.RLock()
	targets := make([]target, 0, len(s.peers))
	for id, e := range s.peers {
		if e.peer.IsConnected() {
			targets = append(targets, target{id: id, e: e})
		}
	}
	s.mu.RUnlock()

	buf := protocol.Encode(m)
	var errs []error
	var failed []uint32
	for _, t := range targets {
		if _, err := t.e.conn.Write(buf); err != nil {
			errs = append(errs, fmt.Errorf("%w: peer %d: %v", ErrSendFailed, t.id, err))
			failed = append(failed, t.id)
			observability.RecordBroadcastFailure(s.name)
			continue
		}
		t.e.peer.Touch()
		observability.RecordMessageSent(s.name, m.Type.String(), len(buf))
	}
	for i, id := range failed {
		s.DisconnectPeer(id, errs[i].Error())
	}
	return errors.Join(errs...)
}

// Ping times the round trip to one peer. The matching pong updates that
// peer's rtt estimate.
func (s *Server) Ping(id uint32) error {
	item := s.pings.begin(id, time.Now())
	m := protocol.NewMessage(protocol.MessagePing, 0, id, nil)
	m.Sequence = item.Sequence
	if err := s.Send(id, m); err != nil {
		s.pings.resolve(id, item.Sequence, time.Now())
		return err
	}
	return nil
}

// Poll accepts newly arrived connections and drains every peer's socket
// without blocking. Call once per application tick.
func (s *Server) Poll() {
	if !s.IsRunning() {
		return
	}
	s.acceptPending()
	s.drainPeers()
}

func (s *Server) acceptPending() {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return
	}

	for {
		ln.SetDeadline(time.Now())
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, os.ErrDeadlineExceeded) {
				log.Warn().Str("node", s.name).Err(err).Msg("accept_failed")
			}
			break
		}

		s.mu.Lock()
		if s.cfg.MaxPeers > 0 && len(s.peers) >= s.cfg.MaxPeers {
			s.mu.Unlock()
			conn.Close()
			log.Warn().Str("node", s.name).
				Str("remote", conn.RemoteAddr().String()).
				Int("max_peers", s.cfg.MaxPeers).
				Msg("peer_refused")
			continue
		}
		id := s.assignIDLocked()
		host, port := splitRemote(conn.RemoteAddr())
		p := peer.New(id, host, port)
		p.SetState(peer.Connecting)
		s.peers[id] = &entry{
			peer:    p,
			conn:    conn,
			asm:     protocol.NewAssembler(s.cfg.Limits),
			scratch: make([]byte, scratchSize),
		}
		count := len(s.peers)
		s.mu.Unlock()

		observability.SetPeerCount(s.name, count)
		// Peers announce on first message, not at accept.
		log.Info().Str("node", s.name).Uint32("peer", p.ID()).
			Str("remote", conn.RemoteAddr().String()).
			Msg("peer_accepted")
	}
}

func (s *Server) drainPeers() {
	s.mu.RLock()
	ids := make([]uint32, 0, len(s.peers))
	for id := range s.peers {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.drainPeer(id)
	}
}

func (s *Server) drainPeer(id uint32) {
	s.mu.RLock()
	e, ok := s.peers[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	e.conn.SetReadDeadline(time.Now())
	n, readErr := e.conn.Read(e.scratch)
	if n > 0 {
		e.asm.Feed(e.scratch[:n])
		e.peer.Touch()
	}

	for {
		m, ok, err := e.asm.Next()
		if err != nil {
			observability.RecordDecodeError(s.name)
			log.Warn().Str("node", s.name).Uint32("peer", id).Err(err).Msg("frame_dropped")
			if s.events.OnDecodeError != nil {
				s.events.OnDecodeError(id, err)
			}
			continue
		}
		if !ok {
			break
		}
		// First decoded message is the handshake-equivalent step that
		// promotes the peer to Connected.
		if e.peer.State() == peer.Connecting {
			e.peer.SetState(peer.Connected)
			if s.events.OnPeerConnected != nil {
				s.events.OnPeerConnected(e.peer)
			}
		}
		if m.Type == protocol.MessagePong {
			if rtt, ok := s.pings.resolve(id, m.Sequence, time.Now()); ok {
				e.peer.UpdateRTT(uint32(rtt.Milliseconds()))
			}
		}
		observability.RecordMessageReceived(s.name, m.Type.String())
		if s.events.OnMessage != nil {
			s.events.OnMessage(id, m)
		}
	}

	if readErr != nil && !errors.Is(readErr, os.ErrDeadlineExceeded) {
		reason := readErr.Error()
		if isClosedErr(readErr) {
			reason = "connection closed by peer"
		}
		s.DisconnectPeer(id, reason)
	}
}

func (s *Server) removePeer(id uint32, reason string) bool {
	s.mu.Lock()
	e, ok := s.peers[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.peers, id)
	count := len(s.peers)
	s.mu.Unlock()

	e.peer.SetState(peer.Disconnecting)
	e.conn.Close()
	e.peer.SetState(peer.Disconnected)
	s.pings.drop(id)
	observability.SetPeerCount(s.name, count)
	log.Info().Str("node", s.name).Uint32("peer", id).Str("reason", reason).Msg("peer_disconnected")
	return true
}

func (s *Server) emitPeerDisconnected(id uint32, reason string) {
	if s.events.OnPeerDisconnected != nil {
		s.events.OnPeerDisconnected(id, reason)
	}
}

// assignIDLocked hands out the next free id, skipping the reserved
// broadcast id 0 and any id still in the table.
func (s *Server) assignIDLocked() uint32 {
	for {
		s.nextID++
		if s.nextID == protocol.BroadcastID {
			continue
		}
		if _, taken := s.peers[s.nextID]; !taken {
			return s.nextID
		}
	}
}

func splitRemote(addr net.Addr) (string, uint16) {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, uint16(port)
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}
