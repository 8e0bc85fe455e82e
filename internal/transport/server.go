package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultHandshakeWorkers = 10

// ErrListenFailed is logged, never returned, when Start cannot bind its
// listening socket; Start reports the same failure to its caller as a bool.
var ErrListenFailed = errors.New("transport: unable to start listener")

// client is one handshaken, broadcast-only connection.
type client struct {
	id   string
	conn net.Conn
}

// Server is a raw-TCP WebSocket server: it accepts connections, performs
// the RFC 6455 opening handshake itself, and then only ever writes framed
// text to clients. It never reads application data back.
type Server struct {
	address string
	port    int

	t    tomb.Tomb
	pool *workerPool

	mu      sync.Mutex
	clients map[string]*client

	listener net.Listener
}

// New builds a Server bound to address:port. It does not start listening
// until Start is called.
func New(address string, port int) *Server {
	s := &Server{
		address: address,
		port:    port,
		clients: make(map[string]*client),
	}
	s.pool = newWorkerPool(defaultHandshakeWorkers, s.handshakeConn)
	return s
}

// Start opens the listening socket and launches the accept loop and
// handshake pool under ctx. Returns false if the listener could not be
// opened.
func (s *Server) Start(ctx context.Context) bool {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(errors.Join(ErrListenFailed, err)).Msg("transport: unable to start listener")
		return false
	}
	s.listener = listener

	s.t.Go(func() error {
		s.pool.run(&s.t)
		return nil
	})

	s.t.Go(func() error {
		return s.acceptLoop()
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("transport: listening")
	return true
}

// Stop closes the listener, every client connection, and waits for the
// accept loop and handshake pool to exit. Safe to call more than once.
func (s *Server) Stop() error {
	s.t.Kill(nil)
	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.mu.Lock()
	for id, c := range s.clients {
		_ = c.conn.Close()
		delete(s.clients, id)
	}
	s.mu.Unlock()

	return s.t.Wait()
}

func (s *Server) acceptLoop() error {
	for {
		select {
		case <-s.t.Dying():
			return nil
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.t.Dying():
				return nil
			default:
				log.Error().Err(err).Msg("transport: accept error")
				continue
			}
		}

		s.pool.submit(&s.t, conn)
	}
}

// handshakeConn performs the opening handshake on a freshly accepted
// connection and, on success, registers it for broadcast.
func (s *Server) handshakeConn(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return fmt.Errorf("transport: unexpected task type %T", task)
	}

	id := uuid.New().String()
	log := log.With().Str("client", id).Logger()

	r := bufio.NewReader(conn)
	key, err := readHandshakeKey(r)
	if err != nil {
		log.Warn().Err(err).Msg("transport: handshake failed")
		_ = conn.Close()
		return nil
	}

	if _, err := conn.Write([]byte(handshakeResponse(key))); err != nil {
		log.Warn().Err(err).Msg("transport: failed writing handshake response")
		_ = conn.Close()
		return nil
	}

	s.mu.Lock()
	s.clients[id] = &client{id: id, conn: conn}
	s.mu.Unlock()

	log.Info().Msg("transport: client connected")
	return nil
}

// Broadcast sends payload as a single text frame to every connected client,
// dropping any client whose write fails.
func (s *Server) Broadcast(payload []byte) {
	frame := encodeFrame(payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.clients {
		if _, err := c.conn.Write(frame); err != nil {
			_ = c.conn.Close()
			delete(s.clients, id)
		}
	}
}

// ClientCount returns the number of currently connected, handshaken
// clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
