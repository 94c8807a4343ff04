package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/krzsas/security-manager/pkg/events"
	"github.com/krzsas/security-manager/pkg/log"
)

// eventQueueSize buffers lifecycle events per service. Producers block
// when the worker falls behind; nothing is dropped.
const eventQueueSize = 64

// readBufferSize is the per-connection read chunk
const readBufferSize = 4096

// Server is the socket multiplexer: it owns the unix listeners of all
// registered services, translates transport readiness into typed
// lifecycle events, and routes each event to the owning service's
// worker queue. The multiplexer side never blocks on service logic.
type Server struct {
	mu       sync.Mutex
	services []*service
	running  bool
	wg       sync.WaitGroup
}

// New creates an empty server; services must be registered before Run
func New() *Server {
	return &Server{}
}

// RegisterService adds a service to the fixed dispatch set. Registration
// after Run is a programmer error.
func (s *Server) RegisterService(h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("cannot register service while server is running")
	}
	desc := h.Description()
	for _, svc := range s.services {
		if svc.desc.SocketPath == desc.SocketPath {
			return fmt.Errorf("socket path %s already registered", desc.SocketPath)
		}
	}
	s.services = append(s.services, &service{
		handler: h,
		desc:    desc,
		queue:   events.NewQueue(eventQueueSize),
		conns:   map[string]*conn{},
		logger:  log.WithService(desc.Name),
	})
	return nil
}

// Run opens every service socket, starts one worker goroutine per
// service plus the accept/read producers, and blocks until ctx is
// cancelled. On return all listeners and connections are closed.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	services := s.services
	s.mu.Unlock()

	if len(services) == 0 {
		return fmt.Errorf("no services registered")
	}

	for _, svc := range services {
		if err := s.listen(svc); err != nil {
			// Unwind sockets opened so far
			for _, prev := range services {
				if prev.listener != nil {
					prev.listener.Close()
				}
			}
			return err
		}
	}

	for _, svc := range services {
		s.wg.Add(2)
		go func(svc *service) {
			defer s.wg.Done()
			svc.run()
		}(svc)
		go func(svc *service) {
			defer s.wg.Done()
			s.acceptLoop(svc)
		}(svc)
	}

	<-ctx.Done()

	for _, svc := range services {
		svc.listener.Close()
		svc.queue.Stop()
	}
	s.wg.Wait()
	return nil
}

// listen binds the service's unix socket, replacing any stale socket
// file from a previous run
func (s *Server) listen(svc *service) error {
	path := svc.desc.SocketPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", path, err)
	}

	// Clients are untrusted local processes; authorization happens per
	// request from peer credentials, not via socket permissions.
	if err := os.Chmod(path, 0o666); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket %s: %w", path, err)
	}

	svc.listener = ln
	svc.logger.Info().Str("socket", path).Msg("service listening")
	return nil
}

// acceptLoop turns accepted connections into Accept events and spawns
// the per-connection read producer
func (s *Server) acceptLoop(svc *service) {
	for {
		nc, err := svc.listener.Accept()
		if err != nil {
			// Listener closed during shutdown
			return
		}

		creds, err := peerCredentials(nc)
		if err != nil {
			svc.logger.Warn().Err(err).Msg("cannot read peer credentials, dropping connection")
			nc.Close()
			continue
		}

		id := uuid.NewString()
		svc.queue.Push(events.Event{
			Type:   events.EventAccept,
			ConnID: id,
			Conn:   nc,
			Creds:  creds,
		})

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.readLoop(svc, id, nc)
		}()
	}
}

// readLoop translates socket readability into Read events and the
// final EOF or error into a Close event
func (s *Server) readLoop(svc *service, id string, nc net.Conn) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			svc.queue.Push(events.Event{Type: events.EventRead, ConnID: id, Data: data})
		}
		if err != nil {
			svc.queue.Push(events.Event{Type: events.EventClose, ConnID: id})
			return
		}
	}
}
