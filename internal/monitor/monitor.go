// Package monitor serves a read-only websocket feed of PCM stream status
// snapshots (SPEC_FULL.md §4.9), for dashboards that want to watch avail/
// delay/state without polling a REST endpoint.
//
// Grounded in the teacher's local signaling web server
// (internal/signaling/local.go: http.ServeMux + gorilla/websocket upgrade,
// one goroutine per connection pushing JSON messages), generalised here
// from a one-shot SDP/ICE handshake to a periodic status push.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lanikai/gopcm/internal/backend"
	"github.com/lanikai/gopcm/internal/logging"
)

var log = logging.DefaultLogger.WithTag("monitor")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Snapshot is the wire format pushed to each connected client.
type Snapshot struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	ApplPtr  uint64 `json:"applPtr"`
	HWPtr    uint64 `json:"hwPtr"`
	Avail    int64  `json:"avail"`
	AvailMax int64  `json:"availMax"`
	Delay    int64  `json:"delay"`
}

// StatusSource is the read-only view of a stream the monitor depends on.
// *pcm.Handle does not satisfy it as is (its Name is a field and its Status
// returns a pcm.Status), so a handle reaches the monitor through an adapter.
// It is an interface so this package never imports package pcm (which itself
// may import back-ends that import this package's siblings, and to keep
// the monitor testable against a fake).
type StatusSource interface {
	Name() string
	State() backend.State
	Status() (ApplPtr, HWPtr uint64, avail, availMax, delay int64, err error)
}

// Server serves GET /status (one snapshot) and GET /ws (a snapshot every
// Period until the client disconnects).
type Server struct {
	Period  time.Duration
	sources func() []StatusSource

	httpServer *http.Server
}

// New returns a Server whose snapshots come from calling sources on every
// tick; sources is typically a closure over a registry of open handles.
func New(addr string, sources func() []StatusSource) *Server {
	s := &Server{Period: 250 * time.Millisecond, sources: sources}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWebsocket)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe blocks serving HTTP until an error occurs or Shutdown is
// called.
func (s *Server) ListenAndServe() error {
	log.Info("status monitor listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) snapshots() []Snapshot {
	sources := s.sources()
	out := make([]Snapshot, 0, len(sources))
	for _, src := range sources {
		appl, hw, avail, availMax, delay, err := src.Status()
		if err != nil {
			log.Warn("status: %v", err)
			continue
		}
		out = append(out, Snapshot{
			Name:     src.Name(),
			State:    src.State().String(),
			ApplPtr:  appl,
			HWPtr:    hw,
			Avail:    avail,
			AvailMax: availMax,
			Delay:    delay,
		})
	}
	return out
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.snapshots())
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade: %v", err)
		return
	}
	defer ws.Close()

	ticker := time.NewTicker(s.Period)
	defer ticker.Stop()

	for range ticker.C {
		if err := ws.WriteJSON(s.snapshots()); err != nil {
			log.Debug("client disconnected: %v", err)
			return
		}
	}
}
