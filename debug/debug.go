// Package debug implements an always-on loopback dump server: every
// pipeline-module flush and flow-rule mutation can be pushed to
// subscribed websocket clients, glob-filtered by topic. Reworked from
// the teacher's signal-triggered stack/heap/CPU dump into a push server
// per the CLI debug-dump contract (spec.md §6).
package debug

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gobwas/glob"
	"github.com/gorilla/websocket"
)

// Event is one pushed debug record: Topic names the subsystem ("npc.mcam",
// "flm.scrub", "tpe.rpl", ...) and Data carries an arbitrary
// JSON-serializable payload.
type Event struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

type subscriber struct {
	conn   *websocket.Conn
	filter glob.Glob
	send   chan Event
}

// Server is a loopback-only websocket dump server. Each connecting
// client supplies a glob pattern (as the "topic" query parameter,
// default "*") and receives every Event whose Topic matches it.
type Server struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
}

// NewServer constructs a Server ready to be wired into an http.Server.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// ListenLoopback binds a TCP listener on 127.0.0.1:port (port 0 picks a
// free port) and serves the dump endpoint on it until the returned
// closer is invoked. Callers outside test code should bind only to
// loopback, matching the original signal-handler's local-only intent.
func (s *Server) ListenLoopback(port int) (addr string, closeFn func() error, err error) {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/dump", s.handleDump)
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	return ln.Addr().String(), func() error { return srv.Close() }, nil
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("topic")
	if pattern == "" {
		pattern = "*"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		http.Error(w, "invalid topic glob", http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sub := &subscriber{conn: conn, filter: g, send: make(chan Event, 64)}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		conn.Close()
	}()

	for ev := range sub.send {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// Publish pushes ev to every subscriber whose glob filter matches
// ev.Topic. Subscribers with a full send buffer are dropped rather than
// blocking the publisher.
func (s *Server) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if !sub.filter.Match(ev.Topic) {
			continue
		}
		select {
		case sub.send <- ev:
		default:
			delete(s.subs, sub)
			close(sub.send)
		}
	}
}

// marshalable is a small helper exercised by tests to confirm Event
// payloads round-trip through JSON the way the wire protocol requires.
func marshalable(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}
