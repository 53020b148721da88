// Package amitest provides an in-process Asterisk manager for tests.
package amitest

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// DefaultBanner is the greeting sent on connect.
const DefaultBanner = "Asterisk Call Manager/7.0.3"

// Request is one action received by the server.
type Request struct {
	Action  string
	Headers map[string]string
}

// Get returns the header value for key, case-insensitively.
func (r Request) Get(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// Reply describes how the server answers a request.
type Reply struct {
	// Lines are the reply lines; the ActionID is inserted after the first.
	Lines []string
	// Legacy sends Lines as the body of a "Response: Follows" reply
	// terminated by --END COMMAND--.
	Legacy bool
	// Hang never answers.
	Hang bool
	// Close drops the connection instead of answering.
	Close bool
	Delay time.Duration
}

type route struct {
	match func(Request) bool
	reply func(Request) Reply
}

// Server is a fake manager listening on a loopback port.
type Server struct {
	User   string
	Secret string
	Banner string
	// EventBeforeReply emits an unsolicited event before every reply.
	EventBeforeReply bool

	ln     net.Listener
	mu     sync.Mutex
	routes []route
	conns  map[net.Conn]struct{}
	wg     sync.WaitGroup
	closed atomic.Bool

	accepted atomic.Int32
	logins   atomic.Int32
	requests atomic.Int32
}

// NewServer starts a server accepting user/secret. It is closed on test cleanup.
func NewServer(t testing.TB, user, secret string) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("amitest: listen: %v", err)
	}
	s := &Server{
		User:   user,
		Secret: secret,
		Banner: DefaultBanner,
		ln:     ln,
		conns:  make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

// Addr returns host:port of the listener.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Accepted returns the number of TCP connections accepted.
func (s *Server) Accepted() int { return int(s.accepted.Load()) }

// Logins returns the number of successful logins.
func (s *Server) Logins() int { return int(s.logins.Load()) }

// Requests returns the number of post-login requests served.
func (s *Server) Requests() int { return int(s.requests.Load()) }

// Handle registers a route. Later routes take precedence.
func (s *Server) Handle(match func(Request) bool, reply func(Request) Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, route{match: match, reply: reply})
}

// OnAction answers action when every header in match is present with the
// given value. lines follow the ActionID.
func (s *Server) OnAction(action string, match map[string]string, lines ...string) {
	s.Handle(actionMatcher(action, match), func(Request) Reply {
		return Reply{Lines: append([]string{"Response: Success"}, lines...)}
	})
}

// OnCommand answers a Command action with modern "Output:" lines.
func (s *Server) OnCommand(command string, output ...string) {
	lines := []string{"Response: Success", "Message: Command output follows"}
	for _, o := range output {
		lines = append(lines, "Output: "+o)
	}
	s.Handle(commandMatcher(command), func(Request) Reply { return Reply{Lines: lines} })
}

// OnLegacyCommand answers a Command action with a Follows body.
func (s *Server) OnLegacyCommand(command string, output ...string) {
	s.Handle(commandMatcher(command), func(Request) Reply { return Reply{Lines: output, Legacy: true} })
}

// HangOn never answers action.
func (s *Server) HangOn(action string) {
	s.Handle(actionMatcher(action, nil), func(Request) Reply { return Reply{Hang: true} })
}

// DropConnections closes every client connection while keeping the listener.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

// Close stops the server.
func (s *Server) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	_ = s.ln.Close()
	s.DropConnections()
	s.wg.Wait()
}

func actionMatcher(action string, match map[string]string) func(Request) bool {
	return func(r Request) bool {
		if !strings.EqualFold(r.Action, action) {
			return false
		}
		for k, v := range match {
			if !strings.EqualFold(r.Get(k), v) {
				return false
			}
		}
		return true
	}
}

func commandMatcher(command string) func(Request) bool {
	return func(r Request) bool {
		return strings.EqualFold(r.Action, "Command") && r.Get("Command") == command
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.accepted.Add(1)
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(c)
	}
}

func (s *Server) serve(c net.Conn) {
	defer s.wg.Done()
	defer func() {
		_ = c.Close()
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()

	r := bufio.NewReader(c)
	w := bufio.NewWriter(c)
	if _, err := fmt.Fprintf(w, "%s\r\n", s.Banner); err != nil {
		return
	}
	if w.Flush() != nil {
		return
	}

	authed := false
	for {
		req, err := readRequest(r)
		if err != nil {
			return
		}
		id := req.Get("ActionID")

		switch strings.ToLower(req.Action) {
		case "login":
			if req.Get("Username") == s.User && req.Get("Secret") == s.Secret {
				authed = true
				s.logins.Add(1)
				writeReply(w, id, Reply{Lines: []string{"Response: Success", "Message: Authentication accepted"}})
			} else {
				writeReply(w, id, Reply{Lines: []string{"Response: Error", "Message: Authentication failed"}})
				return
			}
		case "logoff":
			writeReply(w, id, Reply{Lines: []string{"Response: Goodbye", "Message: Thanks for all the fish."}})
			return
		default:
			if !authed {
				writeReply(w, id, Reply{Lines: []string{"Response: Error", "Message: Permission denied"}})
				continue
			}
			s.requests.Add(1)
			reply := s.route(req)
			if reply.Hang {
				_, _ = io.Copy(io.Discard, r)
				return
			}
			if reply.Close {
				return
			}
			if reply.Delay > 0 {
				time.Sleep(reply.Delay)
			}
			if s.EventBeforeReply {
				_, _ = w.WriteString("Event: RPT_LINKS\r\nNode: 1999\r\n\r\n")
			}
			if writeReply(w, id, reply) != nil {
				return
			}
		}
	}
}

func (s *Server) route(req Request) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.routes) - 1; i >= 0; i-- {
		if s.routes[i].match(req) {
			return s.routes[i].reply(req)
		}
	}
	return Reply{Lines: []string{"Response: Error", "Message: Invalid/unknown command"}}
}

func readRequest(r *bufio.Reader) (Request, error) {
	req := Request{Headers: make(map[string]string)}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return req, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if len(req.Headers) == 0 {
				continue
			}
			return req, nil
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		req.Headers[k] = v
		if strings.EqualFold(k, "Action") {
			req.Action = v
		}
	}
}

func writeReply(w *bufio.Writer, id string, reply Reply) error {
	if reply.Legacy {
		fmt.Fprintf(w, "Response: Follows\r\nPrivilege: Command\r\nActionID: %s\r\n", id)
		for _, l := range reply.Lines {
			fmt.Fprintf(w, "%s\n", l)
		}
		_, _ = w.WriteString("--END COMMAND--\r\n\r\n")
		return w.Flush()
	}

	for i, l := range reply.Lines {
		fmt.Fprintf(w, "%s\r\n", l)
		if i == 0 && id != "" {
			fmt.Fprintf(w, "ActionID: %s\r\n", id)
		}
	}
	_, _ = w.WriteString("\r\n")
	return w.Flush()
}
