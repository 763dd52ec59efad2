package httpd

import (
	"errors"

	"github.com/quirell/espweb/core/codec"
	"github.com/quirell/espweb/device/conntrack"
)

var (
	// ErrRouteTableFull reports a Register on a full route table.
	ErrRouteTableFull = errors.New("route table full")
	// ErrNilHandler reports a Register with no handler.
	ErrNilHandler = errors.New("nil handler")
)

// Handler handles one dispatched request. Its only legal interaction
// with the server is calling Respond exactly once per invocation;
// skipping it leaves the client hanging until its connection idles out,
// and a second call would collide with the firmware's send handshake.
type Handler interface {
	ServeRequest(conn conntrack.ConnID, req *codec.Request)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(conn conntrack.ConnID, req *codec.Request)

// ServeRequest calls f(conn, req).
func (f HandlerFunc) ServeRequest(conn conntrack.ConnID, req *codec.Request) { f(conn, req) }

type route struct {
	path string
	h    Handler
}

// Register appends a route for an exact path match. Registration order
// is lookup order, so of two routes on one path the first wins. The
// table is fixed-capacity; ErrRouteTableFull reports the overflow.
func (s *Server) Register(path string, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	if len(s.routes) >= s.cfg.MaxRoutes {
		return ErrRouteTableFull
	}
	s.routes = append(s.routes, route{path: path, h: h})
	return nil
}

// ClearRoutes empties the route table.
func (s *Server) ClearRoutes() {
	s.routes = s.routes[:0]
}

// findRoute returns the first handler registered for path, or nil.
func (s *Server) findRoute(path string) Handler {
	for i := range s.routes {
		if s.routes[i].path == path {
			return s.routes[i].h
		}
	}
	return nil
}
