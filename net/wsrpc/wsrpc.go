// Package wsrpc carries a TokenGen token to a remote Search over a
// websocket connection, so the encrypted database and the party running
// Search need not live in the same process as the party holding the key.
//
// The package is scheme-agnostic: it relays opaque, scheme-serialized
// token and result bytes rather than depending on any scheme's concrete
// Token/Result types, so a caller wires it up with the scheme package of
// their choice (see Handler and Request/Response below).
package wsrpc

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/jezachen/go-sse/log"
)

// Request is one Search call addressed to a named scheme and EDB.
type Request struct {
	Scheme string `json:"scheme"`
	EDB    string `json:"edb"`
	Token  []byte `json:"token"`
}

// Response carries either a serialized Result or an error string.
type Response struct {
	Result []byte `json:"result,omitempty"`
	Err    string `json:"err,omitempty"`
}

// Handler resolves a Request to serialized result bytes, by looking up
// cfg/edb for (Scheme, EDB), deserializing Token with the scheme package's
// own DeserializeToken, calling Search, and serializing the Result. The
// cmd/ssectl server registers one of these per configured EDB.
type Handler func(req Request) ([]byte, error)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server upgrades incoming HTTP connections to websockets and dispatches
// each received Request to handle, writing back one Response per Request
// on the same connection until the client disconnects.
type Server struct {
	handle Handler
	log    log.Logger
}

// NewServer builds a Server that dispatches every Request to handle.
func NewServer(handle Handler, logger log.Logger) *Server {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Server{handle: handle, log: logger}
}

// ServeHTTP implements http.Handler, so a Server can be mounted directly
// on an *http.ServeMux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorw("wsrpc: upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warnw("wsrpc: connection closed unexpectedly", "err", err)
			}
			return
		}

		resp := s.handleOne(req)
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Errorw("wsrpc: write response failed", "err", err)
			return
		}
	}
}

func (s *Server) handleOne(req Request) Response {
	result, err := s.handle(req)
	if err != nil {
		return Response{Err: err.Error()}
	}
	return Response{Result: result}
}

// Client dials a wsrpc Server and issues Search requests over the
// resulting connection.
type Client struct {
	conn *websocket.Conn
}

// Dial opens a websocket connection to a wsrpc Server listening at url
// (e.g. "ws://host:port/search").
func Dial(url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsrpc: dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Search sends one Request and waits for its matching Response.
func (c *Client) Search(scheme, edb string, token []byte) ([]byte, error) {
	req := Request{Scheme: scheme, EDB: edb, Token: token}
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("wsrpc: send request: %w", err)
	}
	var resp Response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("wsrpc: read response: %w", err)
	}
	if resp.Err != "" {
		return nil, fmt.Errorf("wsrpc: remote search: %s", resp.Err)
	}
	return resp.Result, nil
}
