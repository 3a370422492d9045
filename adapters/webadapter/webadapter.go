// Package webadapter bridges plain HTTP/WebSocket traffic onto Komrad
// Channels: every request becomes an ask against a routed Channel, and
// a response-builder's terminal tuple
// ([status, headers, cookies, body, ws-delegate]) is translated back
// into an http.ResponseWriter write or a *websocket.Conn upgrade.
//
// Grounded on a gorilla/websocket dashboard server's Upgrader-and-
// HandleFunc-per-route shape, and on
// original_source/crates/komrad-web/src/http_response_agent.rs for the
// tuple layout. Scope is deliberately limited to the protocol shape,
// not a production HTTP server (no TLS, no timeouts, no routing
// beyond an exact-path map).
package webadapter

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"komrad/pkg/kchannel"
	"komrad/pkg/kruntime"
	"komrad/pkg/kvalue"
)

// Server routes fixed HTTP paths to Komrad Channels.
type Server struct {
	rt       *kruntime.Runtime
	routes   map[string]kchannel.Channel
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// New builds a Server. routes maps an exact request path to the
// Channel that should answer it.
func New(rt *kruntime.Runtime, routes map[string]kchannel.Channel) *Server {
	return &Server{
		rt:     rt,
		routes: routes,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logrus.WithField("component", "webadapter"),
	}
}

// ListenAndServe registers every route and blocks serving HTTP.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	for path, ch := range s.routes {
		ch := ch
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			s.handle(ch, w, r)
		})
	}
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handle(ch kchannel.Channel, w http.ResponseWriter, r *http.Request) {
	verb := strings.ToLower(r.Method)
	result := s.rt.Ask(ch, []kvalue.Value{kvalue.WordV(verb)})

	if tuple, ok := asResponseTuple(result); ok {
		s.writeTuple(w, r, tuple)
		return
	}

	if result.IsError() {
		http.Error(w, result.String(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, result.String())
}

// responseTuple is the translated form of a response-builder's
// [status, headers, cookies, body, ws-delegate] reply.
type responseTuple struct {
	status     uint64
	headers    [][2]string
	cookies    [][2]string
	body       []byte
	wsDelegate kvalue.Value
}

func asResponseTuple(v kvalue.Value) (responseTuple, bool) {
	if v.Kind != kvalue.KindList || len(v.List) != 5 {
		return responseTuple{}, false
	}
	statusV, headersV, cookiesV, bodyV, wsV := v.List[0], v.List[1], v.List[2], v.List[3], v.List[4]
	if statusV.Kind != kvalue.KindNumber || bodyV.Kind != kvalue.KindBytes {
		return responseTuple{}, false
	}
	return responseTuple{
		status:     asUint(statusV.Num),
		headers:    asPairs(headersV),
		cookies:    asPairs(cookiesV),
		body:       bodyV.Bytes,
		wsDelegate: wsV,
	}, true
}

func asPairs(v kvalue.Value) [][2]string {
	if v.Kind != kvalue.KindList {
		return nil
	}
	out := make([][2]string, 0, len(v.List))
	for _, item := range v.List {
		if item.Kind != kvalue.KindList || len(item.List) != 2 {
			continue
		}
		out = append(out, [2]string{toText(item.List[0]), toText(item.List[1])})
	}
	return out
}

func toText(v kvalue.Value) string {
	if v.Kind == kvalue.KindString {
		return v.Str
	}
	return v.String()
}

func asUint(n kvalue.Number) uint64 {
	switch n.Kind {
	case kvalue.NumberInt:
		return uint64(n.Int)
	case kvalue.NumberUInt:
		return n.UInt
	default:
		return 200
	}
}

func (s *Server) writeTuple(w http.ResponseWriter, r *http.Request, t responseTuple) {
	if t.wsDelegate.Kind == kvalue.KindChannel && t.wsDelegate.Channel != nil {
		s.serveWebSocket(w, r, t.wsDelegate)
		return
	}
	h := w.Header()
	for _, kv := range t.headers {
		h.Set(kv[0], kv[1])
	}
	for _, kv := range t.cookies {
		http.SetCookie(w, &http.Cookie{Name: kv[0], Value: kv[1]})
	}
	w.WriteHeader(int(t.status))
	w.Write(t.body)
}

// serveWebSocket upgrades the connection and relays every inbound
// frame to the delegate Channel as an ask, writing back whatever it
// replies with.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request, delegate kvalue.Value) {
	ch, ok := delegate.Channel.(kchannel.Channel)
	if !ok {
		http.Error(w, "invalid websocket delegate", http.StatusInternalServerError)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		reply := s.rt.Ask(ch, []kvalue.Value{kvalue.WordV("message"), kvalue.Bin(payload)})
		var out []byte
		if reply.Kind == kvalue.KindBytes {
			out = reply.Bytes
		} else {
			out = []byte(reply.String())
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			return
		}
	}
}
