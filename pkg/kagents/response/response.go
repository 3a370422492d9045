// Package response implements Komrad's response-builder sub-agent: a
// short-lived agent that accumulates a structured reply and emits
// exactly one final message on its first finalizing command.
//
// Grounded on original_source/crates/komrad-web/src/http_response_agent.rs,
// whose ResponseMetadataProtocol/ResponseWriteProtocol/
// ResponseFinalizerProtocol traits collapse here into plain methods —
// kagent.NativeAgent's single-goroutine loop already gives the
// serialization the source used a Mutex<HttpResponseState> for.
package response

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"komrad/pkg/kagent"
	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
	"komrad/pkg/kvalue"
)

type state struct {
	status            uint64
	headers           map[string]string
	cookies           [][2]string
	body              []byte
	finished          bool
	websocketDelegate kvalue.Value
}

// Agent is one in-flight response under construction.
type Agent struct {
	native  *kagent.NativeAgent
	replyTo kvalue.ChannelRef
	st      state
	log     *logrus.Entry
}

// New constructs an ephemeral response-builder that will send its
// single final reply to replyTo (nil means no one is listening — the
// builder still runs its finalization side effects but the reply is
// dropped, same as the source's `Option<Channel>`).
func New(name string, capacity int, replyTo kvalue.ChannelRef) *Agent {
	a := &Agent{
		replyTo: replyTo,
		st: state{
			status:            200,
			headers:           make(map[string]string),
			websocketDelegate: kvalue.Empty(),
		},
		log: logrus.WithFields(logrus.Fields{"component": "kagents.response", "agent": name}),
	}
	a.native = kagent.NewNative(name, capacity, a.handle, nil)
	return a
}

func (a *Agent) Channel() kchannel.Channel      { return a.native.Channel() }
func (a *Agent) Start(ctx context.Context)      { a.native.Start(ctx) }
func (a *Agent) Stop(ctx context.Context) error { return a.native.Stop(ctx) }
func (a *Agent) Wait()                          { a.native.Wait() }

func (a *Agent) handle(ctx context.Context, msg kast.Message) {
	action, ok := msg.FirstWord()
	if !ok {
		return
	}
	terms := msg.Terms

	switch action {
	case "set-status":
		if len(terms) >= 2 && terms[1].Kind == kvalue.KindNumber {
			a.st.status = asUint(terms[1].Num)
		}
	case "set-header":
		if len(terms) >= 3 {
			a.st.headers[toString(terms[1])] = toString(terms[2])
		}
	case "set-content-type":
		if len(terms) >= 2 {
			a.st.headers["Content-Type"] = toString(terms[1])
		}
	case "set-content-disposition":
		if len(terms) >= 2 {
			a.st.headers["Content-Disposition"] = toString(terms[1])
		}
	case "set-cookie":
		if len(terms) >= 3 {
			a.st.cookies = append(a.st.cookies, [2]string{toString(terms[1]), toString(terms[2])})
		}
	case "write", "write-value":
		if len(terms) >= 2 {
			a.writeValue(terms[1])
		}
	case "finish":
		a.finish()
	case "redirect":
		if len(terms) >= 2 {
			a.st.status = 302
			a.st.headers["Location"] = toString(terms[1])
		}
		a.finish()
	case "text":
		a.setBodyAndFinish("text/plain", bodyBytes(valueOrEmpty(terms)))
	case "html":
		a.setBodyAndFinish("text/html", bodyBytes(valueOrEmpty(terms)))
	case "json":
		a.setBodyAndFinish("application/json", bodyBytes(valueOrEmpty(terms)))
	case "binary":
		v := valueOrEmpty(terms)
		if v.Kind == kvalue.KindBytes {
			a.setBodyAndFinish("application/octet-stream", v.Bytes)
		} else {
			a.setBodyAndFinish("application/octet-stream", bodyBytes(v))
		}
	case "websocket":
		if len(terms) >= 2 && terms[1].Kind == kvalue.KindChannel {
			a.st.websocketDelegate = terms[1]
			a.st.status = 101
			a.st.headers["Upgrade"] = "websocket"
			a.st.headers["Connection"] = "Upgrade"
			a.finish()
		} else {
			a.errorResponse("invalid websocket client")
		}
	case "error":
		a.errorResponse(toString(valueOrEmpty(terms)))
	default:
		a.log.WithField("command", action).Warn("unrecognized response command")
	}
}

func valueOrEmpty(terms []kvalue.Value) kvalue.Value {
	if len(terms) < 2 {
		return kvalue.Empty()
	}
	return terms[1]
}

func bodyBytes(v kvalue.Value) []byte {
	return []byte(toString(v))
}

func (a *Agent) writeValue(v kvalue.Value) {
	switch v.Kind {
	case kvalue.KindBytes:
		a.st.body = append(a.st.body, v.Bytes...)
	case kvalue.KindString:
		a.st.body = append(a.st.body, v.Str...)
	case kvalue.KindNumber:
		a.st.body = append(a.st.body, v.Num.String()...)
	case kvalue.KindBoolean:
		if v.Bool {
			a.st.body = append(a.st.body, "true"...)
		} else {
			a.st.body = append(a.st.body, "false"...)
		}
	case kvalue.KindList:
		for _, item := range v.List {
			a.st.body = append(a.st.body, item.String()+" "...)
		}
	default:
		a.st.body = append(a.st.body, v.String()...)
	}
}

func (a *Agent) setBodyAndFinish(contentType string, body []byte) {
	a.st.headers["Content-Type"] = contentType
	a.st.body = body
	a.finish()
}

func (a *Agent) errorResponse(message string) {
	a.st.status = 500
	a.st.body = append(a.st.body, message...)
	a.finish()
}

// finish implements the at-most-once reply: idempotent finalization,
// then stops this agent's own loop.
func (a *Agent) finish() {
	if a.st.finished {
		return
	}
	a.st.finished = true

	if a.replyTo != nil {
		if ch, ok := a.replyTo.(kchannel.Channel); ok {
			final := kvalue.ListV([]kvalue.Value{
				kvalue.Num(kvalue.UInt(a.st.status)),
				headersValue(a.st.headers),
				cookiesValue(a.st.cookies),
				kvalue.Bin(a.st.body),
				a.st.websocketDelegate,
			})
			_ = ch.Send(context.Background(), kast.NewMessage([]kvalue.Value{final}, nil))
		}
	}

	_ = a.native.Stop(context.Background())
}

func headersValue(headers map[string]string) kvalue.Value {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]kvalue.Value, 0, len(keys))
	for _, k := range keys {
		out = append(out, kvalue.ListV([]kvalue.Value{kvalue.Str(k), kvalue.Str(headers[k])}))
	}
	return kvalue.ListV(out)
}

func cookiesValue(cookies [][2]string) kvalue.Value {
	out := make([]kvalue.Value, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, kvalue.ListV([]kvalue.Value{kvalue.Str(c[0]), kvalue.Str(c[1])}))
	}
	return kvalue.ListV(out)
}

func asUint(n kvalue.Number) uint64 {
	switch n.Kind {
	case kvalue.NumberInt:
		return uint64(n.Int)
	case kvalue.NumberUInt:
		return n.UInt
	case kvalue.NumberFloat:
		return uint64(n.Float)
	default:
		return 0
	}
}

func toString(v kvalue.Value) string {
	switch v.Kind {
	case kvalue.KindString:
		return v.Str
	case kvalue.KindWord:
		return v.Word
	case kvalue.KindEmbedded:
		return v.Embedded.Text
	default:
		return v.String()
	}
}
