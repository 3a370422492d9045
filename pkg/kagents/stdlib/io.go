package stdlib

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"komrad/pkg/kagent"
	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
	"komrad/pkg/kvalue"
)

// IOAgent implements the conventional IO ambient channel: `println`
// with an ack reply. Grounded on
// original_source/crates/komrad-agents/src/io_agent.rs's
// IoInterface/StdIo split — Writer plays StdIo's role so tests can
// substitute a buffer in place of os.Stdout.
type IOAgent struct {
	native *kagent.NativeAgent
	Writer io.Writer
	log    *logrus.Entry
}

func NewIOAgent(writer io.Writer, capacity int) *IOAgent {
	if writer == nil {
		writer = os.Stdout
	}
	a := &IOAgent{Writer: writer, log: logrus.WithField("component", "stdlib.IO")}
	a.native = kagent.NewNative("IO", capacity, a.handle, nil)
	return a
}

func (a *IOAgent) Channel() kchannel.Channel      { return a.native.Channel() }
func (a *IOAgent) Start(ctx context.Context)      { a.native.Start(ctx) }
func (a *IOAgent) Stop(ctx context.Context) error { return a.native.Stop(ctx) }
func (a *IOAgent) Wait()                          { a.native.Wait() }

func (a *IOAgent) handle(ctx context.Context, msg kast.Message) {
	cmd, ok := msg.FirstWord()
	if !ok || cmd != "println" {
		return
	}
	for _, term := range msg.Terms[1:] {
		if _, err := fmt.Fprintln(a.Writer, renderTerm(term)); err != nil {
			a.log.WithError(err).Warn("println write failed")
		}
	}
	reply(msg, kvalue.Str("ack"))
}

func renderTerm(v kvalue.Value) string {
	switch v.Kind {
	case kvalue.KindString:
		return v.Str
	case kvalue.KindChannel:
		if v.Channel != nil {
			return "Channel: " + v.Channel.UUID()
		}
		return "Channel: <nil>"
	default:
		return v.String()
	}
}
