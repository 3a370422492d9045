package stdlib

import (
	"context"

	"github.com/sirupsen/logrus"

	"komrad/pkg/kagent"
	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
	"komrad/pkg/kvalue"
)

// AssertAgent evaluates a single Boolean term and echoes it back, or
// replies AssertionFailed for anything else.
type AssertAgent struct {
	native *kagent.NativeAgent
	log    *logrus.Entry
}

func NewAssertAgent(capacity int) *AssertAgent {
	a := &AssertAgent{log: logrus.WithField("component", "stdlib.Assert")}
	a.native = kagent.NewNative("Assert", capacity, a.handle, nil)
	return a
}

func (a *AssertAgent) Channel() kchannel.Channel      { return a.native.Channel() }
func (a *AssertAgent) Start(ctx context.Context)      { a.native.Start(ctx) }
func (a *AssertAgent) Stop(ctx context.Context) error { return a.native.Stop(ctx) }
func (a *AssertAgent) Wait()                          { a.native.Wait() }

func (a *AssertAgent) handle(ctx context.Context, msg kast.Message) {
	value := kvalue.Bool(true)
	if len(msg.Terms) > 0 {
		value = msg.Terms[0]
	}

	var result kvalue.Value
	switch {
	case value.Kind == kvalue.KindBoolean && value.Bool:
		result = kvalue.Bool(true)
	case value.Kind == kvalue.KindBoolean && !value.Bool:
		a.log.Debug("assertion false")
		result = kvalue.Bool(false)
	default:
		a.log.WithField("value", value.String()).Error("assertion target is not boolean")
		result = kvalue.ErrV(kvalue.RuntimeError{
			Kind:    kvalue.ErrAssertionFailed,
			Message: "not a boolean value: " + value.String(),
		})
	}

	reply(msg, result)
}
