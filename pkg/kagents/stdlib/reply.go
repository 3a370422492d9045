// Package stdlib implements Komrad's bundled agents: List, Dict,
// IO, and Assert.
package stdlib

import (
	"context"

	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
	"komrad/pkg/kvalue"
)

// reply sends a single-term reply if the caller supplied a reply
// channel; otherwise it is a silent no-op, matching the repeated
// `if let Some(reply_chan) = msg.reply_to()` guard of every bundled
// agent in original_source/crates/komrad-agents.
func reply(msg kast.Message, v kvalue.Value) {
	if msg.ReplyTo == nil {
		return
	}
	ch, ok := msg.ReplyTo.(kchannel.Channel)
	if !ok {
		return
	}
	_ = ch.Send(context.Background(), kast.NewMessage([]kvalue.Value{v}, nil))
}
