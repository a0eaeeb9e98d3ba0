package main

import (
	"time"

	"github.com/C0inMan/eclair/router"
)

// chainWatcher is a minimal router.Watcher that stands in for a real
// chain-backend funding-output lookup. It confirms every channel after a
// fixed delay rather than consulting a wallet or block filter, which is
// sufficient for running this daemon without wiring a full node backend.
// A production deployment is expected to supply its own Watcher backed by
// btcd/bitcoind or a neutrino light client instead.
type chainWatcher struct {
	rt *router.Router
}

func (w *chainWatcher) ValidateChannel(ann *router.ChannelAnnouncement) {
	go func() {
		time.Sleep(100 * time.Millisecond)
		if err := w.rt.NotifyWatcherResult(ann.ShortChannelId, true); err != nil {
			log.Errorf("unable to report funding confirmation for %v: %v",
				ann.ShortChannelId, err)
		}
	}()
}
