package main

import "github.com/C0inMan/eclair/router"

// logEvents drains sub and logs each topology event, until the
// subscription is canceled and its channel closes.
func logEvents(sub interface {
	Events() <-chan router.Event
}) {
	for ev := range sub.Events() {
		switch e := ev.(type) {
		case router.ChannelUpdateReceived:
			log.Debugf("channel_update applied for %v", e.Update.ShortChannelId)
		case router.ChannelLost:
			log.Infof("channel %v pruned", e.ShortChannelId)
		case router.NodeDiscovered:
			log.Infof("discovered node %v", e.NodeId)
		case router.NodeUpdated:
			log.Debugf("updated node %v", e.NodeId)
		case router.NodeLost:
			log.Infof("node %v has no remaining channels", e.NodeId)
		case router.SyncProgress:
			log.Debugf("sync progress: %.2f%%", e.Progress*100)
		default:
			log.Debugf("event: %v", e)
		}
	}
}
