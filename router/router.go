package router

import (
	"context"
	"math/rand"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/queue"
	"github.com/lightningnetwork/lnd/ticker"
)

// Config collects every external collaborator the router needs, each
// consumed through a narrow interface. Grounded on
// routing/manager.go's RoutingConfig and discovery/gossiper.go's Config,
// both of which thread every chain/signing/transport dependency through a
// single struct rather than package-level globals.
type Config struct {
	ChainHash chainhash.Hash
	SelfID    Vertex

	DB        NetworkDB
	Validator Validator
	Watcher   Watcher

	// SendMessage delivers msg to peer. The router never blocks waiting
	// for delivery to complete.
	SendMessage func(peer Vertex, msg interface{}) error

	// AckRead is the per-peer transport handle used to send a read-ack
	// back to peer the moment one of its messages is dequeued, before
	// handlePeerMessage does anything else. This lets a slow DB write or
	// signature check run without ever stalling the peer's own
	// flow-control window, since the transport considers the read
	// acknowledged regardless of how long processing takes.
	AckRead func(peer Vertex) error

	// CurrentBlockHeight reports the chain tip, consulted by the
	// pruner's staleness rule.
	CurrentBlockHeight func() uint32

	// PruneInterval overrides the default hourly pruning cadence; zero
	// keeps the default.
	PruneInterval time.Duration
}

// Router is the single-threaded actor that owns all topology state and
// serializes every mutation through one goroutine's mailbox. Grounded on
// routing/manager.go's RoutingManager combined with
// discovery/gossiper.go's networkHandler select loop.
type Router struct {
	cfg  Config
	data *Data

	notifier *notifier

	mailbox *queue.BackpressureQueue[interface{}]
	msgCh   chan interface{}
	gm      *fn.GoroutineManager

	pruneTicker ticker.Ticker

	rng *rand.Rand

	chQuit chan struct{}
	chDone chan struct{}
}

// NewRouter constructs a Router with empty topology state. Call Start to
// begin processing.
func NewRouter(cfg Config) *Router {
	interval := cfg.PruneInterval
	if interval <= 0 {
		interval = time.Hour
	}

	return &Router{
		cfg:         cfg,
		data:        newData(),
		notifier:    newNotifier(),
		mailbox:     queue.NewBackpressureQueue[interface{}](1000, nil),
		msgCh:       make(chan interface{}),
		gm:          fn.NewGoroutineManager(),
		pruneTicker: ticker.New(interval),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		chQuit:      make(chan struct{}),
		chDone:      make(chan struct{}),
	}
}

// Start loads persisted topology from the configured NetworkDB and launches
// the dispatch loop.
func (rt *Router) Start() error {
	channels, err := rt.cfg.DB.ListChannels()
	if err != nil {
		return err
	}
	for _, ann := range channels {
		rt.data.Channels.Put(ann)
	}

	updates, err := rt.cfg.DB.ListChannelUpdates()
	if err != nil {
		return err
	}
	for _, u := range updates {
		ann, ok := rt.data.Channels.Get(u.ShortChannelId)
		if !ok {
			continue
		}
		desc := channelDescFromFlags(u.ShortChannelId, ann.NodeId1, ann.NodeId2, u.ChannelFlags)
		rt.data.Updates[desc] = u
		if !u.Disabled() {
			rt.data.Graph.AddEdge(desc, u)
		}
	}

	rt.pruneTicker.Resume()

	go rt.feedMailbox()
	go rt.dispatchLoop()
	return nil
}

// feedMailbox repeatedly dequeues from the backpressure queue and forwards
// each item onto msgCh, translating the queue's blocking Dequeue into a
// channel the dispatch loop can select on alongside the quit signal and the
// prune ticker.
func (rt *Router) feedMailbox() {
	for {
		res := rt.mailbox.Dequeue(context.Background())
		v, err := res.Unpack()
		if err != nil {
			return
		}
		select {
		case rt.msgCh <- v:
		case <-rt.chQuit:
			return
		}
	}
}

// Stop signals the dispatch loop to exit and waits for it to finish.
func (rt *Router) Stop() {
	close(rt.chQuit)
	<-rt.chDone
	rt.pruneTicker.Stop()
	rt.gm.Stop()
}

// Subscribe registers for the router's event stream.
func (rt *Router) Subscribe(buffer int) *subscription {
	return rt.notifier.Subscribe(buffer)
}

// dispatchLoop is the only goroutine that reads or mutates rt.data once
// Start has returned; route computations run elsewhere over a snapshot.
// Grounded on discovery/gossiper.go's networkHandler, which likewise
// selects over the quit channel, a ticker, and inbound messages in one loop.
func (rt *Router) dispatchLoop() {
	defer close(rt.chDone)

	for {
		select {
		case <-rt.chQuit:
			return

		case <-rt.pruneTicker.Ticks():
			rt.handleTick()

		case raw := <-rt.msgCh:
			rt.handleMessage(raw)
		}
	}
}

func (rt *Router) handleTick() {
	now := nowFunc()
	tip := rt.currentBlockHeight()

	pruned := pruneStaleChannels(rt.data, rt.cfg.DB, rt.notifier, now, tip)
	if len(pruned) > 0 {
		log.Infof("pruned %d stale channels", len(pruned))
	}

	pruneExpiredExclusions(rt.data, now)
}

func (rt *Router) currentBlockHeight() uint32 {
	if rt.cfg.CurrentBlockHeight == nil {
		return 0
	}
	return rt.cfg.CurrentBlockHeight()
}

// peerMessage wraps an inbound peer message with the peer it came from,
// mirroring discovery/gossiper.go's networkMsg.
type peerMessage struct {
	peer Vertex
	msg  interface{}
}

type findRouteCmd struct {
	req RouteRequest
	rez chan []Hop
	err chan error
}

type excludeChannelCmd struct {
	desc     ChannelDesc
	duration time.Duration
	done     chan struct{}
}

type liftExclusionCmd struct {
	desc ChannelDesc
	done chan struct{}
}

type watcherResultCmd struct {
	scid      ShortChannelId
	confirmed bool
}

type fundingSpentCmd struct {
	scid ShortChannelId
}

type addPrivateChannelCmd struct {
	scid   ShortChannelId
	remote Vertex
	done   chan struct{}
}

type syncProgressCmd struct {
	rez chan float64
}

// handleMessage is the dispatch loop's single switch over every message
// and command shape the router understands. Grounded on routing/
// manager.go's handleMessage and discovery/gossiper.go's
// processNetworkAnnouncement.
func (rt *Router) handleMessage(raw interface{}) {
	switch msg := raw.(type) {
	case peerMessage:
		rt.handlePeerMessage(msg)

	case *findRouteCmd:
		rt.handleFindRoute(msg)

	case *excludeChannelCmd:
		ExcludeChannel(rt.data, msg.desc, msg.duration)
		close(msg.done)

	case *liftExclusionCmd:
		LiftChannelExclusion(rt.data, msg.desc)
		close(msg.done)

	case *watcherResultCmd:
		origins := completeChannelAnnouncement(rt.data, rt.cfg.DB, rt.notifier, msg.scid, msg.confirmed)
		_ = origins

	case *fundingSpentCmd:
		pruneFundingSpent(rt.data, rt.cfg.DB, rt.notifier, msg.scid)

	case *addPrivateChannelCmd:
		rt.data.PrivateChannels[msg.scid] = msg.remote
		close(msg.done)

	case *startSyncCmd:
		// A fresh dialogue starts clean: any Sync state left over from a
		// prior connection describes a conversation the peer on the other
		// end no longer remembers having.
		delete(rt.data.Sync, msg.peer)

		query := newChannelRangeQuery(rt.cfg.ChainHash, msg.firstBlock, msg.numBlocks)
		if rt.cfg.SendMessage != nil {
			_ = rt.cfg.SendMessage(msg.peer, passAllGossipFilter(rt.cfg.ChainHash))
			_ = rt.cfg.SendMessage(msg.peer, query)
		}

	case *syncProgressCmd:
		msg.rez <- syncProgress(rt.data.Sync)

	case *nodesQueryCmd:
		msg.rez <- nodesView(rt.data)

	case *channelsQueryCmd:
		msg.rez <- channelsView(rt.data)

	case *updatesQueryCmd:
		msg.rez <- updatesView(rt.data)

	case *updatesMapQueryCmd:
		msg.rez <- updatesMapView(rt.data)

	case *channelInfoQueryCmd:
		ann, err := channelInfo(rt.data, msg.scid)
		if err != nil {
			msg.err <- err
		} else {
			msg.rez <- ann
		}

	case *gossipQueryCmd:
		msg.rez <- gossipView(rt.data, msg.to, msg.filter)
	}
}

// handlePeerMessage acks the read back to pm.peer's transport before doing
// anything else (a signature check, a DB write), so the handler below never
// stalls the peer's own flow-control window. The ack is fire-and-forget: the
// transport only needs to know the read was consumed, not how ingestion
// turned out.
func (rt *Router) handlePeerMessage(pm peerMessage) {
	if rt.cfg.AckRead != nil {
		if err := rt.cfg.AckRead(pm.peer); err != nil {
			log.Debugf("read-ack to %s failed: %v", pm.peer, err)
		}
	}

	switch m := pm.msg.(type) {
	case *ChannelAnnouncement:
		if err := ingestChannelAnnouncement(rt.data, rt.cfg.ChainHash, m, pm.peer, rt.cfg.Validator, rt.cfg.Watcher); err != nil {
			logRejectedPeerMessage(pm.peer, "channel announcement", err)
		}

	case *ChannelUpdate:
		if err := ingestChannelUpdate(rt.data, rt.cfg.DB, rt.notifier, rt.cfg.ChainHash, rt.cfg.SelfID, m, pm.peer, rt.cfg.Validator); err != nil {
			logRejectedPeerMessage(pm.peer, "channel update", err)
		}

	case *NodeAnnouncement:
		if err := ingestNodeAnnouncement(rt.data, rt.cfg.DB, rt.notifier, m, pm.peer, rt.cfg.Validator); err != nil {
			logRejectedPeerMessage(pm.peer, "node announcement", err)
		}

	case *QueryChannelRange:
		// The light client never answers remote range queries; it only
		// ever issues them. A peer asking us is simply ignored.
		log.Debugf("ignoring query_channel_range from %s: not a server role", pm.peer)

	case *ReplyChannelRange:
		handleReplyChannelRange(rt.data, pm.peer, m, nowFunc(), rt.currentBlockHeight())
		if m.Complete {
			reconcileChannelRange(rt.data, rt.cfg.DB, rt.notifier, nowFunc(), rt.currentBlockHeight(), m.FirstBlock, m.NumBlocks)
		}
		rt.sendNextBatchIfIdle(pm.peer)
		rt.notifier.Publish(SyncProgress{Progress: syncProgress(rt.data.Sync)})

	case *QueryShortChannelIds:
		// As above: answering short-channel-id follow-up queries is a
		// server-role behavior this client does not perform.
		log.Debugf("ignoring query_short_channel_ids from %s: not a server role", pm.peer)

	case *ReplyShortChannelIdsEnd:
		if !hasSyncState(rt.data, pm.peer) {
			log.Debugf("%v: %s", ErrNoSyncerForPeer, pm.peer)
			return
		}
		clearInFlight(rt.data, pm.peer)
		finishSyncIfDone(rt.data, pm.peer)
		rt.sendNextBatchIfIdle(pm.peer)
		rt.notifier.Publish(SyncProgress{Progress: syncProgress(rt.data.Sync)})

	case *GossipTimestampRange:
		// This client never rebroadcasts, so a peer's requested filter
		// range has nothing to apply to. The message type is still
		// recognized so it doesn't fall into the catch-all below.

	default:
		log.Debugf("ignoring unrecognized message from %s: %v", pm.peer,
			spew.Sdump(m))
	}
}

// logRejectedPeerMessage logs a rejected peer message at Warn when the
// cause is a chain-hash mismatch and Debug otherwise: the former names a
// peer on the wrong network entirely, the latter covers the routine
// duplicate/stale/premature rejections ingestion produces constantly.
func logRejectedPeerMessage(peer Vertex, kind string, err error) {
	if err == ErrChainHashMismatch {
		log.Warnf("%s from %s rejected: %v", kind, peer, err)
		return
	}
	log.Debugf("%s from %s rejected: %v", kind, peer, err)
}

// sendNextBatchIfIdle pops and sends peer's next pending
// query_short_channel_ids batch, but only if no batch is already
// outstanding for that peer.
func (rt *Router) sendNextBatchIfIdle(peer Vertex) {
	batch, ok := popNextBatch(rt.data, peer)
	if !ok {
		return
	}
	if rt.cfg.SendMessage != nil {
		_ = rt.cfg.SendMessage(peer, batch)
	}
}

// snapshotForRoute copies the graph state FindRoute needs so that the
// expensive Yen's-algorithm search can run on a background goroutine
// without racing the dispatch loop's concurrent mutation of the live
// Data. The copy is shallow: ChannelUpdate values are never mutated
// in place after being stored (ingest always replaces the pointer), so
// sharing them between the live graph and the snapshot is safe.
func snapshotForRoute(d *Data) *Data {
	g := NewGraph()
	for desc, policy := range d.Graph.edges {
		g.AddEdge(desc, policy)
	}

	privChannels := make(map[ShortChannelId]Vertex, len(d.PrivateChannels))
	for k, v := range d.PrivateChannels {
		privChannels[k] = v
	}
	privUpdates := make(map[ChannelDesc]*ChannelUpdate, len(d.PrivateUpdates))
	for k, v := range d.PrivateUpdates {
		privUpdates[k] = v
	}
	excluded := make(map[ChannelDesc]time.Time, len(d.ExcludedChannels))
	for k, v := range d.ExcludedChannels {
		excluded[k] = v
	}

	return &Data{
		Graph:            g,
		PrivateChannels:  privChannels,
		PrivateUpdates:   privUpdates,
		ExcludedChannels: excluded,
	}
}

// handleFindRoute offloads the actual Yen's-algorithm search onto a
// goroutine-managed worker over an immutable snapshot, so the expensive
// computation never blocks the mailbox loop, grounded on
// fn.GoroutineManager.Go's fire-and-forget cancelable-worker pattern.
func (rt *Router) handleFindRoute(cmd *findRouteCmd) {
	snapshot := snapshotForRoute(rt.data)
	rng := rt.rng

	started := rt.gm.Go(context.Background(), func(ctx context.Context) {
		hops, err := FindRoute(snapshot, cmd.req, rng)
		if err != nil {
			cmd.err <- err
			return
		}
		cmd.rez <- hops
	})
	if !started {
		cmd.err <- ErrRouterShuttingDown
	}
}

// --- public API ---

func (rt *Router) enqueue(msg interface{}) error {
	select {
	case <-rt.chQuit:
		return ErrRouterShuttingDown
	default:
	}
	return rt.mailbox.Enqueue(context.Background(), msg)
}

// HandlePeerMessage feeds one inbound wire message from peer into the
// router's mailbox.
func (rt *Router) HandlePeerMessage(peer Vertex, msg interface{}) error {
	return rt.enqueue(peerMessage{peer: peer, msg: msg})
}

// NotifyFundingSpent reports that scid's funding output was spent on
// chain, triggering an immediate single-channel prune.
func (rt *Router) NotifyFundingSpent(scid ShortChannelId) error {
	return rt.enqueue(&fundingSpentCmd{scid: scid})
}

// NotifyWatcherResult reports the asynchronous answer to a prior
// Watcher.ValidateChannel call.
func (rt *Router) NotifyWatcherResult(scid ShortChannelId, confirmed bool) error {
	return rt.enqueue(&watcherResultCmd{scid: scid, confirmed: confirmed})
}

type startSyncCmd struct {
	peer       Vertex
	firstBlock uint32
	numBlocks  uint32
}

// StartPeerSync issues the initial query_channel_range to peer for the
// block window [firstBlock, firstBlock+numBlocks). The router is always
// the requester in this exchange, never the responder, matching a
// light client that never answers a peer's own range or short-id queries.
func (rt *Router) StartPeerSync(peer Vertex, firstBlock, numBlocks uint32) error {
	return rt.enqueue(&startSyncCmd{peer: peer, firstBlock: firstBlock, numBlocks: numBlocks})
}

// AddPrivateChannel records a private channel to remote, usable as a
// source-side extra edge during route planning.
func (rt *Router) AddPrivateChannel(scid ShortChannelId, remote Vertex) error {
	done := make(chan struct{})
	if err := rt.enqueue(&addPrivateChannelCmd{scid: scid, remote: remote, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-rt.chQuit:
		return ErrRouterShuttingDown
	}
}

// ExcludeChannel blacklists desc from route planning for duration.
func (rt *Router) ExcludeChannel(desc ChannelDesc, duration time.Duration) error {
	done := make(chan struct{})
	if err := rt.enqueue(&excludeChannelCmd{desc: desc, duration: duration, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-rt.chQuit:
		return ErrRouterShuttingDown
	}
}

// LiftChannelExclusion removes desc from the blacklist.
func (rt *Router) LiftChannelExclusion(desc ChannelDesc) error {
	done := make(chan struct{})
	if err := rt.enqueue(&liftExclusionCmd{desc: desc, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-rt.chQuit:
		return ErrRouterShuttingDown
	}
}

// FindRoute computes up to req.NumPaths candidate routes and returns one
// chosen uniformly at random among the spread-eligible set.
func (rt *Router) FindRoute(req RouteRequest) ([]Hop, error) {
	rez := make(chan []Hop, 1)
	errc := make(chan error, 1)

	if err := rt.enqueue(&findRouteCmd{req: req, rez: rez, err: errc}); err != nil {
		return nil, err
	}

	select {
	case hops := <-rez:
		return hops, nil
	case err := <-errc:
		return nil, err
	case <-rt.chQuit:
		return nil, ErrRouterShuttingDown
	}
}

// SyncProgress returns the current aggregate sync completion fraction.
func (rt *Router) SyncProgress() (float64, error) {
	rez := make(chan float64, 1)
	if err := rt.enqueue(&syncProgressCmd{rez: rez}); err != nil {
		return 0, err
	}
	select {
	case p := <-rez:
		return p, nil
	case <-rt.chQuit:
		return 0, ErrRouterShuttingDown
	}
}
