// Package main implements eclaird, a minimal daemon wiring the gossip
// router into a runnable process: it is not a full lightning node, only
// the network-gossip and pathfinding surface described by this module.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/C0inMan/eclair/router"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// config holds the command-line-configurable daemon settings, threaded
// through jessevdk/go-flags tags rather than hand-rolled flag parsing.
type config struct {
	ChainHash    string `long:"chainhash" description:"Hex-encoded genesis block hash identifying the network to gossip about" default:"0000000000000000000000000000000000000000000000000000000000000000"`
	SelfID       string `long:"selfid" description:"Hex-encoded compressed public key identifying this node"`
	PruneMinutes int    `long:"pruneminutes" description:"Minutes between stale-channel prune passes" default:"60"`
	DebugLevel   string `long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical" default:"info"`
}

func loadConfig() (*config, error) {
	cfg := &config{}
	if _, err := flags.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func eclairdMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	setupLogging(cfg.DebugLevel)

	chainHashBytes, err := hex.DecodeString(cfg.ChainHash)
	if err != nil {
		return fmt.Errorf("invalid chainhash: %w", err)
	}
	var chainHash chainhash.Hash
	copy(chainHash[:], chainHashBytes)

	var selfID router.Vertex
	if cfg.SelfID != "" {
		selfBytes, err := hex.DecodeString(cfg.SelfID)
		if err != nil {
			return fmt.Errorf("invalid selfid: %w", err)
		}
		copy(selfID[:], selfBytes)
	}

	db := router.NewMemoryDB()
	watcher := &chainWatcher{}

	rtCfg := router.Config{
		ChainHash: chainHash,
		SelfID:    selfID,
		DB:        db,
		Validator: router.NewECDSAValidator(),
		Watcher:   watcher,
		SendMessage: func(peer router.Vertex, msg interface{}) error {
			log.Debugf("would send %T to %v", msg, peer)
			return nil
		},
		AckRead: func(peer router.Vertex) error {
			log.Debugf("would ack read from %v", peer)
			return nil
		},
		PruneInterval: durationFromMinutes(cfg.PruneMinutes),
	}

	rt := router.NewRouter(rtCfg)
	watcher.rt = rt

	if err := rt.Start(); err != nil {
		return fmt.Errorf("unable to start router: %w", err)
	}

	sub := rt.Subscribe(64)
	go logEvents(sub)

	log.Infof("eclaird started, self=%v chainhash=%v", selfID, chainHash)

	interrupt := awaitInterrupt()
	<-interrupt

	log.Infof("shutting down")
	sub.Cancel()
	rt.Stop()

	return nil
}

func main() {
	if err := eclairdMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
