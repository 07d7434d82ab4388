// Package background runs the periodic reconciliation jobs: expiry sweeps
// and the peer-summary cache refresh.
package background

import (
	"context"
	"log"
	"time"

	"github.com/iOSSergey/wireguard-telegram-bot/database"
	"github.com/iOSSergey/wireguard-telegram-bot/provision"
)

const (
	// Expired peers are swept every 30 minutes, first pass shortly after
	// startup so a long-down process catches up quickly.
	sweepInterval   = 30 * time.Minute
	sweepFirstDelay = time.Minute
)

// Sweeper reconciles store state and live daemon state for every
// policy-enabled protocol.
type Sweeper struct {
	engines []*provision.Engine
	policy  *database.PolicyStore
}

func NewSweeper(policy *database.PolicyStore, engines ...*provision.Engine) *Sweeper {
	return &Sweeper{engines: engines, policy: policy}
}

// RestoreOnStart pushes every enabled, non-expired peer back into the live
// daemon after a restart. The store is not touched: the peers are already
// marked enabled, only the daemon's runtime state needs to catch up.
// Individual daemon failures are logged and do not abort the batch.
func (s *Sweeper) RestoreOnStart(now time.Time) {
	for _, engine := range s.enabledEngines() {
		backend := engine.Backend()
		peers, err := backend.ForRestore(now)
		if err != nil {
			log.Printf("restore: listing %s peers: %v", backend.Protocol(), err)
			continue
		}
		restored := 0
		for _, peer := range peers {
			if err := backend.Activate(peer.TelegramID); err != nil {
				log.Printf("restore: enable %s peer tg=%d (%s): %v",
					backend.Protocol(), peer.TelegramID, peer.Address, err)
				continue
			}
			restored++
		}
		if len(peers) > 0 {
			log.Printf("restore: %d/%d %s peers back in the daemon",
				restored, len(peers), backend.Protocol())
		}
	}
}

// SweepExpired disables peers whose expiry has passed: daemon first, store
// flag second. A peer whose daemon call fails stays enabled in the store
// and is retried on the next sweep — access is never lost silently on a
// daemon hiccup.
func (s *Sweeper) SweepExpired(now time.Time) {
	for _, engine := range s.enabledEngines() {
		backend := engine.Backend()
		peers, err := backend.Expired(now)
		if err != nil {
			log.Printf("sweep: listing expired %s peers: %v", backend.Protocol(), err)
			continue
		}
		for _, peer := range peers {
			if err := backend.Deactivate(peer.TelegramID); err != nil {
				log.Printf("sweep: disable %s peer tg=%d (%s): %v",
					backend.Protocol(), peer.TelegramID, peer.Address, err)
				continue
			}
			if err := backend.SetEnabled(peer.TelegramID, false); err != nil {
				log.Printf("sweep: flag %s peer tg=%d disabled: %v",
					backend.Protocol(), peer.TelegramID, err)
				continue
			}
			log.Printf("sweep: %s peer tg=%d (%s) disabled, expired",
				backend.Protocol(), peer.TelegramID, peer.Address)
		}
	}
}

// Run blocks until the context is done, sweeping on a fixed interval with
// the first pass shortly after startup.
func (s *Sweeper) Run(ctx context.Context) {
	first := time.NewTimer(sweepFirstDelay)
	defer first.Stop()
	select {
	case <-ctx.Done():
		return
	case <-first.C:
		s.SweepExpired(time.Now())
	}

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpired(time.Now())
		}
	}
}

func (s *Sweeper) enabledEngines() []*provision.Engine {
	policy, err := s.policy.Get()
	if err != nil {
		log.Printf("sweeper: reading protocol policy: %v", err)
		return nil
	}
	var out []*provision.Engine
	for _, engine := range s.engines {
		if policy.Enabled(engine.Protocol()) {
			out = append(out, engine)
		}
	}
	return out
}
