package background

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/iOSSergey/wireguard-telegram-bot/database"
	"github.com/iOSSergey/wireguard-telegram-bot/pkg/types"
)

// How often the Redis peer-summary cache is rebuilt from the store.
const cacheRefreshInterval = 10 * time.Second

// CacheRefresher keeps the Redis peer-summary list in sync with the
// database so the admin API can answer list requests off the cache.
type CacheRefresher struct {
	cache *database.PeerCache
	wgs   *database.WireguardPeerStore
	vls   *database.VlessPeerStore
}

func NewCacheRefresher(cache *database.PeerCache, wgs *database.WireguardPeerStore, vls *database.VlessPeerStore) *CacheRefresher {
	return &CacheRefresher{cache: cache, wgs: wgs, vls: vls}
}

// Run blocks until the context is done, refreshing the cache on a fixed
// interval. A failed refresh is logged and skipped; the cache keeps its
// previous value.
func (r *CacheRefresher) Run(ctx context.Context) {
	ticker := time.NewTicker(cacheRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.refresh(ctx); err != nil {
				log.Printf("peer cache refresh: %v", err)
			}
		}
	}
}

func (r *CacheRefresher) refresh(ctx context.Context) error {
	summaries, err := CollectSummaries(r.wgs, r.vls)
	if err != nil {
		return err
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		return err
	}
	return r.cache.Set(ctx, data)
}

// CollectSummaries builds the summary list for every peer of both
// protocols. Shared with the admin API's store-fallback path.
func CollectSummaries(wgs *database.WireguardPeerStore, vls *database.VlessPeerStore) ([]types.PeerSummary, error) {
	wgPeers, err := wgs.All()
	if err != nil {
		return nil, err
	}
	vlPeers, err := vls.All()
	if err != nil {
		return nil, err
	}

	summaries := make([]types.PeerSummary, 0, len(wgPeers)+len(vlPeers))
	for _, p := range wgPeers {
		summaries = append(summaries, types.PeerSummary{
			TelegramID: p.TelegramID,
			Protocol:   "wireguard",
			Name:       p.Name,
			Address:    p.IP,
			Enabled:    p.Enabled,
			CreatedAt:  p.CreatedAt,
			ExpiresAt:  p.ExpiresAt,
		})
	}
	for _, p := range vlPeers {
		summaries = append(summaries, types.PeerSummary{
			TelegramID: p.TelegramID,
			Protocol:   "vless",
			Name:       p.Name,
			Address:    p.ClientID,
			Enabled:    p.Enabled,
			CreatedAt:  p.CreatedAt,
			ExpiresAt:  p.ExpiresAt,
		})
	}
	return summaries, nil
}
