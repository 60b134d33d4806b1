// Package memory provides an in-process price cache used when Redis is not
// configured. Single-process runs need no external cache at all.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/degenlabs/moonshot/internal/domain"
)

type quote struct {
	price float64
	ts    time.Time
}

// PriceCache implements domain.PriceCache with a mutex-guarded map.
type PriceCache struct {
	mu     sync.RWMutex
	quotes map[string]quote
}

// NewPriceCache creates an empty in-memory price cache.
func NewPriceCache() *PriceCache {
	return &PriceCache{quotes: make(map[string]quote)}
}

// SetPrice stores the latest price and timestamp for a market.
func (pc *PriceCache) SetPrice(_ context.Context, marketID string, price float64, ts time.Time) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.quotes[marketID] = quote{price: price, ts: ts}
	return nil
}

// GetPrice retrieves the latest price and timestamp for a market. It returns
// domain.ErrNotFound when no quote has been stored.
func (pc *PriceCache) GetPrice(_ context.Context, marketID string) (float64, time.Time, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	q, ok := pc.quotes[marketID]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return q.price, q.ts, nil
}

// GetPrices retrieves the latest prices for multiple markets. Markets without
// a quote are omitted.
func (pc *PriceCache) GetPrices(_ context.Context, marketIDs []string) (map[string]float64, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	result := make(map[string]float64, len(marketIDs))
	for _, id := range marketIDs {
		if q, ok := pc.quotes[id]; ok {
			result[id] = q.price
		}
	}
	return result, nil
}

var _ domain.PriceCache = (*PriceCache)(nil)
