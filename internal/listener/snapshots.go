/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package listener

import (
	"slices"
	"time"

	"coin-ledger-go/internal/models"

	"go.uber.org/zap"
)

type snapshot struct {
	coins     []models.Coin
	fetchedAt time.Time
}

func (l *PriceListener) store(currency string, coins []models.Coin) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.snapshots[currency] = snapshot{coins: slices.Clone(coins), fetchedAt: l.now()}
}

func (l *PriceListener) fresh(currency string) ([]models.Coin, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	snap, ok := l.snapshots[currency]
	if !ok || l.now().Sub(snap.fetchedAt) >= l.maxAge {
		return nil, false
	}
	return slices.Clone(snap.coins), true
}

// evictStale drops snapshots older than the max age
func (l *PriceListener) evictStale() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()
	removed := 0
	for currency, snap := range l.snapshots {
		if now.Sub(snap.fetchedAt) >= l.maxAge {
			delete(l.snapshots, currency)
			removed++
		}
	}

	if removed > 0 {
		zap.L().Debug("Evicted stale price snapshots",
			zap.Int("removed", removed),
			zap.Int("remaining", len(l.snapshots)))
	}
}

// LastUpdated reports when currency was last fetched.
func (l *PriceListener) LastUpdated(currency string) (time.Time, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	snap, ok := l.snapshots[l.source.Currency(currency)]
	return snap.fetchedAt, ok
}
