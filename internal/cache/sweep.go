package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/gitagen/gitagen/internal/log"
)

// Retention defaults.
const (
	DefaultSweepInterval = 30 * time.Minute
	DefaultMaxAge        = 7 * 24 * time.Hour
	DefaultMaxRows       = 20000
)

const gcDiscardRatio = 0.5

// SweepResult summarizes one retention pass.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"` // older than MaxAge
	Evicted int `json:"evicted"` // over MaxRows, oldest first
}

type row struct {
	key []byte
	at  int64
}

// Sweep removes entries older than the configured max age, then the oldest
// entries beyond the row cap, and finally reclaims value log space.
func (s *Store) Sweep(ctx context.Context) (SweepResult, error) {
	maxAge := s.opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	maxRows := s.opts.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	var res SweepResult
	var rows []row
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			if !hasPrefix(item.Key()) {
				continue
			}
			var at int64
			err := item.Value(func(val []byte) error {
				var env struct {
					At int64 `json:"at"`
				}
				if err := json.Unmarshal(val, &env); err != nil {
					// unreadable rows sort first and go out with the expired ones
					return nil
				}
				at = env.At
				return nil
			})
			if err != nil {
				return err
			}
			rows = append(rows, row{key: item.KeyCopy(nil), at: at})
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("failed to scan cache: %w", err)
	}
	res.Scanned = len(rows)

	cutoff := s.now().Add(-maxAge).UnixMilli()
	var drop [][]byte
	keep := rows[:0]
	for _, r := range rows {
		if r.at < cutoff {
			drop = append(drop, r.key)
			res.Expired++
			continue
		}
		keep = append(keep, r)
	}

	if over := len(keep) - maxRows; over > 0 {
		slices.SortFunc(keep, func(a, b row) int {
			switch {
			case a.at < b.at:
				return -1
			case a.at > b.at:
				return 1
			}
			return 0
		})
		for _, r := range keep[:over] {
			drop = append(drop, r.key)
		}
		res.Evicted = over
	}

	if err := s.deleteKeys(drop); err != nil {
		return res, fmt.Errorf("failed to delete expired entries: %w", err)
	}

	if !s.inMemory {
		if err := s.db.RunValueLogGC(gcDiscardRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			log.FromContext(ctx).Warn("cache value log GC failed", "err", err)
		}
	}

	log.FromContext(ctx).Debug("cache swept", "scanned", res.Scanned, "expired", res.Expired, "evicted", res.Evicted)
	return res, nil
}

// Sweeper runs Sweep on a fixed interval in its own goroutine, outside any
// read or write path.
type Sweeper struct {
	store    *Store
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// StartSweeper starts periodic sweeping. The store's Close stops it.
func (s *Store) StartSweeper(ctx context.Context) *Sweeper {
	if s.sweeper != nil {
		return s.sweeper
	}
	interval := s.opts.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	sw := &Sweeper{
		store:    s,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	s.sweeper = sw
	go sw.run(ctx)
	return sw
}

func (sw *Sweeper) run(ctx context.Context) {
	defer close(sw.doneCh)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sw.store.Sweep(ctx); err != nil && ctx.Err() == nil {
				log.FromContext(ctx).Warn("cache sweep failed", "err", err)
			}
		}
	}
}

// Stop halts the sweeper and waits for an in-flight sweep to finish.
// Safe to call more than once.
func (sw *Sweeper) Stop() {
	sw.stopOnce.Do(func() { close(sw.stopCh) })
	<-sw.doneCh
}
