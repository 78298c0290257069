// Package store is the durable, chronologically-ordered trade log: an
// append-only archive over github.com/cockroachdb/pebble, keyed so that
// byte order on disk equals numeric (timestamp, maker, taker, price,
// quantity) order within a symbol.
//
// Grounded directly on the Rust original's src/store.rs (ParityDB-backed
// store with the same key schema and operations); pebble is its Go
// analogue — no ParityDB binding exists in this ecosystem, and pebble is
// the ordered LSM store the retrieved pack itself reaches for in this
// exact role.
package store

import (
	"bytes"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"fenrir/internal/trade"
)

func nanosToTime(nanos uint64) time.Time {
	return time.Unix(0, int64(nanos)).UTC()
}

// Store is a handle onto one on-disk trade log. Safe for concurrent use
// by multiple goroutines: pebble serializes its own writes internally,
// so callers never need an external lock around a Store.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if absent) the trade log rooted at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pebble handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists one trade as a single-entry batch commit, synced to
// stable storage before returning. Idempotent: inserting the same
// record twice produces the same key and the same value, so the second
// insert is a no-op overwrite.
func (s *Store) Insert(t trade.Trade) error {
	key := encodeKey(t.Symbol, uint64(t.Timestamp.UnixNano()), t.MakerID, t.TakerID, t.Price, t.Quantity)
	val := encodeValue(t)

	batch := s.db.NewBatch()
	if err := batch.Set(key, val, nil); err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	return nil
}

// PageAscending returns up to limit trades for symbol, starting strictly
// after afterCursor (or from the beginning, if afterCursor is empty), in
// ascending chronological order. next is non-empty iff at least one more
// entry exists beyond the returned page.
func (s *Store) PageAscending(symbol string, afterCursor string, limit int) (items []trade.Trade, next string, err error) {
	if limit < 1 {
		limit = 1
	}

	prefix := keyPrefix(symbol)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, "", fmt.Errorf("store: page_ascending: %w", err)
	}
	defer iter.Close()

	if afterCursor != "" {
		cur, decodeErr := decodeCursor(afterCursor)
		if decodeErr != nil {
			return nil, "", ErrBadCursor
		}
		want := cur.key(symbol)
		if !iter.SeekGE(want) || !bytes.Equal(iter.Key(), want) {
			return nil, "", ErrBadCursor
		}
		iter.Next()
	} else {
		iter.SeekGE(prefix)
	}

	count := 0
	for iter.Valid() {
		t, decodeErr := decodeValue(iter.Value())
		if decodeErr != nil {
			return nil, "", fmt.Errorf("store: page_ascending: %w", decodeErr)
		}
		if count == limit {
			// t is the (limit+1)-th entry, present only to prove another
			// page exists; next must cite the limit-th item actually
			// returned, not this overflow entry, since resuming from a
			// cursor always seeks to its key and then steps past it.
			next = cursorFor(items[len(items)-1]).encode()
			break
		}
		items = append(items, t)
		count++
		iter.Next()
	}
	if err := iter.Error(); err != nil {
		return nil, "", fmt.Errorf("store: page_ascending: %w", err)
	}
	return items, next, nil
}

// All returns every trade for symbol in ascending order, paging
// internally. It exists for admin/export tooling that wants the full
// log rather than a cursor-driven page, mirroring the original store's
// iter_trades; it introduces no new on-disk format of its own.
func (s *Store) All(symbol string) ([]trade.Trade, error) {
	const pageSize = 500
	var all []trade.Trade
	cursor := ""
	for {
		items, next, err := s.PageAscending(symbol, cursor, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

// DeleteAll batch-deletes every entry for symbol.
func (s *Store) DeleteAll(symbol string) error {
	prefix := keyPrefix(symbol)
	if err := s.db.DeleteRange(prefix, prefixUpperBound(prefix), pebble.Sync); err != nil {
		return fmt.Errorf("store: delete_all %s: %w", symbol, err)
	}
	return nil
}
