// Package localqueue persists the offline order buffer: reservations created
// while the upstream API was unreachable at submission time. The queue is one
// ordered list, read and rewritten wholesale by every mutation. There is no
// per-record locking; callers must not yield between Load and Save within a
// handler, which keeps the read-modify-write cycle safe under the accepted
// single-admin-operator model (last write wins otherwise).
package localqueue

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"

	"vehicle-rental-api/reconcile"
)

// queueKey holds the whole persisted list under a single key, preserving the
// full-array overwrite semantics the reconciliation logic depends on.
var queueKey = []byte("orders/pending")

// ErrNotFound is returned when a mutation cannot locate its target record.
// There is no fallback layer beneath the queue, so this is fatal for the
// operation.
var ErrNotFound = errors.New("order not found in local queue")

type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Load returns the persisted queue. A missing key is an empty queue.
func (s *Store) Load() ([]reconcile.RawOrder, error) {
	val, closer, err := s.db.Get(queueKey)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	var orders []reconcile.RawOrder
	if err := json.Unmarshal(val, &orders); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return orders, nil
}

// Save overwrites the whole persisted queue.
func (s *Store) Save(orders []reconcile.RawOrder) error {
	if orders == nil {
		orders = []reconcile.RawOrder{}
	}
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := s.db.Set(queueKey, data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

// Append adds one record to the end of the queue.
func (s *Store) Append(order reconcile.RawOrder) error {
	orders, err := s.Load()
	if err != nil {
		return err
	}
	return s.Save(append(orders, order))
}

// IndexOf locates a record by the id carried in a merged-list order id,
// with the local namespace prefix already stripped. Legacy records carry
// numeric ids, and the oldest ones none at all, so matching falls back from
// id equality to numeric-id equality to positional index.
func IndexOf(orders []reconcile.RawOrder, localID string) int {
	for i, o := range orders {
		if o.Str("id", "_id") == localID {
			return i
		}
	}
	if idx, err := strconv.Atoi(localID); err == nil && idx >= 0 && idx < len(orders) {
		return idx
	}
	return -1
}

// StripLocalID removes the local namespace prefix from an order id.
// The second return is false when the id is not local-namespaced at all.
func StripLocalID(id string) (string, bool) {
	if !strings.HasPrefix(id, reconcile.LocalIDPrefix) {
		return "", false
	}
	return strings.TrimPrefix(id, reconcile.LocalIDPrefix), true
}

// UpdateStatus mutates one record's raw status in place and persists the
// whole queue back. The stored status uses the canonical vocabulary.
func (s *Store) UpdateStatus(localID, status string) (reconcile.RawOrder, error) {
	orders, err := s.Load()
	if err != nil {
		return nil, err
	}
	i := IndexOf(orders, localID)
	if i < 0 {
		return nil, ErrNotFound
	}
	orders[i]["status"] = status
	orders[i]["updatedAt"] = time.Now().Format(time.RFC3339)
	if err := s.Save(orders); err != nil {
		return nil, err
	}
	return orders[i], nil
}

// Delete removes one record from the queue entirely. Unlike upstream orders,
// a deleted queue entry has no server record to retain, so this is a hard
// delete.
func (s *Store) Delete(localID string) error {
	orders, err := s.Load()
	if err != nil {
		return err
	}
	i := IndexOf(orders, localID)
	if i < 0 {
		return ErrNotFound
	}
	orders = append(orders[:i], orders[i+1:]...)
	return s.Save(orders)
}

// Prune rewrites the queue keeping only records the keep predicate accepts,
// returning how many were dropped.
func (s *Store) Prune(keep func(reconcile.RawOrder) bool) (int, error) {
	orders, err := s.Load()
	if err != nil {
		return 0, err
	}
	kept := orders[:0]
	for _, o := range orders {
		if keep(o) {
			kept = append(kept, o)
		}
	}
	removed := len(orders) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.Save(kept); err != nil {
		return 0, err
	}
	return removed, nil
}
