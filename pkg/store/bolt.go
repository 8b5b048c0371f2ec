package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/croftlabs/croft/pkg/types"
)

var (
	bucketMeta            = []byte("meta")
	bucketNodes           = []byte("nodes")
	bucketPods            = []byte("pods")
	bucketPacks           = []byte("packs")
	bucketNamespaces      = []byte("namespaces")
	bucketPriorityClasses = []byte("priority_classes")
	bucketHistories       = []byte("histories")

	keyTakenAt = []byte("taken_at")
)

// BoltStore implements StateStore on a single bbolt file, one bucket per
// entity kind with JSON values. A Save replaces everything in one write
// transaction, so a crash mid-save leaves the previous snapshot intact.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the snapshot database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets() {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func allBuckets() [][]byte {
	return [][]byte{
		bucketMeta,
		bucketNodes,
		bucketPods,
		bucketPacks,
		bucketNamespaces,
		bucketPriorityClasses,
		bucketHistories,
	}
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Save writes the snapshot, replacing whatever was stored before.
func (s *BoltStore) Save(snap *types.ClusterSnapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets() {
			if err := tx.DeleteBucket(bucket); err != nil {
				return fmt.Errorf("clear bucket %s: %w", bucket, err)
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return fmt.Errorf("recreate bucket %s: %w", bucket, err)
			}
		}

		for _, n := range snap.Nodes {
			if err := putJSON(tx, bucketNodes, n.ID, n); err != nil {
				return err
			}
		}
		for _, p := range snap.Pods {
			if err := putJSON(tx, bucketPods, p.ID, p); err != nil {
				return err
			}
		}
		for _, p := range snap.Packs {
			if err := putJSON(tx, bucketPacks, p.ID, p); err != nil {
				return err
			}
		}
		for _, ns := range snap.Namespaces {
			if err := putJSON(tx, bucketNamespaces, ns.Name, ns); err != nil {
				return err
			}
		}
		for _, pc := range snap.PriorityClasses {
			if err := putJSON(tx, bucketPriorityClasses, pc.Name, pc); err != nil {
				return err
			}
		}
		for podID, entries := range snap.Histories {
			if err := putJSON(tx, bucketHistories, podID, entries); err != nil {
				return err
			}
		}

		takenAt, err := snap.TakenAt.MarshalText()
		if err != nil {
			return fmt.Errorf("marshal snapshot timestamp: %w", err)
		}
		return tx.Bucket(bucketMeta).Put(keyTakenAt, takenAt)
	})
}

// Load reads the stored snapshot. A store that has never been saved to
// returns (nil, nil).
func (s *BoltStore) Load() (*types.ClusterSnapshot, error) {
	var snap *types.ClusterSnapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		takenAt := tx.Bucket(bucketMeta).Get(keyTakenAt)
		if takenAt == nil {
			return nil
		}

		snap = &types.ClusterSnapshot{
			Histories: make(map[string][]*types.PodHistoryEntry),
		}
		if err := snap.TakenAt.UnmarshalText(takenAt); err != nil {
			return fmt.Errorf("parse snapshot timestamp: %w", err)
		}

		if err := eachJSON(tx, bucketNodes, func(n *types.Node) {
			snap.Nodes = append(snap.Nodes, n)
		}); err != nil {
			return err
		}
		if err := eachJSON(tx, bucketPods, func(p *types.Pod) {
			snap.Pods = append(snap.Pods, p)
		}); err != nil {
			return err
		}
		if err := eachJSON(tx, bucketPacks, func(p *types.Pack) {
			snap.Packs = append(snap.Packs, p)
		}); err != nil {
			return err
		}
		if err := eachJSON(tx, bucketNamespaces, func(ns *types.Namespace) {
			snap.Namespaces = append(snap.Namespaces, ns)
		}); err != nil {
			return err
		}
		if err := eachJSON(tx, bucketPriorityClasses, func(pc *types.PriorityClass) {
			snap.PriorityClasses = append(snap.PriorityClasses, pc)
		}); err != nil {
			return err
		}
		return tx.Bucket(bucketHistories).ForEach(func(k, v []byte) error {
			var entries []*types.PodHistoryEntry
			if err := json.Unmarshal(v, &entries); err != nil {
				return fmt.Errorf("unmarshal history %s: %w", k, err)
			}
			snap.Histories[string(k)] = entries
			return nil
		})
	})
	return snap, err
}

func putJSON(tx *bolt.Tx, bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", bucket, key, err)
	}
	return tx.Bucket(bucket).Put([]byte(key), data)
}

func eachJSON[T any](tx *bolt.Tx, bucket []byte, fn func(*T)) error {
	return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
		item := new(T)
		if err := json.Unmarshal(v, item); err != nil {
			return fmt.Errorf("unmarshal %s/%s: %w", bucket, k, err)
		}
		fn(item)
		return nil
	})
}
