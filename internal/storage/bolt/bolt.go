package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/datavines/warn-console/internal/model"
	"github.com/datavines/warn-console/internal/storage"
	bolt "go.etcd.io/bbolt"
)

var _ storage.Store = (*Store)(nil)

var buckets = map[model.TableKind][]byte{
	model.KindWarning:    []byte("warnings"),
	model.KindWarnMetric: []byte("warn_metrics"),
	model.KindNotice:     []byte("notices"),
}

// Store is a BoltDB-backed Store implementation.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// New initialises the Bolt store.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, kind := range model.Kinds {
			if _, err := tx.CreateBucketIfNotExists(buckets[kind]); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes underlying Bolt DB.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database can open a read transaction.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(*bolt.Tx) error { return nil })
}

// CreateItem appends a row to the kind's bucket under the next sequence id.
func (s *Store) CreateItem(ctx context.Context, kind model.TableKind, name string) (*model.TableRecord, error) {
	bucket, err := bucketFor(ctx, kind)
	if err != nil {
		return nil, err
	}
	now := s.now()
	rec := &model.TableRecord{
		Kind:      kind,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucket)
		id, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		rec.ID = id
		return put(bkt, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetItem fetches one row by id.
func (s *Store) GetItem(ctx context.Context, kind model.TableKind, id uint64) (*model.TableRecord, error) {
	bucket, err := bucketFor(ctx, kind)
	if err != nil {
		return nil, err
	}
	var rec *model.TableRecord
	err = s.db.View(func(tx *bolt.Tx) error {
		var err error
		rec, err = get(tx.Bucket(bucket), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateItem renames an existing row.
func (s *Store) UpdateItem(ctx context.Context, kind model.TableKind, id uint64, name string) (*model.TableRecord, error) {
	bucket, err := bucketFor(ctx, kind)
	if err != nil {
		return nil, err
	}
	var rec *model.TableRecord
	err = s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucket)
		var err error
		rec, err = get(bkt, id)
		if err != nil {
			return err
		}
		rec.Name = name
		rec.UpdatedAt = s.now()
		return put(bkt, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteItem removes a row.
func (s *Store) DeleteItem(ctx context.Context, kind model.TableKind, id uint64) error {
	bucket, err := bucketFor(ctx, kind)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucket)
		key := itob(id)
		if bkt.Get(key) == nil {
			return storage.ErrNotFound
		}
		return bkt.Delete(key)
	})
}

// ListItems returns every row of the kind in ascending id order.
func (s *Store) ListItems(ctx context.Context, kind model.TableKind) ([]*model.TableRecord, error) {
	bucket, err := bucketFor(ctx, kind)
	if err != nil {
		return nil, err
	}
	var records []*model.TableRecord
	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(_, v []byte) error {
			var rec model.TableRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
			return nil
		})
	})
	return records, err
}

func bucketFor(ctx context.Context, kind model.TableKind) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownKind, kind)
	}
	return buckets[kind], nil
}

func get(bkt *bolt.Bucket, id uint64) (*model.TableRecord, error) {
	v := bkt.Get(itob(id))
	if v == nil {
		return nil, storage.ErrNotFound
	}
	var rec model.TableRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func put(bkt *bolt.Bucket, rec *model.TableRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return bkt.Put(itob(rec.ID), payload)
}

func itob(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}
