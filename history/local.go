package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketRecords = []byte("drift_history")

// LocalRecorder keeps drift history in a local bbolt database. Used for
// development and offline audit review; the production sink is DynamoDB.
type LocalRecorder struct {
	db *bbolt.DB
}

// OpenLocal creates or opens a local history database at path.
func OpenLocal(path string) (*LocalRecorder, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history bucket: %w", err)
	}

	return &LocalRecorder{db: db}, nil
}

// Close closes the underlying database.
func (r *LocalRecorder) Close() error {
	return r.db.Close()
}

// Put appends one record, keyed by resource id and detection timestamp.
func (r *LocalRecorder) Put(ctx context.Context, rec Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode drift record: %w", err)
	}

	key := recordKey(rec.ResourceID, rec.DetectedAt)
	err = r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("put drift record for %s: %w", rec.ResourceID, err)
	}
	return nil
}

// ListByResource returns all records for a resource in detection order.
func (r *LocalRecorder) ListByResource(ctx context.Context, resourceID string) ([]Record, error) {
	prefix := []byte(resourceID + "/")
	var records []Record

	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRecords).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode drift record %s: %w", string(k), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func recordKey(resourceID string, detectedAt time.Time) []byte {
	return []byte(resourceID + "/" + detectedAt.UTC().Format(time.RFC3339Nano))
}
