package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	accessBucket   = []byte("company_position")
	questionBucket = []byte("questions")
)

type boltAccessValue struct {
	Company  string `json:"company"`
	Position string `json:"position"`
}

type boltQuestionValue struct {
	Question string `json:"question"`
	Doc      string `json:"doc"`
}

// BoltStore keeps the access-code table in a single BoltDB file, one bucket
// per logical dataset.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{accessBucket, questionBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func questionKey(company, position string) []byte {
	return []byte(company + "\x00" + position)
}

func (s *BoltStore) GetAccessRecord(ctx context.Context, accessCode string) (*AccessRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *AccessRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(accessBucket).Get([]byte(accessCode))
		if raw == nil {
			return nil
		}
		var v boltAccessValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("corrupt access record %q: %w", accessCode, err)
		}
		rec = &AccessRecord{AccessCode: accessCode, Company: v.Company, Position: v.Position}

		if qraw := tx.Bucket(questionBucket).Get(questionKey(v.Company, v.Position)); qraw != nil {
			var q boltQuestionValue
			if err := json.Unmarshal(qraw, &q); err != nil {
				return fmt.Errorf("corrupt question for %s/%s: %w", v.Company, v.Position, err)
			}
			rec.Question, rec.Doc = q.Question, q.Doc
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read access record: %w", err)
	}
	return rec, nil
}

func (s *BoltStore) UpsertAccessRecords(ctx context.Context, records []AccessRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		codes := tx.Bucket(accessBucket)
		questions := tx.Bucket(questionBucket)
		for _, rec := range records {
			v, err := json.Marshal(boltAccessValue{Company: rec.Company, Position: rec.Position})
			if err != nil {
				return err
			}
			if err := codes.Put([]byte(rec.AccessCode), v); err != nil {
				return fmt.Errorf("put access code %s: %w", rec.AccessCode, err)
			}
			if rec.Question != "" {
				q, err := json.Marshal(boltQuestionValue{Question: rec.Question, Doc: rec.Doc})
				if err != nil {
					return err
				}
				if err := questions.Put(questionKey(rec.Company, rec.Position), q); err != nil {
					return fmt.Errorf("put question for %s/%s: %w", rec.Company, rec.Position, err)
				}
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to provision bolt store: %w", err)
	}
	return count, nil
}
