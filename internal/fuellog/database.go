package fuellog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// DefaultCollection is the bucket fuel logs are stored in
	DefaultCollection = "fuel_logs"
	dedupeSuffix      = "_dedupe"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("fuel log not found")
	// ErrDuplicate is returned when a record with the same date, station and total already exists
	ErrDuplicate = errors.New("duplicate fuel log")
)

// ListOptions controls which records List returns and in what order
type ListOptions struct {
	Filters   []Filter
	Limit     int  // 0 means no limit
	OrderDesc bool // by date
}

// DB defines the interface for fuel log persistence
type DB interface {
	// Query returns every record matching all filters
	Query(ctx context.Context, filters ...Filter) (*QueryResult, error)

	// Insert stores a new record under id with the given permissions
	Insert(ctx context.Context, id string, record *Record, permissions []string) (*Record, error)

	// Get retrieves a record by ID
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records ordered by date, Total counts matches before Limit is applied
	List(ctx context.Context, opts ListOptions) (*QueryResult, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db         *bbolt.DB
	collection []byte
	dedupe     []byte
	now        func() time.Time
}

// NewBoltDB opens the database file and creates the collection buckets
func NewBoltDB(path, collection string) (*BoltDB, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	b := &BoltDB{
		db:         db,
		collection: []byte(collection),
		dedupe:     []byte(collection + dedupeSuffix),
		now:        time.Now,
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(b.collection); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(b.dedupe); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return b, nil
}

// DedupeKey is the identity of a fuel-up: same day, same station, same total
func DedupeKey(date, stationName string, priceTotal *float64) string {
	total := "null"
	if priceTotal != nil {
		total = strconv.FormatFloat(*priceTotal, 'f', -1, 64)
	}
	return date + "\x00" + stationName + "\x00" + total
}

// Insert stores a new record. The dedupe index is checked in the same write
// transaction, so concurrent inserts of the same fuel-up cannot both land.
func (b *BoltDB) Insert(ctx context.Context, id string, record *Record, permissions []string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("inserting fuel log: empty id")
	}

	doc := *record
	doc.ID = id
	doc.CreatedAt = b.now().UTC()
	doc.Permissions = append([]string(nil), permissions...)

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.collection)
		index := tx.Bucket(b.dedupe)

		if bucket.Get([]byte(id)) != nil {
			return fmt.Errorf("fuel log already exists: %s", id)
		}
		key := []byte(DedupeKey(doc.Date, doc.StationName, doc.PriceTotal))
		if index.Get(key) != nil {
			return ErrDuplicate
		}

		data, err := json.Marshal(&doc)
		if err != nil {
			return fmt.Errorf("marshaling fuel log: %w", err)
		}
		if err := bucket.Put([]byte(id), data); err != nil {
			return err
		}
		return index.Put(key, []byte(id))
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Get retrieves a record by ID
func (b *BoltDB) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(b.collection).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Query returns every record matching all filters
func (b *BoltDB) Query(ctx context.Context, filters ...Filter) (*QueryResult, error) {
	return b.List(ctx, ListOptions{Filters: filters})
}

// List returns matching records ordered by date
func (b *BoltDB) List(ctx context.Context, opts ListOptions) (*QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records := make([]*Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.collection).ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling fuel log: %w", err)
			}
			if matchAll(&record, opts.Filters) {
				records = append(records, &record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		x, y := records[i], records[j]
		if x.Date == y.Date {
			if opts.OrderDesc {
				return x.CreatedAt.After(y.CreatedAt)
			}
			return x.CreatedAt.Before(y.CreatedAt)
		}
		if opts.OrderDesc {
			return x.Date > y.Date
		}
		return x.Date < y.Date
	})

	total := len(records)
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	return &QueryResult{Documents: records, Total: total}, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
