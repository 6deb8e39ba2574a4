package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var settingsBucket = []byte("settings")

// Bolt keeps settings in a bbolt file. Every key is loaded at open so reads
// never touch the disk.
type Bolt struct {
	settings
	db  *bbolt.DB
	log *zap.SugaredLogger
}

// OpenBolt opens or creates the settings database at path and fills in any
// missing key with its default.
func OpenBolt(path string, log *zap.SugaredLogger) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings db %s: %w", path, err)
	}
	b := &Bolt{db: db, log: log}
	b.values = Defaults()
	b.put = b.write

	err = db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(settingsBucket)
		if err != nil {
			return err
		}
		for key, def := range b.values {
			raw := bucket.Get([]byte(key))
			if len(raw) == 8 {
				b.values[key] = decode(raw)
				continue
			}
			log.Infow("store: seeding default", "key", key, "value", def)
			if err := bucket.Put([]byte(key), encode(def)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return b, nil
}

func (b *Bolt) write(key string, v float64) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(settingsBucket).Put([]byte(key), encode(v))
	})
}

// Close releases the database file.
func (b *Bolt) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

func encode(v float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

func decode(raw []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(raw))
}
