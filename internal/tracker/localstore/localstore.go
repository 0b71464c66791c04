package localstore

import (
	"encoding/json"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store is the client-local persistence of the tracker: a key-value store
// plus cookie-like values with an expiry.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	GetCookie(name string) (string, bool, error)
	SetCookie(name string, value string, ttl time.Duration) error
	Close() error
}

var (
	bucketLocal   = []byte("local")
	bucketCookies = []byte("cookies")

	ErrEmptyKey = errors.New("empty key")
)

type cookie struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type boltStore struct {
	db  *bolt.DB
	now func() time.Time
}

type Option func(*boltStore)

// WithClock replaces time.Now for cookie expiry.
func WithClock(now func() time.Time) Option {
	return func(s *boltStore) {
		s.now = now
	}
}

func Open(path string, opts ...Option) (Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketLocal, bucketCookies} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &boltStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *boltStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// bbolt отдаёт срез, валидный только внутри транзакции
		if v := tx.Bucket(bucketLocal).Get([]byte(key)); v != nil {
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, value != nil, nil
}

func (s *boltStore) Set(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLocal).Put([]byte(key), value)
	})
}

func (s *boltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLocal).Delete([]byte(key))
	})
}

// GetCookie returns the cookie value; an expired cookie is removed and
// reported as absent.
func (s *boltStore) GetCookie(name string) (string, bool, error) {
	var c cookie
	var found bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCookies)
		v := b.Get([]byte(name))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &c); err != nil || !s.now().Before(c.ExpiresAt) {
			return b.Delete([]byte(name))
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return "", false, err
	}
	return c.Value, true, nil
}

func (s *boltStore) SetCookie(name string, value string, ttl time.Duration) error {
	if name == "" {
		return ErrEmptyKey
	}
	data, err := json.Marshal(cookie{Value: value, ExpiresAt: s.now().Add(ttl)})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCookies).Put([]byte(name), data)
	})
}

func (s *boltStore) Close() error {
	return s.db.Close()
}
