package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.etcd.io/bbolt"
)

// ErrNoToken is returned by TokenStore.Load when nothing is stored.
var ErrNoToken = errors.New("no stored token")

// TokenStore persists the access token between runs.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *MemoryStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

var sessionBucket = []byte("session")

// BoltStore keeps one token per profile in a bbolt file.
type BoltStore struct {
	db  *bbolt.DB
	key []byte
}

// OpenBoltStore opens (or creates) the file at path.
func OpenBoltStore(path, profile string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session file %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, key: []byte(profile)}, nil
}

func (b *BoltStore) Load(context.Context) (string, error) {
	var token string
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(sessionBucket).Get(b.key)
		if v == nil {
			return ErrNoToken
		}
		token = string(v)
		return nil
	})
	return token, err
}

func (b *BoltStore) Save(_ context.Context, token string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(b.key, []byte(token))
	})
}

func (b *BoltStore) Clear(context.Context) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(b.key)
	})
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}

// RedisStore keeps the token under studenthub:token:<profile>, so several
// machines can share one sign-in.
type RedisStore struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
}

// NewRedisStore stores tokens with the given TTL; zero keeps them until Clear.
func NewRedisStore(client *redis.Client, profile string, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session.NewRedisStore: redis client is nil")
	}
	return &RedisStore{redis: client, key: tokenKey(profile), ttl: ttl}
}

func tokenKey(profile string) string {
	return "studenthub:token:" + profile
}

func (r *RedisStore) Load(ctx context.Context) (string, error) {
	token, err := r.redis.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoToken
	}
	return token, err
}

func (r *RedisStore) Save(ctx context.Context, token string) error {
	return r.redis.Set(ctx, r.key, token, r.ttl).Err()
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.redis.Del(ctx, r.key).Err()
}
