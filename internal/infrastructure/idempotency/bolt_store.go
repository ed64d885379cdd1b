// Package idempotency 基于BoltDB的Idempotency-Key存储
//
// 单文件嵌入式KV，不依赖外部进程。
// 请求执行前先用Save占住key（先写者胜），完成后Complete写入响应，失败时Release；
// 过期条目在读取时惰性删除。
package idempotency

import (
	"os"
	"path/filepath"
	"time"

	bolt "github.com/boltdb/bolt"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	bucketName = "idempotency_keys"

	// pendingTimeout 占位条目的有效期，进程在请求中途退出后key不会被长期占住
	pendingTimeout = 2 * time.Minute
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry 一次请求的响应快照；Pending表示请求已占住key但尚未完成
type Entry struct {
	Fingerprint string    `json:"fingerprint"` // 请求体摘要，同key不同请求体视为误用
	Pending     bool      `json:"pending,omitempty"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store BoltDB存储
type Store struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// Open 打开（或创建）数据库文件并确保bucket存在
func Open(path string, ttl time.Duration) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create idempotency dir %s", dir)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create idempotency bucket")
	}

	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Close 释放文件锁
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup 查找未过期的条目
func (s *Store) Lookup(key string) (*Entry, bool, error) {
	var (
		entry   Entry
		found   bool
		expired bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &entry); err != nil {
			return err
		}
		if s.expired(entry) {
			expired = true
			return nil
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "lookup idempotency key %s", key)
	}

	if expired {
		_ = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
		})
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Save 仅在key不存在（或已过期）时写入
// 返回最终保存的条目，以及本次是否发生了写入
func (s *Store) Save(key string, entry Entry) (*Entry, bool, error) {
	var (
		result  Entry
		written bool
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		if existing := b.Get([]byte(key)); existing != nil {
			if err := json.Unmarshal(existing, &result); err != nil {
				return err
			}
			if !s.expired(result) {
				return nil
			}
		}

		entry.StoredAt = s.now().UTC()
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		result = entry
		written = true
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "save idempotency key %s", key)
	}
	return &result, written, nil
}

// Complete 用最终响应覆盖占位条目
func (s *Store) Complete(key string, entry Entry) error {
	entry.Pending = false
	entry.StoredAt = s.now().UTC()
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrapf(err, "encode idempotency key %s", key)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
	if err != nil {
		return errors.Wrapf(err, "complete idempotency key %s", key)
	}
	return nil
}

// Release 删除条目，之后同一个key可以重新执行
func (s *Store) Release(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
	if err != nil {
		return errors.Wrapf(err, "release idempotency key %s", key)
	}
	return nil
}

// Purge 删除所有过期条目，返回删除数量
func (s *Store) Purge() (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil || s.expired(e) {
				// ForEach期间不能修改bucket，先收集
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "purge idempotency keys")
	}
	return removed, nil
}

func (s *Store) expired(e Entry) bool {
	age := s.now().Sub(e.StoredAt)
	if e.Pending {
		return age > pendingTimeout
	}
	return s.ttl > 0 && age > s.ttl
}
