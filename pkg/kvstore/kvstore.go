// Package kvstore provides the string-keyed storage the application persists
// its collections in. Values are opaque bytes, JSON in practice.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a durable key-value store. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Observer receives the outcome of every store operation.
type Observer func(op string, duration time.Duration, err error)

// Instrumented reports the latency and result of each call on the wrapped store.
func Instrumented(store Store, observe Observer) Store {
	if observe == nil {
		return store
	}
	return &instrumented{next: store, observe: observe}
}

type instrumented struct {
	next    Store
	observe Observer
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := s.next.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		s.observe("get", time.Since(start), nil)
	} else {
		s.observe("get", time.Since(start), err)
	}
	return value, err
}

func (s *instrumented) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.next.Set(ctx, key, value)
	s.observe("set", time.Since(start), err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.observe("delete", time.Since(start), err)
	return err
}

// Prefixed namespaces every key of the wrapped store.
func Prefixed(store Store, prefix string) Store {
	if prefix == "" {
		return store
	}
	return &prefixed{next: store, prefix: prefix}
}

type prefixed struct {
	next   Store
	prefix string
}

func (s *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return s.next.Get(ctx, s.prefix+key)
}

func (s *prefixed) Set(ctx context.Context, key string, value []byte) error {
	return s.next.Set(ctx, s.prefix+key, value)
}

func (s *prefixed) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, s.prefix+key)
}
