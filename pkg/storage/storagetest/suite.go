// Package storagetest holds the behaviour every storage.Store backend must share.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/quantumtheater/pkg/storage"
)

// StoreSuite runs the common Store contract against a backend.
// Embed it and set NewStore in SetupTest.
type StoreSuite struct {
	suite.Suite
	Store      storage.Store
	Writers    int // goroutines in the concurrency test
	Increments int // increments per goroutine
}

func (s *StoreSuite) ctx() context.Context {
	return context.Background()
}

func (s *StoreSuite) TestGetMissing() {
	_, err := s.Store.Get(s.ctx(), "missing")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StoreSuite) TestUpdateCreatesAndReplaces() {
	err := s.Store.Update(s.ctx(), "greeting", func(current []byte, exists bool) ([]byte, error) {
		s.False(exists)
		return []byte(`"hello"`), nil
	})
	s.Require().NoError(err)

	err = s.Store.Update(s.ctx(), "greeting", func(current []byte, exists bool) ([]byte, error) {
		s.True(exists)
		s.JSONEq(`"hello"`, string(current))
		return []byte(`"goodbye"`), nil
	})
	s.Require().NoError(err)

	value, err := s.Store.Get(s.ctx(), "greeting")
	s.Require().NoError(err)
	s.JSONEq(`"goodbye"`, string(value))
}

func (s *StoreSuite) TestUpdateErrorWritesNothing() {
	s.Require().NoError(storage.Put(s.ctx(), s.Store, "balance", []byte(`20`)))
	boom := errors.New("insufficient")

	err := s.Store.Update(s.ctx(), "balance", func([]byte, bool) ([]byte, error) {
		return nil, boom
	})
	s.ErrorIs(err, boom)

	err = s.Store.Update(s.ctx(), "balance", func([]byte, bool) ([]byte, error) {
		return nil, storage.ErrUnchanged
	})
	s.ErrorIs(err, storage.ErrUnchanged)

	value, err := s.Store.Get(s.ctx(), "balance")
	s.Require().NoError(err)
	s.JSONEq(`20`, string(value))
}

func (s *StoreSuite) TestDeleteAndKeys() {
	for _, key := range []string{"user/b/wallet", "user/a/wallet", "facts"} {
		s.Require().NoError(storage.Put(s.ctx(), s.Store, key, []byte(`{}`)))
	}

	keys, err := s.Store.Keys(s.ctx(), "user/")
	s.Require().NoError(err)
	s.Equal([]string{"user/a/wallet", "user/b/wallet"}, keys)

	s.Require().NoError(s.Store.Delete(s.ctx(), "user/a/wallet"))
	s.Require().NoError(s.Store.Delete(s.ctx(), "never-existed"))

	keys, err = s.Store.Keys(s.ctx(), "user/")
	s.Require().NoError(err)
	s.Equal([]string{"user/b/wallet"}, keys)
}

func (s *StoreSuite) TestMutateTyped() {
	type counter struct {
		Count int `json:"count"`
	}

	got, err := storage.Mutate(s.ctx(), s.Store, "counter", counter{}, func(c counter) (counter, error) {
		c.Count++
		return c, nil
	})
	s.Require().NoError(err)
	s.Equal(1, got.Count)

	loaded, err := storage.Load(s.ctx(), s.Store, "counter", counter{})
	s.Require().NoError(err)
	s.Equal(1, loaded.Count)

	missing, err := storage.Load(s.ctx(), s.Store, "no-counter", counter{Count: 7})
	s.Require().NoError(err)
	s.Equal(7, missing.Count)
}

func (s *StoreSuite) TestConcurrentUpdatesAreNotLost() {
	writers, increments := s.Writers, s.Increments
	if writers == 0 {
		writers = 8
	}
	if increments == 0 {
		increments = 25
	}

	var wg sync.WaitGroup
	errs := make(chan error, writers*increments)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				err := s.Store.Update(s.ctx(), "hits", func(current []byte, exists bool) ([]byte, error) {
					n := 0
					if exists {
						var err error
						if n, err = strconv.Atoi(string(current)); err != nil {
							return nil, err
						}
					}
					return []byte(fmt.Sprint(n + 1)), nil
				})
				if err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}

	value, err := s.Store.Get(s.ctx(), "hits")
	s.Require().NoError(err)
	s.Equal(fmt.Sprint(writers*increments), string(value))
}
