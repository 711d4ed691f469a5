package lstore

import (
	"math"
	"sync"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var Logger = logger.GetLogger("store")

const (
	// ExpireInterval is the pause between two background expiration runs
	ExpireInterval = 100 * time.Millisecond
	// ExpireWorkPerRun bounds the keys removed by one background run
	ExpireWorkPerRun = 2_000
)

type storeImpl struct {
	mu        sync.Mutex
	db        db.KVDB
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewLocalStore creates a new local store instance.
// It starts a goroutine expiring keys until Close is called.
func NewLocalStore(factory store.DBFactory) store.IStore {
	s := &storeImpl{
		db:   factory(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.expireLoop()
	return s
}

func (s *storeImpl) expireLoop() {
	defer close(s.done)
	ticker := time.NewTicker(ExpireInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			n := s.db.ExpireDue(ExpireWorkPerRun)
			s.mu.Unlock()
			if n > 0 {
				Logger.Debugf("expired %d keys", n)
			}
		}
	}
}

// translate maps keyspace errors to store errors
func translate(err error, wrongTypeMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrWrongType) {
		return store.NewError(store.RetCWrongType, wrongTypeMsg)
	}
	return errors.Wrap(err, "local store")
}

const (
	expectString = "expect string"
	expectZSet   = "expect zset"
)

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, false, translate(err, expectString)
	}
	// the engine owns val
	return append([]byte(nil), val...), ok, nil
}

func (s *storeImpl) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Set([]byte(key), value)
	return translate(err, expectString)
}

func (s *storeImpl) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Delete([]byte(key)), nil
}

func (s *storeImpl) Keys() ([]string, error) {
	s.mu.Lock()
	keys := s.db.Keys()
	s.mu.Unlock()
	return lo.Map(keys, func(k []byte, _ int) string { return string(k) }), nil
}

func (s *storeImpl) PExpire(key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Expire([]byte(key), ttl), nil
}

func (s *storeImpl) PTTL(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.TTL([]byte(key)), nil
}

func (s *storeImpl) ZAdd(key string, score float64, name string) (bool, error) {
	if math.IsNaN(score) {
		return false, store.NewError(store.RetCInvalidArgument, "expect float")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	added, err := s.db.ZAdd([]byte(key), score, []byte(name))
	return added, translate(err, expectZSet)
}

func (s *storeImpl) ZRem(key, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed, err := s.db.ZRem([]byte(key), []byte(name))
	return removed, translate(err, expectZSet)
}

func (s *storeImpl) ZScore(key, name string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score, ok, err := s.db.ZScore([]byte(key), []byte(name))
	return score, ok, translate(err, expectZSet)
}

func (s *storeImpl) ZRank(key, name string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rank, ok, err := s.db.ZRank([]byte(key), []byte(name))
	return rank, ok, translate(err, expectZSet)
}

func (s *storeImpl) ZCard(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.db.ZCard([]byte(key))
	return int64(n), translate(err, expectZSet)
}

func (s *storeImpl) ZQuery(key string, score float64, name string, offset, limit int64) ([]db.ScoredMember, error) {
	if math.IsNaN(score) {
		return nil, store.NewError(store.RetCInvalidArgument, "expect float")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		_, err := s.db.ZCard([]byte(key))
		return []db.ScoredMember{}, translate(err, expectZSet)
	}
	members, err := s.db.ZQuery([]byte(key), score, []byte(name), offset, limit)
	if err != nil {
		return nil, translate(err, expectZSet)
	}
	// the engine owns the names
	return lo.Map(members, func(m db.ScoredMember, _ int) db.ScoredMember {
		return db.ScoredMember{Name: append([]byte(nil), m.Name...), Score: m.Score}
	}), nil
}

func (s *storeImpl) Close() (err error) {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done

		s.mu.Lock()
		defer s.mu.Unlock()
		err = s.db.Close()
	})
	return err
}
