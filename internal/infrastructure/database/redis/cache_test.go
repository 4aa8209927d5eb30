package redis

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *Client
	cache  Cache
	ctx    context.Context
}

type entry struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func (s *CacheTestSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	client, err := NewClient(&RedisConfig{Addr: s.mr.Addr()}, logging.NewNopLogger())
	s.Require().NoError(err)
	s.client = client
	s.cache = NewRedisCache(client, logging.NewNopLogger(), WithPrefix("test:"), WithDefaultTTL(time.Minute), WithoutJitter())
	s.ctx = context.Background()
}

func (s *CacheTestSuite) TearDownTest() {
	_ = s.client.Close()
}

func (s *CacheTestSuite) TestSetGet_RoundTrip() {
	s.Require().NoError(s.cache.Set(s.ctx, "k", entry{Name: "Toluol", Score: 0.9}, 0))
	s.True(s.mr.Exists("test:k"))
	s.Equal(time.Minute, s.mr.TTL("test:k"))

	var got entry
	s.Require().NoError(s.cache.Get(s.ctx, "k", &got))
	s.Equal(entry{Name: "Toluol", Score: 0.9}, got)
}

func (s *CacheTestSuite) TestGet_Miss() {
	var got entry
	err := s.cache.Get(s.ctx, "missing", &got)
	s.ErrorIs(err, ErrCacheMiss)
	s.True(errors.IsNotFound(err))
}

func (s *CacheTestSuite) TestGet_CorruptPayload() {
	s.Require().NoError(s.mr.Set("test:bad", "{not json"))
	var got entry
	err := s.cache.Get(s.ctx, "bad", &got)
	s.True(errors.IsCode(err, errors.ErrCodeSerialization))
}

func (s *CacheTestSuite) TestSet_ExplicitTTL() {
	s.Require().NoError(s.cache.Set(s.ctx, "k", 1, 5*time.Second))
	s.Equal(5*time.Second, s.mr.TTL("test:k"))
}

func (s *CacheTestSuite) TestDelete() {
	s.Require().NoError(s.cache.Set(s.ctx, "a", 1, 0))
	s.Require().NoError(s.cache.Set(s.ctx, "b", 2, 0))
	s.Require().NoError(s.cache.Delete(s.ctx, "a", "b"))
	s.False(s.mr.Exists("test:a"))
	s.False(s.mr.Exists("test:b"))
	s.NoError(s.cache.Delete(s.ctx))
}

func (s *CacheTestSuite) TestGetOrSet_HitSkipsLoader() {
	s.Require().NoError(s.cache.Set(s.ctx, "k", entry{Name: "cached"}, 0))

	var got entry
	err := s.cache.GetOrSet(s.ctx, "k", &got, 0, func(context.Context) (interface{}, error) {
		s.Fail("loader must not run on a hit")
		return nil, nil
	})
	s.Require().NoError(err)
	s.Equal("cached", got.Name)
}

func (s *CacheTestSuite) TestGetOrSet_MissLoadsAndStores() {
	var got entry
	err := s.cache.GetOrSet(s.ctx, "k", &got, 0, func(context.Context) (interface{}, error) {
		return entry{Name: "loaded", Score: 1}, nil
	})
	s.Require().NoError(err)
	s.Equal("loaded", got.Name)
	s.True(s.mr.Exists("test:k"))
}

func (s *CacheTestSuite) TestGetOrSet_LoaderError() {
	boom := stderrors.New("source down")
	var got entry
	err := s.cache.GetOrSet(s.ctx, "k", &got, 0, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	s.ErrorIs(err, boom)
	s.False(s.mr.Exists("test:k"))
}

func (s *CacheTestSuite) TestGetOrSet_ConcurrentMissesShareLoader() {
	var calls int32
	release := make(chan struct{})
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return entry{Name: "shared"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got entry
			s.NoError(s.cache.GetOrSet(s.ctx, "shared", &got, 0, loader))
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	s.LessOrEqual(atomic.LoadInt32(&calls), int32(5))
	s.GreaterOrEqual(atomic.LoadInt32(&calls), int32(1))
}

func (s *CacheTestSuite) TestGetOrSet_CacheDownStillLoads() {
	s.Require().NoError(s.client.Close())
	var got entry
	err := s.cache.GetOrSet(s.ctx, "k", &got, 0, func(context.Context) (interface{}, error) {
		return entry{Name: "direct"}, nil
	})
	s.Require().NoError(err)
	s.Equal("direct", got.Name)
}

func (s *CacheTestSuite) TestPing() {
	s.NoError(s.cache.Ping(s.ctx))
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}
