package report

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genomic-report-server/internal/session"
)

type stubFetcher struct {
	calls int
	raw   []byte
	err   error
}

func (f *stubFetcher) GetLabResult(context.Context, string) ([]byte, error) {
	f.calls++
	return f.raw, f.err
}

type mapCache struct {
	mu    sync.Mutex
	data  map[string][]byte
	index map[string][]string
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}, index: map[string][]string{}}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, reportID, key string, raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	c.index[reportID] = append(c.index[reportID], key)
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, reportID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.index[reportID] {
		delete(c.data, key)
	}
	delete(c.index, reportID)
	return nil
}

func ctxWithToken(token string) context.Context {
	return session.WithContext(context.Background(), session.New(token))
}

func TestLoaderCachesPerToken(t *testing.T) {
	logger, _ := test.NewNullLogger()
	fetcher := &stubFetcher{raw: []byte(`{"patient": {"name": "Lina"}}`)}
	cache := newMapCache()
	l := NewLoader(fetcher, cache, logger)

	r, err := l.Load(ctxWithToken("tok-a"), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", r.ID, "id falls back to the requested one")
	assert.Equal(t, "Lina", r.Patient.Name)

	_, err = l.Load(ctxWithToken("tok-a"), "42")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)

	_, err = l.Load(ctxWithToken("tok-b"), "42")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)

	_, err = l.Load(ctxWithToken("tok-b"), "42")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls, "each token keeps its own copy")
}

func TestLoaderInvalidateDropsEveryTokensCopy(t *testing.T) {
	fetcher := &stubFetcher{raw: []byte(`{"patient": {"name": "Lina"}}`)}
	cache := newMapCache()
	l := NewLoader(fetcher, cache, nil)

	for _, tok := range []string{"tok-a", "tok-b"} {
		_, err := l.Load(ctxWithToken(tok), "42")
		require.NoError(t, err)
	}
	_, err := l.Load(ctxWithToken("tok-c"), "7")
	require.NoError(t, err)
	require.Equal(t, 3, fetcher.calls)

	l.Invalidate(ctxWithToken("tok-a"), "42")
	assert.Len(t, cache.data, 1, "other reports stay cached")

	_, err = l.Load(ctxWithToken("tok-b"), "42")
	require.NoError(t, err)
	assert.Equal(t, 4, fetcher.calls, "tok-b refetches after tok-a invalidated")

	l.Invalidate(context.Background(), "7")
	_, err = l.Load(ctxWithToken("tok-c"), "7")
	require.NoError(t, err)
	assert.Equal(t, 5, fetcher.calls)
}

func TestLoaderRequiresSession(t *testing.T) {
	l := NewLoader(&stubFetcher{}, nil, nil)
	_, err := l.Load(context.Background(), "1")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLoaderPropagatesFetchError(t *testing.T) {
	boom := errors.New("backend down")
	cache := newMapCache()
	l := NewLoader(&stubFetcher{err: boom}, cache, nil)

	_, err := l.Load(ctxWithToken("t"), "1")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, cache.data)
}

func TestLoaderDropsInvalidDocument(t *testing.T) {
	cache := newMapCache()
	l := NewLoader(&stubFetcher{raw: []byte(`{broken`)}, cache, nil)

	_, err := l.Load(ctxWithToken("t"), "1")
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Empty(t, cache.data)
}

func TestKeyScopesByToken(t *testing.T) {
	assert.NotEqual(t, Key("a", "1"), Key("b", "1"))
	assert.Equal(t, Key("a", "1"), Key("a", "1"))
	assert.Contains(t, Key("a", "1"), ":1")
}
