package pool

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// mockConn is the resource type used throughout these tests, modelled on
// the MockConn used by flexc's own test suite (tests/mock.rs): a counter
// payload plus bookkeeping for how many times it was checked.
type mockConn struct {
	count        int
	checkedTimes int
}

// mockManager is a Manager[*mockConn] whose Check can be told to fail for
// a contiguous range of invocations, mirroring flexc's MockManager bad
// range used for the "bad check" scenario.
type mockManager struct {
	mu         sync.Mutex
	connects   int
	checks     int
	connectErr error

	badFrom, badTo int // [badFrom, badTo) of check invocations fail
}

func (m *mockManager) Connect(ctx context.Context) (*mockConn, error) {
	m.mu.Lock()
	m.connects++
	err := m.connectErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &mockConn{}, nil
}

func (m *mockManager) Check(ctx context.Context, c *mockConn) error {
	m.mu.Lock()
	n := m.checks
	m.checks++
	m.mu.Unlock()

	c.checkedTimes++
	if m.badTo > m.badFrom && n >= m.badFrom && n < m.badTo {
		return errors.New("mock: bad check")
	}
	return nil
}

// blockingManager is a Manager[*mockConn] whose Connect/Check block on a
// channel until it is closed, letting a test cancel the caller's context
// while one of those stages is in flight (spec.md's "cancelling a Get
// mid-connect/check" edge case).
type blockingManager struct {
	connectBlock chan struct{}
	checkBlock   chan struct{}
}

func (m *blockingManager) Connect(ctx context.Context) (*mockConn, error) {
	select {
	case <-m.connectBlock:
		return &mockConn{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *blockingManager) Check(ctx context.Context, c *mockConn) error {
	select {
	case <-m.checkBlock:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestBasicGrowth(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr := &mockManager{}
	p, err := NewBuilder[*mockConn]().
		MaxSize(16).
		Check(time.Second).
		Timeout(time.Second).
		Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()

	h0, err := p.Get(ctx)
	require.NoError(t, err)
	st := p.State()
	assert.Equal(t, 1, st.Size)
	assert.Equal(t, 0, st.Idle)

	h1, err := p.Get(ctx)
	require.NoError(t, err)
	st = p.State()
	assert.Equal(t, 2, st.Size)
	assert.Equal(t, 0, st.Idle)

	h2, err := p.Get(ctx)
	require.NoError(t, err)
	st = p.State()
	assert.Equal(t, 3, st.Size)
	assert.Equal(t, 0, st.Idle)

	h0.Release()
	st = p.State()
	assert.Equal(t, 3, st.Size)
	assert.Equal(t, 1, st.Idle)

	h1.Release()
	st = p.State()
	assert.Equal(t, 3, st.Size)
	assert.Equal(t, 2, st.Idle)

	h2.Release()
	st = p.State()
	assert.Equal(t, 3, st.Size)
	assert.Equal(t, 3, st.Idle)
}

func TestPrewarm(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr := &mockManager{}
	p, err := NewBuilder[*mockConn]().
		MaxSize(3).
		Check(0). // check every check-out
		Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.StartConnections(ctx))

	st := p.State()
	assert.Equal(t, 3, st.Size)
	assert.Equal(t, 3, st.Idle)
	assert.Equal(t, 0, st.InUse)
	assert.Equal(t, 0, st.Empty)

	var handles []*Handle[*mockConn]
	for i := 0; i < 3; i++ {
		h, err := p.Get(ctx)
		require.NoError(t, err)
		handles = append(handles, h)
	}

	st = p.State()
	assert.Equal(t, 3, st.InUse)
	assert.Equal(t, 0, st.Idle)

	mgr.mu.Lock()
	connects, checks := mgr.connects, mgr.checks
	mgr.mu.Unlock()
	assert.Equal(t, 3, connects)
	assert.Equal(t, 6, checks) // 3 during prewarm + 3 on acquisition

	for _, h := range handles {
		h.Release()
	}
}

func TestBadCheck(t *testing.T) {
	defer goleak.VerifyNone(t)

	const maxSize = 12
	mgr := &mockManager{badFrom: 10, badTo: 20}
	p, err := NewBuilder[*mockConn]().
		MaxSize(maxSize).
		Timeout(time.Second).
		Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()

	var cons []*Handle[*mockConn]
	for i := 0; i < 10; i++ {
		h, err := p.Get(ctx)
		require.NoError(t, err)
		cons = append(cons, h)
	}

	for i := 10; i < 20; i++ {
		_, err := p.Get(ctx)
		require.Error(t, err)
		assert.True(t, IsInner(err))
	}

	for i := 20; i < 100; i++ {
		h, err := p.Get(ctx)
		require.NoError(t, err)
		h.Release()
	}

	for _, h := range cons {
		h.Take()
		h.Release()
	}

	var reacquired []*Handle[*mockConn]
	for i := 0; i < maxSize; i++ {
		h, err := p.Get(ctx)
		require.NoError(t, err)
		reacquired = append(reacquired, h)
	}
	st := p.State()
	assert.Equal(t, maxSize, st.MaxSize)
	assert.Equal(t, maxSize, st.Size)
	assert.Equal(t, maxSize, st.InUse)
	assert.Equal(t, 0, st.Idle)

	_, err = p.Get(ctx)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	none, err := p.TryGet(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	for _, h := range reacquired {
		h.Release()
	}
}

func TestTake(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr := &mockManager{}
	p, err := NewBuilder[*mockConn]().MaxSize(1).Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	h, err := p.Get(ctx)
	require.NoError(t, err)
	h.Take()
	h.Release()

	st := p.State()
	assert.Equal(t, 1, st.Empty)
	assert.Equal(t, 0, st.Size)

	_, err = p.Get(ctx)
	require.NoError(t, err)

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Equal(t, 2, mgr.connects)
}

func TestConcurrentFanOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	const (
		tasks   = 100
		maxSize = 3
	)
	mgr := &mockManager{}
	p, err := NewBuilder[*mockConn]().MaxSize(maxSize).Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	wg.Add(tasks)
	for i := 0; i < tasks; i++ {
		go func() {
			defer wg.Done()
			h, err := p.Get(context.Background())
			if err != nil {
				return
			}
			r := h.Resource()
			r.count++
			h.Release()
		}()
	}
	wg.Wait()

	st := p.State()
	assert.Equal(t, 0, st.InUse)
	assert.Equal(t, maxSize, st.Idle)
	assert.Equal(t, maxSize, st.Size)

	ctx := context.Background()
	var handles []*Handle[*mockConn]
	total := 0
	for i := 0; i < maxSize; i++ {
		h, err := p.Get(ctx)
		require.NoError(t, err)
		total += h.Resource().count
		handles = append(handles, h)
	}
	assert.Equal(t, tasks, total)
	for _, h := range handles {
		h.Release()
	}
}

func TestMaxSizeOneHundredConcurrentGets(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr := &mockManager{}
	p, err := NewBuilder[*mockConn]().MaxSize(1).Timeout(5 * time.Second).Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	var completed atomic.Int64
	wg.Add(100)
	for i := 0; i < 100; i++ {
		go func() {
			defer wg.Done()
			h, err := p.Get(context.Background())
			if err == nil {
				h.Release()
				completed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 100, completed.Load())
}

func TestTimeoutWaitWhenSaturated(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr := &mockManager{}
	p, err := NewBuilder[*mockConn]().MaxSize(1).Timeout(0).Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	h, err := p.Get(ctx)
	require.NoError(t, err)

	_, err = p.Get(ctx)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageWait, perr.Stage)

	h.Release()
}

func TestConnectFailureEveryCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	wantErr := errors.New("dial refused")
	mgr := &mockManager{connectErr: wantErr}
	p, err := NewBuilder[*mockConn]().MaxSize(4).Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := p.Get(ctx)
		require.Error(t, err)
		assert.True(t, IsInner(err))
		inner, ok := Inner(err)
		require.True(t, ok)
		assert.ErrorIs(t, inner, wantErr)

		st := p.State()
		assert.Equal(t, 4, st.Empty)
	}
}

func TestCloseWakesWaiters(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr := &mockManager{}
	p, err := NewBuilder[*mockConn]().MaxSize(1).NoTimeout().Build(mgr)
	require.NoError(t, err)

	ctx := context.Background()
	h, err := p.Get(ctx)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := p.Get(context.Background())
		errc <- err
	}()

	// Give the waiter a moment to block on admission.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Close())

	select {
	case err := <-errc:
		assert.True(t, IsClosed(err))
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by Close")
	}

	_, err = p.Get(context.Background())
	assert.True(t, IsClosed(err))

	h.Release()
}

func TestStateJSONRoundTrip(t *testing.T) {
	mgr := &mockManager{}
	p, err := NewBuilder[*mockConn]().MaxSize(5).Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	h, err := p.Get(ctx)
	require.NoError(t, err)
	defer h.Release()

	want := p.State()
	data, err := json.Marshal(want)
	require.NoError(t, err)

	var got State
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, want, got)
}

func TestCheckIntervalSkipsWhenNotExpired(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr := &mockManager{}
	p, err := NewBuilder[*mockConn]().MaxSize(1).Check(time.Hour).Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	h1, err := p.Get(ctx)
	require.NoError(t, err)
	h1.Release()

	h2, err := p.Get(ctx)
	require.NoError(t, err)
	h2.Release()

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Equal(t, 1, mgr.connects)
	assert.Equal(t, 1, mgr.checks) // second Get reuses the slot within the hour-long interval, no re-check
}

func TestCancelDuringConnectRestoresSlot(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr := &blockingManager{
		connectBlock: make(chan struct{}),
		checkBlock:   make(chan struct{}),
	}
	close(mgr.checkBlock)
	p, err := NewBuilder[*mockConn]().MaxSize(1).NoTimeout().Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := p.Get(ctx)
		errc <- err
	}()

	// Give Get a moment to enter Connect before cancelling mid-flight.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.True(t, IsTimeout(err))
		var perr *Error
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, StageConnect, perr.Stage)
	case <-time.After(time.Second):
		t.Fatal("Get did not return after context cancellation")
	}

	st := p.State()
	assert.Equal(t, 1, st.MaxSize)
	assert.Equal(t, 0, st.Size)
	assert.Equal(t, 1, st.Empty)
	assert.Equal(t, 0, st.Wait)

	close(mgr.connectBlock)
	h, err := p.Get(context.Background())
	require.NoError(t, err)
	h.Release()
}

func TestDropThenGetSameResourceWhenNoCheck(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr := &mockManager{}
	p, err := NewBuilder[*mockConn]().MaxSize(1).NoCheck().Build(mgr)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	h1, err := p.Get(ctx)
	require.NoError(t, err)
	r1 := h1.Resource()
	h1.Release()

	h2, err := p.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, r1, h2.Resource())
	h2.Release()

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Equal(t, 1, mgr.connects)
}
