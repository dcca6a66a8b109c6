package rename

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testArtifact(name string) ArtifactRef {
	return ArtifactRef{
		Message:  MessageRef{ChatID: 100, MessageID: 1},
		FileID:   "file-" + name,
		FileName: name,
		Kind:     KindVideo,
		Size:     1024,
	}
}

func TestSessionStore_CreateAndBegin(t *testing.T) {
	store := NewSessionStore(time.Minute)
	defer store.Stop()

	created := store.Create(1, testArtifact("a.mp4"), MessageRef{ChatID: 100, MessageID: 2})
	require.NotEmpty(t, created.ID)
	assert.Equal(t, StateAwaitingFilename, created.State)
	assert.Equal(t, time.Minute, created.ExpiresAt.Sub(created.CreatedAt))

	got, err := store.TryBeginProcessing(1)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, StateAwaitingFilename, got.State, "returns the prior session")

	current, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, StateProcessing, current.State)

	_, err = store.TryBeginProcessing(1)
	assert.ErrorIs(t, err, ErrSessionBusy)

	_, err = store.TryBeginProcessing(2)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_ConcurrentBeginSingleWinner(t *testing.T) {
	store := NewSessionStore(time.Minute)
	defer store.Stop()
	store.Create(7, testArtifact("clip.mkv"), MessageRef{})

	var (
		wg      sync.WaitGroup
		winners int32
		busy    int32
	)
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := store.TryBeginProcessing(7)
			switch err {
			case nil:
				atomic.AddInt32(&winners, 1)
			case ErrSessionBusy:
				atomic.AddInt32(&busy, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners)
	assert.Equal(t, int32(63), busy)
}

func TestSessionStore_OverwriteLastFileWins(t *testing.T) {
	store := NewSessionStore(time.Minute)
	defer store.Stop()

	first := store.Create(1, testArtifact("first.mp4"), MessageRef{})
	second := store.Create(1, testArtifact("second.mp4"), MessageRef{})
	require.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, store.Len())

	got, err := store.TryBeginProcessing(1)
	require.NoError(t, err)
	assert.Equal(t, "second.mp4", got.Artifact.FileName)
}

func TestSessionStore_ExpiresWithoutActivity(t *testing.T) {
	expired := make(chan Session, 1)
	store := NewSessionStore(20*time.Millisecond, WithExpireHook(func(s Session) {
		expired <- s
	}))
	defer store.Stop()

	created := store.Create(1, testArtifact("a.mp4"), MessageRef{ChatID: 100, MessageID: 9})

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	select {
	case s := <-expired:
		assert.Equal(t, created.ID, s.ID)
		assert.Equal(t, 9, s.Prompt.MessageID)
	case <-time.After(time.Second):
		t.Fatal("expire hook not called")
	}

	_, err := store.TryBeginProcessing(1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_StaleTimerKeepsNewerSession(t *testing.T) {
	clock := newFakeClock()
	store := NewSessionStore(time.Minute, WithClock(clock.Now))
	defer store.Stop()

	old := store.Create(1, testArtifact("old.mp4"), MessageRef{})
	clock.Advance(50 * time.Second)
	newer := store.Create(1, testArtifact("new.mp4"), MessageRef{})
	clock.Advance(15 * time.Second)

	// 旧会话的定时器此时触发
	store.expire(1, old.ID)

	got, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, newer.ID, got.ID)
}

func TestSessionStore_ExpireIfDue(t *testing.T) {
	clock := newFakeClock()
	store := NewSessionStore(time.Minute, WithClock(clock.Now))
	defer store.Stop()

	store.Create(1, testArtifact("a.mp4"), MessageRef{})

	assert.False(t, store.ExpireIfDue(1))
	clock.Advance(59 * time.Second)
	assert.False(t, store.ExpireIfDue(1))
	clock.Advance(time.Second)
	assert.True(t, store.ExpireIfDue(1))
	assert.False(t, store.ExpireIfDue(1))
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_BeginAfterDeadlineIsNotFound(t *testing.T) {
	clock := newFakeClock()
	store := NewSessionStore(time.Minute, WithClock(clock.Now))
	defer store.Stop()

	store.Create(1, testArtifact("a.mp4"), MessageRef{})
	clock.Advance(2 * time.Minute)

	_, ok := store.Get(1)
	assert.False(t, ok)

	_, err := store.TryBeginProcessing(1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 0, store.Len())

	_, err = store.TryBeginProcessing(1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NotErrorIs(t, err, ErrSessionExpired)
}

func TestSessionStore_ProcessingNotExpired(t *testing.T) {
	clock := newFakeClock()
	store := NewSessionStore(time.Minute, WithClock(clock.Now))
	defer store.Stop()

	created := store.Create(1, testArtifact("a.mp4"), MessageRef{})
	_, err := store.TryBeginProcessing(1)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	assert.False(t, store.ExpireIfDue(1))
	store.expire(1, created.ID)
	assert.Equal(t, 1, store.Len())

	assert.True(t, store.Release(1, created.ID))
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_ReleaseChecksIdentity(t *testing.T) {
	store := NewSessionStore(time.Minute)
	defer store.Stop()

	first := store.Create(1, testArtifact("a.mp4"), MessageRef{})
	_, err := store.TryBeginProcessing(1)
	require.NoError(t, err)

	// 处理期间用户发来新文件
	second := store.Create(1, testArtifact("b.mp4"), MessageRef{})

	assert.False(t, store.Release(1, first.ID))
	got, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, StateAwaitingFilename, got.State)

	store.Clear(1)
	store.Clear(1)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_SetPromptAndSnapshot(t *testing.T) {
	clock := newFakeClock()
	store := NewSessionStore(time.Minute, WithClock(clock.Now))
	defer store.Stop()

	s1 := store.Create(1, testArtifact("a.mp4"), MessageRef{})
	clock.Advance(time.Second)
	store.Create(2, testArtifact("b.mp4"), MessageRef{})

	assert.True(t, store.SetPrompt(1, s1.ID, MessageRef{ChatID: 100, MessageID: 55}))
	assert.False(t, store.SetPrompt(1, "other", MessageRef{ChatID: 100, MessageID: 56}))

	snap := store.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(1), snap[0].UserID)
	assert.Equal(t, 55, snap[0].Prompt.MessageID)
	assert.Equal(t, int64(2), snap[1].UserID)
}

func TestSessionStore_CancelIfAwaiting(t *testing.T) {
	clock := newFakeClock()
	store := NewSessionStore(time.Minute, WithClock(clock.Now))
	defer store.Stop()

	_, err := store.CancelIfAwaiting(1)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	created := store.Create(1, testArtifact("a.mp4"), MessageRef{ChatID: 100, MessageID: 2})
	cancelled, err := store.CancelIfAwaiting(1)
	require.NoError(t, err)
	assert.Equal(t, created.ID, cancelled.ID)
	assert.Equal(t, 0, store.Len())

	// 超时但定时器未触发
	store.Create(1, testArtifact("b.mp4"), MessageRef{})
	clock.Advance(2 * time.Minute)
	_, err = store.CancelIfAwaiting(1)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_CancelDoesNotTakeProcessingSession(t *testing.T) {
	store := NewSessionStore(time.Minute)
	defer store.Stop()

	created := store.Create(1, testArtifact("a.mp4"), MessageRef{})

	// 取消前看到的是等待状态，随后文件名消息抢先开始处理
	seen, ok := store.Get(1)
	require.True(t, ok)
	require.Equal(t, StateAwaitingFilename, seen.State)
	_, err := store.TryBeginProcessing(1)
	require.NoError(t, err)

	_, err = store.CancelIfAwaiting(1)
	assert.ErrorIs(t, err, ErrSessionBusy)

	got, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, StateProcessing, got.State)
}

func TestSessionStore_CancelRacesBegin(t *testing.T) {
	for i := 0; i < 200; i++ {
		store := NewSessionStore(time.Minute)
		store.Create(1, testArtifact("a.mp4"), MessageRef{})

		var (
			wg        sync.WaitGroup
			beginErr  error
			cancelErr error
		)
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, beginErr = store.TryBeginProcessing(1)
		}()
		go func() {
			defer wg.Done()
			<-start
			_, cancelErr = store.CancelIfAwaiting(1)
		}()
		close(start)
		wg.Wait()

		// 恰好一方成功
		if beginErr == nil {
			require.ErrorIs(t, cancelErr, ErrSessionBusy)
			require.Equal(t, 1, store.Len())
		} else {
			require.NoError(t, cancelErr)
			require.ErrorIs(t, beginErr, ErrSessionNotFound)
			require.Equal(t, 0, store.Len())
		}
		store.Stop()
	}
}

func TestSessionStore_ActiveIDsKeepsReplacedRun(t *testing.T) {
	store := NewSessionStore(time.Minute)
	defer store.Stop()

	first := store.Create(1, testArtifact("a.mp4"), MessageRef{})
	_, err := store.TryBeginProcessing(1)
	require.NoError(t, err)

	second := store.Create(1, testArtifact("b.mp4"), MessageRef{})
	other := store.Create(2, testArtifact("c.mp4"), MessageRef{})

	assert.ElementsMatch(t, []string{first.ID, second.ID, other.ID}, store.ActiveIDs())

	assert.False(t, store.Release(1, first.ID))
	assert.ElementsMatch(t, []string{second.ID, other.ID}, store.ActiveIDs())
}

func TestSessionStore_ExpireHookOnce(t *testing.T) {
	clock := newFakeClock()
	expired := make(chan Session, 4)
	store := NewSessionStore(time.Minute, WithClock(clock.Now), WithExpireHook(func(s Session) {
		expired <- s
	}))
	defer store.Stop()

	created := store.Create(1, testArtifact("a.mp4"), MessageRef{})
	clock.Advance(time.Minute)
	assert.True(t, store.ExpireIfDue(1))

	select {
	case s := <-expired:
		assert.Equal(t, created.ID, s.ID)
	case <-time.After(time.Second):
		t.Fatal("expire hook not called")
	}

	// 旧定时器触发时不再通知
	assert.False(t, store.expire(1, created.ID))
	select {
	case <-expired:
		t.Fatal("expire hook called twice")
	case <-time.After(50 * time.Millisecond):
	}
}
