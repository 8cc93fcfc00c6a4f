package store

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doeshing/gadget-go/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnqueueAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.Enqueue(ctx, "lights on")
	require.NoError(t, err)
	second, err := s.Enqueue(ctx, "lights off")
	require.NoError(t, err)

	require.Equal(t, domain.StatusPending, first.Status)
	require.Greater(t, second.ID, first.ID)
}

func TestEnqueueConcurrentWritersKeepIDsUnique(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	const writers = 20
	ids := make([]int64, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd, err := s.Enqueue(ctx, "ping")
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = cmd.ID
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i := 1; i < len(ids); i++ {
		require.Greater(t, ids[i], ids[i-1])
	}
}

func TestPendingLookups(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, ok, err := s.NextPending(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	a, _ := s.Enqueue(ctx, "a")
	b, _ := s.Enqueue(ctx, "b")
	c, _ := s.Enqueue(ctx, "c")
	_, err = s.UpdateStatus(ctx, a.ID, domain.StatusSuccess, "ok", domain.TransportRemote)
	require.NoError(t, err)

	next, ok, err := s.NextPending(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, b.ID, next.ID)

	latest, ok, err := s.LatestPending(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, c.ID, latest.ID)
}

func TestUpdateStatusTransitions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	cmd, err := s.Enqueue(ctx, "raise temperature")
	require.NoError(t, err)

	updated, err := s.UpdateStatus(ctx, cmd.ID, domain.StatusFailed, "timeout", domain.TransportRemote)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, updated.Status)

	_, err = s.UpdateStatus(ctx, cmd.ID, domain.StatusSuccess, "late", domain.TransportPush)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := s.Get(ctx, cmd.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, stored.Status)
	require.Equal(t, "timeout", stored.Response)
	require.Equal(t, domain.TransportRemote, stored.Transport)
}

func TestUpdateStatusRejectsPendingTarget(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	cmd, _ := s.Enqueue(ctx, "x")
	_, err := s.UpdateStatus(ctx, cmd.ID, domain.StatusPending, "", domain.TransportNone)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateStatusUnknownID(t *testing.T) {
	s := openTestStore(t)
	_, err := s.UpdateStatus(context.Background(), 99, domain.StatusSuccess, "", domain.TransportRemote)
	require.ErrorIs(t, err, domain.ErrCommandNotFound)
}

func TestConcurrentUpdatesOfOneRecordResolveOnce(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	cmd, _ := s.Enqueue(ctx, "race")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.UpdateStatus(ctx, cmd.ID, domain.StatusSuccess, "ok", domain.TransportPush); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)
}

func TestSubscribeAllEmitsOnChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := openTestStore(t)

	ch, err := s.SubscribeAll(ctx)
	require.NoError(t, err)
	require.Empty(t, receive(t, ch))

	cmd, err := s.Enqueue(ctx, "lights on")
	require.NoError(t, err)
	snapshot := receive(t, ch)
	require.Len(t, snapshot, 1)
	require.Equal(t, domain.StatusPending, snapshot[0].Status)

	_, err = s.Enqueue(ctx, "lights off")
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, cmd.ID, domain.StatusSuccess, "OK", domain.TransportRemote)
	require.NoError(t, err)

	// Slow readers only see the newest snapshot.
	snapshot = receive(t, ch)
	require.Len(t, snapshot, 2)
	require.Equal(t, "lights off", snapshot[0].Text)
	require.Equal(t, domain.StatusSuccess, snapshot[1].Status)

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestExportJSON(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, _ = s.Enqueue(ctx, "first")
	_, _ = s.Enqueue(ctx, "second")

	dest := filepath.Join(t.TempDir(), "commands.jsonl")
	require.NoError(t, s.ExportJSON(ctx, dest))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	var texts []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var cmd domain.Command
		require.NoError(t, json.Unmarshal(sc.Bytes(), &cmd))
		texts = append(texts, cmd.Text)
	}
	require.Equal(t, []string{"first", "second"}, texts)
}

func TestOpenOnDiskPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "commands.db")

	s, err := Open(path)
	require.NoError(t, err)
	cmd, err := s.Enqueue(ctx, "persist me")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(ctx, cmd.ID)
	require.NoError(t, err)
	require.Equal(t, "persist me", got.Text)

	next, err := reopened.Enqueue(ctx, "after reopen")
	require.NoError(t, err)
	require.Greater(t, next.ID, cmd.ID)
}

func receive(t *testing.T, ch <-chan []domain.Command) []domain.Command {
	t.Helper()
	select {
	case snapshot := <-ch:
		return snapshot
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
