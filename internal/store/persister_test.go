package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JonMunkholm/datatable/internal/core"
)

// gatedStore records every save and can hold saves until released.
type gatedStore struct {
	mu      sync.Mutex
	saves   []core.Snapshot
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{entered: make(chan struct{}, 16)}
}

func (s *gatedStore) Load(context.Context) (*core.Snapshot, error) { return nil, nil }
func (s *gatedStore) Close() error                                 { return nil }

func (s *gatedStore) Save(ctx context.Context, snap core.Snapshot) error {
	s.entered <- struct{}{}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, snap)
	return nil
}

func (s *gatedStore) saved() []core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Snapshot(nil), s.saves...)
}

func snapshotWithRows(n int) core.Snapshot {
	snap := core.Snapshot{Columns: []core.Column{{ID: "name", Label: "Name", Visible: true}}}
	for i := range n {
		snap.Rows = append(snap.Rows, core.Row{ID: string(rune('a' + i)), Fields: core.Fields{}})
	}
	return snap
}

func TestPersister_CoalescesBurst(t *testing.T) {
	defer goleak.VerifyNone(t)

	st := newGatedStore()
	st.gate = make(chan struct{})
	p := NewPersister(st, time.Second)
	p.Start(context.Background())

	p.Enqueue(snapshotWithRows(1))
	<-st.entered // writer is now blocked inside the first save

	for i := 2; i <= 5; i++ {
		p.Enqueue(snapshotWithRows(i))
	}
	close(st.gate)
	require.NoError(t, p.Close())

	saves := st.saved()
	require.Len(t, saves, 2, "queued snapshots collapse into one save")
	assert.Len(t, saves[0].Rows, 1)
	assert.Len(t, saves[1].Rows, 5, "latest snapshot wins")
}

func TestPersister_AttachTable(t *testing.T) {
	defer goleak.VerifyNone(t)

	st := NewMemoryStore()
	table := core.NewTable(nil)
	p := NewPersister(st, time.Second)
	detach := p.Attach(table)
	p.Start(context.Background())

	added := table.AddRow(core.Fields{"name": core.Text("Ada")})
	table.AddColumnFromLabel("Team")
	table.DeleteRow("1")

	detach()
	require.NoError(t, p.Close())

	got, err := st.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, table.Snapshot(), *got)

	_, ok := table.Row(added.ID)
	assert.True(t, ok)
}

func TestPersister_ContextCancelDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	st := newGatedStore()
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPersister(st, time.Second)

	p.Enqueue(snapshotWithRows(3))
	cancel()
	p.Start(ctx)
	require.NoError(t, p.Close())

	saves := st.saved()
	require.NotEmpty(t, saves)
	assert.Len(t, saves[len(saves)-1].Rows, 3)
}

func TestPersister_CloseWithoutStart(t *testing.T) {
	st := NewMemoryStore()
	p := NewPersister(st, 0)

	p.Enqueue(core.DefaultSnapshot())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, st.Saves())
}

func TestPersister_SaveFailureKeepsPending(t *testing.T) {
	st := newGatedStore()
	st.err = errors.New("disk full")
	p := NewPersister(st, time.Second)

	p.Enqueue(snapshotWithRows(2))
	err := p.Flush(context.Background())
	require.ErrorContains(t, err, "disk full")

	status := p.Status()
	assert.Equal(t, int64(1), status.Failed)
	assert.True(t, status.Pending, "failed snapshot is retried")
	assert.Equal(t, "disk full", status.LastError)

	st.mu.Lock()
	st.err = nil
	st.mu.Unlock()

	require.NoError(t, p.Flush(context.Background()))
	status = p.Status()
	assert.Equal(t, int64(1), status.Saved)
	assert.False(t, status.Pending)
	assert.Empty(t, status.LastError)
	assert.Len(t, st.saved()[0].Rows, 2)
}

func TestPersister_FlushNothingPending(t *testing.T) {
	st := newGatedStore()
	p := NewPersister(st, time.Second)

	require.NoError(t, p.Flush(context.Background()))
	assert.Empty(t, st.saved())
}

func TestPersister_SaveTimeout(t *testing.T) {
	st := newGatedStore()
	st.gate = make(chan struct{}) // never released
	p := NewPersister(st, 20*time.Millisecond)

	p.Enqueue(snapshotWithRows(1))
	err := p.Flush(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
