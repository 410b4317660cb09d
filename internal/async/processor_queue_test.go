package async

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/core"
)

type fakeProcessor struct {
	mu        sync.Mutex
	passwords map[string]string
	block     chan struct{}
	active    atomic.Int32
	peak      atomic.Int32
}

func (f *fakeProcessor) Ingest(ctx context.Context, path string, opts core.Options) core.Result {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.passwords[path] = opts.Password
	f.mu.Unlock()

	if path == "bad.pdf" {
		return core.Result{Failure: common.NewFailure(constants.CodeInvalidFormat, "file does not have a valid PDF header", nil)}
	}
	return core.Result{Success: true, Method: constants.MethodText}
}

func TestProcessorQueue_ProcessesAndReports(t *testing.T) {
	proc := &fakeProcessor{passwords: map[string]string{}}
	var mu sync.Mutex
	got := map[string]bool{}
	q := NewProcessorQueue(proc, nil,
		WithWorkers(2),
		WithOptions(core.Options{Password: "default"}),
		WithResultHandler(func(_ context.Context, job Job, res core.Result) {
			mu.Lock()
			got[job.Path] = res.Success
			mu.Unlock()
		}))

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{DocumentID: uuid.New(), Path: "a.pdf"}))
	require.NoError(t, q.Enqueue(ctx, Job{DocumentID: uuid.New(), Path: "bad.pdf", Password: "secret"}))
	q.Shutdown(ctx)

	assert.Equal(t, map[string]bool{"a.pdf": true, "bad.pdf": false}, got)
	assert.Equal(t, "default", proc.passwords["a.pdf"])
	assert.Equal(t, "secret", proc.passwords["bad.pdf"])
}

func TestProcessorQueue_BoundedWorkers(t *testing.T) {
	proc := &fakeProcessor{passwords: map[string]string{}, block: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(3), WithQueueSize(16))

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New(), Path: uuid.NewString()}))
	}
	require.Eventually(t, func() bool { return proc.active.Load() == 3 }, time.Second, 5*time.Millisecond)
	close(proc.block)
	q.Shutdown(context.Background())
	assert.EqualValues(t, 3, proc.peak.Load())
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{passwords: map[string]string{}}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New(), Path: "late.pdf"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestProcessorQueue_BackpressureHonorsContext(t *testing.T) {
	proc := &fakeProcessor{passwords: map[string]string{}, block: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "running.pdf"}))
	require.Eventually(t, func() bool { return proc.active.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "queued.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{Path: "overflow.pdf"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proc.block)
	q.Shutdown(context.Background())
}
