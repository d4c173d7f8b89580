package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addisoncrump/delegatord/internal/hash"
	"github.com/addisoncrump/delegatord/internal/status"
	"github.com/addisoncrump/delegatord/internal/store"
)

func TestSubmitCommitsOnSuccess(t *testing.T) {
	d := New(store.New(hash.Sum("admin")))
	ctx := context.Background()

	reply, err := d.Submit(ctx, "as principal admin password \"admin\" do\nset x = \"v\"\nreturn x\n***\n")
	require.NoError(t, err)
	require.Len(t, reply.Log, 2)
	assert.Equal(t, status.Set, reply.Log[0].Status)
	assert.Equal(t, status.Returning, reply.Log[1].Status)

	reply2, err := d.Submit(ctx, "as principal admin password \"admin\" do\nreturn x\n***\n")
	require.NoError(t, err)
	require.Len(t, reply2.Log, 1)
	assert.Equal(t, status.Returning, reply2.Log[0].Status)
}

func TestSubmitReportsParseFailureWithoutCommitting(t *testing.T) {
	d := New(store.New(hash.Sum("admin")))
	ctx := context.Background()

	reply, err := d.Submit(ctx, "not a valid program\n***\n")
	require.NoError(t, err)
	assert.Equal(t, []status.Entry{status.FailedEntry()}, reply.Log)

	// The bad submission must not have left any state behind.
	reply2, err := d.Submit(ctx, "as principal admin password \"admin\" do\nlocal x = \"y\"\nreturn x\n***\n")
	require.NoError(t, err)
	assert.Equal(t, status.Returning, reply2.Log[0].Status)
}

func TestSubmitsSerializeInArrivalOrder(t *testing.T) {
	d := New(store.New(hash.Sum("admin")))
	ctx := context.Background()

	const n = 20
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reply, err := d.Submit(ctx, "as principal admin password \"admin\" do\nreturn \"ok\"\n***\n")
			require.NoError(t, err)
			if len(reply.Log) == 1 && reply.Log[0].Status == status.Returning {
				results[i] = "ok"
			}
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, "ok", r)
	}
}

func TestSubmitExitRequestsShutdown(t *testing.T) {
	d := New(store.New(hash.Sum("admin")))
	ctx := context.Background()

	reply, err := d.Submit(ctx, "as principal admin password \"admin\" do\nexit\n***\n")
	require.NoError(t, err)
	assert.True(t, reply.Exit)
}

func TestSubmitRespectsContextCancellation(t *testing.T) {
	d := New(store.New(hash.Sum("admin")))
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := d.Submit(ctx, "as principal admin password \"admin\" do\nexit\n***\n")
	assert.Error(t, err)
}
