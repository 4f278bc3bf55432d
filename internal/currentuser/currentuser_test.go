package currentuser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromWithoutPrincipal(t *testing.T) {
	p, ok := From(context.Background())
	assert.False(t, ok)
	assert.False(t, p.IsAuthenticated())
	assert.Nil(t, ID(context.Background()))
}

func TestWithAndFrom(t *testing.T) {
	ctx := With(context.Background(), Principal{ID: 7, Username: "alice", Authenticated: true})

	p, ok := From(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(7), p.ID)
	assert.Equal(t, "alice", p.Username)
	require.NotNil(t, ID(ctx))
	assert.Equal(t, uint(7), *ID(ctx))
}

func TestWithoutClearsPrincipal(t *testing.T) {
	ctx := With(context.Background(), Principal{ID: 7, Authenticated: true})
	cleared := Without(ctx)

	_, ok := From(cleared)
	assert.False(t, ok)

	// the parent scope is untouched
	_, ok = From(ctx)
	assert.True(t, ok)
}

func TestAnonymousPrincipalHasNoID(t *testing.T) {
	ctx := With(context.Background(), Anonymous())
	_, ok := From(ctx)
	assert.True(t, ok)
	assert.Nil(t, ID(ctx))
}

func TestConcurrentRequestsSeeOwnPrincipal(t *testing.T) {
	const workers = 64
	var wg sync.WaitGroup
	errs := make(chan string, workers)

	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			ctx := With(context.Background(), Principal{ID: id, Authenticated: true})
			for j := 0; j < 50; j++ {
				time.Sleep(time.Microsecond)
				p, ok := From(ctx)
				if !ok || p.ID != id {
					errs <- "principal leaked between requests"
					return
				}
			}
		}(uint(i))
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Fatal(msg)
	}
}
