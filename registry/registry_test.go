package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLastWriteFullyWins(t *testing.T) {
	r := New(nil)

	require.NoError(t, r.Register(7, SELLER, "addrA"))
	require.NoError(t, r.Register(7, BUYER, "addrB"))

	p, ok := r.Lookup(7)
	require.True(t, ok)
	require.Equal(t, BUYER, p.Role)
	require.Equal(t, "addrB", p.Address)
}

func TestLookupMissIsNotAnError(t *testing.T) {
	r := New(nil)

	_, ok := r.Lookup(404)
	require.False(t, ok)
}

func TestConcurrentDistinctIdentities(t *testing.T) {
	r := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, r.Register(int64(i), SELLER, fmt.Sprintf("addr%d", i)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 100; i++ {
		p, ok := r.Lookup(int64(i))
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("addr%d", i), p.Address)
	}
}

func TestConcurrentSameIdentityNeverMixesFields(t *testing.T) {
	r := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			require.NoError(t, r.Register(1, SELLER, "addrA"))
		}()
		go func() {
			defer wg.Done()
			require.NoError(t, r.Register(1, BUYER, "addrB"))
		}()
	}
	wg.Wait()

	p, ok := r.Lookup(1)
	require.True(t, ok)
	// Whichever write wins, role and address must come from the same
	// registration.
	switch p.Role {
	case SELLER:
		require.Equal(t, "addrA", p.Address)
	case BUYER:
		require.Equal(t, "addrB", p.Address)
	default:
		t.Fatalf("unexpected role %q", p.Role)
	}
}
