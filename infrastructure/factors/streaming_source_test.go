package factors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-baseline/internal/domain"
)

// sliceStream returns a single-pass stream over the given configurations.
func sliceStream(configs []domain.FactorConfiguration) Stream {
	i := 0
	return func() (domain.FactorConfiguration, bool) {
		if i >= len(configs) {
			return domain.FactorConfiguration{}, false
		}
		c := configs[i]
		i++
		return c, true
	}
}

func TestNewStreamingSourceValidation(t *testing.T) {
	provider := func() (Stream, error) { return sliceStream(namedConfigs("A")), nil }

	_, err := NewStreamingSource("Checkout", "", provider)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = NewStreamingSource("Checkout", "Events", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	src, err := NewStreamingSource("Checkout", "Events", provider)
	require.NoError(t, err)
	assert.Equal(t, "Events", src.Name())
}

func TestStreamingSourceIdentityFromDeclarationPath(t *testing.T) {
	provider := func() (Stream, error) { return sliceStream(namedConfigs("A")), nil }

	a, err := NewStreamingSource("Checkout", "Events", provider)
	require.NoError(t, err)
	b, err := NewStreamingSource("Checkout", "Events", provider)
	require.NoError(t, err)
	c, err := NewStreamingSource("Billing", "Events", provider)
	require.NoError(t, err)

	idA, err := a.Identity()
	require.NoError(t, err)
	idB, err := b.Identity()
	require.NoError(t, err)
	idC, err := c.Identity()
	require.NoError(t, err)

	// Identity depends on the declaration path, not the stream values.
	assert.Equal(t, idA, idB)
	assert.NotEqual(t, idA, idC)
	assert.Len(t, idA, 64)
}

func TestStreamingSourceRejectsEmptyStreamUpFront(t *testing.T) {
	src, err := NewStreamingSource("Checkout", "Events", func() (Stream, error) {
		return sliceStream(nil), nil
	})
	require.NoError(t, err)

	_, err = src.Iterator(5)
	assert.ErrorIs(t, err, domain.ErrEmptyFactorSource)
}

func TestSequentialIteratorConsumesExactlyOnce(t *testing.T) {
	src, err := NewStreamingSource("Checkout", "Events", func() (Stream, error) {
		return sliceStream(namedConfigs("A", "B", "C")), nil
	})
	require.NoError(t, err)

	it, err := src.Iterator(3)
	require.NoError(t, err)

	var got []string
	for it.HasNext() {
		c, err := it.Next()
		require.NoError(t, err)
		got = append(got, configID(t, c))
	}
	assert.Equal(t, []string{"A", "B", "C"}, got)

	_, err = it.Next()
	assert.ErrorIs(t, err, domain.ErrIteratorExhausted)
}

func TestSequentialIteratorExhaustionIsDistinguishable(t *testing.T) {
	src, err := NewStreamingSource("Checkout", "Events", func() (Stream, error) {
		return sliceStream(namedConfigs("A", "B")), nil
	})
	require.NoError(t, err)

	it, err := src.Iterator(5)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := it.Next()
		require.NoError(t, err)
	}

	_, err = it.Next()
	var exhausted *domain.SourceExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "Events", exhausted.Source)
	assert.Equal(t, 5, exhausted.Requested)
	assert.Equal(t, 2, exhausted.Supplied)

	// The failure is sticky.
	assert.False(t, it.HasNext())
	_, err = it.Next()
	assert.ErrorAs(t, err, &exhausted)
}

func TestSequentialIteratorZeroRequested(t *testing.T) {
	src, err := NewStreamingSource("Checkout", "Events", func() (Stream, error) {
		return sliceStream(nil), nil
	})
	require.NoError(t, err)

	// With zero samples requested, an empty stream is acceptable.
	it, err := src.Iterator(0)
	require.NoError(t, err)
	assert.False(t, it.HasNext())
}

func TestStreamingSourcePropagatesProviderError(t *testing.T) {
	boom := errors.New("feed unavailable")
	src, err := NewStreamingSource("Checkout", "Events", func() (Stream, error) {
		return nil, boom
	})
	require.NoError(t, err)

	_, err = src.Iterator(3)
	assert.ErrorIs(t, err, boom)
}
