package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sinkRecorder is a SinkFactory that counts invocations instead of writing
// files.
type sinkRecorder struct {
	calls []sinkCall
	fail  error
}

type sinkCall struct {
	quantity string
	year     int
	rows     int
}

func (r *sinkRecorder) factory(params OutputParams, sectorName string) (Sink, error) {
	quantity := params.Quantity.Name
	return func(table Frame, year int) error {
		if r.fail != nil {
			return r.fail
		}
		r.calls = append(r.calls, sinkCall{quantity: quantity, year: year, rows: table.Nrow()})
		return nil
	}, nil
}

func newTestCache(t *testing.T, quantities ...string) (*Bus, *OutputCache, *sinkRecorder) {
	t.Helper()
	bus := NewBus()
	params := make([]OutputParams, 0, len(quantities))
	for _, q := range quantities {
		params = append(params, OutputParams{Quantity: QuantitySpec{Name: q}})
	}
	recorder := &sinkRecorder{}
	cache, err := NewOutputCache(bus, params, nil, CacheOptions{SinkFactory: recorder.factory})
	require.NoError(t, err)
	return bus, cache, recorder
}

func TestNewOutputCache_SkipsUnregisteredQuantities(t *testing.T) {
	// GIVEN a configuration mixing registered and unknown quantities
	bus := NewBus()
	params := []OutputParams{
		{Quantity: QuantitySpec{Name: "capacity"}},
		{Quantity: QuantitySpec{Name: "no_such_quantity"}},
	}
	recorder := &sinkRecorder{}

	// WHEN the cache is built
	cache, err := NewOutputCache(bus, params, nil, CacheOptions{SinkFactory: recorder.factory})

	// THEN only the registered quantity is retained, without error
	require.NoError(t, err)
	assert.Equal(t, []string{"capacity"}, cache.Quantities())
}

func TestOutputCache_Cache_ContainerGrowsPerCall(t *testing.T) {
	_, cache, _ := newTestCache(t, "capacity")

	entry := capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{1})
	for i := 1; i <= 3; i++ {
		require.NoError(t, cache.Cache(entry, "capacity"))
		assert.Equal(t, i, cache.Len("capacity"))
	}
}

func TestOutputCache_Cache_UnconfiguredQuantityIsSilentNoOp(t *testing.T) {
	_, cache, recorder := newTestCache(t, "capacity")

	entry := capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{1})
	require.NoError(t, cache.Cache(entry, "lcoe"))

	assert.Equal(t, 0, cache.Len("lcoe"))
	assert.Equal(t, 0, cache.Len("capacity"))
	require.NoError(t, cache.Consolidate(2025))
	assert.Empty(t, recorder.calls)
}

func TestOutputCache_Cache_QuantityDefaultsToFrameName(t *testing.T) {
	_, cache, _ := newTestCache(t, "capacity")

	entry := capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{1})
	require.NoError(t, cache.Cache(entry, ""))

	assert.Equal(t, 1, cache.Len("capacity"))
}

func TestOutputCache_Cache_MissingQuantityIdentifierFails(t *testing.T) {
	_, cache, _ := newTestCache(t, "capacity")

	err := cache.Cache(Frame{}, "")
	assert.ErrorIs(t, err, ErrMissingQuantity)
}

func TestOutputCache_Consolidate_FlushesAndResetsContainers(t *testing.T) {
	// GIVEN two buffered capacity entries
	_, cache, recorder := newTestCache(t, "capacity")
	require.NoError(t, cache.Cache(capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{1}), "capacity"))
	require.NoError(t, cache.Cache(capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{2}), "capacity"))

	// WHEN the cache is consolidated
	require.NoError(t, cache.Consolidate(2030))

	// THEN the sink ran once for the year and the container is empty again
	require.Len(t, recorder.calls, 1)
	assert.Equal(t, "capacity", recorder.calls[0].quantity)
	assert.Equal(t, 2030, recorder.calls[0].year)
	assert.Equal(t, 0, cache.Len("capacity"))
}

func TestOutputCache_Consolidate_AllEmptyIsNoOp(t *testing.T) {
	_, cache, recorder := newTestCache(t, "capacity", "production")

	require.NoError(t, cache.Consolidate(2025))

	assert.Empty(t, recorder.calls)
	assert.Equal(t, 0, cache.Len("capacity"))
	assert.Equal(t, 0, cache.Len("production"))
}

func TestOutputCache_Consolidate_ArrivalIndexRestartsAfterFlush(t *testing.T) {
	_, cache, _ := newTestCache(t, "capacity")
	entry := capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{1})

	require.NoError(t, cache.Cache(entry, "capacity"))
	require.NoError(t, cache.Consolidate(2025))
	require.NoError(t, cache.Cache(entry, "capacity"))

	assert.Equal(t, 1, cache.Len("capacity"))
}

func TestOutputCache_Consolidate_SinkErrorPropagatesAndKeepsBuffers(t *testing.T) {
	// GIVEN a sink that fails
	_, cache, recorder := newTestCache(t, "capacity")
	recorder.fail = errors.New("disk full")
	require.NoError(t, cache.Cache(capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{1}), "capacity"))

	// WHEN consolidation runs
	err := cache.Consolidate(2025)

	// THEN the failure propagates and the entries are still buffered
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, cache.Len("capacity"))
}

func TestOutputCache_Consolidate_PlaceholderQuantityErrors(t *testing.T) {
	// production is registered but its consolidation is a placeholder
	_, cache, recorder := newTestCache(t, "production")
	require.NoError(t, cache.Cache(capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{1}), "production"))

	err := cache.Consolidate(2025)

	assert.ErrorContains(t, err, "not implemented")
	assert.Empty(t, recorder.calls)
}

func TestOutputCache_ReceivesPublishedFrames(t *testing.T) {
	// GIVEN a cache subscribed to the default topic
	bus, cache, _ := newTestCache(t, "capacity")

	// WHEN producers publish for a configured and an unconfigured quantity
	entry := capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{1})
	require.NoError(t, bus.Publish(DefaultCacheTopic, entry, "capacity"))
	require.NoError(t, bus.Publish(DefaultCacheTopic, entry, "lcoe"))

	// THEN only the configured quantity accumulated
	assert.Equal(t, 1, cache.Len("capacity"))
	assert.Equal(t, 0, cache.Len("lcoe"))
}

func TestOutputCache_CustomTopic(t *testing.T) {
	bus := NewBus()
	recorder := &sinkRecorder{}
	params := []OutputParams{{Quantity: QuantitySpec{Name: "capacity"}}}
	cache, err := NewOutputCache(bus, params, nil, CacheOptions{Topic: "intermediate", SinkFactory: recorder.factory})
	require.NoError(t, err)

	entry := capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{1})
	require.NoError(t, bus.Publish("intermediate", entry, "capacity"))
	require.NoError(t, bus.Publish(DefaultCacheTopic, entry, "capacity"))

	assert.Equal(t, 1, cache.Len("capacity"))
}

func TestOutputCache_Close_DetachesFromBus(t *testing.T) {
	bus, cache, _ := newTestCache(t, "capacity")
	entry := capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{1})

	cache.Close()
	require.NoError(t, bus.Publish(DefaultCacheTopic, entry, "capacity"))

	assert.Equal(t, 0, cache.Len("capacity"))
}

func TestOutputCache_Cache_CopiesPayload(t *testing.T) {
	// The buffered entry must be independent of the producer's frame.
	_, cache, _ := newTestCache(t, "capacity")
	entry := capacityFrame([]string{"u1"}, []string{"gasCCGT"}, []float64{1})

	require.NoError(t, cache.Cache(entry, "capacity"))
	relabeled := entry.Rename("production")

	assert.Equal(t, "production", relabeled.Name)
	assert.Equal(t, 1, cache.Len("capacity"))
}
