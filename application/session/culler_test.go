package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard-backend/domain/config"
	"inkboard-backend/domain/core/valueobjects"
)

// cullerConfig arms a frame timer far in the future so tests drive
// Recompute explicitly without the timer racing them.
func cullerConfig() *config.DomainConfig {
	cfg := config.DefaultDomainConfig()
	cfg.CullFrame = time.Minute
	return cfg
}

func shortFrameConfig() *config.DomainConfig {
	cfg := config.DefaultDomainConfig()
	cfg.CullFrame = 5 * time.Millisecond
	return cfg
}

func staticBounds(bounds []NodeBounds) BoundsSource {
	return func() []NodeBounds { return bounds }
}

func TestRecomputeHidesOutOfViewNodes(t *testing.T) {
	inside := NodeBounds{ID: valueobjects.NewNodeID(), Position: valueobjects.Position{X: 100, Y: 100}}
	outside := NodeBounds{ID: valueobjects.NewNodeID(), Position: valueobjects.Position{X: 5000, Y: 5000}}

	c := NewCuller(staticBounds([]NodeBounds{inside, outside}), nil, cullerConfig())
	defer c.Close()
	c.SetViewport(valueobjects.DefaultViewport(), 1000, 800)

	delta := c.Recompute()
	require.Len(t, delta.Hidden, 1)
	assert.Equal(t, outside.ID, delta.Hidden[0])
	assert.Empty(t, delta.Shown)
	assert.True(t, c.IsHidden(outside.ID))
	assert.False(t, c.IsHidden(inside.ID))
}

func TestBufferExtendsVisibleRect(t *testing.T) {
	// Identity viewport over a 1000x800 screen, buffered by 200 on each
	// side: [-200,-200]..[1200,1000]. A default-size node ends at
	// position+(300,200), so one at (-500,0) still touches the buffer
	// edge while one at (-501,0) does not.
	touching := NodeBounds{ID: valueobjects.NewNodeID(), Position: valueobjects.Position{X: -500, Y: 0}}
	beyond := NodeBounds{ID: valueobjects.NewNodeID(), Position: valueobjects.Position{X: -501, Y: 0}}

	c := NewCuller(staticBounds([]NodeBounds{touching, beyond}), nil, cullerConfig())
	defer c.Close()
	c.SetViewport(valueobjects.DefaultViewport(), 1000, 800)

	delta := c.Recompute()
	require.Len(t, delta.Hidden, 1)
	assert.Equal(t, beyond.ID, delta.Hidden[0])
}

func TestRecomputeReportsOnlyChanges(t *testing.T) {
	outside := NodeBounds{ID: valueobjects.NewNodeID(), Position: valueobjects.Position{X: 5000, Y: 5000}}

	c := NewCuller(staticBounds([]NodeBounds{outside}), nil, cullerConfig())
	defer c.Close()
	c.SetViewport(valueobjects.DefaultViewport(), 1000, 800)

	first := c.Recompute()
	require.Len(t, first.Hidden, 1)

	second := c.Recompute()
	assert.True(t, second.IsEmpty(), "unchanged visibility must not repeat in the delta")
}

func TestPanBringsNodeBackAsShown(t *testing.T) {
	node := NodeBounds{ID: valueobjects.NewNodeID(), Position: valueobjects.Position{X: 5000, Y: 0}}

	c := NewCuller(staticBounds([]NodeBounds{node}), nil, cullerConfig())
	defer c.Close()
	c.SetViewport(valueobjects.DefaultViewport(), 1000, 800)
	require.Len(t, c.Recompute().Hidden, 1)

	// Pan so canvas x=5000 lands on screen: pan.x = -4900 puts the
	// visible rect at [4900, 5900).
	panned, err := valueobjects.NewViewport(-4900, 0, 1)
	require.NoError(t, err)
	c.SetViewport(panned, 1000, 800)

	delta := c.Recompute()
	require.Len(t, delta.Shown, 1)
	assert.Equal(t, node.ID, delta.Shown[0])
	assert.False(t, c.IsHidden(node.ID))
}

func TestViewportChangesCoalescePerFrame(t *testing.T) {
	var calls atomic.Int32
	source := func() []NodeBounds {
		calls.Add(1)
		return nil
	}

	c := NewCuller(source, nil, shortFrameConfig())
	defer c.Close()

	for i := 0; i < 20; i++ {
		vp, err := valueobjects.NewViewport(float64(-i), 0, 1)
		require.NoError(t, err)
		c.SetViewport(vp, 1000, 800)
	}

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "a burst of viewport changes runs one pass")
}

func TestDeltaCallbackFiresOnChange(t *testing.T) {
	outside := NodeBounds{ID: valueobjects.NewNodeID(), Position: valueobjects.Position{X: 5000, Y: 5000}}

	deltas := make(chan CullDelta, 1)
	c := NewCuller(staticBounds([]NodeBounds{outside}), func(d CullDelta) { deltas <- d }, cullerConfig())
	defer c.Close()
	c.SetViewport(valueobjects.DefaultViewport(), 1000, 800)

	c.Recompute()
	select {
	case d := <-deltas:
		assert.Len(t, d.Hidden, 1)
	default:
		t.Fatal("expected a delta callback")
	}

	c.Recompute()
	select {
	case <-deltas:
		t.Fatal("empty pass must not invoke the callback")
	default:
	}
}

func TestRemovedNodesLeaveHiddenSet(t *testing.T) {
	node := NodeBounds{ID: valueobjects.NewNodeID(), Position: valueobjects.Position{X: 5000, Y: 5000}}
	bounds := []NodeBounds{node}
	source := func() []NodeBounds { return bounds }

	c := NewCuller(source, nil, cullerConfig())
	defer c.Close()
	c.SetViewport(valueobjects.DefaultViewport(), 1000, 800)
	c.Recompute()
	require.True(t, c.IsHidden(node.ID))

	bounds = nil
	c.Recompute()
	assert.False(t, c.IsHidden(node.ID))
	assert.Empty(t, c.HiddenIDs())
}

func TestCloseCancelsArmedPass(t *testing.T) {
	var calls atomic.Int32
	source := func() []NodeBounds {
		calls.Add(1)
		return nil
	}

	c := NewCuller(source, nil, shortFrameConfig())
	c.SetViewport(valueobjects.DefaultViewport(), 1000, 800)
	c.Close()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
