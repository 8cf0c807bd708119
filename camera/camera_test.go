package camera

import (
	"context"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySource fails the first failures attempts, then produces frames.
type flakySource struct {
	failures int32
	calls    atomic.Int32
}

func (s *flakySource) AcquireFrame(_ context.Context) (image.Image, error) {
	n := s.calls.Add(1)
	if n <= s.failures {
		return nil, ErrUnavailable
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func TestGrabFirstTry(t *testing.T) {
	src := &flakySource{}
	frame, err := Grab(context.Background(), src, RetryPolicy{MaxRetries: 2, Interval: time.Millisecond})
	require.NoError(t, err)
	assert.NotNil(t, frame)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestGrabRetriesThenSucceeds(t *testing.T) {
	src := &flakySource{failures: 2}
	frame, err := Grab(context.Background(), src, RetryPolicy{MaxRetries: 2, Interval: time.Millisecond})
	require.NoError(t, err)
	assert.NotNil(t, frame)
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestGrabExhaustsRetries(t *testing.T) {
	src := &flakySource{failures: 10}
	_, err := Grab(context.Background(), src, RetryPolicy{MaxRetries: 2, Interval: time.Millisecond})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), src.calls.Load(), "one attempt plus two retries")
}

func TestGrabHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &flakySource{failures: 10}
	_, err := Grab(ctx, src, RetryPolicy{MaxRetries: 10, Interval: time.Second})
	assert.Error(t, err)
	assert.LessOrEqual(t, src.calls.Load(), int32(1))
}

func TestOverlayCompositorMerges(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	frame.Set(0, 0, color.RGBA{R: 255, A: 255})

	overlay := image.NewRGBA(image.Rect(0, 0, 2, 2))
	overlay.Set(1, 1, color.RGBA{B: 255, A: 255})

	out := OverlayCompositor{}.Merge(frame, overlay)

	r, _, _, _ := out.At(0, 0).RGBA()
	assert.NotZero(t, r, "frame pixel survives where overlay is transparent")
	_, _, b, _ := out.At(1, 1).RGBA()
	assert.NotZero(t, b, "overlay pixel wins where it is opaque")
}

func TestOverlayCompositorNilOverlay(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	out := OverlayCompositor{}.Merge(frame, nil)
	assert.Equal(t, image.Image(frame), out, "nil overlay yields the frame unchanged")
}
