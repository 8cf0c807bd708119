package camera

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrUnavailable is returned by a FrameSource when the camera cannot
// produce a frame (missing device, revoked permission, busy hardware).
var ErrUnavailable = errors.New("camera unavailable")

// FrameSource acquires still frames from whatever camera hardware the
// booth has. Implementations are free to block briefly; callers bound
// the total wait through Grab's retry policy and context.
type FrameSource interface {
	AcquireFrame(ctx context.Context) (image.Image, error)
}

// Compositor merges a captured frame with a decorative overlay.
type Compositor interface {
	Merge(frame, overlay image.Image) image.Image
}

// RetryPolicy bounds how often a failed frame acquisition is retried
// before the failure is reported to the protocol. This keeps the
// booth-side retry behavior out of the server's round timeout logic.
type RetryPolicy struct {
	MaxRetries uint64
	Interval   time.Duration
}

// DefaultRetryPolicy retries twice with a short pause, roughly the
// behavior of the original booth UI's reconnect-then-capture path.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 2, Interval: 500 * time.Millisecond}

// Grab acquires one frame, retrying per policy. The error returned
// after the final attempt is what the booth reports as its capture
// failure.
func Grab(ctx context.Context, src FrameSource, policy RetryPolicy) (image.Image, error) {
	var frame image.Image

	operation := func() error {
		img, err := src.AcquireFrame(ctx)
		if err != nil {
			return err
		}
		frame = img
		return nil
	}

	backoffStrategy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(policy.Interval),
			policy.MaxRetries,
		),
		ctx,
	)

	err := backoff.RetryNotify(operation, backoffStrategy, func(err error, d time.Duration) {
		log.Printf("Retrying frame acquisition: %v (next attempt in %s)", err, d)
	})
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// OverlayCompositor draws the overlay on top of the frame, the same
// single-pass composite the original booth did on its canvas. A nil
// overlay yields the frame unchanged.
type OverlayCompositor struct{}

func (OverlayCompositor) Merge(frame, overlay image.Image) image.Image {
	if overlay == nil {
		return frame
	}
	bounds := frame.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, frame, bounds.Min, draw.Src)
	draw.Draw(out, bounds, overlay, overlay.Bounds().Min, draw.Over)
	return out
}
