package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pawarasasmina/photobooth/agent"
	"github.com/Pawarasasmina/photobooth/camera"
	"github.com/Pawarasasmina/photobooth/protocol"
)

const (
	baseURL     = "http://localhost:8080"
	wsURL       = "ws://localhost:8080/ws"
	testTimeout = 30 * time.Second
)

// generateSession calls the running server's session API.
func generateSession(ctx context.Context, t *testing.T) protocol.JoinInfo {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/generate-session", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "is the photobooth server running on :8080?")
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		SessionID string `json:"session_id"`
		JoinURL   string `json:"join_url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return protocol.JoinInfo{SessionID: out.SessionID, JoinURL: out.JoinURL}
}

// staticSource always produces the same frame; good enough for an
// end-to-end smoke run against a live server.
type staticSource struct{}

func (staticSource) AcquireFrame(_ context.Context) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 128, A: 255})
		}
	}
	return img, nil
}

func TestE2ECaptureFlow(t *testing.T) {
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("Skipping integration test: set INTEGRATION env var to run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	info := generateSession(ctx, t)
	require.NotEmpty(t, info.SessionID)

	booth := &agent.CaptureAgent{
		ServerURL: wsURL,
		Source:    staticSource{},
		Retry:     camera.DefaultRetryPolicy,
	}
	go booth.Run(ctx, info.SessionID)

	// Let the booth attach before the controller joins.
	time.Sleep(500 * time.Millisecond)

	phone, err := agent.DialController(ctx, wsURL, info.SessionID)
	require.NoError(t, err)
	defer phone.Close()

	out, err := phone.RequestCapture(ctx)
	require.NoError(t, err)
	assert.True(t, out.Delivered, "expected a delivered artifact, got reason %q", out.Reason)
	require.NotNil(t, out.Artifact)
	assert.NotEmpty(t, out.Artifact.Data)

	// QR endpoint serves a scannable image for the same session.
	qrResp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s/qr", baseURL, info.SessionID))
	require.NoError(t, err)
	defer qrResp.Body.Close()
	assert.Equal(t, http.StatusOK, qrResp.StatusCode)

	require.NoError(t, phone.EndSession())
}

func TestE2EBurst(t *testing.T) {
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("Skipping integration test: set INTEGRATION env var to run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	info := generateSession(ctx, t)

	booth := &agent.CaptureAgent{
		ServerURL: wsURL,
		Source:    staticSource{},
		Retry:     camera.DefaultRetryPolicy,
	}
	go booth.Run(ctx, info.SessionID)
	time.Sleep(500 * time.Millisecond)

	phone, err := agent.DialController(ctx, wsURL, info.SessionID)
	require.NoError(t, err)
	defer phone.Close()

	outcomes, err := phone.Burst(ctx, 3)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for i, out := range outcomes {
		assert.True(t, out.Delivered, "round %d: expected delivery, got reason %q", i, out.Reason)
	}

	require.NoError(t, phone.EndSession())
}
