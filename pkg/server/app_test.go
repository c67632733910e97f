package server

import (
	"context"
	"testing"
	"time"

	"WarrantCalc/internal/domain/models"
	"WarrantCalc/pkg/config"
	xhttp "WarrantCalc/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct{ closed bool }

func (c *closeRecorder) Publish(context.Context, *models.PricingReply) error        { return nil }
func (c *closeRecorder) PublishBatch(context.Context, []*models.PricingReply) error { return nil }
func (c *closeRecorder) Close() error                                               { c.closed = true; return nil }

func TestRunContext_ShutsDownOnCancel(t *testing.T) {
	srv := xhttp.NewServer(nil,
		xhttp.WithHost("127.0.0.1"),
		xhttp.WithPort(0),
		xhttp.WithMetricsPath(""),
		xhttp.WithTimeouts(time.Second, time.Second, time.Second),
	)
	replies := &closeRecorder{}
	app := New(config.Default(), nil, srv, nil, nil, replies)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, replies.closed)
}
