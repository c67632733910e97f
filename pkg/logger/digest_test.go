package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]DigestEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]DigestEntry))
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func TestErrorDigestFoldsRepeats(t *testing.T) {
	pub := &capturePublisher{}
	d := NewErrorDigest(&DigestConfig{Interval: time.Hour, MaxUnique: 10, Topic: "ops.errors", Publisher: pub})

	for i := 0; i < 3; i++ {
		d.AddLog("error", "solver failed", map[string]interface{}{"kind": "iv"}, "svc.go:10")
	}
	d.AddLog("error", "publish failed", nil, "repo.go:20")
	d.Close()

	require.Equal(t, 1, pub.count())
	batch := pub.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "ops.errors", pub.topics[0])
	assert.Equal(t, "solver failed", batch[0].Message)
	assert.Equal(t, 3, batch[0].Count)
	assert.Equal(t, 1, batch[1].Count)
}

func TestErrorDigestFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	d := NewErrorDigest(&DigestConfig{Interval: time.Hour, MaxUnique: 2, Publisher: pub})
	defer d.Close()

	d.AddLog("error", "a", nil, "x")
	d.AddLog("error", "b", nil, "x")

	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestLoggerFeedsDigest(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&DigestConfig{Interval: time.Hour, Publisher: pub})

	l.Error("quote failed", String("type", "put"), Error(errors.New("boom")))
	l.Info("not collected")
	l.RemoveCollector()

	require.Equal(t, 1, pub.count())
	e := pub.batches[0][0]
	assert.Equal(t, "quote failed", e.Message)
	assert.Equal(t, "put", e.Fields["type"])
	assert.Equal(t, "boom", e.Fields["error"])
}
