package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookChain_OrderAndThreading(t *testing.T) {
	var order []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				order = append(order, "before:"+name)
				return ctx, km, append(data, name...), nil
			},
			After: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
				order = append(order, "after:"+name)
			},
		}
	}

	chain := NewHookChain(mk("a"), nil, mk("b"))
	_, _, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte(">"))
	require.NoError(t, err)
	assert.Equal(t, ">ab", string(data))

	chain.AfterHandle(context.Background(), "t", kafka.Message{}, data, nil)
	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, order)
}

func TestHookChain_PanicBecomesHookError(t *testing.T) {
	var notified int
	panicky := HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("boom")
		},
		Err: func(context.Context, string, kafka.Message, []byte, error) { notified++ },
	}
	counter := HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { notified++ }}

	_, _, _, err := NewHookChain(counter, panicky).BeforeHandle(context.Background(), "t", kafka.Message{}, nil)

	var he *HookError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "ERR_PANIC", he.Code)
	assert.Equal(t, 2, notified)
}

func TestRejectEmpty(t *testing.T) {
	h := RejectEmpty()

	_, _, _, err := h.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "ERR_EMPTY_PAYLOAD", he.Code)

	_, _, _, err = h.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("{}"))
	assert.NoError(t, err)
}

func TestLoggingHook_StampsContext(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}

	ctx, _, _, err := NewLoggingHook(nil).BeforeHandle(context.Background(), "t", km, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceIDFrom(ctx))
	_, ok := ctx.Value(CtxStartTime).(time.Time)
	assert.True(t, ok)
}

func TestBackoffWithJitter(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		exp := min << uint(attempt-1)
		if exp > max {
			exp = max
		}
		assert.LessOrEqual(t, d, exp)
		assert.Greater(t, d, exp/2-1)
	}
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestEncodeAndTraceHeaders(t *testing.T) {
	b, err := encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, err = encode("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	_, err = encode(func() {})
	assert.Error(t, err)

	assert.Nil(t, traceHeaders(context.Background()))
	h := traceHeaders(WithTraceID(context.Background(), "t-1"))
	require.Len(t, h, 1)
	assert.Equal(t, "trace_id", h[0].Key)
	assert.Equal(t, "t-1", string(h[0].Value))
	assert.Equal(t, "t-1", ExtractTraceID(kafka.Message{Headers: h}))
}
