package stockfeed

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRedisAddr = "localhost:6379"

func checkRedisAvailable(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", testRedisAddr, 2*time.Second)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	conn.Close()
}

func TestDecode(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		payload string
		wantErr bool
		stock   int
		rev     uint64
	}{
		{"valid", `{"productId":"mug","stock":7}`, false, 7, 0},
		{"zero stock", `{"productId":"mug","stock":0}`, false, 0, 0},
		{"with revision", `{"productId":"mug","stock":2,"revision":9}`, false, 2, 9},
		{"not json", `stock=7`, true, 0, 0},
		{"missing product", `{"stock":7}`, true, 0, 0},
		{"missing stock", `{"productId":"mug"}`, true, 0, 0},
		{"negative stock", `{"productId":"mug","stock":-1}`, true, 0, 0},
		{"string stock", `{"productId":"mug","stock":"7"}`, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decode(tt.payload, now)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedMessage) {
					t.Fatalf("decode() error = %v, want ErrMalformedMessage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode() error = %v", err)
			}
			if got.ProductID != "mug" || got.Stock != tt.stock || got.Revision != tt.rev {
				t.Errorf("decode() = %+v", got)
			}
			if !got.Timestamp.Equal(now) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, now)
			}
		})
	}
}

func TestModule_HandleCountsSkipped(t *testing.T) {
	m := NewModule(testRedisAddr, "")
	assert.Equal(t, DefaultChannel, m.channel)

	m.handle(`{"productId":"mug","stock":1}`)
	m.handle(`garbage`)

	assert.Equal(t, 2, m.received)
	assert.Equal(t, 1, m.skipped)
}

func TestModule_HealthBeforeStart(t *testing.T) {
	m := NewModule(testRedisAddr, "")
	assert.False(t, m.Health(context.Background()).Healthy)
}

func TestModule_ReceivesPublishedMessages(t *testing.T) {
	checkRedisAvailable(t)

	ctx := context.Background()
	channel := "stock-updates-test"
	m := NewModule(testRedisAddr, channel)
	require.NoError(t, m.Start(ctx))
	defer m.Stop(ctx)

	publisher := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	defer publisher.Close()

	require.NoError(t, publisher.Publish(ctx, channel, `{"productId":"mug","stock":3}`).Err())
	require.NoError(t, publisher.Publish(ctx, channel, `not json`).Err())

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.received == 2
	}, 2*time.Second, 20*time.Millisecond)

	status := m.Health(ctx)
	assert.True(t, status.Healthy)
	assert.Equal(t, 1, status.Details["skipped"])
}
