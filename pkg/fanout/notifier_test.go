package fanout_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/pkg/config"
	"github.com/shubham-shewale/stock-alerts/pkg/fanout"
	"github.com/shubham-shewale/stock-alerts/pkg/models"
)

var fanoutCfg = config.FanoutConfig{Channel: "alerts:notifications", BufferSize: 8, PublishTimeout: time.Second}

func TestNotifier_PublishesEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, "alerts:notifications")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := fanout.NewNotifier(rdb, fanoutCfg, zap.NewNop())

	userID := int64(7)
	n.Publish(models.Notification{
		Type:   models.NotificationRuleAlert,
		UserID: &userID,
		Data:   models.Alert{ID: 42, UserID: 7, Symbol: "AAPL", AlertType: "PRICE_ABOVE", Message: "AAPL triggered PRICE_ABOVE rule"},
	})

	select {
	case msg := <-sub.Channel():
		var got models.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "rule_alert", got.Type)
		require.NotNil(t, got.UserID)
		assert.Equal(t, int64(7), *got.UserID)
		assert.Equal(t, int64(42), got.Data.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not published")
	}

	n.Close()
	assert.Equal(t, uint64(1), n.Stats().Published)
}

type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	b.started <- struct{}{}
	<-b.release
	return redis.NewIntCmd(ctx)
}

func TestNotifier_DropsWhenBufferFull(t *testing.T) {
	pub := &blockingPublisher{started: make(chan struct{}, 4), release: make(chan struct{})}
	n := fanout.NewNotifier(pub, config.FanoutConfig{Channel: "c", BufferSize: 1}, zap.NewNop())

	n.Publish(models.Notification{Type: models.NotificationAlert})
	<-pub.started // first event is in flight

	n.Publish(models.Notification{Type: models.NotificationAlert}) // fills the buffer
	n.Publish(models.Notification{Type: models.NotificationAlert}) // dropped

	assert.Equal(t, uint64(1), n.Stats().Dropped)

	close(pub.release)
	n.Close()

	stats := n.Stats()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestNotifier_RedisFailureIsCountedNotPropagated(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	n := fanout.NewNotifier(rdb, fanoutCfg, zap.NewNop())
	n.Publish(models.Notification{Type: models.NotificationAlert})
	n.Close()

	stats := n.Stats()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Zero(t, stats.Published)
}

func TestNotifier_PublishAfterCloseIsDropped(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	n := fanout.NewNotifier(rdb, fanoutCfg, zap.NewNop())
	n.Close()
	n.Close()

	n.Publish(models.Notification{Type: models.NotificationAlert})
	assert.Equal(t, uint64(1), n.Stats().Dropped)
}
