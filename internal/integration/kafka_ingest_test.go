//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/couchcryptid/hazard-overlay/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-overlay/internal/config"
	"github.com/couchcryptid/hazard-overlay/internal/engine"
	"github.com/couchcryptid/hazard-overlay/internal/observability"
	"github.com/couchcryptid/hazard-overlay/internal/render"
	"github.com/couchcryptid/hazard-overlay/internal/temporal"
	"github.com/couchcryptid/hazard-overlay/internal/timecursor"
)

const testFeaturesTopic = "test-hazard-feature-collections"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// startKafka launches a single-broker Kafka container and returns its
// bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.1")
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

const earthquakeCollection = `{
	"hazard_type": "earthquake",
	"features": [
		{"id": "eq-main", "geometry": {"type": "Point", "coordinates": [37.03, 37.17]},
		 "properties": {"timestamp": "2024-04-26T12:00:00Z", "magnitude": 7.2, "felt_radius_km": 400, "sequence_id": "seq1"}},
		{"id": "eq-as1", "geometry": {"type": "Point", "coordinates": [37.05, 37.18]},
		 "properties": {"timestamp": "2024-04-26T12:45:00Z", "magnitude": 5.1, "sequence_id": "seq1"}}
	]
}`

const tornadoCollection = `{
	"hazard_type": "tornado",
	"features": [
		{"id": "to-1", "geometry": {"type": "Point", "coordinates": [-98.44, 31.02]},
		 "properties": {"timestamp": "2024-04-26T14:00:00Z", "f_scale": "EF3"}}
	]
}`

// TestKafkaIngest wires the real consumer against the engine and verifies a
// published collection ends up bound in the sink, with malformed messages
// skipped along the way.
func TestKafkaIngest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testFeaturesTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaFeaturesTopic: testFeaturesTopic,
		KafkaGroupID:       fmt.Sprintf("test-ingest-%d", time.Now().UnixNano()),
	}

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testFeaturesTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	// A malformed message first: ingest must skip it and keep going.
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("earthquake"), Value: []byte(earthquakeCollection)},
		kafkago.Message{Key: []byte("tornado"), Value: []byte(tornadoCollection)},
	))

	sink := render.NewMemorySink()
	cursor := timecursor.NewManual(time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC))
	eng := engine.New(sink, temporal.DefaultRecency(), cursor, discardLogger(), observability.NewMetricsForTesting())
	t.Cleanup(eng.Close)

	reader := kafkaadapter.NewReader(cfg, eng, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	readerCtx, readerCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- reader.Run(readerCtx) }()

	// Consumer group assignment can take a while on a fresh container.
	require.Eventually(t, func() bool {
		return sink.BindingCount() == 2
	}, 90*time.Second, 250*time.Millisecond, "expected both collections bound")

	snap := sink.Snapshot()
	require.Contains(t, snap.Bindings, "overlay-earthquake")
	require.Len(t, snap.Bindings["overlay-earthquake"], 2)
	assert.Equal(t, "eq-main", snap.Bindings["overlay-earthquake"][0].Feature.ID)
	require.NotNil(t, snap.Bindings["overlay-earthquake"][0].FeltRing)
	assert.Equal(t, 400.0, snap.Bindings["overlay-earthquake"][0].FeltRing.RadiusKm)

	require.Contains(t, snap.Bindings, "overlay-tornado")
	assert.Equal(t, 3.0, snap.Bindings["overlay-tornado"][0].Feature.Magnitude, "EF3 parsed to 3")

	// A later empty collection tears the overlay down through the same path.
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("tornado"),
		Value: []byte(`{"hazard_type": "tornado", "features": []}`),
	}))
	require.Eventually(t, func() bool {
		return sink.BindingCount() == 1
	}, 30*time.Second, 250*time.Millisecond, "empty collection should tear the tornado overlay down")

	readerCancel()
	require.NoError(t, <-errCh)
}
