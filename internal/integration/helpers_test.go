//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/covid-projection-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("projection-test-cluster"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var dayZero = time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC)

// projectionPayload builds a request whose rows are 4 days apart with 100 beds.
func projectionPayload(t *testing.T, state string, hospitalizations []int) []byte {
	t.Helper()
	rows := make([][]domain.Cell, len(hospitalizations))
	for i, h := range hospitalizations {
		row := make([]domain.Cell, 18)
		row[domain.Schema.Date] = dayZero.AddDate(0, 0, 4*i).Format("2006-01-02")
		row[domain.Schema.Hospitalizations] = strconv.Itoa(h)
		row[domain.Schema.Beds] = "100"
		row[domain.Schema.Infected] = "1,500"
		row[domain.Schema.Deaths] = strconv.Itoa(i * 3)
		row[domain.Schema.Rt] = "1.3"
		row[domain.Schema.RtStdev] = "0.1"
		row[domain.Schema.TotalPopulation] = "6,045,680"
		rows[i] = row
	}
	data, err := json.Marshal(domain.ProjectionRequest{
		Location:     domain.Location{StateCode: state, StateName: state + " State"},
		Intervention: "Current Trends",
		IsInferred:   true,
		Rows:         rows,
	})
	require.NoError(t, err)
	return data
}
