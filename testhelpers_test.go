//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridemax/service-booking/internal/application"
	"github.com/ridemax/service-booking/internal/contract"
	"github.com/ridemax/service-booking/internal/domain/fare"
	"github.com/ridemax/service-booking/internal/domain/route"
	bookingEvents "github.com/ridemax/service-booking/internal/events"
	"github.com/ridemax/service-booking/internal/platform/database"
	"github.com/ridemax/service-booking/internal/platform/kafka"
	"github.com/ridemax/service-booking/internal/repository"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dispatchSource = "service-dispatch"
	pgUser         = "ridemax"
	pgDatabase     = "ridemax_test"
)

// harness is a migrated Postgres plus a Kafka broker with the booking and
// dispatch topics in place. Containers are terminated via t.Cleanup.
type harness struct {
	DB      *gorm.DB
	Brokers []string
}

// bookingStack is the booking service wired against the harness.
type bookingStack struct {
	Bookings *application.BookingService
	Pricing  *application.PricingService
	Consumer *bookingEvents.DispatchEventConsumer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		DB:      startPostgres(t),
		Brokers: startKafka(t, contract.TopicBookingEvents, contract.TopicDispatchEvents),
	}
}

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgUser,
				"POSTGRES_DB":       pgDatabase,
			},
			// The entrypoint restarts postgres once after init scripts.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:     host,
		Port:     port.Port(),
		User:     pgUser,
		Password: pgUser,
		DBName:   pgDatabase,
		SSLMode:  "disable",
	}

	var db *gorm.DB
	require.Eventually(t, func() bool {
		conn, err := database.Connect(cfg, zap.NewNop())
		if err != nil {
			return false
		}
		db = conn
		return true
	}, 30*time.Second, time.Second, "postgres never accepted connections")

	require.NoError(t, database.RunMigrations(cfg.DatabaseURL(), "migrations", zap.NewNop()))
	return db
}

func startKafka(t *testing.T, topics ...string) []string {
	t.Helper()
	ctx := context.Background()

	container, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	ensureTopics(t, brokers[0], topics)
	return brokers
}

// ensureTopics creates topics on the controller up front; auto-creation on
// first publish races with the consumer group join.
func ensureTopics(t *testing.T, broker string, topics []string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	configs := make([]kafkago.TopicConfig, 0, len(topics))
	for _, name := range topics {
		configs = append(configs, kafkago.TopicConfig{Topic: name, NumPartitions: 1, ReplicationFactor: 1})
	}
	require.NoError(t, ctrl.CreateTopics(configs...))

	require.Eventually(t, func() bool {
		parts, err := conn.ReadPartitions(topics...)
		return err == nil && len(parts) == len(topics)
	}, 10*time.Second, 200*time.Millisecond, "topic metadata not visible")
}

// bookingStack wires the booking service against real storage and Kafka.
// No routing provider is configured, so local estimates use the fallback.
func (h *harness) bookingStack(t *testing.T) *bookingStack {
	t.Helper()
	logger := zap.NewNop()

	pricing := application.NewPricingService(repository.NewGormPricingRepository(h.DB), fare.NewAirportMatcher(nil), logger)
	require.NoError(t, pricing.SeedDefaults(context.Background(), application.DefaultPricingSeed()))

	estimates := application.NewEstimateService(route.NewEstimator(nil, 0, logger), nil, nil, pricing, logger)
	customers := application.NewCustomerService(repository.NewGormCustomerRepository(h.DB), logger)

	producer := kafka.NewProducer(h.Brokers, logger)
	t.Cleanup(func() { _ = producer.Close() })

	bookings := application.NewBookingService(
		repository.NewGormBookingRepository(h.DB),
		estimates,
		customers,
		producer,
		"919876543210",
		logger,
	)

	group := "it-dispatch-" + uuid.NewString()[:8]
	consumer := bookingEvents.NewDispatchEventConsumer(h.Brokers, group, bookings, logger)
	t.Cleanup(func() { _ = consumer.Close() })

	return &bookingStack{Bookings: bookings, Pricing: pricing, Consumer: consumer}
}

// sendDispatchEvent plays the dispatch service and emits one event.
func (h *harness) sendDispatchEvent(t *testing.T, eventType string, data any) {
	t.Helper()
	producer := kafka.NewProducer(h.Brokers, zap.NewNop())
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(dispatchSource, eventType, data)
	require.NoError(t, err)
	require.NoError(t, producer.PublishEvent(context.Background(), contract.TopicDispatchEvents, ce))
}

// awaitStatus polls the bookings table until the row reaches status.
func (h *harness) awaitStatus(t *testing.T, id uuid.UUID, status string, within time.Duration) repository.BookingModel {
	t.Helper()
	var row repository.BookingModel
	require.Eventually(t, func() bool {
		return h.DB.Where("id = ? AND status = ?", id, status).Take(&row).Error == nil
	}, within, 200*time.Millisecond, "booking %s never reached %s", id, status)
	return row
}

// nextBookingEvent scans the booking topic from the start for an event of the
// given type about subject.
func (h *harness) nextBookingEvent(t *testing.T, eventType, subject string, within time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     h.Brokers,
		GroupID:     "it-assert-" + uuid.NewString()[:8],
		Topic:       contract.TopicBookingEvents,
		StartOffset: kafkago.FirstOffset,
		MaxBytes:    1 << 20,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if ctx.Err() != nil {
			require.FailNow(t, fmt.Sprintf("no %s event for %s on %s", eventType, subject, contract.TopicBookingEvents))
		}
		if err != nil {
			continue
		}
		if ce, err := kafka.ParseCloudEvent(msg.Value); err == nil && ce.Type == eventType && ce.Subject == subject {
			return ce
		}
	}
}
