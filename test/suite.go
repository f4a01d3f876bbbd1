package test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"

	"github.com/relabs-tech/drinks/core/access"
	"github.com/relabs-tech/drinks/core/access/tokentest"
	"github.com/relabs-tech/drinks/core/backend"
	"github.com/relabs-tech/drinks/core/csql"
	"github.com/relabs-tech/drinks/core/drinks"
	"github.com/relabs-tech/drinks/core/logger"
	"github.com/relabs-tech/drinks/core/notify"
	"github.com/relabs-tech/drinks/core/registry"
	"github.com/relabs-tech/drinks/test/containers"
)

// NotificationTopic is the kafka topic of the suite
const NotificationTopic = "drinks"

// IntegrationTestSuite runs the complete drinks service against postgres and
// kafka containers. Tokens are signed by Authority, whose key set is served
// by a local identity provider.
type IntegrationTestSuite struct {
	suite.Suite
	*backend.Backend

	Authority *tokentest.Authority
	// URL is the base url of the running service
	URL string

	dbConn    *csql.DB
	registry  registry.Registry
	notifier  *notify.Kafka
	srv       *httptest.Server
	jwks      *httptest.Server
	network   testcontainers.Network
	postgres  *containers.Postgres
	kafka     *containers.Kafka
	kafkaConn *kafka.Conn

	jwksRequests int32
}

func (s *IntegrationTestSuite) createTopic(topic string, numPartitions int) error {
	if s.kafkaConn == nil {
		return fmt.Errorf("kafka connection is not established")
	}

	err := s.kafkaConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", topic, err)
	}
	return nil
}

func (s *IntegrationTestSuite) SetupSuite() {
	testcontainers.SkipIfProviderIsNotHealthy(s.T())
	ctx := context.Background()
	var err error

	var networkName string
	s.network, networkName, err = containers.NewNetwork(ctx)
	s.Require().NoError(err, "Failed to create network")

	s.postgres, err = containers.StartPostgres(ctx, networkName)
	s.Require().NoError(err, "Failed to start postgres")
	s.dbConn = s.postgres.Open("drinks_integration_test")

	s.kafka, err = containers.StartKafka(ctx, networkName)
	s.Require().NoError(err, "Failed to start kafka")
	s.kafkaConn, err = kafka.Dial("tcp", s.kafka.Addr)
	s.Require().NoError(err, "Failed to connect to kafka")
	s.Require().NoError(s.createTopic(NotificationTopic, 1))

	s.Authority = tokentest.NewAuthority()
	s.jwks = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.jwksRequests, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.Authority.JSONWebKeySet())
	}))

	s.registry = registry.New(s.dbConn)
	jwksRegistry := s.registry.Accessor("_jwks_")
	keys := access.NewRemoteKeySet(&access.RemoteKeySetBuilder{
		URL:      s.JWKSURL(),
		Registry: &jwksRegistry,
	})

	repository := drinks.NewPostgres(s.dbConn)
	s.Require().NoError(repository.Migrate(ctx))

	s.notifier = notify.NewKafka(&notify.KafkaBuilder{
		Brokers: []string{s.kafka.Addr},
		Topic:   NotificationTopic,
	})

	router := mux.NewRouter()
	logger.AddRequestID(router)
	s.Backend = backend.New(&backend.Builder{
		Router:     router,
		Repository: repository,
		Verifier: access.NewJwtVerifier(&access.JwtVerifierBuilder{
			Issuer:   tokentest.Issuer,
			Audience: tokentest.Audience,
			Keys:     keys,
		}),
		Notifier: s.notifier,
	})

	s.srv = httptest.NewServer(router)
	s.URL = s.srv.URL
}

func (s *IntegrationTestSuite) TearDownSuite() {
	ctx := context.Background()
	if s.srv != nil {
		s.srv.Close()
	}
	if s.jwks != nil {
		s.jwks.Close()
	}
	if s.notifier != nil {
		s.Require().NoError(s.notifier.Close())
	}
	if s.kafkaConn != nil {
		s.kafkaConn.Close()
	}
	if s.dbConn != nil {
		s.dbConn.Close()
	}
	if s.kafka != nil {
		s.Require().NoError(s.kafka.Terminate(ctx))
	}
	if s.postgres != nil {
		s.Require().NoError(s.postgres.Terminate(ctx))
	}
	if s.network != nil {
		s.Require().NoError(s.network.Remove(ctx))
	}
}

// JWKSURL returns the key set url of the local identity provider
func (s *IntegrationTestSuite) JWKSURL() string {
	return s.jwks.URL + "/.well-known/jwks.json"
}

// JWKSRequests returns the number of key set downloads
func (s *IntegrationTestSuite) JWKSRequests() int {
	return int(atomic.LoadInt32(&s.jwksRequests))
}

// Registry returns the registry of the service
func (s *IntegrationTestSuite) Registry() registry.Registry {
	return s.registry
}

// NewReader returns a reader for the notification topic, starting with the
// first message
func (s *IntegrationTestSuite) NewReader() *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:   []string{s.kafka.Addr},
		Topic:     NotificationTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
}
