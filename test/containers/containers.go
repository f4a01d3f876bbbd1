// Package containers starts the PostgreSQL and Kafka containers the
// integration tests run against.
package containers

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/relabs-tech/drinks/core/csql"
)

const (
	postgresUser     = "testuser"
	postgresPassword = "testpass"
	postgresDB       = "testdb"
)

// Postgres is a running postgres container
type Postgres struct {
	testcontainers.Container
	// DataSourceName is the connection string without password
	DataSourceName string
	// Password is the password for DataSourceName
	Password string
}

// Open opens the database with the given schema. The schema is cleared.
func (p *Postgres) Open(schema string) *csql.DB {
	db := csql.OpenWithSchema(p.DataSourceName, p.Password, schema)
	db.ClearSchema()
	return db
}

// StartPostgres starts a postgres container. The network is optional.
func StartPostgres(ctx context.Context, networkName string) (*Postgres, error) {
	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		// postgres restarts once after initialization
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}
	if networkName != "" {
		pgReq.Networks = []string{networkName}
		pgReq.NetworkAliases = map[string][]string{networkName: {"postgres"}}
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}

	pgHost, err := pgC.Host(ctx)
	if err != nil {
		return nil, err
	}
	pgPort, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		return nil, err
	}

	return &Postgres{
		Container: pgC,
		DataSourceName: fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
			pgHost, pgPort.Port(), postgresUser, postgresDB),
		Password: postgresPassword,
	}, nil
}

// Kafka is a running kafka broker with its zookeeper
type Kafka struct {
	Zookeeper testcontainers.Container
	Broker    testcontainers.Container
	// Addr is the broker address reachable from the test process
	Addr string
}

// Terminate stops broker and zookeeper
func (k *Kafka) Terminate(ctx context.Context) error {
	if err := k.Broker.Terminate(ctx); err != nil {
		return err
	}
	return k.Zookeeper.Terminate(ctx)
}

// StartKafka starts zookeeper and a single kafka broker in the given network
func StartKafka(ctx context.Context, networkName string) (*Kafka, error) {
	zooReq := testcontainers.ContainerRequest{
		Image:        "confluentinc/cp-zookeeper:7.5.0",
		ExposedPorts: []string{"2181/tcp"},
		Env: map[string]string{
			"ZOOKEEPER_CLIENT_PORT": "2181",
			"ZOOKEEPER_TICK_TIME":   "2000",
		},
		WaitingFor:     wait.ForListeningPort("2181/tcp"),
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {"zookeeper"}},
	}
	zooC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: zooReq,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}

	kafkaReq := testcontainers.ContainerRequest{
		Image:        "confluentinc/cp-kafka:7.5.0",
		ExposedPorts: []string{"9092:9092/tcp", "29092:29092/tcp"},
		Env: map[string]string{
			"KAFKA_BROKER_ID":                        "1",
			"KAFKA_ZOOKEEPER_CONNECT":                "zookeeper:2181",
			"KAFKA_LISTENERS":                        "PLAINTEXT://0.0.0.0:9092,PLAINTEXT_HOST://0.0.0.0:29092,EXTERNAL://0.0.0.0:9093",
			"KAFKA_ADVERTISED_LISTENERS":             "PLAINTEXT://localhost:9092,PLAINTEXT_HOST://localhost:29092,EXTERNAL://kafka:9093",
			"KAFKA_LISTENER_SECURITY_PROTOCOL_MAP":   "PLAINTEXT:PLAINTEXT,PLAINTEXT_HOST:PLAINTEXT,EXTERNAL:PLAINTEXT",
			"KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR": "1",
			"ALLOW_PLAINTEXT_LISTENER":               "yes",
		},
		WaitingFor:     wait.ForLog("started (kafka.server.KafkaServer)"),
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {"kafka"}},
	}
	kafkaC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: kafkaReq,
		Started:          true,
	})
	if err != nil {
		zooC.Terminate(ctx)
		return nil, err
	}

	kafkaHost, err := kafkaC.Host(ctx)
	if err != nil {
		return nil, err
	}
	kafkaPort, err := kafkaC.MappedPort(ctx, "9092")
	if err != nil {
		return nil, err
	}
	return &Kafka{
		Zookeeper: zooC,
		Broker:    kafkaC,
		Addr:      fmt.Sprintf("%s:%s", kafkaHost, kafkaPort.Port()),
	}, nil
}

// NewNetwork creates a docker network for containers that need to see each other
func NewNetwork(ctx context.Context) (testcontainers.Network, string, error) {
	networkName := "drinks-test-network_" + fmt.Sprintf("%d", time.Now().UnixNano())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{
			Name:           networkName,
			CheckDuplicate: true,
		},
	})
	return network, networkName, err
}
