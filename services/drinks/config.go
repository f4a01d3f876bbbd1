package main

import (
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/relabs-tech/drinks/core"
	"github.com/relabs-tech/drinks/core/csql"
	"github.com/relabs-tech/drinks/core/logger"
	"github.com/relabs-tech/drinks/core/notify"
)

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
// and POSTGRES_PASSWORD="docker"
type Service struct {
	Postgres         string        `env:"POSTGRES,required" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string        `env:"POSTGRES_PASSWORD,optional" description:"password to the Postgres DB"`
	PostgresSchema   string        `env:"POSTGRES_SCHEMA,optional,default=drinks" description:"the database schema of the service"`
	Auth0Domain      string        `env:"AUTH0_DOMAIN,required" description:"the auth0 domain, like example.eu.auth0.com"`
	APIAudience      string        `env:"API_AUDIENCE,required" description:"the audience of the access tokens"`
	Port             int           `env:"PORT,optional,default=3000" description:"the http port"`
	LogLevel         string        `env:"LOG_LEVEL,optional,default=info" description:"The level used for logger, can be debug, warning, info, error"`
	UpdateSchema     bool          `env:"UPDATE_SCHEMA,optional,default=true" description:"create the database tables on serve"`
	KafkaBrokers     string        `env:"KAFKA_BROKERS,optional" description:"comma separated kafka brokers for change notifications, empty disables notifications"`
	KafkaTopic       string        `env:"KAFKA_TOPIC,optional,default=drinks" description:"the kafka topic for change notifications"`
	JWKSRefresh      time.Duration `env:"JWKS_REFRESH,optional,default=6h" description:"the maximum age of the identity provider's key set"`
}

// loadService decodes the service configuration from the environment and
// initializes the logger
func loadService() (*Service, error) {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		return nil, err
	}
	level, err := logger.ParseLevel(service.LogLevel)
	if err != nil {
		logger.Default().WithError(err).Warnln("unknown log level", service.LogLevel)
	}
	logger.InitLogger(level)
	return service, nil
}

// Issuer returns the expected token issuer
func (s *Service) Issuer() string {
	return "https://" + strings.TrimSuffix(s.Auth0Domain, "/") + "/"
}

// JWKSURL returns the url of the identity provider's key set
func (s *Service) JWKSURL() string {
	return s.Issuer() + ".well-known/jwks.json"
}

// Brokers returns the kafka brokers, nil if notifications are disabled
func (s *Service) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(s.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Notifier returns the kafka notifier, or a notifier which drops everything if
// no brokers are configured. The returned close function flushes pending messages.
func (s *Service) Notifier() (core.Notifier, func() error) {
	brokers := s.Brokers()
	if len(brokers) == 0 {
		logger.Default().Infoln("no kafka brokers, change notifications are disabled")
		return notify.Nop{}, func() error { return nil }
	}
	logger.Default().Infoln("change notifications to kafka topic", s.KafkaTopic)
	k := notify.NewKafka(&notify.KafkaBuilder{
		Brokers: brokers,
		Topic:   s.KafkaTopic,
	})
	return k, k.Close
}

// OpenDB opens the database
func (s *Service) OpenDB() *csql.DB {
	return csql.OpenWithSchema(s.Postgres, s.PostgresPassword, s.PostgresSchema)
}
