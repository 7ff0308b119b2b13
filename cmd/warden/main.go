package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hivelink/warden/adapters/accounts"
	"github.com/hivelink/warden/adapters/events"
	"github.com/hivelink/warden/adapters/provider"
	"github.com/hivelink/warden/adapters/store"
	"github.com/hivelink/warden/adapters/tokenizer"
	"github.com/hivelink/warden/config"
	"github.com/hivelink/warden/oauth"
	"github.com/hivelink/warden/service"
	"github.com/hivelink/warden/transport/http"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	log := logrus.NewEntry(logrus.StandardLogger())

	cfg, err := config.Load(os.Getenv("WARDEN_CONFIG"))
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	// Generate a token signing key; production deployments load it from
	// secure storage instead.
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.WithError(err).Fatal("failed to generate signing key")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("failed to parse Redis URL")
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to create Redis publisher")
	}

	mode := service.ModeStrict
	if !cfg.StrictAuthority {
		mode = service.ModeNonStrict
	}

	// The account source is backed by the blockchain RPC client in
	// production; the in-memory source keeps single-binary development
	// working without a node.
	accountSource := accounts.NewMemorySource()

	redisStore := store.NewRedisStore(redisClient)
	jwtTokenizer := tokenizer.NewJWTTokenizer(signKey)
	eventPub := events.NewWatermillPublisher(publisher)
	authority := service.NewAuthorityService(accountSource, mode, log)
	authService := service.NewAuthService(jwtTokenizer, redisStore, authority, eventPub, log)

	oidc := provider.NewMemoryProvider()
	controller := oauth.NewController(oidc, redisStore, oauth.Config{
		ReaskDenialAfter: cfg.OAuth.ReaskDenialAfter.Std(),
	}, log)

	router := http.SetupRouter(authService, controller)

	log.WithField("addr", cfg.ListenAddr).Info("starting warden")
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
