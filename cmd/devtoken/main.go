// cmd/devtoken mints a development JWT for a user id.
// Usage: go run ./cmd/devtoken -user <uuid> [-inactive] [-ttl 24h]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/oliklab/mledger-sub000/internal/config"
	"github.com/oliklab/mledger-sub000/internal/middleware"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	user := flag.String("user", "", "user uuid (random when empty)")
	inactive := flag.Bool("inactive", false, "mint a token without an active subscription")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	userID := uuid.New()
	if *user != "" {
		userID, err = uuid.Parse(*user)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid -user")
		}
	}

	token, err := middleware.SignToken(cfg.JWTSecret, userID, !*inactive, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("sign token")
	}
	log.Info().Str("user_id", userID.String()).Msg("token minted")
	fmt.Println(token)
}
