package main

import (
	"os"
	"strconv"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"studenthub/devapi"
)

func main() {
	_ = godotenv.Load()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.StandardLogger()

	store := devapi.NewStore()
	if err := devapi.SeedRoles(store); err != nil {
		log.Fatalf("seed roles: %v", err)
	}
	if demo, _ := strconv.ParseBool(os.Getenv("DEVAPI_SEED_DEMO")); demo {
		if err := devapi.SeedDemo(store); err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
		log.Infof("demo accounts seeded, password: %s", devapi.DemoPassword)
	}

	issuer := os.Getenv("DEVAPI_ISSUER")
	var auth *devapi.Auth
	if jwksURL := os.Getenv("DEVAPI_JWKS_URL"); jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		ttl := time.Duration(0)
		if v := os.Getenv("JWKS_CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid JWKS_CACHE_TTL: %q", v)
			}
			ttl = d
		}
		auth = devapi.NewJWKSAuth(jwks, issuer, ttl)
	} else {
		secret := os.Getenv("DEVAPI_JWT_SECRET")
		if secret == "" {
			log.Fatal("DEVAPI_JWT_SECRET or DEVAPI_JWKS_URL must be set")
		}
		ttl := devapi.DefaultTokenTTL
		if v := os.Getenv("DEVAPI_TOKEN_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid DEVAPI_TOKEN_TTL: %q", v)
			}
			ttl = d
		}
		auth = devapi.NewSecretAuth([]byte(secret), issuer, ttl)
	}

	e := devapi.New(store, auth, logger)

	listenAddr := ":8000"
	if val, ok := os.LookupEnv("DEVAPI_PORT"); ok {
		listenAddr = ":" + val
	}
	log.Infof("devapi listening on %s", listenAddr)
	e.Logger.Fatal(e.Start(listenAddr))
}
