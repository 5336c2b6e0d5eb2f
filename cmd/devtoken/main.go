// Command devtoken mints bearer tokens the development API accepts, for
// scripts that need to call it without going through /auth/token.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"studenthub/devapi"
)

func main() {
	_ = godotenv.Load()

	var (
		count  = flag.Int("count", 1, "number of tokens to generate")
		start  = flag.Int("start", 1, "first user id when count > 1")
		ttl    = flag.Duration("ttl", time.Hour, "token lifetime")
		output = flag.String("output", "", "file to write generated tokens as a JSON array")
	)
	flag.Parse()

	secret := os.Getenv("DEVAPI_JWT_SECRET")
	if secret == "" {
		log.Fatal("DEVAPI_JWT_SECRET must be set")
	}
	auth := devapi.NewSecretAuth([]byte(secret), os.Getenv("DEVAPI_ISSUER"), *ttl)

	tokens, err := generateTokens(auth, *count, *start, flag.Args())
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}

	if *output != "" {
		if err := writeTokens(*output, tokens); err != nil {
			log.Fatalf("write tokens: %v", err)
		}
	}

	fmt.Print(tokens[0])
}

func generateTokens(auth *devapi.Auth, count, start int, args []string) ([]string, error) {
	if count < 1 {
		return nil, errors.New("count must be at least 1")
	}
	if start < 1 {
		return nil, errors.New("start must be at least 1")
	}
	if len(args) > 0 && count > 1 {
		return nil, errors.New("explicit user id cannot be combined with count > 1")
	}

	first := start
	if len(args) > 0 {
		id, err := strconv.Atoi(args[0])
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid user id %q", args[0])
		}
		first = id
	}

	tokens := make([]string, count)
	for i := range tokens {
		tok, err := auth.Issue(first + i)
		if err != nil {
			return nil, err
		}
		tokens[i] = tok
	}
	return tokens, nil
}

func writeTokens(path string, tokens []string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
