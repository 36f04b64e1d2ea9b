// Command token-generator mints an operator JWT for the administrative
// queue endpoints using the server's configured signing secret.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/visionsmith/argus-api/internal/config"
	"github.com/visionsmith/argus-api/internal/service/auth"
)

func main() {
	subject := flag.String("subject", "", "operator identity to embed in the token")
	flag.Parse()

	if *subject == "" {
		log.Fatal("usage: token-generator -subject <operator-name>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		log.Fatalf("failed to create JWT service: %v", err)
	}

	token, err := jwtService.GenerateToken(context.Background(), *subject)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}

	fmt.Printf("Operator token for %q (valid %d minutes):\n%s\n",
		*subject, cfg.Auth.TokenLifetimeMinutes, token)
}
