// Command apikey-generator mints a random client API key and prints the
// bcrypt hash to configure the server with. The plaintext key is shown
// once and is not recoverable from the hash.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

const keyBytes = 32

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	flag.Parse()

	raw := make([]byte, keyBytes)
	if _, err := rand.Read(raw); err != nil {
		log.Fatalf("failed to generate key material: %v", err)
	}
	key := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(key), *cost)
	if err != nil {
		log.Fatalf("failed to hash key: %v", err)
	}

	fmt.Printf("API key (give to the client, shown once):\n  %s\n\n", key)
	fmt.Printf("Hash (set as ARGUS_AUTH_API_KEY_HASH):\n  %s\n", string(hash))
}
