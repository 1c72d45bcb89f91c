package main

import (
	"fmt"

	"github.com/botfleet/backend/pkg/utils/keygen"
)

// Prints fresh secrets for config bootstrap: a JWT signing secret and a
// 32-byte AES encryption key.
func main() {
	fmt.Printf("auth.jwt_secret: %s\n", keygen.GenerateRandomSecret(48))
	fmt.Printf("security.encryption_key: %s\n", keygen.GenerateRandomSecret(32))
}
