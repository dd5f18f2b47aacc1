package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

func main() {
	// 64 random bytes for HS256 signing
	secret := make([]byte, 64)
	if _, err := rand.Read(secret); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate secret: %v\n", err)
		os.Exit(1)
	}

	encoded := base64.StdEncoding.EncodeToString(secret)

	fmt.Println("Generated JWT signing secret.")
	fmt.Println("\nAdd this to your .env file:")
	fmt.Println("----------------------------------------")
	fmt.Printf("JWT_SECRET=%s\n", encoded)
	fmt.Println("----------------------------------------")
}
