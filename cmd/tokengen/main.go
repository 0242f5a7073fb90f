package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/user/authgate/jwtauth"
)

func main() {
	var (
		secret   = flag.String("secret", "your-256-bit-secret-key-min-32-bytes-here-for-demo!", "Secret key (minimum 32 bytes)")
		subject  = flag.String("sub", "user123", "Subject (username)")
		lifetime = flag.Duration("lifetime", jwtauth.DefaultTokenLifetime, "Token validity, e.g. 30m or 2h")
	)

	flag.Parse()

	cfg, err := jwtauth.NewConfig(
		jwtauth.WithHS256([]byte(*secret)),
		jwtauth.WithTokenLifetime(*lifetime),
	)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	tokenString, claims, err := jwtauth.NewCodec(cfg).IssueClaims(*subject)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Println("\n=== JWT Token Generated ===")
	fmt.Printf("\nToken: %s\n\n", tokenString)
	fmt.Println("Claims:")
	fmt.Printf("  Subject: %s\n", claims.Subject)
	fmt.Printf("  Issued:  %s\n", claims.IssuedAt.Format(time.RFC3339))
	fmt.Printf("  Expires: %s\n\n", claims.ExpiresAt.Format(time.RFC3339))
	fmt.Println("Usage:")
	fmt.Printf("  curl -H 'Authorization: Bearer %s' http://localhost:8080/welcome\n\n", tokenString)
}
