package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	secretEnv := os.Getenv("JWT_SECRET")
	if secretEnv == "" {
		secretEnv = "super-secret-key-change-me"
	}

	secret := flag.String("secret", secretEnv, "JWT Secret Key")
	username := flag.String("user", "cli", "Username claim")
	role := flag.String("role", "sender", "Role: 'admin' or 'sender'")
	ttl := flag.Duration("ttl", 24*time.Hour*365, "Token lifetime")
	flag.Parse()

	if *role != "admin" && *role != "sender" {
		log.Fatalf("Invalid role: %s. Must be 'admin' or 'sender'", *role)
	}

	claims := jwt.MapClaims{
		"sub":  *username,
		"role": *role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(*ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(*secret))
	if err != nil {
		log.Fatalf("Error signing token: %v", err)
	}

	fmt.Println(signedToken)
}
