package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kdimtricp/tubely/internal/auth"
	"github.com/kdimtricp/tubely/internal/config"
)

// mint-token issues a bearer token for local testing against a running server.
func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file")
		userID     = flag.String("user", "", "User ID to embed in the token")
		ttl        = flag.Duration("ttl", time.Hour, "Token lifetime")
	)
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "please provide a user ID with -user")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token, err := auth.MakeJWT(*userID, cfg.JWTSecret, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
