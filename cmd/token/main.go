// Command token issues a bearer token for an Amplifier address, signed with
// the server's JWT secret.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"xrplprover/config"
	"xrplprover/workers"
)

func main() {
	sender := flag.String("sender", "", "Amplifier address the token is issued to")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *sender == "" {
		fmt.Fprintln(os.Stderr, "-sender is required")
		os.Exit(2)
	}

	config.Init()
	if config.Config.Server.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "server.jwt_secret is not configured")
		os.Exit(2)
	}

	token, err := workers.NewCallerToken([]byte(config.Config.Server.JWTSecret), *sender, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
