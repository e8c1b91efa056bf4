// Command admintoken prints a bearer token for the admin lifecycle routes,
// signed with the same JWT settings the server reads from the environment.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "processguard/internal/jwt_token"
	"processguard/internal/platform/config"
	adminmw "processguard/pkg/platform/middleware/admin"
	pgstrings "processguard/pkg/platform/strings"
)

func main() {
	subject := flag.String("subject", "", "actor identity recorded on lifecycle events")
	roles := flag.String("roles", adminmw.RoleProcessAdmin, "comma separated roles")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "admintoken: -subject is required")
		os.Exit(2)
	}

	cfg := config.FromEnv()
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	token, err := tokens.GenerateAccessToken(*subject, pgstrings.SplitList(*roles), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "admintoken: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
