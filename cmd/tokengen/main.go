// Command tokengen issues HS256 access tokens accepted by the MindWell server.
//
//	tokengen -u 7 -k "$MINDWELL_SECRET_KEY" -ttl 24h
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/server/auth"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	userID := fs.Int64("u", 0, "user id the token is issued for")
	secret := fs.String("k", os.Getenv("MINDWELL_SECRET_KEY"), "signing secret (defaults to MINDWELL_SECRET_KEY)")
	ttl := fs.Duration("ttl", 24*time.Hour, "token validity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *userID <= 0 {
		return errors.New("user id must be positive (-u)")
	}
	if *secret == "" {
		return errors.New("signing secret is required (-k or MINDWELL_SECRET_KEY)")
	}
	if *ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	tok, err := auth.GenerateToken(*userID, []byte(*secret), *ttl)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}
