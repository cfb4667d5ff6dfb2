// Command devtoken prints a signed access token for local testing against the
// API. It refuses to run when FOODHALL_APP_ENV is prod.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/foodhall-backend/pkg/auth"
	"github.com/angelmondragon/foodhall-backend/pkg/config"
	"github.com/angelmondragon/foodhall-backend/pkg/enums"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	userID := flag.Int64("user", 0, "user id (required)")
	role := flag.String("role", string(enums.RoleBuyer), "buyer|seller|courier|admin")
	sellerID := flag.Int64("seller", 0, "seller id, required for -role=seller")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "devtoken", Output: os.Stderr})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	token, err := mint(cfg, time.Now(), *userID, *role, *sellerID, *ttl)
	if err != nil {
		logg.Error(context.Background(), "failed to mint token", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func mint(cfg *config.Config, now time.Time, userID int64, role string, sellerID int64, ttl time.Duration) (string, error) {
	if cfg.App.IsProd() {
		return "", errors.New("devtoken is disabled in production")
	}
	parsed, err := enums.ParseRole(role)
	if err != nil {
		return "", err
	}
	payload := auth.AccessTokenPayload{UserID: userID, Role: parsed}
	if sellerID > 0 {
		payload.SellerID = &sellerID
	}
	return auth.MintAccessToken(cfg.JWT, now, ttl, payload)
}
