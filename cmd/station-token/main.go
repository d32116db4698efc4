// Command station-token mints the bearer token the station server and agent present to
// the gateway's station routes.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ml4ch/CoSESWeather/internal/middleware"
)

func main() {
	_ = godotenv.Load()

	station := flag.String("station", "coses-01", "station identifier embedded in the token")
	ttl := flag.Duration("ttl", 0, "token lifetime, 0 for no expiry")
	secret := flag.String("secret", os.Getenv("STATION_JWT_SECRET"), "HS256 signing secret (defaults to STATION_JWT_SECRET)")
	flag.Parse()

	token, err := middleware.GenerateStationToken(*station, *secret, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)

	if *ttl > 0 {
		fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(*ttl).UTC().Format(time.RFC3339))
	}
}
