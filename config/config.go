package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env and validates required vars.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, reading environment variables")
	}

	if os.Getenv("DATABASE_URL") == "" {
		log.Fatal("[FATAL] DATABASE_URL is required in .env or environment")
	}
}

// Port returns the HTTP listen port.
func Port() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	return port
}

// DrawInterval returns the delay between number draws. DRAW_INTERVAL_SECONDS
// overrides the default of 3 seconds.
func DrawInterval() time.Duration {
	if v := os.Getenv("DRAW_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		log.Printf("[WARN] ignoring invalid DRAW_INTERVAL_SECONDS=%q", v)
	}
	return 3 * time.Second
}
