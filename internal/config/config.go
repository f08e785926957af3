package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. Provider API keys are optional strings: an empty key
// disables that provider's branch of the analysis fallback chain, so the set
// of live providers is purely a configuration input.
type Config struct {
	Env       string        // application environment (e.g. "dev", "prod")
	Port      string        // HTTP port to listen on
	DBUser    string        // database username
	DBPass    string        // database password (optional)
	DBHost    string        // database host address
	DBPort    string        // database port number
	DBName    string        // database name
	JWTSecret string        // secret used to sign JWTs
	TokenTTL  time.Duration // access token lifetime

	BcryptCost    int // bcrypt cost for password hashing
	SignupCredits int // free analysis credits granted at signup

	// AI provider credentials. All optional; at least one must be present for
	// the analyze endpoint to function.
	GeminiKey      string
	OpenRouterKey  string
	SarvamKey      string
	AnalysisBudget time.Duration // global wall-clock budget for one analysis request

	// Stripe billing. Optional; absence disables the payment endpoints.
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceSingle   string
	StripePriceMaker    string
	StripePriceLifetime string
	FrontendURL         string
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values cause
// the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),
		TokenTTL:  envDur("TOKEN_TTL", 7*24*time.Hour),

		BcryptCost:    envInt("BCRYPT_COST", 10),
		SignupCredits: envInt("SIGNUP_CREDITS", 3),

		GeminiKey:      firstEnv("GEMINI_API_KEY", "API_KEY"),
		OpenRouterKey:  os.Getenv("OPENROUTER_API_KEY"),
		SarvamKey:      os.Getenv("SARVAM_API_KEY"),
		AnalysisBudget: envDur("ANALYSIS_BUDGET", 8500*time.Millisecond),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceSingle:   os.Getenv("STRIPE_PRICE_SINGLE"),
		StripePriceMaker:    os.Getenv("STRIPE_PRICE_MAKER"),
		StripePriceLifetime: os.Getenv("STRIPE_PRICE_LIFETIME"),
		FrontendURL:         os.Getenv("FRONTEND_URL"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// firstEnv returns the first non-empty value among the given keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envDur(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, s)
	}
	return d
}
