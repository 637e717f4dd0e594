package config

import (
	"fmt"
	"os"
)

// Config carries everything the service reads from the environment. It is
// built once in main and injected; components never read env vars directly.
type Config struct {
	MongoURI     string
	DatabaseName string
	Port         string

	// JWTSecret signs API bearer tokens issued at login.
	JWTSecret string

	// Payment gateway settings. APIKey authorizes outbound calls, PGSecret
	// signs the collect-request payload, CallbackURL is where the gateway
	// redirects the payer's browser.
	APIKey      string
	PGSecret    string
	GatewayURL  string
	CallbackURL string

	// FrontendURL is the dashboard the callback pages redirect to.
	FrontendURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		MongoURI:     os.Getenv("MONGOURI"),
		DatabaseName: getenvDefault("MONGO_DATABASE", "school_payments"),
		Port:         getenvDefault("PORT", "8080"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		APIKey:       os.Getenv("API_KEY"),
		PGSecret:     os.Getenv("PG_SECRET"),
		GatewayURL:   os.Getenv("PAYMENT_GATEWAY_URL"),
		CallbackURL:  os.Getenv("CALLBACK_URL"),
		FrontendURL:  getenvDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	missing := []string{}
	for _, req := range []struct{ name, value string }{
		{"MONGOURI", cfg.MongoURI},
		{"JWT_SECRET", cfg.JWTSecret},
		{"API_KEY", cfg.APIKey},
		{"PG_SECRET", cfg.PGSecret},
		{"PAYMENT_GATEWAY_URL", cfg.GatewayURL},
		{"CALLBACK_URL", cfg.CallbackURL},
	} {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required configuration missing: %v", missing)
	}

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
