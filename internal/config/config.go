package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI            string
	MongoDatabase       string
	PostgresURI         string
	RedisURI            string
	Port                string
	FrontendURL         string
	AllowedOrigins      []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	Host                string // Raw HOST env (e.g. https://api.ecoscan.app)
	AllowedHost         string // Hostname only for strict host check (production only)
	Environment         string // ENV: production, development, etc.
	TrustProxy          bool   // honour X-Forwarded-For for client IPs

	LogLevel string
	LogDev   bool

	PointsPerBottle    int
	DailyBonusPoints   int
	ScanCooldown       time.Duration
	Location           *time.Location
	AdminEmails        []string
	ProductAPIURL      string
	ProductAPITimeout  time.Duration
	RewardsSeedFile    string
	CoordinatorIdleTTL time.Duration
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseList(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", ""), getEnv("FRONTEND_URL_3", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	// When HOST is a backend subdomain (e.g. api.ecoscan.app), also allow
	// https://ecoscan.app and https://www.ecoscan.app.
	if h := hostname(host); h != "" && h != "localhost" {
		parts := strings.Split(h, ".")
		if len(parts) >= 2 {
			domain := strings.Join(parts[1:], ".")
			for _, origin := range []string{"https://" + domain, "https://www." + domain} {
				if !containsOrigin(allowedOrigins, origin) {
					allowedOrigins = append(allowedOrigins, origin)
				}
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	adminEmails := parseList(strings.ToLower(getEnv("ADMIN_EMAILS", "")))

	return &Config{
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/ecoscan")),
		MongoDatabase:       getEnv("MONGODB_DATABASE", ""),
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/ecoscan?sslmode=disable"),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Host:                host,
		AllowedHost:         allowedHost,
		Environment:         env,
		TrustProxy:          getBool("TRUST_PROXY", false),
		Port:                getEnv("PORT", "8080"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins:      allowedOrigins,
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDev:   getBool("LOG_DEV", env != "production"),

		PointsPerBottle:    getInt("POINTS_PER_BOTTLE", 10),
		DailyBonusPoints:   getInt("DAILY_BONUS_POINTS", 20),
		ScanCooldown:       getDuration("SCAN_COOLDOWN", 3*time.Second),
		Location:           getLocation("TIMEZONE", time.Local),
		AdminEmails:        adminEmails,
		ProductAPIURL:      getEnv("PRODUCT_API_URL", "https://world.openfoodfacts.org"),
		ProductAPITimeout:  getDuration("PRODUCT_API_TIMEOUT", 8*time.Second),
		RewardsSeedFile:    getEnv("REWARDS_SEED_FILE", ""),
		CoordinatorIdleTTL: getDuration("COORDINATOR_IDLE_TTL", 30*time.Minute),
	}
}

// hostname strips the scheme, path and port from a URL-ish host value.
func hostname(host string) string {
	h := strings.TrimSpace(host)
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx := strings.Index(h, "/"); idx != -1 {
		h = h[:idx]
	}
	if idx := strings.Index(h, ":"); idx != -1 {
		h = h[:idx]
	}
	return strings.TrimSpace(h)
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// IsAdmin reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, a := range c.AdminEmails {
		if a == email {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

// getDuration accepts Go durations ("3s", "500ms") or plain seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

func getLocation(key string, defaultValue *time.Location) *time.Location {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		return defaultValue
	}
	return loc
}
