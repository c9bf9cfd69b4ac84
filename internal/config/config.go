package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits list-valued variables
	"time"    // time parses duration-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs, slices for allow-lists.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	IMEISecret     string // key material for at-rest IMEI encryption
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	AppURL      string   // public base URL, also derives the passkey relying-party host
	AdminEmails []string // lowercase emails granted admin access regardless of role
	UploadDir   string   // directory for uploaded listing photos
	UploadBase  string   // public URL prefix for uploaded files

	TwilioAccountSID string // SMS provider account SID (empty disables sending)
	TwilioAuthToken  string // SMS provider auth token
	TwilioFrom       string // SMS sender number

	OTPTTL          time.Duration // lifetime of SMS one-time codes
	EscrowHoldTTL   time.Duration // delay between delivery confirmation and auto-release
	SweepInterval   time.Duration // how often the escrow sweeper scans for due orders
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Operational knobs
// (TTLs, intervals, provider credentials) have defaults so a dev instance
// can boot from a minimal .env.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		IMEISecret:     envStr("IMEI_SECRET", os.Getenv("JWT_SECRET")),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		AppURL:      envStr("APP_URL", "http://localhost:"+os.Getenv("APP_PORT")),
		AdminEmails: parseEmails(os.Getenv("ADMIN_EMAILS")),
		UploadDir:   envStr("UPLOAD_DIR", "public/uploads"),
		UploadBase:  envStr("UPLOAD_BASE_URL", "/uploads"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_SMS_FROM"),

		OTPTTL:        envDur("OTP_TTL", 5*time.Minute),
		EscrowHoldTTL: envDur("ESCROW_HOLD_TTL", 24*time.Hour),
		SweepInterval: envDur("ESCROW_SWEEP_INTERVAL", time.Minute),
	}
}

// parseEmails splits a comma-separated allow-list into trimmed, lowercased
// entries, dropping empties.
func parseEmails(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsAdminEmail reports whether the given email is on the admin allow-list.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
