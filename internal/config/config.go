// Package config provides configuration management for the upfronts service
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default values mirroring the historical deployment.
const (
	DefaultItemsPerPage    = 15
	DefaultCurrency        = "BRL"
	DefaultUploadDir       = "uploads"
	DefaultReportEventLink = "https://www.evbqa.com/myevent/%s/reports/attendee/"
)

// DefaultStatuses is the closed set of installment statuses. The pair has
// drifted across deployments, so it is configuration, not a hardcoded enum.
var DefaultStatuses = []string{"COMMITED/APPROVED", "INVESTED"}

// BasicConditions is the checklist seeded onto a new installment when the
// caller asks for it.
var BasicConditions = []string{"Promissory Note", "Bank Details", "Payment Date", "Funds Available"}

// AllowedUploadExtensions lists the accepted backup-proof file extensions.
var AllowedUploadExtensions = []string{"pdf", "xls", "png", "jpeg", "jpg"}

// Salesforce holds credentials and endpoint settings for the CRM.
type Salesforce struct {
	Username      string
	Password      string
	SecurityToken string
	ClientID      string
	ClientSecret  string
	// Domain selects the login host, e.g. "login" or "test".
	Domain string
	// BaseURL overrides the instance URL returned by the login flow.
	// Used by tests; empty in production.
	BaseURL string
}

// Config is the explicit configuration object passed into the handlers,
// the exporter and the Salesforce client. Nothing reads the environment
// after startup.
type Config struct {
	Port      string
	JWTSecret string

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Salesforce Salesforce

	// Statuses is the closed installment status set, resolved once here.
	Statuses []string

	ItemsPerPage    int
	DefaultCurrency string
	UploadDir       string

	// ReportEventLink is the dashboard deep-link template for events.
	ReportEventLink string
}

// Load builds a Config from the environment. A .env file is honored when
// present so local development matches the deployed configuration surface.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		Statuses:        splitList(getEnv("UPFRONTS_STATUSES", strings.Join(DefaultStatuses, ","))),
		DefaultCurrency: getEnv("SUPERSET_DEFAULT_CURRENCY", DefaultCurrency),
		UploadDir:       getEnv("UPLOAD_DIR", DefaultUploadDir),
		ReportEventLink: getEnv("LINK_TO_REPORT_EVENTS", DefaultReportEventLink),
	}

	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = os.Getenv("DB_PASSWORD")
	cfg.DB.Name = getEnv("DB_NAME", "upfronts")

	cfg.Salesforce = Salesforce{
		Username:      os.Getenv("SF_USERNAME"),
		Password:      os.Getenv("SF_PASSWORD"),
		SecurityToken: os.Getenv("SF_SECURITY_TOKEN"),
		ClientID:      os.Getenv("SF_CLIENT_ID"),
		ClientSecret:  os.Getenv("SF_CLIENT_SECRET"),
		Domain:        getEnv("SF_DOMAIN", "login"),
	}

	perPage, err := strconv.Atoi(getEnv("ITEMS_PER_PAGE", strconv.Itoa(DefaultItemsPerPage)))
	if err != nil {
		return nil, fmt.Errorf("invalid ITEMS_PER_PAGE: %w", err)
	}
	if perPage <= 0 {
		return nil, fmt.Errorf("ITEMS_PER_PAGE must be positive, got %d", perPage)
	}
	cfg.ItemsPerPage = perPage

	if len(cfg.Statuses) == 0 {
		return nil, fmt.Errorf("UPFRONTS_STATUSES resolved to an empty set")
	}

	return cfg, nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name)
}

// ValidStatus reports whether s belongs to the configured status set.
func (c *Config) ValidStatus(s string) bool {
	for _, status := range c.Statuses {
		if status == s {
			return true
		}
	}
	return false
}

// ValidConditionName reports whether name belongs to the allowed checklist.
func ValidConditionName(name string) bool {
	for _, c := range BasicConditions {
		if c == name {
			return true
		}
	}
	return false
}

// AllowedExtension reports whether ext (without dot, any case) may be
// uploaded as backup proof.
func AllowedExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range AllowedUploadExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
