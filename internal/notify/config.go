package notify

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config defines report delivery configuration.
type Config struct {
	EmailURL   string   `yaml:"email_url"`
	ServiceID  string   `yaml:"service_id"`
	TemplateID string   `yaml:"template_id"`
	UserID     string   `yaml:"user_id"`
	Subject    string   `yaml:"subject"`
	Template   string   `yaml:"template"`
	Recipients []string `yaml:"recipients"`
}

// Enabled reports whether the configuration is complete enough to send.
func (c Config) Enabled() bool {
	return c.EmailURL != "" && c.ServiceID != "" && c.TemplateID != ""
}

// LoadConfig loads config from yaml or env. The NOTIFY_CONFIG file, when
// set, overrides env values.
func LoadConfig() (Config, error) {
	cfg := Config{
		EmailURL:   getenvDefault("NOTIFY_EMAIL_URL", "https://api.emailjs.com/api/v1.0/email/send"),
		ServiceID:  os.Getenv("NOTIFY_SERVICE_ID"),
		TemplateID: os.Getenv("NOTIFY_TEMPLATE_ID"),
		UserID:     os.Getenv("NOTIFY_USER_ID"),
		Subject:    os.Getenv("NOTIFY_SUBJECT"),
		Recipients: splitCSV(os.Getenv("NOTIFY_RECIPIENTS")),
	}

	if path := os.Getenv("NOTIFY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
