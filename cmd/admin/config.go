package main

import (
	"io"

	"kinship/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const masked = "********"

// configView is the printable subset of config.Config.
type configView struct {
	Env            string   `yaml:"env"`
	Port           string   `yaml:"port"`
	JWTSecret      string   `yaml:"jwt_secret"`
	JWTTTLHours    int      `yaml:"jwt_ttl_hours"`
	Database       dbView   `yaml:"database"`
	RedisURL       string   `yaml:"redis_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	FeatureFlags   string   `yaml:"feature_flags"`
	RateLimits     bool     `yaml:"rate_limits"`
	SeedDemo       bool     `yaml:"seed_demo"`
	Tracing        struct {
		Exporter    string  `yaml:"exporter"`
		Endpoint    string  `yaml:"endpoint"`
		SampleRatio float64 `yaml:"sample_ratio"`
	} `yaml:"tracing"`
}

type dbView struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"sslmode"`
	SchemaMode string `yaml:"schema_mode"`
	ReadHost   string `yaml:"read_host,omitempty"`
}

func newConfigView(c *config.Config) configView {
	v := configView{
		Env:            c.Env,
		Port:           c.Port,
		JWTSecret:      mask(c.JWTSecret),
		JWTTTLHours:    c.JWTTTLHours,
		RedisURL:       c.RedisURL,
		AllowedOrigins: c.AllowedOriginList(),
		FeatureFlags:   c.FeatureFlags,
		RateLimits:     c.RateLimitEnabled,
		SeedDemo:       c.SeedDemo,
		Database: dbView{
			Host:       c.DBHost,
			Port:       c.DBPort,
			User:       c.DBUser,
			Password:   mask(c.DBPassword),
			Name:       c.DBName,
			SSLMode:    c.DBSSLMode,
			SchemaMode: c.DBSchemaMode,
			ReadHost:   c.DBReadHost,
		},
	}
	v.Tracing.Exporter = c.OTelExporter
	v.Tracing.Endpoint = c.OTelEndpoint
	v.Tracing.SampleRatio = c.OTelSampleRatio
	return v
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return masked
}

func writeConfig(w io.Writer, c *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newConfigView(c)); err != nil {
		return err
	}
	return enc.Close()
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	return writeConfig(cmd.OutOrStdout(), cfg)
}
