// Package config loads the process configuration: Default() first, then a
// YAML file, then VOXGUARD_* environment overrides, then Validate. Core
// packages receive explicit values from here and carry no defaults of their
// own.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"voxguard/internal/retention"
	"voxguard/pkg/domain"
)

const envPrefix = "VOXGUARD_"

type Config struct {
	Server     Server           `koanf:"server"`
	Log        Log              `koanf:"log"`
	Storage    Storage          `koanf:"storage"`
	Redis      RedisConfig      `koanf:"redis"`
	Kafka      Kafka            `koanf:"kafka"`
	Security   Security         `koanf:"security"`
	Voice      Voice            `koanf:"voice"`
	Sanitizer  Sanitizer        `koanf:"sanitizer"`
	Consent    Consent          `koanf:"consent"`
	Retention  Retention        `koanf:"retention"`
	Rights     Rights           `koanf:"rights"`
	Audit      Audit            `koanf:"audit"`
	Compliance ComplianceConfig `koanf:"compliance"`
	Scheduler  Scheduler        `koanf:"scheduler"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `koanf:"addr"`
	AdminToken      string        `koanf:"admin_token"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Storage struct {
	Backend      string `koanf:"backend"`
	PostgresDSN  string `koanf:"postgres_dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// RedisConfig backs the subject cache and download-token store. An empty
// URL keeps both in memory.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// Kafka configures the audit mirror. No brokers disables it.
type Kafka struct {
	Brokers           []string `koanf:"brokers"`
	AuditTopic        string   `koanf:"audit_topic"`
	Partitions        int32    `koanf:"partitions"`
	ReplicationFactor int16    `koanf:"replication_factor"`
}

// Security holds hex-encoded key material.
type Security struct {
	SubjectHashKey string `koanf:"subject_hash_key"`
	ExportSigning  string `koanf:"export_signing_key"`
	ExportSealing  string `koanf:"export_sealing_key"`
}

type Voice struct {
	StorageRoot     string        `koanf:"storage_root"`
	DeletionWindow  time.Duration `koanf:"deletion_window"`
	DeletionTimeout time.Duration `koanf:"deletion_timeout"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
	ProofRetention  time.Duration `koanf:"proof_retention"`
}

type Sanitizer struct {
	SimilarityThreshold float64  `koanf:"similarity_threshold"`
	SimilarityPenalty   float64  `koanf:"similarity_penalty"`
	DensityPenalty      float64  `koanf:"density_penalty"`
	ResidualPenalty     float64  `koanf:"residual_penalty"`
	MaxValidationPasses int      `koanf:"max_validation_passes"`
	ExtraFirstNames     []string `koanf:"extra_first_names"`
	ExtraPlaces         []string `koanf:"extra_places"`
}

type Consent struct {
	Defaults       map[string]bool `koanf:"defaults"`
	LegalRetention time.Duration   `koanf:"legal_retention"`
}

type Retention struct {
	Interval     time.Duration      `koanf:"interval"`
	HistoryLimit int                `koanf:"history_limit"`
	Policies     []retention.Policy `koanf:"policies"`
}

type Rights struct {
	ExportTokenTTL   time.Duration `koanf:"export_token_ttl"`
	ResponseDeadline time.Duration `koanf:"response_deadline"`
	DrainInterval    time.Duration `koanf:"drain_interval"`
	StaleAfter       time.Duration `koanf:"stale_after"`
}

type Audit struct {
	EscalationCapacity int           `koanf:"escalation_capacity"`
	RetryInterval      time.Duration `koanf:"retry_interval"`
}

type ComplianceConfig struct {
	ChunkTTL            time.Duration `koanf:"chunk_ttl"`
	RetentionStaleAfter time.Duration `koanf:"retention_stale_after"`
}

type Scheduler struct {
	Workers   int `koanf:"workers"`
	QueueSize int `koanf:"queue_size"`
}

// Default is the documented baseline. Key material is deliberately absent
// and must be supplied by the file or environment.
func Default() *Config {
	return &Config{
		Server: Server{Addr: ":8080", ShutdownTimeout: 15 * time.Second},
		Log:    Log{Level: "info", Format: "json"},
		Storage: Storage{
			Backend:      BackendMemory,
			MaxOpenConns: 10,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{AuditTopic: "voxguard.audit", Partitions: 3, ReplicationFactor: 1},
		Voice: Voice{
			StorageRoot:     "/var/lib/voxguard/voice",
			DeletionWindow:  30 * time.Second,
			DeletionTimeout: 10 * time.Second,
			SweepInterval:   5 * time.Minute,
			ProofRetention:  7 * 365 * 24 * time.Hour,
		},
		Sanitizer: Sanitizer{
			SimilarityThreshold: 0.95,
			SimilarityPenalty:   20,
			DensityPenalty:      150,
			ResidualPenalty:     25,
			MaxValidationPasses: 3,
		},
		Consent: Consent{
			Defaults: map[string]bool{
				string(domain.ConsentPurposeVoiceProcessing): true,
				string(domain.ConsentPurposeFunctional):      true,
				string(domain.ConsentPurposeAnalytics):       false,
				string(domain.ConsentPurposeMarketing):       false,
				string(domain.ConsentPurposeAITraining):      false,
				string(domain.ConsentPurposePersonalization): false,
			},
			LegalRetention: 3 * 365 * 24 * time.Hour,
		},
		Retention: Retention{
			Interval:     24 * time.Hour,
			HistoryLimit: 30,
			Policies: []retention.Policy{
				{Category: retention.CategoryVoiceAudio, RetentionPeriodDays: 0, AutomaticDeletion: true},
				{Category: retention.CategoryTranscript, RetentionPeriodDays: 90, AnonymizationRules: []retention.AnonymizationRule{
					{Field: "transcript", Method: retention.MethodRedactPII},
					{Field: "created_at", Method: retention.MethodGeneralizeDate},
				}},
				{Category: retention.CategoryFeedbackSession, RetentionPeriodDays: 730, AutomaticDeletion: true},
				{Category: retention.CategoryAnalytics, RetentionPeriodDays: 395, AnonymizationRules: []retention.AnonymizationRule{
					{Field: "subject_hash", Method: retention.MethodRemove},
					{Field: "occurred_at", Method: retention.MethodGeneralizeDate},
				}},
				{Category: retention.CategoryExportFile, RetentionPeriodDays: 0, AutomaticDeletion: true},
				{Category: retention.CategoryConsentRecord, RetentionPeriodDays: 1825, AutomaticDeletion: true},
				{Category: retention.CategoryAuditLog, RetentionPeriodDays: 2555, AutomaticDeletion: true},
			},
		},
		Rights: Rights{
			ExportTokenTTL:   24 * time.Hour,
			ResponseDeadline: 30 * 24 * time.Hour,
			DrainInterval:    time.Minute,
			StaleAfter:       time.Hour,
		},
		Audit:      Audit{EscalationCapacity: 10_000, RetryInterval: 30 * time.Second},
		Compliance: ComplianceConfig{ChunkTTL: 10 * time.Minute, RetentionStaleAfter: 48 * time.Hour},
		Scheduler:  Scheduler{Workers: 2, QueueSize: 128},
	}
}

// Load reads path when it exists, overlays VOXGUARD_* variables and
// validates. Nested keys use a double underscore:
// VOXGUARD_VOICE__DELETION_WINDOW=20s sets voice.deletion_window.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	// A configured policy list replaces the baseline instead of merging
	// into it element by element.
	if k.Exists("retention.policies") {
		cfg.Retention.Policies = nil
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every knob the core relies on.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid storage.backend %q: must be memory or postgres", c.Storage.Backend)
	}

	if _, err := c.SubjectHashKey(); err != nil {
		return err
	}
	if _, err := c.ExportSigningKey(); err != nil {
		return err
	}
	if _, err := c.ExportSealingKey(); err != nil {
		return err
	}

	if c.Voice.DeletionWindow <= 0 || c.Voice.DeletionTimeout <= 0 || c.Voice.SweepInterval <= 0 {
		return fmt.Errorf("voice deletion window, timeout and sweep interval must be positive")
	}
	if c.Voice.StorageRoot == "" {
		return fmt.Errorf("voice.storage_root is required")
	}
	if c.Voice.ProofRetention < 0 {
		return fmt.Errorf("voice.proof_retention must not be negative")
	}
	if _, err := c.ConsentDefaults(); err != nil {
		return err
	}
	if c.Consent.LegalRetention <= 0 {
		return fmt.Errorf("consent.legal_retention must be positive")
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("retention.interval must be positive")
	}
	seen := make(map[retention.Category]bool, len(c.Retention.Policies))
	for _, p := range c.Retention.Policies {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("retention policy %s: %w", p.Category, err)
		}
		if seen[p.Category] {
			return fmt.Errorf("duplicate retention policy for %s", p.Category)
		}
		seen[p.Category] = true
	}
	if c.Rights.ExportTokenTTL <= 0 || c.Rights.ResponseDeadline <= 0 || c.Rights.DrainInterval <= 0 || c.Rights.StaleAfter <= 0 {
		return fmt.Errorf("rights export token ttl, response deadline, drain interval and stale timeout must be positive")
	}
	if c.Audit.RetryInterval <= 0 {
		return fmt.Errorf("audit.retry_interval must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.AuditTopic == "" {
		return fmt.Errorf("kafka.audit_topic is required when brokers are set")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log.format %q: must be json or text", c.Log.Format)
	}
	return nil
}

// ConsentDefaults converts the configured defaults into purposes. Every
// known purpose must be present.
func (c *Config) ConsentDefaults() (map[domain.ConsentPurpose]bool, error) {
	out := make(map[domain.ConsentPurpose]bool, len(c.Consent.Defaults))
	for raw, granted := range c.Consent.Defaults {
		p, err := domain.ParseConsentPurpose(raw)
		if err != nil {
			return nil, fmt.Errorf("consent.defaults: %w", err)
		}
		out[p] = granted
	}
	for _, p := range domain.AllConsentPurposes() {
		if _, ok := out[p]; !ok {
			return nil, fmt.Errorf("consent.defaults is missing %s", p)
		}
	}
	return out, nil
}

func (c *Config) SubjectHashKey() ([]byte, error) {
	return decodeKey("security.subject_hash_key", c.Security.SubjectHashKey, 32)
}

func (c *Config) ExportSigningKey() ([]byte, error) {
	return decodeKey("security.export_signing_key", c.Security.ExportSigning, 32)
}

func (c *Config) ExportSealingKey() ([]byte, error) {
	key, err := decodeKey("security.export_sealing_key", c.Security.ExportSealing, 32)
	if err == nil && len(key) != 32 {
		return nil, fmt.Errorf("security.export_sealing_key must be exactly 32 bytes")
	}
	return key, err
}

func decodeKey(name, value string, minLen int) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s must be hex encoded: %w", name, err)
	}
	if len(key) < minLen {
		return nil, fmt.Errorf("%s must be at least %d bytes", name, minLen)
	}
	return key, nil
}
