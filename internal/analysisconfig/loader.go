package analysisconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file. Unknown fields fail immediately so a typo
// in a threshold name cannot silently fall back to a default.
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, data, err
	}

	return &cfg, data, nil
}

// Hash generates a SHA256 hash of the canonical JSON form of the config.
// Structs (not maps) keep the field order deterministic.
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// RunSnapshot records which configuration produced an analysis run, for the
// stored-run audit trail.
type RunSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	SiteID     string    `json:"site_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewRunSnapshot captures the config alongside its raw YAML.
func NewRunSnapshot(cfg *Config, yamlData []byte) (*RunSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &RunSnapshot{
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		SiteID:     cfg.Meta.SiteID,
		CreatedAt:  time.Now(),
	}, nil
}
