package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a strategy profile from a YAML file, overlaying it on the
// defaults. Unknown keys are rejected so typos in a profile fail fast
// instead of silently keeping the default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes on top of the default profile.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode strategy profile: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Hash returns a short fingerprint of the effective parameter set,
// stored alongside orders so fills can be traced to the exact profile.
func (c *Config) Hash() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal strategy profile: %w", err)
	}
	sum := sha256.Sum256(out)
	return hex.EncodeToString(sum[:8]), nil
}
