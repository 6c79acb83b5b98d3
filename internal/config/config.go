package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/viper"
)

const (
	defaultAlgorithm = "fastest"
	defaultInterval  = 10

	configFile  = "config.json"
	walletsFile = "wallets.json"
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.w3ico.
// Any key can be overridden from the environment with the W3ICO_ prefix.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3ico")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	path := filepath.Join(dir, configFile)
	cfg, err := read(path, true)
	if err != nil {
		return nil, err
	}
	file, err := read(path, false)
	if err != nil {
		return nil, err
	}

	cfg.configDir = dir
	cfg.file = file
	loaded := *cfg
	loaded.RPCURLs = slices.Clone(cfg.RPCURLs)
	cfg.loaded = &loaded
	return cfg, nil
}

// read decodes the config file at path over the defaults, with environment
// overrides applied when env is set.
func read(path string, env bool) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.AutomaticEnv()
	}

	v.SetDefault("rpc_urls", []string{})
	v.SetDefault("rpc_algorithm", defaultAlgorithm)
	v.SetDefault("contract_address", "")
	v.SetDefault("required_chain_id", DefaultChainID)
	v.SetDefault("default_wallet", "")
	v.SetDefault("watch_interval", defaultInterval)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.RPCURLs == nil {
		cfg.RPCURLs = []string{}
	}
	return cfg, nil
}

// Save writes the config to disk. Fields left as loaded are written with
// their file values, so environment overrides never end up in config.json.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.persisted(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// persisted returns the file values with every field edited since Load
// applied on top.
func (c *Config) persisted() Config {
	out := *c
	if c.file == nil || c.loaded == nil {
		return out
	}
	f, l := c.file, c.loaded
	if slices.Equal(c.RPCURLs, l.RPCURLs) {
		out.RPCURLs = f.RPCURLs
	}
	if c.RPCAlgorithm == l.RPCAlgorithm {
		out.RPCAlgorithm = f.RPCAlgorithm
	}
	if c.ContractAddress == l.ContractAddress {
		out.ContractAddress = f.ContractAddress
	}
	if c.RequiredChainID == l.RequiredChainID {
		out.RequiredChainID = f.RequiredChainID
	}
	if c.DefaultWallet == l.DefaultWallet {
		out.DefaultWallet = f.DefaultWallet
	}
	if c.WatchInterval == l.WatchInterval {
		out.WatchInterval = f.WatchInterval
	}
	return out
}

// AddRPC appends an RPC URL.
func (c *Config) AddRPC(url string) error {
	if slices.Contains(c.RPCURLs, url) {
		return fmt.Errorf("RPC %s already configured", url)
	}
	c.RPCURLs = append(c.RPCURLs, url)
	return nil
}

// RemoveRPC removes an RPC URL.
func (c *Config) RemoveRPC(url string) error {
	idx := slices.Index(c.RPCURLs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not configured", url)
	}
	c.RPCURLs = slices.Delete(c.RPCURLs, idx, idx+1)
	return nil
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath returns the path of wallets.json.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}
