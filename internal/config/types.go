package config

// Config holds all w3ico configuration.
type Config struct {
	RPCURLs         []string `json:"rpc_urls"          mapstructure:"rpc_urls"`
	RPCAlgorithm    string   `json:"rpc_algorithm"     mapstructure:"rpc_algorithm"` // "fastest" | "failover"
	ContractAddress string   `json:"contract_address"  mapstructure:"contract_address"`
	RequiredChainID int64    `json:"required_chain_id" mapstructure:"required_chain_id"`
	DefaultWallet   string   `json:"default_wallet"    mapstructure:"default_wallet"`
	WatchInterval   int      `json:"watch_interval"    mapstructure:"watch_interval"` // seconds

	// internal: config dir path used for Save()
	configDir string
	// file holds the values read from disk without env overrides, loaded the
	// merged values as returned by Load. Save uses both to spot edits.
	file   *Config
	loaded *Config
}
