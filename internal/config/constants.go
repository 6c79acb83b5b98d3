package config

import "time"

// DefaultChainID is the network the ICO contract was deployed to (Rinkeby).
const DefaultChainID = int64(4)

// EnvPrefix namespaces environment overrides, e.g. W3ICO_REQUIRED_CHAIN_ID.
const EnvPrefix = "W3ICO"

// Timeout constants used by cmd.
const (
	RPCSelectTimeout = 10 * time.Second // endpoint benchmark before connecting
)
