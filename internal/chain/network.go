package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Network holds display metadata and public RPCs for a known chain.
type Network struct {
	ChainID  int64
	Name     string
	Currency string
	Explorer string
	RPCs     []string
}

var networks = map[int64]Network{
	1: {
		ChainID: 1, Name: "Ethereum", Currency: "ETH",
		Explorer: "https://etherscan.io",
		RPCs:     []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
	},
	4: {
		ChainID: 4, Name: "Rinkeby", Currency: "ETH",
		Explorer: "https://rinkeby.etherscan.io",
	},
	5: {
		ChainID: 5, Name: "Goerli", Currency: "ETH",
		Explorer: "https://goerli.etherscan.io",
	},
	17000: {
		ChainID: 17000, Name: "Holesky", Currency: "ETH",
		Explorer: "https://holesky.etherscan.io",
		RPCs:     []string{"https://ethereum-holesky-rpc.publicnode.com"},
	},
	11155111: {
		ChainID: 11155111, Name: "Sepolia", Currency: "ETH",
		Explorer: "https://sepolia.etherscan.io",
		RPCs:     []string{"https://rpc.sepolia.org", "https://ethereum-sepolia-rpc.publicnode.com"},
	},
	31337: {
		ChainID: 31337, Name: "Hardhat", Currency: "ETH",
		RPCs: []string{"http://127.0.0.1:8545"},
	},
}

// LookupNetwork returns metadata for a chain id.
func LookupNetwork(id int64) (Network, bool) {
	n, ok := networks[id]
	return n, ok
}

// NetworkName returns a human label for id, e.g. "Rinkeby (4)".
func NetworkName(id int64) string {
	if n, ok := networks[id]; ok {
		return fmt.Sprintf("%s (%d)", n.Name, id)
	}
	return fmt.Sprintf("chain %d", id)
}

// TxURL links a transaction on the network's explorer, or returns "" when
// the network has none.
func (n Network) TxURL(hash common.Hash) string {
	if n.Explorer == "" {
		return ""
	}
	return strings.TrimRight(n.Explorer, "/") + "/tx/" + hash.Hex()
}

// AddressURL links an address on the network's explorer.
func (n Network) AddressURL(addr common.Address) string {
	if n.Explorer == "" {
		return ""
	}
	return strings.TrimRight(n.Explorer, "/") + "/address/" + addr.Hex()
}
