package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract entry points.
const (
	MethodTokenCount = "tokenCount"
	MethodBalanceOf  = "balanceOf"
	MethodTokenLimit = "_tokenLimit"
	MethodPrice      = "_price"
	MethodOwner      = "owner"
	MethodOwnedNFTs  = "ownedNFTs"
	MethodMint       = "mint"
	MethodClaim      = "claim"
	MethodWithdraw   = "withdraw"
)

// ICOABI is the subset of the deployed token contract this client calls.
const ICOABI = `[
  {"type":"function","name":"tokenCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"_tokenLimit","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"_price","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"ownedNFTs","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"mint","stateMutability":"payable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"claim","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

// ParsedABI is ICOABI decoded once at init.
var ParsedABI = mustParseABI(ICOABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("contract: invalid embedded ABI: " + err.Error())
	}
	return parsed
}
