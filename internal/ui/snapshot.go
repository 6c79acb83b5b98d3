package ui

import (
	"math/big"

	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/display"
	"github.com/Mohsinsiddi/w3ico/internal/statesync"
)

// SnapshotPairs lays out the sale and account facts of snap.
func SnapshotPairs(s chain.Session, snap statesync.Snapshot) [][2]string {
	pairs := [][2]string{
		{"Network", chain.NetworkName(s.ChainID)},
		{"Account", TruncateAddr(s.Address.Hex())},
		{"Sold", display.ToUnitAmount(snap.MintedCount).String() + " / " + display.ToUnitAmount(snap.TokenLimit).String()},
		{"Remaining", display.ToUnitAmount(snap.Remaining()).String()},
		{"Price per token", display.ToUnitAmount(snap.Price).String() + " ETH"},
		{"Your balance", display.ToUnitAmount(snap.OwnedBalance).String()},
	}
	if snap.CallerOwnsClaimableNFTs {
		pairs = append(pairs, [2]string{
			"Claimable",
			display.ToUnitAmount(display.ClaimableTokens(snap.ClaimableNFTs)).String() + " (" + intString(snap.ClaimableNFTs) + " NFTs)",
		})
	}
	if snap.CallerIsOwner {
		pairs = append(pairs, [2]string{"Role", "contract owner"})
	}
	if !snap.RefreshedAt.IsZero() {
		pairs = append(pairs, [2]string{"Updated", snap.RefreshedAt.Format("15:04:05")})
	}
	return pairs
}

// SnapshotBlock renders SnapshotPairs in a bordered box.
func SnapshotBlock(s chain.Session, snap statesync.Snapshot) string {
	return KeyValueBlock("Token sale", SnapshotPairs(s, snap))
}

func intString(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}
