package statesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/logger"
	"github.com/ethereum/go-ethereum/common"
)

// ErrSyncFailure is returned when any contract read fails. The previous
// snapshot is kept when it happens.
var ErrSyncFailure = errors.New("sync failed")

// Reader is the read side of the contract gateway.
type Reader interface {
	ReadMintedCount(ctx context.Context, h *chain.Handle) (*big.Int, error)
	ReadBalanceOf(ctx context.Context, h *chain.Handle, account common.Address) (*big.Int, error)
	ReadTokenLimit(ctx context.Context, h *chain.Handle) (*big.Int, error)
	ReadPrice(ctx context.Context, h *chain.Handle) (*big.Int, error)
	ReadOwner(ctx context.Context, h *chain.Handle) (common.Address, error)
	ReadOwnedNFTsCount(ctx context.Context, h *chain.Handle) (*big.Int, error)
}

// HandleSource hands out network-validated handles.
type HandleSource interface {
	Handle(ctx context.Context, needsSigner bool) (*chain.Handle, error)
}

// Snapshot is the local copy of contract facts. Amounts are raw integers.
//
// Static: TokenLimit, Price, Owner, ClaimableNFTs, CallerOwnsClaimableNFTs.
// Dynamic: MintedCount, OwnedBalance, CallerIsOwner.
type Snapshot struct {
	Caller common.Address

	MintedCount   *big.Int
	OwnedBalance  *big.Int
	CallerIsOwner bool

	TokenLimit              *big.Int
	Price                   *big.Int
	Owner                   common.Address
	ClaimableNFTs           *big.Int
	CallerOwnsClaimableNFTs bool

	FetchedAt   time.Time
	RefreshedAt time.Time
}

// Remaining returns TokenLimit - MintedCount, floored at zero.
func (s Snapshot) Remaining() *big.Int {
	if s.TokenLimit == nil || s.MintedCount == nil {
		return new(big.Int)
	}
	r := new(big.Int).Sub(s.TokenLimit, s.MintedCount)
	if r.Sign() < 0 {
		return new(big.Int)
	}
	return r
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.MintedCount = copyInt(s.MintedCount)
	c.OwnedBalance = copyInt(s.OwnedBalance)
	c.TokenLimit = copyInt(s.TokenLimit)
	c.Price = copyInt(s.Price)
	c.ClaimableNFTs = copyInt(s.ClaimableNFTs)
	return c
}

func copyInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

// SameAddress compares addresses without regard to hex case.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Syncer owns the snapshot.
type Syncer struct {
	handles HandleSource
	reader  Reader
	now     func() time.Time
	log     *slog.Logger

	mu   sync.Mutex
	snap *Snapshot
}

// New creates a Syncer with no snapshot.
func New(handles HandleSource, reader Reader) *Syncer {
	return &Syncer{
		handles: handles,
		reader:  reader,
		now:     time.Now,
		log:     logger.Named("statesync"),
	}
}

// Snapshot returns a copy of the current snapshot. ok is false before the
// first successful FullSync.
func (s *Syncer) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return Snapshot{}, false
	}
	return s.snap.clone(), true
}

// Reset drops the snapshot. Called when the session ends.
func (s *Syncer) Reset() {
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
}

// FullSync reads every fact from the chain and replaces the snapshot only
// when all reads succeed.
func (s *Syncer) FullSync(ctx context.Context) (Snapshot, error) {
	h, err := s.handles.Handle(ctx, false)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrSyncFailure, err)
	}

	var next Snapshot
	next.Caller = h.Account

	if next.TokenLimit, err = s.reader.ReadTokenLimit(ctx, h); err != nil {
		return Snapshot{}, s.fail(err)
	}
	if next.Price, err = s.reader.ReadPrice(ctx, h); err != nil {
		return Snapshot{}, s.fail(err)
	}
	if next.Owner, err = s.reader.ReadOwner(ctx, h); err != nil {
		return Snapshot{}, s.fail(err)
	}
	if next.ClaimableNFTs, err = s.reader.ReadOwnedNFTsCount(ctx, h); err != nil {
		return Snapshot{}, s.fail(err)
	}
	next.CallerOwnsClaimableNFTs = next.ClaimableNFTs.Sign() > 0

	if err := s.readDynamic(ctx, h, &next); err != nil {
		return Snapshot{}, s.fail(err)
	}
	next.FetchedAt = s.now()
	next.RefreshedAt = next.FetchedAt

	s.mu.Lock()
	s.snap = &next
	out := next.clone()
	s.mu.Unlock()

	s.log.Debug("full sync", "minted", next.MintedCount, "balance", next.OwnedBalance, "owner", next.Owner.Hex())
	return out, nil
}

// Refresh re-reads the dynamic facts and merges them into the snapshot.
// Static facts are left untouched.
func (s *Syncer) Refresh(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.snap == nil {
		s.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: no snapshot to refresh", ErrSyncFailure)
	}
	owner := s.snap.Owner
	s.mu.Unlock()

	h, err := s.handles.Handle(ctx, false)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrSyncFailure, err)
	}

	next := Snapshot{Caller: h.Account, Owner: owner}
	if err := s.readDynamic(ctx, h, &next); err != nil {
		return Snapshot{}, s.fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return Snapshot{}, fmt.Errorf("%w: session reset during refresh", ErrSyncFailure)
	}
	s.snap.Caller = next.Caller
	s.snap.MintedCount = next.MintedCount
	s.snap.OwnedBalance = next.OwnedBalance
	s.snap.CallerIsOwner = next.CallerIsOwner
	s.snap.RefreshedAt = s.now()

	s.log.Debug("refresh", "minted", next.MintedCount, "balance", next.OwnedBalance)
	return s.snap.clone(), nil
}

// readDynamic fills MintedCount, OwnedBalance and CallerIsOwner. dst.Owner
// must already be set.
func (s *Syncer) readDynamic(ctx context.Context, h *chain.Handle, dst *Snapshot) error {
	minted, err := s.reader.ReadMintedCount(ctx, h)
	if err != nil {
		return err
	}
	balance, err := s.reader.ReadBalanceOf(ctx, h, h.Account)
	if err != nil {
		return err
	}
	dst.MintedCount = minted
	dst.OwnedBalance = balance
	dst.CallerIsOwner = SameAddress(dst.Owner.Hex(), h.Account.Hex())
	return nil
}

func (s *Syncer) fail(err error) error {
	s.log.Warn("contract read failed", "err", err)
	return fmt.Errorf("%w: %w", ErrSyncFailure, err)
}

// Watch refreshes the snapshot every interval until ctx is done, reporting
// each outcome to fn.
func (s *Syncer) Watch(ctx context.Context, interval time.Duration, fn func(Snapshot, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := s.Refresh(ctx)
			if fn != nil {
				fn(snap, err)
			}
		}
	}
}
