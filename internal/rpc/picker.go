package rpc

import (
	"errors"
	"time"
)

// ErrNoHealthyRPC is returned when no configured endpoint answered.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an endpoint is chosen among the configured ones.
type Algorithm string

const (
	AlgorithmFastest  Algorithm = "fastest"
	AlgorithmFailover Algorithm = "failover"

	// Nodes more than this many blocks behind the best are skipped.
	staleBlockThreshold = 3
)

// ParseAlgorithm maps a config value to an Algorithm, defaulting to fastest.
func ParseAlgorithm(s string) Algorithm {
	if Algorithm(s) == AlgorithmFailover {
		return AlgorithmFailover
	}
	return AlgorithmFastest
}

// Endpoint is a probed RPC URL.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
}

// Healthy reports whether the probe succeeded.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// Pick chooses an endpoint from probe results.
//
// Fastest drops failed and stale nodes and takes the lowest latency; ties go
// to the earlier entry. Failover takes the first healthy entry in config
// order.
func Pick(algo Algorithm, endpoints []Endpoint) (Endpoint, error) {
	if algo == AlgorithmFailover {
		for _, e := range endpoints {
			if e.Healthy() {
				return e, nil
			}
		}
		return Endpoint{}, ErrNoHealthyRPC
	}

	var best uint64
	for _, e := range endpoints {
		if e.Healthy() && e.BlockNumber > best {
			best = e.BlockNumber
		}
	}

	winner := -1
	for i, e := range endpoints {
		if !e.Healthy() || best-e.BlockNumber > staleBlockThreshold {
			continue
		}
		if winner < 0 || e.Latency < endpoints[winner].Latency {
			winner = i
		}
	}
	if winner < 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}
	return endpoints[winner], nil
}
