package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3ico/internal/logger"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ProbeTimeout bounds a single endpoint probe.
const ProbeTimeout = 5 * time.Second

// Probe dials url and asks for the head block, measuring the round trip.
func Probe(ctx context.Context, url string) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	ep := Endpoint{URL: url}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		ep.Err = fmt.Errorf("dial %s: %w", url, err)
		return ep
	}
	defer client.Close()

	start := time.Now()
	block, err := client.BlockNumber(ctx)
	ep.Latency = time.Since(start)
	if err != nil {
		ep.Err = fmt.Errorf("eth_blockNumber on %s: %w", url, err)
		return ep
	}
	ep.BlockNumber = block
	return ep
}

// ProbeAll probes every url in parallel. Results keep the input order.
func ProbeAll(ctx context.Context, urls []string) []Endpoint {
	out := make([]Endpoint, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			out[i] = Probe(ctx, u)
		}(i, u)
	}
	wg.Wait()
	return out
}

// Select returns the URL to connect to. A single URL is returned without
// probing; the connection attempt itself will surface any failure.
func Select(ctx context.Context, urls []string, algo Algorithm) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}

	log := logger.Named("rpc")
	endpoints := ProbeAll(ctx, urls)
	for _, e := range endpoints {
		if !e.Healthy() {
			log.Debug("rpc probe failed", "url", e.URL, "err", e.Err)
		}
	}
	winner, err := Pick(algo, endpoints)
	if err != nil {
		return "", err
	}
	log.Debug("rpc selected", "url", winner.URL, "algorithm", algo, "latency", winner.Latency, "block", winner.BlockNumber)
	return winner.URL, nil
}
