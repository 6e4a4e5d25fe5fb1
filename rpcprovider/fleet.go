package rpcprovider

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// EndpointSpec is the minimal description of one upstream endpoint needed
// to build its decorated Transport chain; it mirrors config.ProviderEndpoint
// field-for-field without importing internal/config here to avoid a
// dependency cycle (rpcprovider is the lower-level package).
type EndpointSpec struct {
	Name              string
	URL               string
	Required          bool
	Priority          int
	MaxConcurrency    int
	PctRPCCallsLogged int
}

// FleetSpec describes one chain's full provider fleet.
type FleetSpec struct {
	ChainID             int64
	NodeQuorumThreshold int
	Retries             int
	RetryDelay          time.Duration
	Endpoints           []EndpointSpec
	RequestTimeout      time.Duration
}

// BuildFleet wires spec's endpoints into the full C1->C2->C3->C4 decorator
// stack and returns the resulting quorum Transport, the single entry point
// callers send requests through (spec.md §9 "composable decorators over a
// single Transport trait").
func BuildFleet(spec FleetSpec, cache CacheStore, logger *zap.SugaredLogger) (Transport, error) {
	if len(spec.Endpoints) == 0 {
		return nil, fmt.Errorf("rpcprovider: fleet for chain %d has no endpoints", spec.ChainID)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if spec.RequestTimeout <= 0 {
		spec.RequestTimeout = 10 * time.Second
	}
	if spec.Retries <= 0 {
		spec.Retries = 2
	}
	if spec.RetryDelay <= 0 {
		spec.RetryDelay = 250 * time.Millisecond
	}

	transports := make([]Transport, 0, len(spec.Endpoints))
	for _, ep := range spec.Endpoints {
		httpTransport, err := NewHTTPTransport(ep.URL, spec.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("rpcprovider: building transport for %s: %w", ep.Name, err)
		}

		var t Transport = httpTransport
		t = NewRateLimitedProvider(t, ep.MaxConcurrency, ep.PctRPCCallsLogged, spec.ChainID, logger)

		head := NewThrottledHead(t)
		t = NewCacheProvider(t, cache, head, DefaultCacheDistanceConfig(), ep.Name, spec.ChainID)

		t = NewRetryProvider(t, spec.Retries, spec.RetryDelay)

		transports = append(transports, t)
	}

	return NewQuorumProvider(transports, spec.NodeQuorumThreshold, logger), nil
}
