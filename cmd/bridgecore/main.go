// Command bridgecore is a thin operational CLI over the provider-fleet
// core: health-check a configured fleet, or resolve the block nearest a
// given timestamp.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/relay-bridge/sdk-core/blockfinder"
	"github.com/relay-bridge/sdk-core/internal/config"
	"github.com/relay-bridge/sdk-core/internal/logging"
	"github.com/relay-bridge/sdk-core/internal/metrics"
	"github.com/relay-bridge/sdk-core/rpcprovider"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "health":
		handleHealth(os.Args[2:])
	case "resolve-block":
		handleResolveBlock(os.Args[2:])
	case "version":
		fmt.Printf("bridgecore v%s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bridgecore - cross-chain bridge provider-fleet CLI

Usage:
  bridgecore health <config.yaml> <chainId>
  bridgecore resolve-block <config.yaml> <chainId> <unixTimestamp>
  bridgecore version`)
}

func handleHealth(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: bridgecore health <config.yaml> <chainId>")
		os.Exit(1)
	}
	configPath, chainIDArg := args[0], args[1]

	chainID, err := config.ParseChainID(chainIDArg)
	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: logging.LevelInfo})
	fleet, err := buildFleet(configPath, chainID, logger)
	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m := metrics.NewPrometheusMetrics()
	start := time.Now()
	_, err = fleet.Send(ctx, "eth_blockNumber", nil)
	duration := time.Since(start)
	m.RecordRPCCall(fleet.Name(), "eth_blockNumber", duration, err == nil)

	if err != nil {
		color.Red("chain %d fleet UNHEALTHY: %v", chainID, err)
		logger.Errorw("fleet health check failed", "chainId", chainID, "error", err)
		os.Exit(1)
	}

	status := m.GetHealthStatus()
	switch status.Status {
	case "OK":
		color.Green("chain %d fleet OK (%v)", chainID, duration)
	case "Degraded":
		color.Yellow("chain %d fleet DEGRADED: %s", chainID, status.Message)
	default:
		color.Red("chain %d fleet DOWN: %s", chainID, status.Message)
	}
}

func handleResolveBlock(args []string) {
	if len(args) < 3 {
		fmt.Println("usage: bridgecore resolve-block <config.yaml> <chainId> <unixTimestamp>")
		os.Exit(1)
	}
	configPath, chainIDArg, timestampArg := args[0], args[1], args[2]

	chainID, err := config.ParseChainID(chainIDArg)
	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
	timestamp, err := strconv.ParseUint(timestampArg, 10, 64)
	if err != nil {
		color.Red("error: invalid timestamp %q: %v", timestampArg, err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: logging.LevelInfo})
	fleet, err := buildFleet(configPath, chainID, logger)
	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	finder := blockfinder.NewFinder()
	block, err := finder.FindBlock(ctx, chainID, fleetBlockSource{fleet}, timestamp)
	if err != nil {
		color.Red("error resolving block: %v", err)
		os.Exit(1)
	}

	color.Cyan("chain %d: block %d at %s (target %s)",
		chainID, block.Number,
		time.Unix(int64(block.Timestamp), 0).UTC().Format(time.RFC3339),
		time.Unix(int64(timestamp), 0).UTC().Format(time.RFC3339))
}

// buildFleet loads configPath, resolves chainID's enabled endpoints, and
// wires them into a decorated Transport via rpcprovider.BuildFleet.
func buildFleet(configPath string, chainID int64, logger *zap.SugaredLogger) (rpcprovider.Transport, error) {
	store, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	chainCfg, ok := store.ChainConfig(chainID)
	if !ok {
		return nil, fmt.Errorf("no configuration for chain %d", chainID)
	}

	endpoints := store.EnabledEndpoints(chainID)
	specs := make([]rpcprovider.EndpointSpec, 0, len(endpoints))
	for _, e := range endpoints {
		specs = append(specs, rpcprovider.EndpointSpec{
			Name:              e.Name,
			URL:               e.URL,
			Required:          e.Required,
			Priority:          e.Priority,
			MaxConcurrency:    e.MaxConcurrency,
			PctRPCCallsLogged: e.PctRPCCallsLogged,
		})
	}

	return rpcprovider.BuildFleet(rpcprovider.FleetSpec{
		ChainID:             chainID,
		NodeQuorumThreshold: chainCfg.NodeQuorumThreshold,
		Retries:             chainCfg.Retries,
		RetryDelay:          time.Duration(chainCfg.RetryDelayMillis) * time.Millisecond,
		Endpoints:           specs,
	}, rpcprovider.NewMemoryCacheStore(), logger)
}

// fleetBlockSource adapts rpcprovider.Transport to blockfinder.Source by
// issuing eth_getBlockByNumber and decoding the (number, timestamp) pair
// the block finder needs.
type fleetBlockSource struct {
	transport rpcprovider.Transport
}

func (f fleetBlockSource) BlockByNumber(ctx context.Context, number uint64) (blockfinder.Block, error) {
	raw, err := f.transport.Send(ctx, "eth_getBlockByNumber", []interface{}{hexUint64(number), false})
	if err != nil {
		return blockfinder.Block{}, err
	}
	return decodeBlockHeader(raw)
}

func (f fleetBlockSource) LatestBlock(ctx context.Context) (blockfinder.Block, error) {
	raw, err := f.transport.Send(ctx, "eth_getBlockByNumber", []interface{}{"latest", false})
	if err != nil {
		return blockfinder.Block{}, err
	}
	return decodeBlockHeader(raw)
}

func hexUint64(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}

func decodeBlockHeader(raw json.RawMessage) (blockfinder.Block, error) {
	var header struct {
		Number    string `json:"number"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return blockfinder.Block{}, fmt.Errorf("bridgecore: decode block header: %w", err)
	}
	number, err := strconv.ParseUint(trimHexPrefix(header.Number), 16, 64)
	if err != nil {
		return blockfinder.Block{}, fmt.Errorf("bridgecore: parse block number: %w", err)
	}
	ts, err := strconv.ParseUint(trimHexPrefix(header.Timestamp), 16, 64)
	if err != nil {
		return blockfinder.Block{}, fmt.Errorf("bridgecore: parse block timestamp: %w", err)
	}
	return blockfinder.Block{Number: number, Timestamp: ts}, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
