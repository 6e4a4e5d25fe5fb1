// Package blockfinder locates the largest on-chain block whose timestamp
// does not exceed a target timestamp, caching previously-seen blocks and
// the chain's average block time to keep repeated lookups cheap (spec.md
// §4.5).
package blockfinder

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/relay-bridge/sdk-core/rpcprovider"
)

// Block is the minimal header this package reasons about.
type Block struct {
	Number    uint64
	Timestamp uint64
}

// Source fetches block headers by number or the chain head, generalizing
// the Transport.Send call site to a single typed operation so this package
// never constructs eth_getBlockByNumber params itself.
type Source interface {
	BlockByNumber(ctx context.Context, number uint64) (Block, error)
	LatestBlock(ctx context.Context) (Block, error)
}

// optimismDefaultBlockTime is the OP-stack default inherited by chains that
// never report their own average (spec.md §4.5 "OP-stack chains inherit the
// Optimism default unless overridden").
const optimismDefaultBlockTime = 2 * time.Second

// opStackChainIDs lists the chain ids this core treats as OP-stack by
// default; callers may override per chain via Finder.SetAverageBlockTime.
var opStackChainIDs = map[int64]bool{
	10:    true, // Optimism mainnet
	8453:  true, // Base
	34443: true, // Mode
	81457: true, // Blast
}

// chainCache holds the sorted block list and average-block-time state for
// one chain.
type chainCache struct {
	mu     sync.RWMutex
	blocks []Block // sorted ascending by Number (and, by construction, Timestamp)

	avgMu         sync.RWMutex
	avg           time.Duration
	avgBlockRange uint64
	avgComputedAt time.Time
}

func (c *chainCache) insert(b Block) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := sort.Search(len(c.blocks), func(i int) bool { return c.blocks[i].Number >= b.Number })
	if i < len(c.blocks) && c.blocks[i].Number == b.Number {
		c.blocks[i] = b
		return
	}
	c.blocks = append(c.blocks, Block{})
	copy(c.blocks[i+1:], c.blocks[i:])
	c.blocks[i] = b
}

func (c *chainCache) snapshot() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Finder implements the §4.5 algorithm over an arbitrary Source, one
// chainCache per chain id, refreshed lazily and collapsed under concurrent
// callers via singleflight.
type Finder struct {
	mu     sync.Mutex
	chains map[int64]*chainCache
	groups map[int64]*singleflight.Group
}

// NewFinder constructs an empty Finder.
func NewFinder() *Finder {
	return &Finder{chains: make(map[int64]*chainCache), groups: make(map[int64]*singleflight.Group)}
}

func (f *Finder) chainFor(chainID int64) *chainCache {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chains[chainID]
	if !ok {
		c = &chainCache{}
		f.chains[chainID] = c
		f.groups[chainID] = &singleflight.Group{}
	}
	return c
}

func (f *Finder) groupFor(chainID int64) *singleflight.Group {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups[chainID]
}

// SetAverageBlockTime seeds or overrides a chain's cached average block
// time, bypassing the OP-stack default and the refresh-by-query path.
func (f *Finder) SetAverageBlockTime(chainID int64, avg time.Duration, blockRange uint64) {
	c := f.chainFor(chainID)
	c.avgMu.Lock()
	defer c.avgMu.Unlock()
	c.avg = avg
	c.avgBlockRange = blockRange
	c.avgComputedAt = time.Now()
}

// FindBlock returns the largest block with Timestamp <= targetTimestamp,
// per spec.md §4.5 steps 1-3.
func (f *Finder) FindBlock(ctx context.Context, chainID int64, source Source, targetTimestamp uint64) (Block, error) {
	c := f.chainFor(chainID)

	blocks := c.snapshot()
	if len(blocks) == 0 || blocks[len(blocks)-1].Timestamp < targetTimestamp {
		latest, err := source.LatestBlock(ctx)
		if err != nil {
			return Block{}, err
		}
		c.insert(latest)
		if targetTimestamp >= latest.Timestamp {
			return latest, nil
		}
		blocks = c.snapshot()
	}

	if targetTimestamp < blocks[0].Timestamp {
		return f.extendDownward(ctx, chainID, c, source, targetTimestamp, blocks[0])
	}

	return f.interpolationSearch(ctx, c, source, targetTimestamp, blocks)
}

// extendDownward implements spec.md §4.5 step 2: step backward in coarse
// multiples of the average block time until a block at or below the target
// is found, then interpolate between it and the cached block above; fail if
// block 0 is reached without satisfying the target.
func (f *Finder) extendDownward(ctx context.Context, chainID int64, c *chainCache, source Source, targetTimestamp uint64, lowest Block) (Block, error) {
	avg, err := f.averageBlockTime(ctx, chainID, source, lowest)
	if err != nil {
		return Block{}, err
	}
	if avg <= 0 {
		avg = optimismDefaultBlockTime
	}

	elapsed := time.Duration(lowest.Timestamp-targetTimestamp) * time.Second
	increment := uint64(math.Ceil(float64(elapsed) / float64(avg)))
	if increment == 0 {
		increment = 1
	}

	probe := lowest
	for {
		if probe.Number == 0 {
			if targetTimestamp < probe.Timestamp {
				return Block{}, rpcprovider.NewLogicalError("ERR_TIMESTAMP_BEFORE_GENESIS",
					"target timestamp precedes block 0")
			}
			return probe, nil
		}

		var next uint64
		if probe.Number > increment {
			next = probe.Number - increment
		} else {
			next = 0
		}

		b, err := source.BlockByNumber(ctx, next)
		if err != nil {
			return Block{}, err
		}
		c.insert(b)
		probe = b

		if probe.Timestamp <= targetTimestamp {
			// probe is the first stepped-back block at or below the target;
			// search the gap above it for the largest such block.
			return f.interpolationSearch(ctx, c, source, targetTimestamp, c.snapshot())
		}
	}
}

// interpolationSearch implements spec.md §4.5 step 3 between the two
// cached blocks bracketing targetTimestamp.
func (f *Finder) interpolationSearch(ctx context.Context, c *chainCache, source Source, targetTimestamp uint64, blocks []Block) (Block, error) {
	i := sort.Search(len(blocks), func(i int) bool { return blocks[i].Timestamp > targetTimestamp })
	if i == 0 {
		return blocks[0], nil
	}
	if i == len(blocks) {
		return blocks[len(blocks)-1], nil
	}

	start, end := blocks[i-1], blocks[i]
	for {
		if start.Number+1 >= end.Number || start.Timestamp == targetTimestamp {
			return start, nil
		}

		span := float64(end.Timestamp - start.Timestamp)
		if span <= 0 {
			return start, nil
		}
		frac := float64(targetTimestamp-start.Timestamp) / span
		probeNumber := start.Number + uint64(math.Round(frac*float64(end.Number-start.Number)))
		if probeNumber <= start.Number {
			probeNumber = start.Number + 1
		}
		if probeNumber >= end.Number {
			probeNumber = end.Number - 1
		}

		probe, err := source.BlockByNumber(ctx, probeNumber)
		if err != nil {
			return Block{}, err
		}
		c.insert(probe)

		switch {
		case probe.Timestamp == targetTimestamp:
			return probe, nil
		case probe.Timestamp < targetTimestamp:
			start = probe
		default:
			end = probe
		}
	}
}

// averageBlockTime returns the cached average block time for chainID,
// refreshing it if older than 15 minutes via a singleflight-collapsed
// query of two blocks (high, high-range) (spec.md §4.5). OP-stack chains
// without an override use optimismDefaultBlockTime instead of querying.
func (f *Finder) averageBlockTime(ctx context.Context, chainID int64, source Source, highBlock Block) (time.Duration, error) {
	c := f.chainFor(chainID)

	c.avgMu.RLock()
	fresh := time.Since(c.avgComputedAt) < 15*time.Minute && c.avgComputedAt.Unix() != 0
	avg := c.avg
	c.avgMu.RUnlock()
	if fresh {
		return avg, nil
	}

	if opStackChainIDs[chainID] {
		c.avgMu.Lock()
		if c.avg == 0 {
			c.avg = optimismDefaultBlockTime
		}
		c.avgComputedAt = time.Now()
		avg = c.avg
		c.avgMu.Unlock()
		return avg, nil
	}

	group := f.groupFor(chainID)
	v, err, _ := group.Do("average-block-time", func() (interface{}, error) {
		const blockRange = 1000
		var low uint64
		if highBlock.Number > blockRange {
			low = highBlock.Number - blockRange
		}
		lowBlock, err := source.BlockByNumber(ctx, low)
		if err != nil {
			return nil, err
		}

		delta := highBlock.Timestamp - lowBlock.Timestamp
		span := highBlock.Number - lowBlock.Number
		if span == 0 {
			return optimismDefaultBlockTime, nil
		}
		computed := time.Duration(delta/span) * time.Second

		c.avgMu.Lock()
		c.avg = computed
		c.avgBlockRange = span
		c.avgComputedAt = time.Now()
		c.avgMu.Unlock()

		return computed, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(time.Duration), nil
}
