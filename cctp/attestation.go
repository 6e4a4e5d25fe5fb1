package cctp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// attestationChunkSize and attestationChunkPause implement the 35 req/s
// rate ceiling of spec.md §4.7.2: 8 concurrent lookups, then a 1-second
// pause before the next chunk.
const (
	attestationChunkSize  = 8
	attestationChunkPause = 1 * time.Second
)

const (
	mainnetAPIHost = "https://iris-api.circle.com"
	sandboxAPIHost = "https://iris-api-sandbox.circle.com"
)

// APIHost resolves Circle's REST base host for the given network.
func APIHost(mainnet bool) string {
	if mainnet {
		return mainnetAPIHost
	}
	return sandboxAPIHost
}

// circleMessage is one element of Circle's GET /v2/messages/{domain}
// response.
type circleMessage struct {
	Attestation string `json:"attestation"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	CCTPVersion int    `json:"cctpVersion"`
	Sender      string `json:"sender"`
}

type circleMessagesResponse struct {
	Messages []circleMessage `json:"messages"`
}

// AttestationClient queries Circle's REST attestation API over an
// http.Client, mirroring the shared-http.Client/context-aware-request/
// JSON-decode shape this core's JSON-RPC transports already use, replumbed
// for Circle's REST (not JSON-RPC) error envelope.
type AttestationClient struct {
	httpClient *http.Client
	baseHost   string
}

// NewAttestationClient constructs an AttestationClient against the given
// base host (use APIHost to pick mainnet vs. sandbox).
func NewAttestationClient(baseHost string, timeout time.Duration) *AttestationClient {
	return &AttestationClient{httpClient: &http.Client{Timeout: timeout}, baseHost: baseHost}
}

// fetch calls GET /v2/messages/{sourceDomainID}?transactionHash={txHash}.
func (c *AttestationClient) fetch(ctx context.Context, sourceDomainID uint32, txHash common.Hash) (circleMessagesResponse, error) {
	url := fmt.Sprintf("%s/v2/messages/%d?transactionHash=%s", c.baseHost, sourceDomainID, txHash.Hex())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return circleMessagesResponse{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return circleMessagesResponse{}, err
	}
	defer resp.Body.Close()

	var out circleMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return circleMessagesResponse{}, err
	}
	return out, nil
}

// Attestation is one polled result alongside the transaction hash and
// destination domain it was discovered with (spec.md §4.7.1-§4.7.2).
type Attestation struct {
	TxHash            common.Hash
	SourceDomainID    uint32
	DestinationDomain uint32
	Raw               circleMessage
}

// PollAttestations queries Circle's attestation endpoint for every
// (txHash, destinationDomain) pair in deposits, chunked at 8 concurrent
// lookups (fanned out via errgroup, bounded to the chunk) with a
// 1-second pause between chunks, to stay under Circle's 35 req/s limit
// (spec.md §4.7.2). sourceDomainID is fixed per call since every deposit
// in a single Discover() pass originates on the same chain.
func (c *AttestationClient) PollAttestations(ctx context.Context, sourceDomainID uint32, deposits map[common.Hash]uint32) ([]Attestation, error) {
	txHashes := make([]common.Hash, 0, len(deposits))
	for h := range deposits {
		txHashes = append(txHashes, h)
	}

	var out []Attestation
	for start := 0; start < len(txHashes); start += attestationChunkSize {
		end := start + attestationChunkSize
		if end > len(txHashes) {
			end = len(txHashes)
		}
		chunk := txHashes[start:end]

		// results is indexed positionally so chunk order is preserved
		// regardless of which concurrent fetch finishes first.
		results := make([][]Attestation, len(chunk))
		group, groupCtx := errgroup.WithContext(ctx)
		for i, h := range chunk {
			i, h := i, h
			group.Go(func() error {
				resp, err := c.fetch(groupCtx, sourceDomainID, h)
				if err != nil {
					return err
				}
				attestations := make([]Attestation, 0, len(resp.Messages))
				for _, msg := range resp.Messages {
					attestations = append(attestations, Attestation{
						TxHash:            h,
						SourceDomainID:    sourceDomainID,
						DestinationDomain: deposits[h],
						Raw:               msg,
					})
				}
				results[i] = attestations
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
		for _, r := range results {
			out = append(out, r...)
		}

		if end < len(txHashes) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(attestationChunkPause):
			}
		}
	}

	return out, nil
}
