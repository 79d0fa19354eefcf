package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/CosmWasm/txpipe/types"
)

var errHTTPErrorResponse = errors.New("HTTP error response")

const (
	pathSmartQuery = "/cosmwasm/wasm/v1/contract/%s/smart/%s"
	pathSimulate   = "/txpipe/v1/simulate"
	pathBroadcast  = "/txpipe/v1/broadcast"

	defaultRequestTimeout = 30 * time.Second
)

// HTTPConfig points the client at an LCD endpoint for queries and a signer
// daemon for broadcasts. An empty SignerEndpoint disables broadcasting.
type HTTPConfig struct {
	// Endpoints maps chain IDs to LCD base URLs.
	Endpoints map[string]string
	// SignerEndpoint is the base URL of the wallet daemon that signs and
	// submits batches.
	SignerEndpoint string
}

// HTTPClient implements QueryClient and SigningClient over plain HTTP.
type HTTPClient struct {
	config HTTPConfig
	client *http.Client
}

var (
	_ QueryClient   = (*HTTPClient)(nil)
	_ SigningClient = (*HTTPClient)(nil)
)

// NewHTTPClient builds a client with a default request timeout. The pipeline
// itself imposes no additional deadline; a hung endpoint is bounded here.
func NewHTTPClient(config HTTPConfig) *HTTPClient {
	return &HTTPClient{
		config: config,
		client: &http.Client{Timeout: defaultRequestTimeout},
	}
}

// BroadcastEnabled reports whether a signer endpoint is configured.
func (c *HTTPClient) BroadcastEnabled() bool {
	return c.config.SignerEndpoint != ""
}

func (c *HTTPClient) endpoint(chainID string) (string, error) {
	base, ok := c.config.Endpoints[chainID]
	if !ok {
		return "", errors.Errorf("no endpoint configured for chain %s", chainID)
	}
	return base, nil
}

// SmartQuery implements QueryClient.
func (c *HTTPClient) SmartQuery(ctx context.Context, chainID string, contract types.HumanAddress, query any, result any) error {
	base, err := c.endpoint(chainID)
	if err != nil {
		return err
	}
	queryBz, err := json.Marshal(query)
	if err != nil {
		return errors.Wrap(err, "encode smart query")
	}
	url := base + fmt.Sprintf(pathSmartQuery, contract, base64.StdEncoding.EncodeToString(queryBz))

	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}

	// LCD smart query responses wrap the contract's JSON in a "data" field.
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errors.Wrap(err, "decode smart query envelope")
	}
	return errors.Wrap(json.Unmarshal(envelope.Data, result), "decode smart query result")
}

// Simulate implements QueryClient.
func (c *HTTPClient) Simulate(ctx context.Context, batch types.MessageBatch) (*types.GasInfo, error) {
	base, err := c.endpoint(batch.ChainID)
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, base+pathSimulate, batch)
	if err != nil {
		return nil, err
	}

	var resp struct {
		GasInfo *types.GasInfo `json:"gas_info"`
		Error   string         `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode simulate response")
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	if resp.GasInfo == nil {
		return nil, errors.New("simulate response carried no gas info")
	}
	return resp.GasInfo, nil
}

// Broadcast implements SigningClient.
func (c *HTTPClient) Broadcast(ctx context.Context, batch types.MessageBatch, fee types.Fee) (*types.BroadcastResult, error) {
	if !c.BroadcastEnabled() {
		return nil, errors.New("no signer endpoint configured")
	}

	payload := struct {
		Batch types.MessageBatch `json:"batch"`
		Fee   types.Fee          `json:"fee"`
	}{Batch: batch, Fee: fee}

	body, err := c.post(ctx, c.config.SignerEndpoint+pathBroadcast, payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result *types.BroadcastResult `json:"result"`
		Error  string                 `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode broadcast response")
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	if resp.Result == nil {
		return nil, errors.New("broadcast response carried no result")
	}
	return resp.Result, nil
}

func (c *HTTPClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *HTTPClient) post(ctx context.Context, url string, payload any) ([]byte, error) {
	bz, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bz))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		// Error bodies from LCD endpoints carry the revert reason; surface it.
		var chainErr struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(body, &chainErr); jsonErr == nil && chainErr.Message != "" {
			return nil, errors.New(chainErr.Message)
		}
		return nil, errors.Wrapf(errHTTPErrorResponse, "status %d", resp.StatusCode)
	}
	return body, nil
}
