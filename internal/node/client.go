// Package node wraps the HTTP surface of a Stacks node. Every call is a
// single request; retry policy lives in the callers.
package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Stackstarter/internal/clarity"
	"Stackstarter/internal/txn"
)

// Client talks to one node.
type Client struct {
	BaseURL string
	Client  *http.Client
}

// NewClient creates a node client with optional proxy support.
func NewClient(baseURL, proxyURL string) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// ChainInfo is the subset of /v2/info the client uses.
type ChainInfo struct {
	PeerVersion     uint32 `json:"peer_version"`
	BurnBlockHeight uint64 `json:"burn_block_height"`
	StacksTipHeight uint64 `json:"stacks_tip_height"`
	StacksTip       string `json:"stacks_tip"`
	NetworkID       uint32 `json:"network_id"`
	ParentNetworkID uint32 `json:"parent_network_id"`
	ServerVersion   string `json:"server_version"`
}

// AccountInfo is the balance and nonce of a principal.
type AccountInfo struct {
	Balance *big.Int
	Nonce   uint64
}

func (c *Client) do(ctx context.Context, method, path string, contentType string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return data, newNodeError(resp, data)
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, "application/json", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, path, "application/json", body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// GetChainInfo returns the current chain tip.
func (c *Client) GetChainInfo(ctx context.Context) (*ChainInfo, error) {
	var info ChainInfo
	if err := c.getJSON(ctx, "/v2/info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetAccount returns the balance and nonce of principal. A principal with no
// history yields a 400 NodeError; see IsNoHistory.
func (c *Client) GetAccount(ctx context.Context, principal string) (*AccountInfo, error) {
	var raw struct {
		Balance any    `json:"balance"`
		Nonce   uint64 `json:"nonce"`
	}
	if err := c.getJSON(ctx, "/v2/accounts/"+url.PathEscape(principal)+"?proof=0", &raw); err != nil {
		return nil, err
	}
	balance, err := clarity.DecodeUnsignedHex(raw.Balance)
	if err != nil {
		return nil, fmt.Errorf("account %s balance: %w", principal, err)
	}
	return &AccountInfo{Balance: balance, Nonce: raw.Nonce}, nil
}

type readOnlyRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

type readOnlyResponse struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result"`
	Cause  string `json:"cause"`
}

// CallReadOnly invokes a read-only function. An empty sender defaults to the
// contract address.
func (c *Client) CallReadOnly(ctx context.Context, contractAddress, contractName, functionName, sender string, args ...clarity.Value) (clarity.Value, error) {
	if sender == "" {
		sender = contractAddress
	}
	req := readOnlyRequest{Sender: sender, Arguments: make([]string, 0, len(args))}
	for i, arg := range args {
		h, err := clarity.EncodeHex(arg)
		if err != nil {
			return nil, fmt.Errorf("encode argument %d: %w", i, err)
		}
		req.Arguments = append(req.Arguments, h)
	}

	path := fmt.Sprintf("/v2/contracts/call-read/%s/%s/%s",
		url.PathEscape(contractAddress), url.PathEscape(contractName), url.PathEscape(functionName))
	var resp readOnlyResponse
	if err := c.postJSON(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Okay {
		return nil, &ContractError{Cause: resp.Cause}
	}
	v, err := clarity.DecodeHex(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("%s result: %w", functionName, err)
	}
	return v, nil
}

// GetContractSource returns the deployed source of a contract.
func (c *Client) GetContractSource(ctx context.Context, contractAddress, contractName string) (string, error) {
	var resp struct {
		Source        string `json:"source"`
		PublishHeight uint64 `json:"publish_height"`
	}
	path := fmt.Sprintf("/v2/contracts/source/%s/%s?proof=0", url.PathEscape(contractAddress), url.PathEscape(contractName))
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return "", err
	}
	return resp.Source, nil
}

// GetMapEntry reads one entry of a data map. Absent keys decode as none.
func (c *Client) GetMapEntry(ctx context.Context, contractAddress, contractName, mapName string, key clarity.Value) (clarity.Value, error) {
	h, err := clarity.EncodeHex(key)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}
	path := fmt.Sprintf("/v2/map_entry/%s/%s/%s?proof=0",
		url.PathEscape(contractAddress), url.PathEscape(contractName), url.PathEscape(mapName))
	var resp struct {
		Data string `json:"data"`
	}
	if err := c.postJSON(ctx, path, h, &resp); err != nil {
		return nil, err
	}
	v, err := clarity.DecodeHex(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("%s entry: %w", mapName, err)
	}
	return v, nil
}

// GetFeeRate returns the fee per byte the node currently suggests.
func (c *Client) GetFeeRate(ctx context.Context) (uint64, error) {
	var rate uint64
	if err := c.getJSON(ctx, "/v2/fees/transfer", &rate); err != nil {
		return 0, err
	}
	return rate, nil
}

// Broadcast submits a signed transaction. Acceptance into the mempool is
// not confirmation.
func (c *Client) Broadcast(ctx context.Context, tx *txn.Transaction) (string, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return "", &BroadcastError{Reason: "serialize", Err: err}
	}
	data, err := c.do(ctx, http.MethodPost, "/v2/transactions", "application/octet-stream", raw)
	if err != nil {
		var ne *NodeError
		if errors.As(err, &ne) {
			var rejection struct {
				Error  string `json:"error"`
				Reason string `json:"reason"`
				TxID   string `json:"txid"`
			}
			if json.Unmarshal(data, &rejection) == nil && rejection.Reason != "" {
				return "", &BroadcastError{Reason: rejection.Reason, TxID: rejection.TxID, Err: ne}
			}
		}
		return "", &BroadcastError{Err: err}
	}

	var txid string
	if err := json.Unmarshal(data, &txid); err != nil {
		txid = strings.Trim(strings.TrimSpace(string(data)), `"`)
	}
	return txid, nil
}
