package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"riskscan/internal/model"
)

// Config controls RPC retries.
type Config struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client wraps go-ethereum RPC and caches ERC20 metadata per token.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	cfg       Config
	logger    *zap.Logger

	mu        sync.RWMutex
	chainID   uint64
	metaCache map[common.Address]model.TokenMeta
}

// NewClient dials the RPC URL and reads its chain id.
func NewClient(ctx context.Context, rpcURL string, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		cfg:       cfg,
		logger:    logger,
		metaCache: make(map[common.Address]model.TokenMeta),
	}

	chainID, err := c.GetChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		rpcClient.Close()
		return nil, fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	c.chainID = chainID.Uint64()
	return c, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain id read at dial time.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// GetChainID queries the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// TokenMeta returns ERC20 metadata, using an in-memory cache.
func (c *Client) TokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	c.mu.RLock()
	meta, ok := c.metaCache[token]
	c.mu.RUnlock()
	if ok {
		return meta, nil
	}

	err := withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		meta, err = FetchTokenMeta(ctx, c, token, c.logger)
		if err != nil {
			c.logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return model.TokenMeta{}, err
	}

	c.mu.Lock()
	c.metaCache[token] = meta
	c.mu.Unlock()
	return meta, nil
}

// Enrich fills the token symbol when the token lives on this client's chain.
// Lookup failures leave the token unchanged.
func (c *Client) Enrich(ctx context.Context, token *model.Token) {
	if token == nil || token.Symbol != "" || token.ChainID != c.chainID {
		return
	}
	if !common.IsHexAddress(token.Address) {
		return
	}
	meta, err := c.TokenMeta(ctx, common.HexToAddress(token.Address))
	if err != nil {
		return
	}
	token.Symbol = meta.Label()
}
