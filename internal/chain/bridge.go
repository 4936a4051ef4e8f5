package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"chatten/internal/qscore"
)

const methodCurrentPrice = "get_current_price"

// BridgeOptions parameterise Neo N3 node access.
type BridgeOptions struct {
	RPCURL       string
	ContractHash string
	NetworkMagic uint32
	Timeout      time.Duration
}

// Bridge speaks JSON-RPC 2.0 to a Neo N3 node. Neo shares the protocol
// envelope with Ethereum, so the go-ethereum rpc client carries the calls.
type Bridge struct {
	opts      BridgeOptions
	logger    zerolog.Logger
	client    *rpc.Client
	clientMux sync.Mutex
}

// NewBridge builds a bridge. The connection is dialled lazily.
func NewBridge(opts BridgeOptions, logger zerolog.Logger) *Bridge {
	return &Bridge{opts: opts, logger: logger.With().Str("component", "chain_bridge").Logger()}
}

// invokeResponse mirrors the node's invokefunction result.
type invokeResponse struct {
	State       string      `json:"state"`
	GasConsumed string      `json:"gasconsumed"`
	Exception   string      `json:"exception"`
	Stack       []stackItem `json:"stack"`
}

type stackItem struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// bigInt decodes an Integer stack item.
func (s stackItem) bigInt() (*big.Int, error) {
	if s.Type != "Integer" {
		return nil, fmt.Errorf("unexpected stack item type %q", s.Type)
	}
	var raw string
	if err := json.Unmarshal(s.Value, &raw); err != nil {
		return nil, fmt.Errorf("decode integer stack item: %w", err)
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("malformed integer stack item %q", raw)
	}
	return v, nil
}

// ReadPrice fetches get_current_price(model_id) from the COMPUTE contract.
// The model id travels as UTF-8 bytes, matching the contract signature.
func (b *Bridge) ReadPrice(ctx context.Context, modelID string) (*big.Int, error) {
	if modelID == "" {
		return nil, qscore.ErrEmptyModelID
	}
	if b.opts.ContractHash == "" {
		return nil, errors.New("compute contract hash not configured")
	}

	res, err := b.call(ctx, b.opts.ContractHash, methodCurrentPrice,
		[]Param{ByteArrayParam([]byte(modelID))}, nil)
	if err != nil {
		return nil, fmt.Errorf("read price for %s: %w", modelID, err)
	}
	if !strings.EqualFold(res.State, "HALT") {
		if res.Exception != "" {
			return nil, fmt.Errorf("read price for %s: vm state %s: %s", modelID, res.State, res.Exception)
		}
		return nil, fmt.Errorf("read price for %s: vm state %s", modelID, res.State)
	}
	if len(res.Stack) == 0 {
		return nil, fmt.Errorf("read price for %s: empty result stack", modelID)
	}

	price, err := res.Stack[0].bigInt()
	if err != nil {
		return nil, fmt.Errorf("read price for %s: %w", modelID, err)
	}

	b.logger.Debug().Str("model", modelID).Str("price", price.String()).Msg("price read")
	return price, nil
}

// Invoke submits the invocation as a test execution and reports the VM
// outcome. Signing and broadcasting stay with an external signer, so the
// returned TxHash is empty.
func (b *Bridge) Invoke(ctx context.Context, req InvokeRequest) (InvokeResult, error) {
	if req.Contract == "" || req.Method == "" {
		return InvokeResult{}, errors.New("contract and method are required")
	}

	var signers []map[string]string
	if req.Signer != "" {
		signers = []map[string]string{{"account": req.Signer, "scopes": "CalledByEntry"}}
	}

	res, err := b.call(ctx, req.Contract, req.Method, req.Params, signers)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("invoke %s.%s: %w", req.Contract, req.Method, err)
	}

	return InvokeResult{
		State:       res.State,
		GasConsumed: res.GasConsumed,
		Exception:   res.Exception,
	}, nil
}

// versionResponse mirrors the node's getversion result.
type versionResponse struct {
	UserAgent string `json:"useragent"`
	Protocol  struct {
		Network uint32 `json:"network"`
	} `json:"protocol"`
}

// VerifyNetwork checks the node's network magic against configuration.
func (b *Bridge) VerifyNetwork(ctx context.Context) error {
	client, ctx, cancel, err := b.prepare(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	var res versionResponse
	if err := client.CallContext(ctx, &res, "getversion"); err != nil {
		return fmt.Errorf("getversion: %w", err)
	}

	if b.opts.NetworkMagic != 0 && res.Protocol.Network != b.opts.NetworkMagic {
		return fmt.Errorf("node network magic %d does not match configured %d",
			res.Protocol.Network, b.opts.NetworkMagic)
	}

	b.logger.Info().Str("node", res.UserAgent).Uint32("network", res.Protocol.Network).Msg("chain node verified")
	return nil
}

func (b *Bridge) call(ctx context.Context, contract, method string, params []Param, signers []map[string]string) (invokeResponse, error) {
	client, ctx, cancel, err := b.prepare(ctx)
	if err != nil {
		return invokeResponse{}, err
	}
	defer cancel()

	if params == nil {
		params = []Param{}
	}
	if signers == nil {
		signers = []map[string]string{}
	}

	var res invokeResponse
	if err := client.CallContext(ctx, &res, "invokefunction", contract, method, params, signers); err != nil {
		return invokeResponse{}, err
	}
	return res, nil
}

func (b *Bridge) prepare(ctx context.Context) (*rpc.Client, context.Context, context.CancelFunc, error) {
	if b.opts.RPCURL == "" {
		return nil, nil, nil, errors.New("chain rpc url not configured")
	}

	timeout := b.opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	client, err := b.getClient(ctx)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return client, ctx, cancel, nil
}

func (b *Bridge) getClient(ctx context.Context) (*rpc.Client, error) {
	b.clientMux.Lock()
	defer b.clientMux.Unlock()

	if b.client != nil {
		return b.client, nil
	}

	client, err := rpc.DialContext(ctx, b.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	b.client = client
	return client, nil
}

var (
	_ PriceReader = (*Bridge)(nil)
	_ Invoker     = (*Bridge)(nil)
)
