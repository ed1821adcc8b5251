// Package chain is the EVM adapter used by the publish state machine's
// register and finalize steps (spec §4.1, §6). No repository in the
// reference pack ships an EVM client — go-ethereum is the standard
// ecosystem choice for ABI encoding, transaction signing, and log
// parsing against a JSON-RPC endpoint (see DESIGN.md; notably
// luxfi-consensus's go.mod explicitly *excludes* go-ethereum from its
// own module, which only makes sense if go-ethereum is the library
// being excluded in favor of a fork — i.e. the default choice).
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Config is assembled once per request from environment input (spec §9
// "Global mutable state"): no long-lived singleton is required beyond
// the dialed client, which is cheap to keep open across requests.
type Config struct {
	RPCURL     string
	ChainID    int64
	PrivateKey string // hex, no 0x prefix required

	CollectionAddress     common.Address // ERC-721 collection emitting Transfer
	LicenseAttachWorkflow common.Address
	DerivativeWorkflow    common.Address
	AssetRegistry         common.Address
	LicenseRegistry       common.Address
	TrackRegistry         common.Address
	ContentRegistry       common.Address

	// TxTimeout bounds each chain transaction wait (default 45s, min 1s,
	// max 300s per spec §4.1/§5).
	TxTimeout time.Duration
}

func (c Config) txTimeout() time.Duration {
	d := c.TxTimeout
	if d == 0 {
		d = 45 * time.Second
	}
	if d < time.Second {
		d = time.Second
	}
	if d > 300*time.Second {
		d = 300 * time.Second
	}
	return d
}

// Adapter builds, submits, and awaits on-chain transactions, and
// extracts log data from their receipts.
type Adapter struct {
	cfg    Config
	client *ethclient.Client
	key    *ecdsa.PrivateKey
	from   common.Address
}

var ErrNotConfigured = fmt.Errorf("chain: not configured")

func Dial(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.RPCURL == "" || cfg.PrivateKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: couldn't dial rpc %s: %w", cfg.RPCURL, err)
	}
	key, err := crypto.HexToECDSA(trim0x(cfg.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("chain: couldn't parse private key: %w", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	return &Adapter{cfg: cfg, client: client, key: key, from: from}, nil
}

func trim0x(s string) string {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func (a *Adapter) transactor() (*bind.TransactOpts, error) {
	chainID := big.NewInt(a.cfg.ChainID)
	opts, err := bind.NewKeyedTransactorWithChainID(a.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("chain: couldn't create transactor: %w", err)
	}
	return opts, nil
}

// sendAndWait submits a call to `to` with the given ABI-encoded data
// and waits for a receipt, honoring the per-tx timeout. On timeout it
// re-queries on-chain state via recheck before surfacing the error, so
// a confirmed-but-slow transaction is recognized rather than retried
// (spec §4.1 "finalize", §9 "Chain work is non-transactional").
func (a *Adapter) sendAndWait(ctx context.Context, to common.Address, data []byte, value *big.Int, recheck func(context.Context) (bool, error)) (*types.Receipt, error) {
	opts, err := a.transactor()
	if err != nil {
		return nil, err
	}
	nonce, err := a.client.PendingNonceAt(ctx, a.from)
	if err != nil {
		return nil, fmt.Errorf("chain: couldn't fetch nonce: %w", err)
	}
	gasTipCap, err := a.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: couldn't suggest gas tip: %w", err)
	}
	head, err := a.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: couldn't fetch head header: %w", err)
	}
	gasFeeCap := new(big.Int).Add(gasTipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gasLimit, err := a.client.EstimateGas(ctx, gasEstimateCall(a.from, to, value, data))
	if err != nil {
		return nil, fmt.Errorf("chain: couldn't estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(a.cfg.ChainID),
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit + gasLimit/5,
		To:        &to,
		Value:     valueOrZero(value),
		Data:      data,
	})
	signed, err := opts.Signer(a.from, tx)
	if err != nil {
		return nil, fmt.Errorf("chain: couldn't sign transaction: %w", err)
	}
	if err := a.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("chain: couldn't send transaction: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.txTimeout())
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, a.client, signed)
	if err != nil {
		if recheck != nil {
			if ok, rerr := recheck(ctx); rerr == nil && ok {
				// The on-chain effect landed despite the wait timing out;
				// fetch the receipt once more without the deadline.
				if r, rerr2 := a.client.TransactionReceipt(ctx, signed.Hash()); rerr2 == nil {
					return r, nil
				}
				return nil, nil
			}
		}
		return nil, fmt.Errorf("chain: transaction %s not mined: %w", signed.Hash(), err)
	}
	return receipt, nil
}

// call performs a read-only contract invocation against the latest
// block and unpacks the ABI-defined outputs of method into out.
func (a *Adapter) call(ctx context.Context, to common.Address, abiDef abi.ABI, method string, out interface{}, args ...interface{}) error {
	data, err := abiDef.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("chain: couldn't pack %s: %w", method, err)
	}
	result, err := a.client.CallContract(ctx, gasEstimateCall(a.from, to, nil, data), nil)
	if err != nil {
		return fmt.Errorf("chain: couldn't call %s: %w", method, err)
	}
	if err := abiDef.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("chain: couldn't unpack %s result: %w", method, err)
	}
	return nil
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func gasEstimateCall(from, to common.Address, value *big.Int, data []byte) ethereum.CallMsg {
	return ethereum.CallMsg{From: from, To: &to, Value: valueOrZero(value), Data: data}
}
