package settlement

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/zkstash/zkstash-go/types"
	"github.com/zkstash/zkstash-go/wallet"
)

const (
	// erc20TransferGasLimit is a fixed limit for a plain ERC-20 transfer.
	erc20TransferGasLimit = 200_000

	defaultConfirmDeadline = 60 * time.Second
	defaultPollInterval    = 2 * time.Second
)

// ethBackend is the subset of ethclient.Client the settler needs. Narrowed to
// an interface so tests can run against a stub chain.
type ethBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

var _ Settler = (*EVMSettler)(nil)

// EVMSettler submits ERC-20 token transfers on an EVM network and polls the
// transaction receipt until confirmed or the deadline elapses.
type EVMSettler struct {
	network types.Network
	chainID *big.Int
	backend ethBackend
	wallet  *wallet.EVMWallet
	from    common.Address

	confirmDeadline time.Duration
	pollInterval    time.Duration

	closeFn func()
}

// EVMSettlerOption configures an EVMSettler.
type EVMSettlerOption func(*EVMSettler)

// WithConfirmDeadline bounds the receipt poll. The deadline must stay
// bounded; it is never disabled.
func WithConfirmDeadline(d time.Duration) EVMSettlerOption {
	return func(s *EVMSettler) {
		if d > 0 {
			s.confirmDeadline = d
		}
	}
}

// WithPollInterval sets the receipt polling interval.
func WithPollInterval(d time.Duration) EVMSettlerOption {
	return func(s *EVMSettler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// NewEVMSettler dials the network RPC and prepares a settler signing with the
// given wallet.
func NewEVMSettler(network types.Network, rpcURL string, w *wallet.EVMWallet, opts ...EVMSettlerOption) (*EVMSettler, error) {
	chainID := network.ChainID()
	if chainID == nil {
		return nil, types.NewError(types.ErrUnsupportedNetwork,
			fmt.Sprintf("network %s is not an EVM network", network))
	}

	if rpcURL == "" {
		rpcURL = types.DefaultRPCEndpoints[network]
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, types.NewError(types.ErrRPCUnavailable,
			fmt.Sprintf("failed to connect to %s RPC: %v", network, err))
	}

	s := newEVMSettler(network, chainID, client, w, opts...)
	s.closeFn = client.Close
	return s, nil
}

// newEVMSettler wires a settler onto an arbitrary backend (tests use a stub).
func newEVMSettler(network types.Network, chainID *big.Int, backend ethBackend, w *wallet.EVMWallet, opts ...EVMSettlerOption) *EVMSettler {
	s := &EVMSettler{
		network:         network,
		chainID:         chainID,
		backend:         backend,
		wallet:          w,
		from:            common.HexToAddress(w.Address()),
		confirmDeadline: defaultConfirmDeadline,
		pollInterval:    defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EVMSettler) Network() types.Network { return s.network }

func (s *EVMSettler) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// TransferCallData builds the ERC-20 transfer(address,uint256) calldata:
// 4-byte selector followed by the left-padded recipient and amount.
func TransferCallData(to common.Address, amount *big.Int) []byte {
	selector := crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
	data := make([]byte, 0, 4+32+32)
	data = append(data, selector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// Settle broadcasts a token transfer for the option and waits for the
// receipt. The transfer is attempted exactly once: any failure after
// SendTransaction surfaces the transaction reference instead of resubmitting.
func (s *EVMSettler) Settle(ctx context.Context, option *types.PaymentOption) (*Receipt, error) {
	amount, err := atomicAmount(option)
	if err != nil {
		return nil, err
	}

	recipient := option.Recipient()
	if !common.IsHexAddress(recipient) {
		return nil, types.NewError(types.ErrPaymentFailed,
			fmt.Sprintf("invalid recipient address: %s", recipient))
	}
	to := common.HexToAddress(recipient)

	asset := option.Asset
	if !common.IsHexAddress(asset) {
		asset = types.USDCAssets[s.network]
	}
	tokenAddr := common.HexToAddress(asset)

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, types.NewError(types.ErrRPCUnavailable, fmt.Sprintf("fetch nonce: %v", err))
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, types.NewError(types.ErrRPCUnavailable, fmt.Sprintf("fetch gas price: %v", err))
	}

	tx := ethtypes.NewTransaction(nonce, tokenAddr, big.NewInt(0), erc20TransferGasLimit, gasPrice, TransferCallData(to, amount))

	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(s.chainID), s.wallet.PrivateKey())
	if err != nil {
		return nil, types.NewError(types.ErrPaymentFailed, fmt.Sprintf("sign transaction: %v", err))
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return nil, types.NewError(types.ErrPaymentFailed, fmt.Sprintf("broadcast transaction: %v", err))
	}

	txHash := signed.Hash()
	if err := s.waitMined(ctx, txHash); err != nil {
		return nil, err
	}

	return &Receipt{
		TxRef:   txHash.Hex(),
		Network: s.network,
		Asset:   asset,
		Amount:  amount.String(),
		PayTo:   to.Hex(),
	}, nil
}

// waitMined polls for the transaction receipt at a fixed interval until the
// transaction confirms, reverts, or the bounded deadline elapses. Once the
// transaction is broadcast, cancellation only stops the waiting, never the
// transfer itself.
func (s *EVMSettler) waitMined(ctx context.Context, txHash common.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, s.confirmDeadline)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == ethtypes.ReceiptStatusFailed {
				return types.NewErrorWithData(types.ErrTransactionReverted,
					fmt.Sprintf("transaction %s reverted", txHash.Hex()), txHash.Hex())
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return types.NewErrorWithData(types.ErrConfirmationTimeout,
				fmt.Sprintf("transaction %s not confirmed before deadline", txHash.Hex()), txHash.Hex())
		case <-ticker.C:
		}
	}
}

// atomicAmount parses the option amount into atomic token units. Amounts must
// be non-negative integers; the challenge carries atomic units, not display
// units.
func atomicAmount(option *types.PaymentOption) (*big.Int, error) {
	d, ok := option.AmountDecimal()
	if !ok {
		return nil, types.NewError(types.ErrPaymentFailed,
			fmt.Sprintf("invalid settlement amount: %q", option.Amount()))
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return nil, types.NewError(types.ErrPaymentFailed,
			fmt.Sprintf("settlement amount must be a non-negative integer of atomic units: %s", d))
	}

	return d.BigInt(), nil
}
