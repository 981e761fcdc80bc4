package settlement

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkstash/zkstash-go/types"
	"github.com/zkstash/zkstash-go/wallet"
)

const (
	testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testRecipient  = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

// stubEthBackend is an in-memory chain: every sent transaction is recorded
// and answered with a configurable receipt.
type stubEthBackend struct {
	mu   sync.Mutex
	sent []*ethtypes.Transaction

	receiptStatus uint64
	receiptAfter  int // polls before the receipt appears
	sendErr       error
	nonceErr      error

	polls int
}

func (b *stubEthBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if b.nonceErr != nil {
		return 0, b.nonceErr
	}
	return 7, nil
}

func (b *stubEthBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1e9), nil
}

func (b *stubEthBackend) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.mu.Lock()
	b.sent = append(b.sent, tx)
	b.mu.Unlock()
	return nil
}

func (b *stubEthBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.polls++
	if b.polls <= b.receiptAfter {
		return nil, errors.New("not found")
	}
	return &ethtypes.Receipt{Status: b.receiptStatus, TxHash: txHash}, nil
}

func newTestSettler(t *testing.T, backend ethBackend, opts ...EVMSettlerOption) *EVMSettler {
	t.Helper()
	w, err := wallet.NewEVMWallet(testPrivateKey)
	require.NoError(t, err)
	base := []EVMSettlerOption{
		WithConfirmDeadline(2 * time.Second),
		WithPollInterval(10 * time.Millisecond),
	}
	return newEVMSettler(types.NetworkBaseSepolia, big.NewInt(84532), backend, w, append(base, opts...)...)
}

func testOption() *types.PaymentOption {
	return &types.PaymentOption{
		Network:                "base-sepolia",
		MaxAmountRequiredField: "10000",
		PayToField:             testRecipient,
	}
}

func TestTransferCallData(t *testing.T) {
	to := common.HexToAddress(testRecipient)
	data := TransferCallData(to, big.NewInt(10000))

	require.Len(t, data, 68)
	// keccak256("transfer(address,uint256)")[:4]
	assert.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
	assert.Equal(t, common.LeftPadBytes(to.Bytes(), 32), data[4:36])
	assert.Equal(t, common.LeftPadBytes(big.NewInt(10000).Bytes(), 32), data[36:68])
}

func TestEVMSettler_SettleSuccess(t *testing.T) {
	backend := &stubEthBackend{receiptStatus: ethtypes.ReceiptStatusSuccessful, receiptAfter: 1}
	settler := newTestSettler(t, backend)

	receipt, err := settler.Settle(context.Background(), testOption())
	require.NoError(t, err)

	assert.Equal(t, types.NetworkBaseSepolia, receipt.Network)
	assert.Equal(t, "10000", receipt.Amount)
	assert.Equal(t, testRecipient, receipt.PayTo)
	// Default asset is the network's USDC contract.
	assert.Equal(t, types.USDCAssets[types.NetworkBaseSepolia], receipt.Asset)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(200_000), tx.Gas())
	assert.Equal(t, int64(0), tx.Value().Int64())
	assert.Equal(t, types.USDCAssets[types.NetworkBaseSepolia], tx.To().Hex())
	assert.Equal(t, TransferCallData(common.HexToAddress(testRecipient), big.NewInt(10000)), tx.Data())
	assert.Equal(t, tx.Hash().Hex(), receipt.TxRef)
}

func TestEVMSettler_ExplicitAsset(t *testing.T) {
	backend := &stubEthBackend{receiptStatus: ethtypes.ReceiptStatusSuccessful}
	settler := newTestSettler(t, backend)

	opt := testOption()
	opt.Asset = "0x1111111111111111111111111111111111111111"

	receipt, err := settler.Settle(context.Background(), opt)
	require.NoError(t, err)
	assert.Equal(t, opt.Asset, receipt.Asset)
	assert.Equal(t, opt.Asset, backend.sent[0].To().Hex())
}

func TestEVMSettler_Reverted(t *testing.T) {
	backend := &stubEthBackend{receiptStatus: ethtypes.ReceiptStatusFailed}
	settler := newTestSettler(t, backend)

	_, err := settler.Settle(context.Background(), testOption())
	require.Error(t, err)
	assert.Equal(t, types.ErrTransactionReverted, types.CodeOf(err))
}

func TestEVMSettler_ConfirmationTimeout(t *testing.T) {
	// Receipt never appears within the deadline.
	backend := &stubEthBackend{receiptAfter: 1 << 30}
	settler := newTestSettler(t, backend, WithConfirmDeadline(50*time.Millisecond))

	_, err := settler.Settle(context.Background(), testOption())
	require.Error(t, err)
	assert.Equal(t, types.ErrConfirmationTimeout, types.CodeOf(err))

	// The error must carry the transaction reference for reconciliation.
	var perr *types.Error
	require.ErrorAs(t, err, &perr)
	require.Len(t, backend.sent, 1)
	assert.Equal(t, backend.sent[0].Hash().Hex(), perr.Data)
}

func TestEVMSettler_BroadcastFailure(t *testing.T) {
	backend := &stubEthBackend{sendErr: errors.New("insufficient funds")}
	settler := newTestSettler(t, backend)

	_, err := settler.Settle(context.Background(), testOption())
	require.Error(t, err)
	assert.Equal(t, types.ErrPaymentFailed, types.CodeOf(err))
}

func TestEVMSettler_RPCDown(t *testing.T) {
	backend := &stubEthBackend{nonceErr: errors.New("connection refused")}
	settler := newTestSettler(t, backend)

	_, err := settler.Settle(context.Background(), testOption())
	require.Error(t, err)
	assert.Equal(t, types.ErrRPCUnavailable, types.CodeOf(err))
	assert.Empty(t, backend.sent)
}

func TestEVMSettler_InvalidAmounts(t *testing.T) {
	backend := &stubEthBackend{receiptStatus: ethtypes.ReceiptStatusSuccessful}
	settler := newTestSettler(t, backend)

	for _, amount := range []string{"", "abc", "-1", "1.5"} {
		opt := testOption()
		opt.MaxAmountRequiredField = amount

		_, err := settler.Settle(context.Background(), opt)
		require.Error(t, err, amount)
		assert.Equal(t, types.ErrPaymentFailed, types.CodeOf(err), amount)
	}
	assert.Empty(t, backend.sent)
}

func TestEVMSettler_InvalidRecipient(t *testing.T) {
	backend := &stubEthBackend{receiptStatus: ethtypes.ReceiptStatusSuccessful}
	settler := newTestSettler(t, backend)

	opt := testOption()
	opt.PayToField = "AejHuZdNpDUiAiwuV2NKXz8K6eLzChYGpTcxptinWbar" // a Solana address

	_, err := settler.Settle(context.Background(), opt)
	require.Error(t, err)
	assert.Equal(t, types.ErrPaymentFailed, types.CodeOf(err))
	assert.Empty(t, backend.sent)
}
