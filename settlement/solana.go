package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/zkstash/zkstash-go/types"
	"github.com/zkstash/zkstash-go/wallet"
)

// solanaBackend is the subset of rpc.Client the settler needs.
type solanaBackend interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

var _ Settler = (*SolanaSettler)(nil)

// SolanaSettler submits native SOL transfers and polls signature statuses
// until the transaction finalizes or the deadline elapses. Amounts are
// lamports. SPL token settlement is not supported; challenges demanding a
// token mint on Solana fail rather than settling the wrong asset.
type SolanaSettler struct {
	network types.Network
	backend solanaBackend
	wallet  *wallet.SolanaWallet

	confirmDeadline time.Duration
	pollInterval    time.Duration
}

// SolanaSettlerOption configures a SolanaSettler.
type SolanaSettlerOption func(*SolanaSettler)

// WithSolanaConfirmDeadline bounds the signature-status poll.
func WithSolanaConfirmDeadline(d time.Duration) SolanaSettlerOption {
	return func(s *SolanaSettler) {
		if d > 0 {
			s.confirmDeadline = d
		}
	}
}

// NewSolanaSettler connects to the network RPC and prepares a settler signing
// with the given wallet.
func NewSolanaSettler(network types.Network, rpcURL string, w *wallet.SolanaWallet, opts ...SolanaSettlerOption) (*SolanaSettler, error) {
	if !network.IsSolana() {
		return nil, types.NewError(types.ErrUnsupportedNetwork,
			fmt.Sprintf("network %s is not a Solana network", network))
	}
	if rpcURL == "" {
		rpcURL = types.DefaultRPCEndpoints[network]
	}
	return newSolanaSettler(network, rpc.New(rpcURL), w, opts...), nil
}

func newSolanaSettler(network types.Network, backend solanaBackend, w *wallet.SolanaWallet, opts ...SolanaSettlerOption) *SolanaSettler {
	s := &SolanaSettler{
		network:         network,
		backend:         backend,
		wallet:          w,
		confirmDeadline: defaultConfirmDeadline,
		pollInterval:    defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SolanaSettler) Network() types.Network { return s.network }

func (s *SolanaSettler) Close() {}

// Settle broadcasts a system-program transfer for the option and waits for
// finalization. Broadcast happens exactly once per call.
func (s *SolanaSettler) Settle(ctx context.Context, option *types.PaymentOption) (*Receipt, error) {
	if option.Token != "" && !strings.EqualFold(option.Token, "SOL") {
		return nil, types.NewError(types.ErrPaymentFailed,
			fmt.Sprintf("SPL token settlement is not supported (token %s)", option.Token))
	}

	amount, err := atomicAmount(option)
	if err != nil {
		return nil, err
	}
	if !amount.IsUint64() {
		return nil, types.NewError(types.ErrPaymentFailed,
			fmt.Sprintf("lamport amount out of range: %s", amount))
	}
	lamports := amount.Uint64()

	recipient, err := solana.PublicKeyFromBase58(option.Recipient())
	if err != nil {
		return nil, types.NewError(types.ErrPaymentFailed,
			fmt.Sprintf("invalid recipient address: %v", err))
	}

	payer := s.wallet.PrivateKey().PublicKey()

	blockhash, err := s.backend.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, types.NewError(types.ErrRPCUnavailable, fmt.Sprintf("fetch blockhash: %v", err))
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, payer, recipient).Build(),
		},
		blockhash.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, types.NewError(types.ErrPaymentFailed, fmt.Sprintf("build transaction: %v", err))
	}

	key := s.wallet.PrivateKey()
	if _, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(payer) {
			return &key
		}
		return nil
	}); err != nil {
		return nil, types.NewError(types.ErrPaymentFailed, fmt.Sprintf("sign transaction: %v", err))
	}

	sig, err := s.backend.SendTransaction(ctx, tx)
	if err != nil {
		return nil, types.NewError(types.ErrPaymentFailed, fmt.Sprintf("broadcast transaction: %v", err))
	}

	if err := s.waitFinalized(ctx, sig); err != nil {
		return nil, err
	}

	return &Receipt{
		TxRef:   sig.String(),
		Network: s.network,
		Asset:   "SOL",
		Amount:  amount.String(),
		PayTo:   recipient.String(),
	}, nil
}

// waitFinalized polls signature statuses at a fixed interval until the
// transaction finalizes or the bounded deadline elapses. Cancellation stops
// the waiting, never the broadcast transfer.
func (s *SolanaSettler) waitFinalized(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, s.confirmDeadline)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		status, err := s.backend.GetSignatureStatuses(ctx, false, sig)
		if err == nil && len(status.Value) > 0 && status.Value[0] != nil {
			st := status.Value[0]
			if st.Err != nil {
				return types.NewErrorWithData(types.ErrTransactionReverted,
					fmt.Sprintf("transaction %s failed: %v", sig, st.Err), sig.String())
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return types.NewErrorWithData(types.ErrConfirmationTimeout,
				fmt.Sprintf("transaction %s not finalized before deadline", sig), sig.String())
		case <-ticker.C:
		}
	}
}
