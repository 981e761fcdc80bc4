// Package settlement submits on-chain transfers that satisfy payment
// challenges and waits for their confirmation.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/zkstash/zkstash-go/logger"
	"github.com/zkstash/zkstash-go/metrics"
	"github.com/zkstash/zkstash-go/types"
)

// Receipt is the evidence of a confirmed settlement, consumed by the proof
// assembler.
type Receipt struct {
	TxRef   string
	Network types.Network
	Asset   string
	Amount  string
	PayTo   string
}

// Settler executes an on-chain transfer for one payment option and blocks
// until it is confirmed, fails, or the deadline elapses. A settler is invoked
// at most once per retry cycle: ambiguous failures are surfaced, never
// silently resubmitted, since resubmission risks a double payment.
type Settler interface {
	Settle(ctx context.Context, option *types.PaymentOption) (*Receipt, error)
	Network() types.Network
	Close()
}

// Service routes settlement requests to per-network settlers.
type Service struct {
	evm    map[types.Network]*EVMSettler
	solana map[types.Network]*SolanaSettler

	log     logger.Logger
	metrics metrics.Recorder
}

func NewService(log logger.Logger, rec metrics.Recorder) *Service {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Service{
		evm:     make(map[types.Network]*EVMSettler),
		solana:  make(map[types.Network]*SolanaSettler),
		log:     log,
		metrics: rec,
	}
}

// AddEVM registers an EVM settler for its network.
func (s *Service) AddEVM(settler *EVMSettler) error {
	network := settler.Network()
	if !network.IsEVM() {
		return types.NewError(types.ErrUnsupportedNetwork,
			fmt.Sprintf("network %s is not an EVM network", network))
	}
	s.evm[network] = settler
	return nil
}

// AddSolana registers a Solana settler for its network.
func (s *Service) AddSolana(settler *SolanaSettler) error {
	network := settler.Network()
	if !network.IsSolana() {
		return types.NewError(types.ErrUnsupportedNetwork,
			fmt.Sprintf("network %s is not a Solana network", network))
	}
	s.solana[network] = settler
	return nil
}

// Settle routes the option to the settler configured for its network.
func (s *Service) Settle(ctx context.Context, option *types.PaymentOption) (*Receipt, error) {
	network, ok := option.ResolvedNetwork()
	if !ok {
		return nil, types.NewError(types.ErrUnsupportedNetwork,
			fmt.Sprintf("unrecognized settlement network: %s", option.Network))
	}

	var settler Settler
	switch network.Family() {
	case types.ChainEVM:
		if c, ok := s.evm[network]; ok {
			settler = c
		}
	case types.ChainSolana:
		if c, ok := s.solana[network]; ok {
			settler = c
		}
	}
	if settler == nil {
		return nil, types.NewError(types.ErrUnsupportedNetwork,
			fmt.Sprintf("no settlement client configured for network %s", network))
	}

	s.log.Info("settling payment", map[string]any{
		"network": network.String(),
		"amount":  option.Amount(),
		"payTo":   option.Recipient(),
	})

	start := time.Now()
	receipt, err := settler.Settle(ctx, option)
	s.metrics.ObserveLatency(metrics.OpSettle, time.Since(start), map[string]string{
		"network": network.String(),
	})

	if err != nil {
		s.metrics.IncCounter(metrics.EventSettlement, map[string]string{
			"network": network.String(),
			"result":  types.CodeOf(err),
		})
		return nil, err
	}

	s.metrics.IncCounter(metrics.EventSettlement, map[string]string{
		"network": network.String(),
		"result":  "confirmed",
	})
	s.log.Info("settlement confirmed", map[string]any{
		"network": network.String(),
		"tx":      receipt.TxRef,
	})
	return receipt, nil
}

// IsNetworkSupported reports whether a settler is configured for the network.
func (s *Service) IsNetworkSupported(network types.Network) bool {
	if _, ok := s.evm[network]; ok {
		return true
	}
	_, ok := s.solana[network]
	return ok
}

// Networks lists all networks with configured settlers.
func (s *Service) Networks() []types.Network {
	var networks []types.Network
	for n := range s.evm {
		networks = append(networks, n)
	}
	for n := range s.solana {
		networks = append(networks, n)
	}
	return networks
}

// Close closes all settler connections.
func (s *Service) Close() {
	for _, c := range s.evm {
		c.Close()
	}
	for _, c := range s.solana {
		c.Close()
	}
}
