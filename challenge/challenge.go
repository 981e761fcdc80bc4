// Package challenge decodes payment-required responses and selects a
// settlement option.
package challenge

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/zkstash/zkstash-go/logger"
	"github.com/zkstash/zkstash-go/types"
)

var validate = validator.New()

// Parser decodes 402 bodies. The challenge schema is still evolving across
// server versions, so the parser accepts field-name unions and logs
// unrecognized shapes instead of dropping them silently.
type Parser struct {
	log logger.Logger
}

func NewParser(log logger.Logger) *Parser {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Parser{log: log}
}

// Parse decodes and validates a payment challenge body.
func (p *Parser) Parse(body []byte) (*types.PaymentChallenge, error) {
	var ch types.PaymentChallenge
	if err := json.Unmarshal(body, &ch); err != nil {
		return nil, types.NewError(types.ErrInvalidChallenge,
			fmt.Sprintf("failed to parse payment challenge: %v", err))
	}

	if err := validate.Struct(&ch); err != nil {
		return nil, types.NewError(types.ErrInvalidChallenge,
			fmt.Sprintf("payment challenge validation failed: %v", err))
	}

	for i := range ch.Accepts {
		opt := &ch.Accepts[i]
		if _, ok := opt.ResolvedNetwork(); !ok {
			p.log.Warn("challenge offers unrecognized network", map[string]any{
				"network": opt.Network,
				"index":   i,
			})
		}
		if opt.Amount() == "" {
			p.log.Warn("challenge option carries no amount field", map[string]any{
				"network": opt.Network,
				"index":   i,
			})
		}
		if opt.Recipient() == "" {
			p.log.Warn("challenge option carries no recipient field", map[string]any{
				"network": opt.Network,
				"index":   i,
			})
		}
	}

	return &ch, nil
}

// Select returns the first option whose network matches the preference order.
// Options are matched against both bare aliases and chain-namespaced
// identifiers. Exactly one option is selected per retry cycle.
func Select(ch *types.PaymentChallenge, preferences []types.Network) (*types.PaymentOption, error) {
	for _, pref := range preferences {
		for i := range ch.Accepts {
			opt := &ch.Accepts[i]
			if pref.Matches(opt.Network) && opt.Amount() != "" && opt.Recipient() != "" {
				return opt, nil
			}
		}
	}

	offered := make([]string, 0, len(ch.Accepts))
	for i := range ch.Accepts {
		offered = append(offered, ch.Accepts[i].Network)
	}
	return nil, types.NewErrorWithData(types.ErrUnsupportedNetwork,
		"no offered settlement network matches the configured preference", offered)
}
