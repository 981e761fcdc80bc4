package types

import (
	"github.com/shopspring/decimal"
)

// ProtocolVersion is the x402 protocol version this client speaks.
const ProtocolVersion = 1

// PaymentOption is a single settlement option from a payment challenge's
// accepts array. The wire format has drifted across server versions: amount is
// spelled either "amount" or "maxAmountRequired" and the receiving address
// either "recipient" or "payTo". Both spellings are kept and accessed through
// the Amount/Recipient helpers, never read directly.
type PaymentOption struct {
	Network string `json:"network" validate:"required"`
	Scheme  string `json:"scheme,omitempty"`
	Token   string `json:"token,omitempty"`
	Asset   string `json:"asset,omitempty"`

	AmountField            string `json:"amount,omitempty"`
	MaxAmountRequiredField string `json:"maxAmountRequired,omitempty"`

	RecipientField string `json:"recipient,omitempty"`
	PayToField     string `json:"payTo,omitempty"`

	MaxTimeoutSeconds int            `json:"maxTimeoutSeconds,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// Amount returns the required amount as a decimal string, whichever field the
// server used. Amounts are atomic units of the asset, represented as strings
// because Go has no uint256.
func (o *PaymentOption) Amount() string {
	if o.AmountField != "" {
		return o.AmountField
	}
	return o.MaxAmountRequiredField
}

// Recipient returns the receiving address, whichever field the server used.
func (o *PaymentOption) Recipient() string {
	if o.PayToField != "" {
		return o.PayToField
	}
	return o.RecipientField
}

// AmountDecimal parses the amount field. The second return is false when the
// amount is absent or not a valid decimal.
func (o *PaymentOption) AmountDecimal() (decimal.Decimal, bool) {
	raw := o.Amount()
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ResolvedNetwork normalizes the option's network identifier.
func (o *PaymentOption) ResolvedNetwork() (Network, bool) {
	return ParseNetwork(o.Network)
}

// PaymentChallenge is the decoded body of an HTTP 402 response.
type PaymentChallenge struct {
	X402Version int             `json:"x402Version"`
	Error       string          `json:"error"`
	Accepts     []PaymentOption `json:"accepts" validate:"required,min=1,dive"`
}

// SettleResponse is the server's optional settlement confirmation, carried
// base64-encoded in the PAYMENT-RESPONSE header (X-PAYMENT-RESPONSE on older
// servers).
type SettleResponse struct {
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer"`
}
