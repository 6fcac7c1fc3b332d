package billing

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Charge is one card charge handed to a Gateway.
type Charge struct {
	Amount     int64
	Currency   string
	CardNumber string
	CardHolder string
	Expiry     string
	CVV        string
}

// Receipt is what the gateway reports back for a successful charge.
type Receipt struct {
	Ref   string
	Last4 string
}

// Gateway charges cards.
type Gateway interface {
	Name() string
	Charge(ctx context.Context, c Charge) (*Receipt, error)
}

// DemoGateway accepts every charge. Nothing leaves the process.
type DemoGateway struct{}

func (DemoGateway) Name() string { return "demo" }

func (DemoGateway) Charge(_ context.Context, c Charge) (*Receipt, error) {
	return &Receipt{Ref: "DEMO-" + uuid.NewString(), Last4: last4(c.CardNumber)}, nil
}

// last4 returns the last four digits of a card number, ignoring spaces and
// dashes.
func last4(card string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, card)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
