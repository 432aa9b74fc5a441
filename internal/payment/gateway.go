package payment

import (
	"fmt"
	"net/url"

	"github.com/tribly/growthqr-bff-go/internal/domain"

	"github.com/jaevor/go-nanoid"
)

// Gateway produces the scannable payment code for a session. The simulator
// below is the only implementation today; a real payment integration
// replaces it without touching the session state machine.
type Gateway interface {
	GenerateCode(plan domain.PaymentPlan, businessID, businessName string) (uri, code string, err error)
}

// SimulatedGateway synthesizes UPI-style payment URIs and short code
// references. It performs no real charge.
type SimulatedGateway struct {
	newCode func() string
}

// NewSimulatedGateway creates the simulated gateway.
func NewSimulatedGateway() (*SimulatedGateway, error) {
	gen, err := nanoid.CustomASCII("0123456789ABCDEFGHJKMNPQRSTVWXYZ", 12)
	if err != nil {
		return nil, fmt.Errorf("payment code generator: %w", err)
	}
	return &SimulatedGateway{newCode: gen}, nil
}

// GenerateCode builds a payment URI from the plan price/name and business
// identity, plus a short code reference for display.
func (g *SimulatedGateway) GenerateCode(plan domain.PaymentPlan, businessID, businessName string) (string, string, error) {
	code := g.newCode()
	uri := fmt.Sprintf("upi://pay?pa=growthqr@tribly&pn=%s&am=%.2f&tn=%s",
		url.QueryEscape(businessName),
		plan.Price,
		url.QueryEscape(fmt.Sprintf("%s %s %s", plan.Name, businessID, code)),
	)
	return uri, code, nil
}
