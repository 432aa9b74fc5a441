// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/tribly/growthqr-bff-go/internal/domain"
)

// BusinessGateway reads and writes canonical business data on the backend.
type BusinessGateway interface {
	ScanBusiness(ctx context.Context, qrID string) (*domain.BusinessRecord, error)
	// ConfigureQR upserts fields for a QR id. A nil value clears the
	// field, an absent key leaves it untouched.
	ConfigureQR(ctx context.Context, qrID string, fields map[string]any) error
	ManualReviews(ctx context.Context, qrID string) ([]domain.ManualReview, error)
}

// QRValidator checks decoded QR payloads against the backend.
type QRValidator interface {
	ValidateQR(ctx context.Context, qrData string) (*domain.QRValidation, error)
}

// SalesTeamStore manages sales-team members on the backend.
type SalesTeamStore interface {
	ListSalesTeam(ctx context.Context) ([]domain.SalesTeamMember, error)
	CreateSalesTeamMember(ctx context.Context, input domain.SalesTeamMemberInput) (*domain.SalesTeamMember, error)
	UpdateSalesTeamMember(ctx context.Context, id string, input domain.SalesTeamMemberInput) error
	DeleteSalesTeamMember(ctx context.Context, id string) error
}

// PlacesGateway resolves business-name searches to place data.
type PlacesGateway interface {
	AutocompletePlaces(ctx context.Context, query, country string) ([]domain.PlaceSuggestion, error)
	PlaceDetails(ctx context.Context, placeID string) (*domain.PlaceDetails, error)
}

// OverrideStore persists per-business dashboard overrides.
type OverrideStore interface {
	Get(ctx context.Context, businessID string) (*domain.OverrideRecord, error)
	Update(ctx context.Context, businessID string, partial *domain.OverrideRecord) error
	Delete(ctx context.Context, businessID string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
