package service

import (
	"context"
	"fmt"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/infra/observability"
	"github.com/tribly/growthqr-bff-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var salesTeamTracer = otel.Tracer("service/salesteam")

// SalesTeam manages sales-rep accounts through the backend store.
type SalesTeam struct {
	store   port.SalesTeamStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewSalesTeam creates the sales-team service.
func NewSalesTeam(store port.SalesTeamStore, metrics *observability.Metrics, logger *zap.Logger) *SalesTeam {
	return &SalesTeam{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// List returns all sales-team members.
func (s *SalesTeam) List(ctx context.Context) ([]domain.SalesTeamMember, error) {
	ctx, span := salesTeamTracer.Start(ctx, "SalesTeam.List")
	defer span.End()

	members, err := s.store.ListSalesTeam(ctx)
	if err != nil {
		s.metrics.IncrExternalError("sales_team")
		return nil, fmt.Errorf("list sales team: %w", err)
	}
	return members, nil
}

// Create adds a member. Name and email are required.
func (s *SalesTeam) Create(ctx context.Context, input domain.SalesTeamMemberInput) (*domain.SalesTeamMember, error) {
	ctx, span := salesTeamTracer.Start(ctx, "SalesTeam.Create")
	defer span.End()

	if input.Name == nil || *input.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if input.Email == nil || *input.Email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}

	member, err := s.store.CreateSalesTeamMember(ctx, input)
	if err != nil {
		s.metrics.IncrExternalError("sales_team")
		return nil, fmt.Errorf("create member: %w", err)
	}

	s.logger.Info("sales team member created",
		zap.String("member_id", member.ID),
		zap.String("name", member.Name),
	)
	return member, nil
}

// Update patches a member with the provided fields.
func (s *SalesTeam) Update(ctx context.Context, id string, input domain.SalesTeamMemberInput) error {
	ctx, span := salesTeamTracer.Start(ctx, "SalesTeam.Update")
	defer span.End()
	span.SetAttributes(attribute.String("member.id", id))

	if input.Name == nil && input.Email == nil && input.Phone == nil && input.Role == nil && input.Active == nil {
		return &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}

	if err := s.store.UpdateSalesTeamMember(ctx, id, input); err != nil {
		s.metrics.IncrExternalError("sales_team")
		return fmt.Errorf("update member: %w", err)
	}

	s.logger.Info("sales team member updated", zap.String("member_id", id))
	return nil
}

// Delete removes a member on the backend, so the deletion survives a
// reload instead of living only in the caller's view.
func (s *SalesTeam) Delete(ctx context.Context, id string) error {
	ctx, span := salesTeamTracer.Start(ctx, "SalesTeam.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("member.id", id))

	if err := s.store.DeleteSalesTeamMember(ctx, id); err != nil {
		s.metrics.IncrExternalError("sales_team")
		return fmt.Errorf("delete member: %w", err)
	}

	s.logger.Info("sales team member deleted", zap.String("member_id", id))
	return nil
}
