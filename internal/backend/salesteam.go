package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

type salesTeamRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func (r salesTeamRow) toDomain() domain.SalesTeamMember {
	t, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return domain.SalesTeamMember{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Role:      r.Role,
		Active:    r.Active,
		CreatedAt: t,
	}
}

// ListSalesTeam fetches all sales-team members.
func (c *Client) ListSalesTeam(ctx context.Context) ([]domain.SalesTeamMember, error) {
	ctx, span := tracer.Start(ctx, "Backend.ListSalesTeam")
	defer span.End()

	var members []domain.SalesTeamMember

	err := c.execute(ctx, func() error {
		body, status, err := c.doJSON(ctx, http.MethodGet, "/business_qr/sales_team", nil)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			members = []domain.SalesTeamMember{}
			return nil
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("sales_team list returned status %d: %s", status, string(body))
		}

		var rows []salesTeamRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode sales team: %w", err)
		}
		members = make([]domain.SalesTeamMember, 0, len(rows))
		for _, r := range rows {
			members = append(members, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "backend/sales_team", Err: err}
	}

	return members, nil
}

// CreateSalesTeamMember adds a member and returns the created record.
func (c *Client) CreateSalesTeamMember(ctx context.Context, input domain.SalesTeamMemberInput) (*domain.SalesTeamMember, error) {
	ctx, span := tracer.Start(ctx, "Backend.CreateSalesTeamMember")
	defer span.End()

	var member *domain.SalesTeamMember

	err := c.execute(ctx, func() error {
		body, status, err := c.doJSON(ctx, http.MethodPost, "/business_qr/sales_team", input)
		if err != nil {
			return err
		}
		if status == http.StatusConflict {
			return resilience.Permanent(&domain.ErrConflict{Message: "sales team member already exists"})
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("sales_team create returned status %d: %s", status, string(body))
		}

		var row salesTeamRow
		if err := json.Unmarshal(body, &row); err != nil {
			return fmt.Errorf("failed to decode created member: %w", err)
		}
		m := row.toDomain()
		member = &m
		return nil
	})
	if err != nil {
		var conflict *domain.ErrConflict
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		return nil, &domain.ErrExternalService{Service: "backend/sales_team", Err: err}
	}

	return member, nil
}

// UpdateSalesTeamMember patches a member with the provided fields.
func (c *Client) UpdateSalesTeamMember(ctx context.Context, id string, input domain.SalesTeamMemberInput) error {
	ctx, span := tracer.Start(ctx, "Backend.UpdateSalesTeamMember")
	defer span.End()
	span.SetAttributes(attribute.String("member.id", id))

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("/business_qr/sales_team?id=%s", url.QueryEscape(id))
		body, status, err := c.doJSON(ctx, http.MethodPatch, path, input)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "sales_team_member", ID: id})
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("sales_team update returned status %d: %s", status, string(body))
		}
		return nil
	})
	if err != nil {
		if notFound, ok := asNotFound(err); ok {
			return notFound
		}
		return &domain.ErrExternalService{Service: "backend/sales_team", Err: err}
	}
	return nil
}

// DeleteSalesTeamMember removes a member. Deletion is forwarded to the
// backend so it actually persists; a missing member is treated as
// already deleted.
func (c *Client) DeleteSalesTeamMember(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Backend.DeleteSalesTeamMember")
	defer span.End()
	span.SetAttributes(attribute.String("member.id", id))

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("/business_qr/sales_team?id=%s", url.QueryEscape(id))
		body, status, err := c.doJSON(ctx, http.MethodDelete, path, nil)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			return nil
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("sales_team delete returned status %d: %s", status, string(body))
		}
		return nil
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "backend/sales_team", Err: err}
	}
	return nil
}
