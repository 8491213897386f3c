package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// phoneSuffixLen is how many trailing digits identify a tenant when a
// payment gateway reports a phone number. Kenyan MSISDNs vary in prefix
// (07.., +2547.., 2547..) but the last nine digits are stable.
const phoneSuffixLen = 9

const (
	minLeaseExtensionMonths = 1
	maxLeaseExtensionMonths = 60
)

var ErrInvalidExtension = errors.New("lease extension must be between 1 and 60 months")

type Repository interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error)
	ListTenants(ctx context.Context, filter ListFilter) ([]*Tenant, error)
	FindByPhoneSuffix(ctx context.Context, suffix string) (*Tenant, error)
	UpdateLeaseEnd(ctx context.Context, id uuid.UUID, end time.Time) error
}

type ListFilter struct {
	Status *Status
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return s.repo.GetTenant(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Tenant, error) {
	return s.repo.ListTenants(ctx, filter)
}

// ResolveByPhone finds the tenant whose phone number ends with the same
// digits as the given number, ignoring formatting and country prefixes.
func (s *Service) ResolveByPhone(ctx context.Context, phone string) (*Tenant, error) {
	digits := digitsOnly(phone)
	if len(digits) < phoneSuffixLen {
		return nil, ErrNotFound
	}

	return s.repo.FindByPhoneSuffix(ctx, digits[len(digits)-phoneSuffixLen:])
}

// ExtendLease pushes the tenant's lease end date forward by the given number
// of months.
func (s *Service) ExtendLease(ctx context.Context, id uuid.UUID, months int) (*Tenant, error) {
	if months < minLeaseExtensionMonths || months > maxLeaseExtensionMonths {
		return nil, ErrInvalidExtension
	}

	t, err := s.repo.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	newEnd := t.LeaseEnd.AddDate(0, months, 0)
	if err := s.repo.UpdateLeaseEnd(ctx, id, newEnd); err != nil {
		return nil, fmt.Errorf("updating lease end: %w", err)
	}

	t.LeaseEnd = newEnd

	return t, nil
}

func digitsOnly(s string) string {
	var b strings.Builder

	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}
