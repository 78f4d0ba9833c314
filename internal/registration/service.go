// Package registration implements the modality and registration
// business rules: display order assignment, the delete guard, capacity
// decisions and the registration status lifecycle. The service depends
// only on small store interfaces so that tests can substitute in-memory
// fakes and so the storage backend can be swapped without touching the
// rules.
package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/ifmsabrazil/agadmin/internal/model"
	"github.com/ifmsabrazil/agadmin/internal/repository"
)

// nearFullRatio is the occupancy ratio at which a modality is reported
// as nearly full to the admin UI.
const nearFullRatio = 0.9

// AssemblyStore is the subset of assembly persistence the service needs.
type AssemblyStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Assembly, error)
}

// ModalityStore is the subset of modality persistence the service needs.
type ModalityStore interface {
	Create(ctx context.Context, m *model.Modality) error
	GetByID(ctx context.Context, id uint64) (*model.Modality, error)
	ListByAssembly(ctx context.Context, assemblyID uint64) ([]*model.Modality, error)
	MaxDisplayOrder(ctx context.Context, assemblyID uint64) (int, error)
	Update(ctx context.Context, id uint64, u repository.ModalityUpdate) error
	Delete(ctx context.Context, id uint64) error
}

// RegistrationStore is the subset of registration persistence the
// service needs.
type RegistrationStore interface {
	Create(ctx context.Context, g *model.Registration) error
	GetByID(ctx context.Context, id uint64) (*model.Registration, error)
	ListByAssembly(ctx context.Context, assemblyID uint64, status model.RegistrationStatus) ([]*model.Registration, error)
	CountActiveByModality(ctx context.Context, modalityID uint64) (int, error)
	CountByModality(ctx context.Context, modalityID uint64) (int, error)
	SetStatus(ctx context.Context, id uint64, status model.RegistrationStatus, reviewedBy string, note *string) error
	Resubmit(ctx context.Context, id uint64, at time.Time, note *string) error
}

// StatsCache caches computed modality stats. The concrete Redis cache
// satisfies this; a nil cache disables caching.
type StatsCache interface {
	Get(ctx context.Context, modalityID uint64) (*model.ModalityStats, bool)
	Set(ctx context.Context, stats *model.ModalityStats)
	Invalidate(ctx context.Context, modalityID uint64)
}

// Service bundles the stores behind the registration business rules.
type Service struct {
	assemblies    AssemblyStore
	modalities    ModalityStore
	registrations RegistrationStore
	cache         StatsCache
}

// NewService constructs a Service. cache may be nil to disable stats
// caching.
func NewService(assemblies AssemblyStore, modalities ModalityStore, registrations RegistrationStore, cache StatsCache) *Service {
	if assemblies == nil || modalities == nil || registrations == nil {
		panic("nil store passed to registration.NewService")
	}
	return &Service{
		assemblies:    assemblies,
		modalities:    modalities,
		registrations: registrations,
		cache:         cache,
	}
}

// CreateModalityInput carries the fields of a new modality.
type CreateModalityInput struct {
	AssemblyID      uint64
	Name            string
	Description     *string
	PriceCents      int
	MaxParticipants *int
}

// CreateModality creates a modality under an assembly. The display
// order is assigned as max(existing orders)+1 so orders stay strictly
// increasing per assembly and are never reused after deletions. New
// modalities default to active. Names are not required to be unique.
func (s *Service) CreateModality(ctx context.Context, in CreateModalityInput) (*model.Modality, error) {
	if _, err := s.assemblies.GetByID(ctx, in.AssemblyID); err != nil {
		return nil, err
	}
	max, err := s.modalities.MaxDisplayOrder(ctx, in.AssemblyID)
	if err != nil {
		return nil, err
	}
	m := &model.Modality{
		AssemblyID:      in.AssemblyID,
		Name:            in.Name,
		Description:     in.Description,
		PriceCents:      in.PriceCents,
		MaxParticipants: in.MaxParticipants,
		IsActive:        true,
		DisplayOrder:    max + 1,
	}
	if err := s.modalities.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateModality applies a partial update: only fields set on u are
// written, absent fields keep their stored value. The stats cache is
// invalidated because capacity or active state may have changed.
func (s *Service) UpdateModality(ctx context.Context, id uint64, u repository.ModalityUpdate) error {
	if err := s.modalities.Update(ctx, id, u); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return nil
}

// DeleteModality removes a modality unless any registration references
// it, in which case repository.ErrConflict is returned. The check scans
// the registrations of the modality; there is no reference-count cache.
func (s *Service) DeleteModality(ctx context.Context, id uint64) error {
	if _, err := s.modalities.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.registrations.CountByModality(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: modality has %d registration(s)", repository.ErrConflict, n)
	}
	if err := s.modalities.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return nil
}

// GetModalityStats computes occupancy for a modality. Active
// registrations are those whose status is neither rejected nor
// cancelled. IsFull and IsNearFull are only derived when the modality
// has a participant cap; without one the modality is never full.
func (s *Service) GetModalityStats(ctx context.Context, modalityID uint64) (*model.ModalityStats, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, modalityID); ok {
			return cached, nil
		}
	}
	m, err := s.modalities.GetByID(ctx, modalityID)
	if err != nil {
		return nil, err
	}
	count, err := s.registrations.CountActiveByModality(ctx, modalityID)
	if err != nil {
		return nil, err
	}
	stats := &model.ModalityStats{
		ModalityID:      modalityID,
		ActiveCount:     count,
		MaxParticipants: m.MaxParticipants,
	}
	if m.MaxParticipants != nil {
		max := *m.MaxParticipants
		spots := max - count
		if spots < 0 {
			spots = 0
		}
		stats.AvailableSpots = &spots
		stats.IsFull = count >= max
		stats.IsNearFull = float64(count) >= nearFullRatio*float64(max)
	}
	if s.cache != nil {
		s.cache.Set(ctx, stats)
	}
	return stats, nil
}

// CanAcceptRegistration decides whether a modality can take one more
// registration. The decision is advisory: it is a live count with no
// reservation, so two concurrent approvals can both pass and jointly
// exceed the cap. Reason is for UI display only, never a machine code.
func (s *Service) CanAcceptRegistration(ctx context.Context, modalityID uint64) (*model.CapacityDecision, error) {
	m, err := s.modalities.GetByID(ctx, modalityID)
	if err != nil {
		return nil, err
	}
	stats, err := s.GetModalityStats(ctx, modalityID)
	if err != nil {
		return nil, err
	}
	d := &model.CapacityDecision{Stats: *stats}
	switch {
	case !m.IsActive:
		d.Reason = "Modality is inactive"
	case stats.IsFull:
		d.Reason = "Modality is full"
	case m.MaxParticipants == nil:
		d.CanAccept = true
		d.Reason = "No participant limit"
	default:
		d.CanAccept = true
		d.Reason = fmt.Sprintf("%d spot(s) available", *stats.AvailableSpots)
	}
	return d, nil
}

// CreateRegistrationInput carries the fields of a new registration.
type CreateRegistrationInput struct {
	AssemblyID       uint64
	ModalityID       *uint64
	ParticipantType  string
	ParticipantID    string
	Name             string
	Role             *string
	ComiteLocal      *string
	Email            *string
	Phone            *string
	City             *string
	UF               *string
	EmergencyContact *string
	DietaryNotes     *string
	RegisteredBy     string
}

// CreateRegistration creates a pending registration. The assembly must
// be active with registrations open and inside the deadline. Capacity
// is deliberately not enforced here: callers check
// CanAcceptRegistration first, and overcommitment is resolved in review.
func (s *Service) CreateRegistration(ctx context.Context, in CreateRegistrationInput) (*model.Registration, error) {
	a, err := s.assemblies.GetByID(ctx, in.AssemblyID)
	if err != nil {
		return nil, err
	}
	if !a.AcceptsRegistrations(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: assembly is not accepting registrations", repository.ErrForbidden)
	}
	if in.ModalityID != nil {
		m, err := s.modalities.GetByID(ctx, *in.ModalityID)
		if err != nil {
			return nil, err
		}
		if m.AssemblyID != in.AssemblyID {
			return nil, fmt.Errorf("%w: modality belongs to another assembly", repository.ErrConflict)
		}
	}
	g := &model.Registration{
		AssemblyID:       in.AssemblyID,
		ModalityID:       in.ModalityID,
		ParticipantType:  in.ParticipantType,
		ParticipantID:    in.ParticipantID,
		Name:             in.Name,
		Role:             in.Role,
		ComiteLocal:      in.ComiteLocal,
		Status:           model.RegistrationPending,
		Email:            in.Email,
		Phone:            in.Phone,
		City:             in.City,
		UF:               in.UF,
		EmergencyContact: in.EmergencyContact,
		DietaryNotes:     in.DietaryNotes,
		RegisteredBy:     in.RegisteredBy,
	}
	if err := s.registrations.Create(ctx, g); err != nil {
		return nil, err
	}
	s.invalidate(ctx, g.ModalityID)
	return g, nil
}

// Review applies an admin review decision. Any target status is
// accepted: no transition graph is enforced, which admin correction
// workflows depend on (e.g. re-approving a cancelled registration).
func (s *Service) Review(ctx context.Context, id uint64, status model.RegistrationStatus, reviewedBy string, note *string) (*model.Registration, error) {
	if err := s.registrations.SetStatus(ctx, id, status, reviewedBy, note); err != nil {
		return nil, err
	}
	g, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, g.ModalityID)
	return g, nil
}

// Cancel is the participant-initiated status change.
func (s *Service) Cancel(ctx context.Context, id uint64, cancelledBy string) (*model.Registration, error) {
	return s.Review(ctx, id, model.RegistrationCancelled, cancelledBy, nil)
}

// Resubmit re-enters a registration into pending after a rejection,
// stamping the resubmission timestamp and note. The status machine is
// unchanged beyond re-entering pending.
func (s *Service) Resubmit(ctx context.Context, id uint64, note *string) (*model.Registration, error) {
	if err := s.registrations.Resubmit(ctx, id, time.Now().UTC(), note); err != nil {
		return nil, err
	}
	g, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, g.ModalityID)
	return g, nil
}

func (s *Service) invalidate(ctx context.Context, modalityID *uint64) {
	if s.cache != nil && modalityID != nil {
		s.cache.Invalidate(ctx, *modalityID)
	}
}
