package registration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifmsabrazil/agadmin/internal/model"
	"github.com/ifmsabrazil/agadmin/internal/repository"
)

// In-memory fakes for the store interfaces.

type fakeAssemblies struct {
	byID map[uint64]*model.Assembly
}

func (f *fakeAssemblies) GetByID(_ context.Context, id uint64) (*model.Assembly, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrAssemblyNotFound
	}
	return a, nil
}

type fakeModalities struct {
	byID   map[uint64]*model.Modality
	nextID uint64
}

func (f *fakeModalities) Create(_ context.Context, m *model.Modality) error {
	f.nextID++
	m.ID = f.nextID
	cp := *m
	f.byID[m.ID] = &cp
	return nil
}

func (f *fakeModalities) GetByID(_ context.Context, id uint64) (*model.Modality, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrModalityNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeModalities) ListByAssembly(_ context.Context, assemblyID uint64) ([]*model.Modality, error) {
	var out []*model.Modality
	for _, m := range f.byID {
		if m.AssemblyID == assemblyID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeModalities) MaxDisplayOrder(_ context.Context, assemblyID uint64) (int, error) {
	max := 0
	for _, m := range f.byID {
		if m.AssemblyID == assemblyID && m.DisplayOrder > max {
			max = m.DisplayOrder
		}
	}
	return max, nil
}

func (f *fakeModalities) Update(_ context.Context, id uint64, u repository.ModalityUpdate) error {
	m, ok := f.byID[id]
	if !ok {
		return repository.ErrModalityNotFound
	}
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Description != nil {
		m.Description = u.Description
	}
	if u.PriceCents != nil {
		m.PriceCents = *u.PriceCents
	}
	if u.MaxParticipants != nil {
		m.MaxParticipants = u.MaxParticipants
	}
	if u.IsActive != nil {
		m.IsActive = *u.IsActive
	}
	return nil
}

func (f *fakeModalities) Delete(_ context.Context, id uint64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrModalityNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeRegistrations struct {
	byID   map[uint64]*model.Registration
	nextID uint64
}

func (f *fakeRegistrations) Create(_ context.Context, g *model.Registration) error {
	f.nextID++
	g.ID = f.nextID
	cp := *g
	f.byID[g.ID] = &cp
	return nil
}

func (f *fakeRegistrations) GetByID(_ context.Context, id uint64) (*model.Registration, error) {
	g, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrRegistrationNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeRegistrations) ListByAssembly(_ context.Context, assemblyID uint64, status model.RegistrationStatus) ([]*model.Registration, error) {
	var out []*model.Registration
	for _, g := range f.byID {
		if g.AssemblyID != assemblyID {
			continue
		}
		if status != "" && g.Status != status {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeRegistrations) CountActiveByModality(_ context.Context, modalityID uint64) (int, error) {
	n := 0
	for _, g := range f.byID {
		if g.ModalityID != nil && *g.ModalityID == modalityID && g.Status.CountsTowardCapacity() {
			n++
		}
	}
	return n, nil
}

func (f *fakeRegistrations) CountByModality(_ context.Context, modalityID uint64) (int, error) {
	n := 0
	for _, g := range f.byID {
		if g.ModalityID != nil && *g.ModalityID == modalityID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRegistrations) SetStatus(_ context.Context, id uint64, status model.RegistrationStatus, reviewedBy string, note *string) error {
	g, ok := f.byID[id]
	if !ok {
		return repository.ErrRegistrationNotFound
	}
	now := time.Now().UTC()
	g.Status = status
	g.ReviewedBy = &reviewedBy
	g.ReviewedAt = &now
	g.ReviewNote = note
	return nil
}

func (f *fakeRegistrations) Resubmit(_ context.Context, id uint64, at time.Time, note *string) error {
	g, ok := f.byID[id]
	if !ok {
		return repository.ErrRegistrationNotFound
	}
	g.Status = model.RegistrationPending
	g.ResubmittedAt = &at
	g.ResubmissionNote = note
	return nil
}

func setup(t *testing.T) (*Service, *fakeAssemblies, *fakeModalities, *fakeRegistrations) {
	t.Helper()
	assemblies := &fakeAssemblies{byID: map[uint64]*model.Assembly{}}
	modalities := &fakeModalities{byID: map[uint64]*model.Modality{}}
	registrations := &fakeRegistrations{byID: map[uint64]*model.Registration{}}
	svc := NewService(assemblies, modalities, registrations, nil)
	return svc, assemblies, modalities, registrations
}

func openAssembly(id uint64) *model.Assembly {
	return &model.Assembly{
		ID:               id,
		Name:             "AG 2025.2",
		Kind:             model.AssemblyKindAG,
		Status:           model.AssemblyActive,
		RegistrationOpen: true,
	}
}

func intp(n int) *int       { return &n }
func u64p(n uint64) *uint64 { return &n }
func strp(s string) *string { return &s }

func TestCreateModalityDisplayOrderNeverReused(t *testing.T) {
	svc, assemblies, _, _ := setup(t)
	assemblies.byID[1] = openAssembly(1)
	ctx := context.Background()

	first, err := svc.CreateModality(ctx, CreateModalityInput{AssemblyID: 1, Name: "Participante"})
	require.NoError(t, err)
	second, err := svc.CreateModality(ctx, CreateModalityInput{AssemblyID: 1, Name: "Observador"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.DisplayOrder)
	assert.Equal(t, 2, second.DisplayOrder)
	assert.True(t, second.IsActive)

	require.NoError(t, svc.DeleteModality(ctx, second.ID))
	third, err := svc.CreateModality(ctx, CreateModalityInput{AssemblyID: 1, Name: "Convidado"})
	require.NoError(t, err)
	// Orders are monotonic: the deleted slot is not reclaimed.
	assert.Equal(t, 3, third.DisplayOrder)
}

func TestCreateModalityUnknownAssembly(t *testing.T) {
	svc, _, _, _ := setup(t)
	_, err := svc.CreateModality(context.Background(), CreateModalityInput{AssemblyID: 99, Name: "Participante"})
	assert.ErrorIs(t, err, repository.ErrAssemblyNotFound)
}

func TestDeleteModalityBlockedByAnyRegistration(t *testing.T) {
	svc, assemblies, _, registrations := setup(t)
	assemblies.byID[1] = openAssembly(1)
	ctx := context.Background()

	m, err := svc.CreateModality(ctx, CreateModalityInput{AssemblyID: 1, Name: "Participante"})
	require.NoError(t, err)

	// Even a cancelled registration pins the modality.
	require.NoError(t, registrations.Create(ctx, &model.Registration{
		AssemblyID: 1, ModalityID: u64p(m.ID), Status: model.RegistrationCancelled,
	}))
	err = svc.DeleteModality(ctx, m.ID)
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = svc.GetModalityStats(ctx, m.ID)
	require.NoError(t, err)
}

func TestModalityStatsAndCapacity(t *testing.T) {
	svc, assemblies, _, registrations := setup(t)
	assemblies.byID[1] = openAssembly(1)
	ctx := context.Background()

	m, err := svc.CreateModality(ctx, CreateModalityInput{
		AssemblyID: 1, Name: "Participante", MaxParticipants: intp(2),
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, registrations.Create(ctx, &model.Registration{
			AssemblyID: 1, ModalityID: u64p(m.ID), Status: model.RegistrationPending,
		}))
	}

	stats, err := svc.GetModalityStats(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveCount)
	require.NotNil(t, stats.AvailableSpots)
	assert.Equal(t, 0, *stats.AvailableSpots)
	assert.True(t, stats.IsFull)
	assert.True(t, stats.IsNearFull)

	d, err := svc.CanAcceptRegistration(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, d.CanAccept)
	assert.Equal(t, "Modality is full", d.Reason)

	// Rejecting one registration frees its spot immediately.
	_, err = svc.Review(ctx, 1, model.RegistrationRejected, "admin-1", nil)
	require.NoError(t, err)

	d, err = svc.CanAcceptRegistration(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, d.CanAccept)
	assert.Equal(t, "1 spot(s) available", d.Reason)
	require.NotNil(t, d.Stats.AvailableSpots)
	assert.Equal(t, 1, *d.Stats.AvailableSpots)
	assert.False(t, d.Stats.IsFull)
}

func TestCanAcceptUncappedAndInactive(t *testing.T) {
	svc, assemblies, modalities, _ := setup(t)
	assemblies.byID[1] = openAssembly(1)
	ctx := context.Background()

	m, err := svc.CreateModality(ctx, CreateModalityInput{AssemblyID: 1, Name: "Online"})
	require.NoError(t, err)

	d, err := svc.CanAcceptRegistration(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, d.CanAccept)
	assert.Equal(t, "No participant limit", d.Reason)
	assert.False(t, d.Stats.IsFull)

	inactive := false
	require.NoError(t, modalities.Update(ctx, m.ID, repository.ModalityUpdate{IsActive: &inactive}))
	d, err = svc.CanAcceptRegistration(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, d.CanAccept)
	assert.Equal(t, "Modality is inactive", d.Reason)
}

func TestUpdateModalityPartialKeepsOtherFields(t *testing.T) {
	svc, assemblies, modalities, _ := setup(t)
	assemblies.byID[1] = openAssembly(1)
	ctx := context.Background()

	m, err := svc.CreateModality(ctx, CreateModalityInput{
		AssemblyID: 1, Name: "Participante", Description: strp("Presencial"),
		PriceCents: 15000, MaxParticipants: intp(200),
	})
	require.NoError(t, err)

	inactive := false
	require.NoError(t, svc.UpdateModality(ctx, m.ID, repository.ModalityUpdate{IsActive: &inactive}))

	got, err := modalities.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	// Fields the update left unset keep their stored values.
	assert.Equal(t, "Participante", got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, "Presencial", *got.Description)
	assert.Equal(t, 15000, got.PriceCents)
	require.NotNil(t, got.MaxParticipants)
	assert.Equal(t, 200, *got.MaxParticipants)
	assert.Equal(t, m.DisplayOrder, got.DisplayOrder)
}

func TestCreateRegistrationWindow(t *testing.T) {
	svc, assemblies, _, _ := setup(t)
	ctx := context.Background()

	closed := openAssembly(1)
	closed.RegistrationOpen = false
	assemblies.byID[1] = closed

	_, err := svc.CreateRegistration(ctx, CreateRegistrationInput{
		AssemblyID: 1, ParticipantType: "individual", ParticipantID: "u-1", Name: "Ana", RegisteredBy: "u-1",
	})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	expired := openAssembly(2)
	deadline := time.Now().UTC().Add(-time.Hour)
	expired.RegistrationDeadline = &deadline
	assemblies.byID[2] = expired

	_, err = svc.CreateRegistration(ctx, CreateRegistrationInput{
		AssemblyID: 2, ParticipantType: "individual", ParticipantID: "u-1", Name: "Ana", RegisteredBy: "u-1",
	})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestCreateRegistrationChecksModalityOwnership(t *testing.T) {
	svc, assemblies, _, _ := setup(t)
	assemblies.byID[1] = openAssembly(1)
	assemblies.byID[2] = openAssembly(2)
	ctx := context.Background()

	other, err := svc.CreateModality(ctx, CreateModalityInput{AssemblyID: 2, Name: "Participante"})
	require.NoError(t, err)

	_, err = svc.CreateRegistration(ctx, CreateRegistrationInput{
		AssemblyID: 1, ModalityID: u64p(other.ID),
		ParticipantType: "individual", ParticipantID: "u-1", Name: "Ana", RegisteredBy: "u-1",
	})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestCreateRegistrationStartsPending(t *testing.T) {
	svc, assemblies, _, _ := setup(t)
	assemblies.byID[1] = openAssembly(1)

	g, err := svc.CreateRegistration(context.Background(), CreateRegistrationInput{
		AssemblyID: 1, ParticipantType: "individual", ParticipantID: "u-1", Name: "Ana", RegisteredBy: "u-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationPending, g.Status)
	assert.NotZero(t, g.ID)
}

func TestReviewAllowsAnyTransition(t *testing.T) {
	svc, assemblies, _, _ := setup(t)
	assemblies.byID[1] = openAssembly(1)
	ctx := context.Background()

	g, err := svc.CreateRegistration(ctx, CreateRegistrationInput{
		AssemblyID: 1, ParticipantType: "individual", ParticipantID: "u-1", Name: "Ana", RegisteredBy: "u-1",
	})
	require.NoError(t, err)

	g, err = svc.Cancel(ctx, g.ID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationCancelled, g.Status)

	// Re-approving a cancelled registration is a supported correction.
	g, err = svc.Review(ctx, g.ID, model.RegistrationApproved, "admin-1", strp("verified payment"))
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationApproved, g.Status)
	require.NotNil(t, g.ReviewedBy)
	assert.Equal(t, "admin-1", *g.ReviewedBy)
}

func TestResubmitReentersPending(t *testing.T) {
	svc, assemblies, _, _ := setup(t)
	assemblies.byID[1] = openAssembly(1)
	ctx := context.Background()

	g, err := svc.CreateRegistration(ctx, CreateRegistrationInput{
		AssemblyID: 1, ParticipantType: "individual", ParticipantID: "u-1", Name: "Ana", RegisteredBy: "u-1",
	})
	require.NoError(t, err)
	_, err = svc.Review(ctx, g.ID, model.RegistrationRejected, "admin-1", strp("missing documents"))
	require.NoError(t, err)

	g, err = svc.Resubmit(ctx, g.ID, strp("documents attached"))
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationPending, g.Status)
	require.NotNil(t, g.ResubmissionNote)
	assert.Equal(t, "documents attached", *g.ResubmissionNote)
	assert.NotNil(t, g.ResubmittedAt)
}

func TestReviewUnknownRegistration(t *testing.T) {
	svc, _, _, _ := setup(t)
	_, err := svc.Review(context.Background(), 42, model.RegistrationApproved, "admin-1", nil)
	assert.True(t, errors.Is(err, repository.ErrRegistrationNotFound))
}
