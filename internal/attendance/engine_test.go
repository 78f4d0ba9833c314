package attendance

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifmsabrazil/agadmin/internal/model"
	"github.com/ifmsabrazil/agadmin/internal/repository"
)

// In-memory fakes for the engine's store interfaces.

type fakeSessions struct {
	byID   map[uint64]*model.Session
	nextID uint64
}

func (f *fakeSessions) Create(_ context.Context, s *model.Session) error {
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.byID[s.ID] = &cp
	return nil
}

func (f *fakeSessions) GetByID(_ context.Context, id uint64) (*model.Session, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) SetStatus(_ context.Context, id uint64, status model.SessionStatus, by string) error {
	s, ok := f.byID[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.Status = status
	if status == model.SessionArchived {
		now := time.Now().UTC()
		s.ArchivedAt = &now
		s.ArchivedBy = &by
	} else {
		s.ArchivedAt = nil
		s.ArchivedBy = nil
	}
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, id uint64) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeAttendance struct {
	byID   map[uint64]*model.AttendanceRecord
	nextID uint64
}

func (f *fakeAttendance) Create(_ context.Context, a *model.AttendanceRecord) error {
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAttendance) CreateBulk(ctx context.Context, records []*model.AttendanceRecord) error {
	for _, rec := range records {
		if err := f.Create(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAttendance) FindBySessionParticipantType(_ context.Context, sessionID uint64, participantID, participantType string) (*model.AttendanceRecord, error) {
	for _, rec := range f.byID {
		if rec.SessionID == sessionID && rec.ParticipantID == participantID && rec.ParticipantType == participantType {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, repository.ErrAttendanceNotFound
}

func (f *fakeAttendance) FindBySessionParticipant(_ context.Context, sessionID uint64, participantID string) (*model.AttendanceRecord, error) {
	for _, rec := range f.byID {
		if rec.SessionID == sessionID && rec.ParticipantID == participantID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, repository.ErrAttendanceNotFound
}

func (f *fakeAttendance) UpdateStatus(_ context.Context, id uint64, status model.AttendanceStatus, updatedBy string, at time.Time) error {
	rec, ok := f.byID[id]
	if !ok {
		return repository.ErrAttendanceNotFound
	}
	rec.Status = status
	rec.LastUpdated = &at
	rec.LastUpdatedBy = &updatedBy
	return nil
}

func (f *fakeAttendance) ListBySession(_ context.Context, sessionID uint64) ([]*model.AttendanceRecord, error) {
	var out []*model.AttendanceRecord
	for _, rec := range f.byID {
		if rec.SessionID == sessionID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAttendance) ListByAssemblyAndParticipant(_ context.Context, assemblyID uint64, participantID, participantType string) ([]*model.AttendanceRecord, error) {
	var out []*model.AttendanceRecord
	for _, rec := range f.byID {
		if rec.AssemblyID == nil || *rec.AssemblyID != assemblyID || rec.ParticipantID != participantID {
			continue
		}
		if participantType != "" && rec.ParticipantType != participantType {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeAttendance) DeleteBySession(_ context.Context, sessionID uint64) error {
	for id, rec := range f.byID {
		if rec.SessionID == sessionID {
			delete(f.byID, id)
		}
	}
	return nil
}

type fakeRegs struct {
	byID map[uint64]*model.Registration
}

func (f *fakeRegs) GetByID(_ context.Context, id uint64) (*model.Registration, error) {
	g, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrRegistrationNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeRegs) ListByAssembly(_ context.Context, assemblyID uint64, status model.RegistrationStatus) ([]*model.Registration, error) {
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

func (f *fakeRegs) ListByParticipant(_ context.Context, assemblyID uint64, participantID string) ([]*model.Registration, error) {
	var out []*model.Registration
	for _, g := range f.byID {
		if g.AssemblyID == assemblyID && g.ParticipantID == participantID {
			out = append(out, g)
		}
	}
	return out, nil
}

type fakeParticipants struct {
	entries []*model.Participant
}

func (f *fakeParticipants) ListByAssemblyAndTypes(_ context.Context, assemblyID uint64, types []model.ParticipantType) ([]*model.Participant, error) {
	want := make(map[model.ParticipantType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []*model.Participant
	for _, p := range f.entries {
		if p.AssemblyID == assemblyID && want[p.Type] {
			out = append(out, p)
		}
	}
	return out, nil
}

func setup(t *testing.T) (*Engine, *fakeSessions, *fakeAttendance, *fakeRegs, *fakeParticipants) {
	t.Helper()
	sessions := &fakeSessions{byID: map[uint64]*model.Session{}}
	att := &fakeAttendance{byID: map[uint64]*model.AttendanceRecord{}}
	regs := &fakeRegs{byID: map[uint64]*model.Registration{}}
	roster := &fakeParticipants{}
	return NewEngine(sessions, att, regs, roster), sessions, att, regs, roster
}

func u64p(n uint64) *uint64 { return &n }
func strp(s string) *string { return &s }

func TestCreateSessionPlenariaSeedsRoster(t *testing.T) {
	engine, _, att, _, roster := setup(t)
	ctx := context.Background()

	roster.entries = []*model.Participant{
		{AssemblyID: 1, ParticipantID: "eb-1", Name: "Presidente", Type: model.ParticipantEB, Role: strp("NP")},
		{AssemblyID: 1, ParticipantID: "cr-1", Name: "CR Sudeste", Type: model.ParticipantCR},
		{AssemblyID: 1, ParticipantID: "ifmsa-sp", Name: "IFMSA SP", Type: model.ParticipantComite, Status: strp(model.StandingPleno)},
	}

	s, err := engine.CreateSession(ctx, CreateSessionInput{
		AssemblyID: u64p(1), Name: "Plenária 1", Kind: model.SessionPlenaria, CreatedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, s.Status)

	rows, err := att.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	byPID := map[string]*model.AttendanceRecord{}
	for _, rec := range rows {
		assert.Equal(t, model.AttendanceNotCounting, rec.Status)
		require.NotNil(t, rec.AssemblyID)
		assert.Equal(t, uint64(1), *rec.AssemblyID)
		byPID[rec.ParticipantID] = rec
	}

	comite := byPID["ifmsa-sp"]
	require.NotNil(t, comite)
	assert.Equal(t, model.AttendeeComite, comite.ParticipantType)
	// One row stands in for the whole committee.
	require.NotNil(t, comite.ComiteLocal)
	assert.Equal(t, "ifmsa-sp", *comite.ComiteLocal)
	require.NotNil(t, comite.ParticipantStatus)
	assert.Equal(t, model.StandingPleno, *comite.ParticipantStatus)
}

func TestCreateSessionSessaoSeedsApprovedOnly(t *testing.T) {
	engine, _, att, regs, _ := setup(t)
	ctx := context.Background()

	regs.byID = map[uint64]*model.Registration{
		10: {ID: 10, AssemblyID: 1, ParticipantID: "u-1", Name: "Ana", Status: model.RegistrationApproved},
		11: {ID: 11, AssemblyID: 1, ParticipantID: "u-2", Name: "Bia", Status: model.RegistrationPendingReview},
		12: {ID: 12, AssemblyID: 1, ParticipantID: "u-3", Name: "Carla", Status: model.RegistrationPending},
	}

	s, err := engine.CreateSession(ctx, CreateSessionInput{
		AssemblyID: u64p(1), Name: "Sessão de Abertura", Kind: model.SessionSessao, CreatedBy: "admin-1",
	})
	require.NoError(t, err)

	rows, err := att.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "10", rows[0].ParticipantID)
	assert.Equal(t, model.AttendeeIndividual, rows[0].ParticipantType)
	assert.Equal(t, model.AttendanceNotCounting, rows[0].Status)
}

func TestCreateSessionAvulsaStartsEmpty(t *testing.T) {
	engine, _, att, _, _ := setup(t)
	ctx := context.Background()

	s, err := engine.CreateSession(ctx, CreateSessionInput{
		Name: "Treinamento TL", Kind: model.SessionAvulsa, CreatedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Nil(t, s.AssemblyID)

	rows, err := att.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkAttendanceUpsertsByFullKey(t *testing.T) {
	engine, _, att, _, _ := setup(t)
	ctx := context.Background()

	s, err := engine.CreateSession(ctx, CreateSessionInput{
		AssemblyID: u64p(1), Name: "Plenária 1", Kind: model.SessionPlenaria, CreatedBy: "admin-1",
	})
	require.NoError(t, err)

	id1, err := engine.MarkAttendance(ctx, MarkInput{
		SessionID: s.ID, ParticipantID: "ifmsa-sp", ParticipantType: model.AttendeeComite,
		Name: "IFMSA SP", Status: model.AttendancePresent, MarkedBy: "admin-1",
	})
	require.NoError(t, err)

	// Re-marking the same participant patches the row in place.
	id2, err := engine.MarkAttendance(ctx, MarkInput{
		SessionID: s.ID, ParticipantID: "ifmsa-sp", ParticipantType: model.AttendeeComite,
		Name: "IFMSA SP", Status: model.AttendanceExcluded, MarkedBy: "admin-2",
	})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	rows, err := att.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.AttendanceExcluded, rows[0].Status)
	require.NotNil(t, rows[0].LastUpdatedBy)
	assert.Equal(t, "admin-2", *rows[0].LastUpdatedBy)
}

func TestMarkAttendanceRejectsUnknownStatus(t *testing.T) {
	engine, _, _, _, _ := setup(t)
	_, err := engine.MarkAttendance(context.Background(), MarkInput{
		SessionID: 1, ParticipantID: "x", ParticipantType: model.AttendeeUser,
		Name: "X", Status: "late", MarkedBy: "admin-1",
	})
	assert.Error(t, err)
}

func TestMarkAttendanceUnknownSession(t *testing.T) {
	engine, _, _, _, _ := setup(t)
	_, err := engine.MarkAttendance(context.Background(), MarkInput{
		SessionID: 99, ParticipantID: "x", ParticipantType: model.AttendeeUser,
		Name: "X", Status: model.AttendancePresent, MarkedBy: "admin-1",
	})
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestSelfCheckinSoftFailures(t *testing.T) {
	engine, _, _, _, _ := setup(t)
	ctx := context.Background()

	res, err := engine.MarkSelfAttendance(ctx, 99, "u-1", "Ana", model.AttendeeUser)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "session not found", res.Error)

	s, err := engine.CreateSession(ctx, CreateSessionInput{
		Name: "Avulsa", Kind: model.SessionAvulsa, CreatedBy: "admin-1",
	})
	require.NoError(t, err)
	require.NoError(t, engine.ArchiveSession(ctx, s.ID, "admin-1"))

	res, err = engine.MarkSelfAttendance(ctx, s.ID, "u-1", "Ana", model.AttendeeUser)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "session is not active", res.Error)
}

func TestSelfCheckinIdempotent(t *testing.T) {
	engine, _, att, _, _ := setup(t)
	ctx := context.Background()

	s, err := engine.CreateSession(ctx, CreateSessionInput{
		Name: "Avulsa", Kind: model.SessionAvulsa, CreatedBy: "admin-1",
	})
	require.NoError(t, err)

	res, err := engine.MarkSelfAttendance(ctx, s.ID, "u-1", "Ana", model.AttendeeUser)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = engine.MarkSelfAttendance(ctx, s.ID, "u-1", "Ana", model.AttendeeUser)
	require.NoError(t, err)
	assert.True(t, res.Success)

	rows, err := att.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.AttendancePresent, rows[0].Status)
	// The repeat check-in did not touch the audit fields.
	assert.Nil(t, rows[0].LastUpdated)
}

// racingAttendance simulates losing a first-check-in race: the initial
// Create finds that a concurrent caller already inserted the row and
// fails the way the unique key would.
type racingAttendance struct {
	*fakeAttendance
	raced bool
}

func (f *racingAttendance) Create(ctx context.Context, a *model.AttendanceRecord) error {
	if !f.raced {
		f.raced = true
		winner := *a
		if err := f.fakeAttendance.Create(ctx, &winner); err != nil {
			return err
		}
		return errors.New("Error 1062 (23000): Duplicate entry")
	}
	return f.fakeAttendance.Create(ctx, a)
}

func TestSelfCheckinLosingInsertRaceStillSucceeds(t *testing.T) {
	sessions := &fakeSessions{byID: map[uint64]*model.Session{}}
	att := &racingAttendance{fakeAttendance: &fakeAttendance{byID: map[uint64]*model.AttendanceRecord{}}}
	engine := NewEngine(sessions, att, &fakeRegs{byID: map[uint64]*model.Registration{}}, &fakeParticipants{})
	ctx := context.Background()

	s := &model.Session{Name: "Avulsa", Kind: model.SessionAvulsa, Status: model.SessionActive}
	require.NoError(t, sessions.Create(ctx, s))

	res, err := engine.MarkSelfAttendance(ctx, s.ID, "u-1", "Ana", model.AttendeeUser)
	require.NoError(t, err)
	assert.True(t, res.Success)

	rows, err := att.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.AttendancePresent, rows[0].Status)
}

func TestSelfCheckinMatchesRosterRowByParticipantOnly(t *testing.T) {
	engine, _, att, _, roster := setup(t)
	ctx := context.Background()

	roster.entries = []*model.Participant{
		{AssemblyID: 1, ParticipantID: "eb-1", Name: "Presidente", Type: model.ParticipantEB},
	}
	s, err := engine.CreateSession(ctx, CreateSessionInput{
		AssemblyID: u64p(1), Name: "Plenária 1", Kind: model.SessionPlenaria, CreatedBy: "admin-1",
	})
	require.NoError(t, err)

	// The seeded eb row is found even though the check-in claims type
	// "user": the self flow keys by participant id alone.
	res, err := engine.MarkSelfAttendance(ctx, s.ID, "eb-1", "Presidente", model.AttendeeUser)
	require.NoError(t, err)
	assert.True(t, res.Success)

	rows, err := att.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.AttendeeEB, rows[0].ParticipantType)
	assert.Equal(t, model.AttendancePresent, rows[0].Status)
}

func TestUserStatsWalkInOnly(t *testing.T) {
	engine, sessions, att, _, _ := setup(t)
	ctx := context.Background()

	statuses := []model.AttendanceStatus{
		model.AttendancePresent, model.AttendancePresent,
		model.AttendanceAbsent, model.AttendanceExcluded, model.AttendanceNotCounting,
	}
	for _, st := range statuses {
		s := &model.Session{AssemblyID: u64p(1), Name: "S", Kind: model.SessionPlenaria, Status: model.SessionActive}
		require.NoError(t, sessions.Create(ctx, s))
		require.NoError(t, att.Create(ctx, &model.AttendanceRecord{
			SessionID: s.ID, AssemblyID: u64p(1), ParticipantID: "u-1",
			ParticipantType: model.AttendeeUser, Name: "Ana", Status: st,
		}))
	}

	stats, err := engine.GetUserAttendanceStats(ctx, 1, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalSessions)
	assert.Equal(t, 2, stats.AttendedSessions)
	assert.Equal(t, 40.0, stats.AttendancePercentage)
}

func TestUserStatsUnionsIdentitiesWithoutDoubleCounting(t *testing.T) {
	engine, sessions, att, regs, _ := setup(t)
	ctx := context.Background()

	regs.byID = map[uint64]*model.Registration{
		10: {ID: 10, AssemblyID: 1, ParticipantID: "u-1", Name: "Ana", Status: model.RegistrationApproved},
	}
	s := &model.Session{AssemblyID: u64p(1), Name: "S1", Kind: model.SessionSessao, Status: model.SessionActive}
	require.NoError(t, sessions.Create(ctx, s))

	// Same session holds one row under the registration identity and one
	// under the walk-in identity.
	require.NoError(t, att.Create(ctx, &model.AttendanceRecord{
		SessionID: s.ID, AssemblyID: u64p(1), ParticipantID: strconv.FormatUint(10, 10),
		ParticipantType: model.AttendeeIndividual, Name: "Ana", Status: model.AttendanceAbsent,
	}))
	require.NoError(t, att.Create(ctx, &model.AttendanceRecord{
		SessionID: s.ID, AssemblyID: u64p(1), ParticipantID: "u-1",
		ParticipantType: model.AttendeeUser, Name: "Ana", Status: model.AttendancePresent,
	}))

	stats, err := engine.GetUserAttendanceStats(ctx, 1, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 1, stats.AttendedSessions)
	assert.Equal(t, 100.0, stats.AttendancePercentage)
}

func TestUserStatsEmpty(t *testing.T) {
	engine, _, _, _, _ := setup(t)
	stats, err := engine.GetUserAttendanceStats(context.Background(), 1, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSessions)
	assert.Equal(t, 0.0, stats.AttendancePercentage)
}

func TestDeleteSessionRemovesAttendance(t *testing.T) {
	engine, sessions, att, _, roster := setup(t)
	ctx := context.Background()

	roster.entries = []*model.Participant{
		{AssemblyID: 1, ParticipantID: "eb-1", Name: "Presidente", Type: model.ParticipantEB},
	}
	s, err := engine.CreateSession(ctx, CreateSessionInput{
		AssemblyID: u64p(1), Name: "Plenária 1", Kind: model.SessionPlenaria, CreatedBy: "admin-1",
	})
	require.NoError(t, err)

	require.NoError(t, engine.DeleteSession(ctx, s.ID))
	_, err = sessions.GetByID(ctx, s.ID)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	rows, err := att.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestArchiveAndReopenSession(t *testing.T) {
	engine, sessions, _, _, _ := setup(t)
	ctx := context.Background()

	s, err := engine.CreateSession(ctx, CreateSessionInput{
		Name: "Avulsa", Kind: model.SessionAvulsa, CreatedBy: "admin-1",
	})
	require.NoError(t, err)

	require.NoError(t, engine.ArchiveSession(ctx, s.ID, "admin-2"))
	got, err := sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionArchived, got.Status)
	require.NotNil(t, got.ArchivedBy)
	assert.Equal(t, "admin-2", *got.ArchivedBy)

	require.NoError(t, engine.ReopenSession(ctx, s.ID, "admin-2"))
	got, err = sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, got.Status)
	assert.Nil(t, got.ArchivedAt)
}

func TestEnrichedSessionJoinsRegistrations(t *testing.T) {
	engine, _, att, regs, _ := setup(t)
	ctx := context.Background()

	regs.byID = map[uint64]*model.Registration{
		10: {ID: 10, AssemblyID: 1, ParticipantID: "u-1", Name: "Ana", Status: model.RegistrationApproved, Email: strp("ana@example.org")},
	}
	s, err := engine.CreateSession(ctx, CreateSessionInput{
		AssemblyID: u64p(1), Name: "Sessão", Kind: model.SessionSessao, CreatedBy: "admin-1",
	})
	require.NoError(t, err)

	// A row whose registration no longer resolves must degrade, not fail.
	require.NoError(t, att.Create(ctx, &model.AttendanceRecord{
		SessionID: s.ID, AssemblyID: u64p(1), ParticipantID: "999",
		ParticipantType: model.AttendeeIndividual, Name: "Ghost", Status: model.AttendanceNotCounting,
	}))

	out, err := engine.GetSessionWithEnrichedData(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, out.Records, 2)

	var joined, degraded int
	for _, er := range out.Records {
		if er.Registration != nil {
			joined++
			assert.Equal(t, "Ana", er.Registration.Name)
		} else {
			degraded++
		}
	}
	assert.Equal(t, 1, joined)
	assert.Equal(t, 1, degraded)
}

func TestSessionStatsCounts(t *testing.T) {
	engine, sessions, att, _, _ := setup(t)
	ctx := context.Background()

	s := &model.Session{AssemblyID: u64p(1), Name: "S", Kind: model.SessionPlenaria, Status: model.SessionActive}
	require.NoError(t, sessions.Create(ctx, s))
	for i, st := range []model.AttendanceStatus{
		model.AttendancePresent, model.AttendancePresent, model.AttendanceAbsent,
		model.AttendanceExcluded, model.AttendanceNotCounting,
	} {
		require.NoError(t, att.Create(ctx, &model.AttendanceRecord{
			SessionID: s.ID, AssemblyID: u64p(1), ParticipantID: "p-" + strconv.Itoa(i),
			ParticipantType: model.AttendeeUser, Name: "P", Status: st,
		}))
	}

	stats, err := engine.GetSessionStats(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Present)
	assert.Equal(t, 1, stats.Absent)
	assert.Equal(t, 1, stats.Excluded)
	assert.Equal(t, 1, stats.NotCounting)
}
