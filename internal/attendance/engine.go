// Package attendance implements the session and attendance engine: it
// creates sessions, seeds their rosters, records four-state attendance
// marks, aggregates per-user statistics and enriches session reads for
// reporting. The engine depends only on store interfaces, so the
// concrete MySQL repositories can be substituted by in-memory fakes in
// tests or by another backend entirely.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ifmsabrazil/agadmin/internal/model"
	"github.com/ifmsabrazil/agadmin/internal/repository"
)

// SessionStore is the subset of session persistence the engine needs.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id uint64) (*model.Session, error)
	SetStatus(ctx context.Context, id uint64, status model.SessionStatus, by string) error
	Delete(ctx context.Context, id uint64) error
}

// AttendanceStore is the subset of attendance persistence the engine
// needs. FindBySessionParticipantType is the strict upsert key used by
// operator marks; FindBySessionParticipant is the looser key used by
// self check-in.
type AttendanceStore interface {
	Create(ctx context.Context, a *model.AttendanceRecord) error
	CreateBulk(ctx context.Context, records []*model.AttendanceRecord) error
	FindBySessionParticipantType(ctx context.Context, sessionID uint64, participantID, participantType string) (*model.AttendanceRecord, error)
	FindBySessionParticipant(ctx context.Context, sessionID uint64, participantID string) (*model.AttendanceRecord, error)
	UpdateStatus(ctx context.Context, id uint64, status model.AttendanceStatus, updatedBy string, at time.Time) error
	ListBySession(ctx context.Context, sessionID uint64) ([]*model.AttendanceRecord, error)
	ListByAssemblyAndParticipant(ctx context.Context, assemblyID uint64, participantID, participantType string) ([]*model.AttendanceRecord, error)
	DeleteBySession(ctx context.Context, sessionID uint64) error
}

// RegistrationStore is the subset of registration persistence the
// engine needs for sessão seeding, stats and enrichment.
type RegistrationStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Registration, error)
	ListByAssembly(ctx context.Context, assemblyID uint64, status model.RegistrationStatus) ([]*model.Registration, error)
	ListByParticipant(ctx context.Context, assemblyID uint64, participantID string) ([]*model.Registration, error)
}

// ParticipantStore is the subset of roster persistence the engine needs
// for plenária seeding.
type ParticipantStore interface {
	ListByAssemblyAndTypes(ctx context.Context, assemblyID uint64, types []model.ParticipantType) ([]*model.Participant, error)
}

// Engine coordinates sessions and their attendance rosters.
type Engine struct {
	sessions      SessionStore
	attendance    AttendanceStore
	registrations RegistrationStore
	participants  ParticipantStore
}

// NewEngine constructs an Engine. All stores must be non-nil.
func NewEngine(sessions SessionStore, attendance AttendanceStore, registrations RegistrationStore, participants ParticipantStore) *Engine {
	if sessions == nil || attendance == nil || registrations == nil || participants == nil {
		panic("nil store passed to attendance.NewEngine")
	}
	return &Engine{
		sessions:      sessions,
		attendance:    attendance,
		registrations: registrations,
		participants:  participants,
	}
}

// CreateSessionInput carries the fields of a new session. AssemblyID is
// nil for standalone (avulsa) sessions.
type CreateSessionInput struct {
	AssemblyID *uint64
	Name       string
	Kind       model.SessionKind
	CreatedBy  string
}

// CreateSession creates an active session and seeds its attendance
// roster according to the kind:
//
//   - avulsa, or any kind without an assembly: no seeding; rows appear
//     lazily as participants check in or operators mark them.
//   - plenaria: one row per eb/cr/comite roster entry. Committee rows
//     are tagged participant_type "comite" with comite_local set to the
//     committee's own id: a single row represents the whole committee's
//     vote, the group semantics ride on the tag.
//   - sessao: one row per approved registration (approved exactly;
//     pending_review and the rest are excluded), participant_type
//     "individual", with the registration id as participant id.
//
// Every seeded row starts in the not-counting state: on the roster but
// not yet part of the quorum calculation.
func (e *Engine) CreateSession(ctx context.Context, in CreateSessionInput) (*model.Session, error) {
	s := &model.Session{
		AssemblyID: in.AssemblyID,
		Name:       in.Name,
		Kind:       in.Kind,
		Status:     model.SessionActive,
		CreatedBy:  in.CreatedBy,
	}
	if err := e.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	if in.AssemblyID == nil || in.Kind == model.SessionAvulsa {
		return s, nil
	}

	now := time.Now().UTC()
	var seeds []*model.AttendanceRecord
	switch in.Kind {
	case model.SessionPlenaria:
		roster, err := e.participants.ListByAssemblyAndTypes(ctx, *in.AssemblyID,
			[]model.ParticipantType{model.ParticipantEB, model.ParticipantCR, model.ParticipantComite})
		if err != nil {
			return nil, err
		}
		for _, p := range roster {
			rec := &model.AttendanceRecord{
				SessionID:         s.ID,
				AssemblyID:        in.AssemblyID,
				ParticipantID:     p.ParticipantID,
				ParticipantType:   string(p.Type),
				Name:              p.Name,
				Role:              p.Role,
				ComiteLocal:       p.ComiteLocal,
				ParticipantStatus: p.Status,
				Status:            model.AttendanceNotCounting,
				MarkedAt:          now,
				MarkedBy:          in.CreatedBy,
			}
			if p.Type == model.ParticipantComite {
				// The committee is its own grouping unit.
				local := p.ParticipantID
				rec.ComiteLocal = &local
			}
			seeds = append(seeds, rec)
		}
	case model.SessionSessao:
		regs, err := e.registrations.ListByAssembly(ctx, *in.AssemblyID, model.RegistrationApproved)
		if err != nil {
			return nil, err
		}
		for _, g := range regs {
			seeds = append(seeds, &model.AttendanceRecord{
				SessionID:       s.ID,
				AssemblyID:      in.AssemblyID,
				ParticipantID:   strconv.FormatUint(g.ID, 10),
				ParticipantType: model.AttendeeIndividual,
				Name:            g.Name,
				Role:            g.Role,
				ComiteLocal:     g.ComiteLocal,
				Status:          model.AttendanceNotCounting,
				MarkedAt:        now,
				MarkedBy:        in.CreatedBy,
			})
		}
	}
	if err := e.attendance.CreateBulk(ctx, seeds); err != nil {
		return nil, err
	}
	return s, nil
}

// MarkInput carries one operator attendance mark.
type MarkInput struct {
	SessionID       uint64
	ParticipantID   string
	ParticipantType string
	Name            string
	Role            *string
	ComiteLocal     *string
	Status          model.AttendanceStatus
	MarkedBy        string
}

// MarkAttendance upserts an attendance record keyed by the full
// (session, participant, participant type) triple. An existing record
// is patched in place: only the status and last-update audit fields
// change. A missing record is created with the full denormalized
// participant fields and the session's assembly id copied in, which may
// be nil for avulsa sessions. Any state may transition to any other
// state; admin correction workflows depend on that. It returns the
// record id.
func (e *Engine) MarkAttendance(ctx context.Context, in MarkInput) (uint64, error) {
	if !in.Status.Valid() {
		return 0, fmt.Errorf("invalid attendance status %q", in.Status)
	}
	s, err := e.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	existing, err := e.attendance.FindBySessionParticipantType(ctx, in.SessionID, in.ParticipantID, in.ParticipantType)
	switch {
	case err == nil:
		if err := e.attendance.UpdateStatus(ctx, existing.ID, in.Status, in.MarkedBy, now); err != nil {
			return 0, err
		}
		return existing.ID, nil
	case errors.Is(err, repository.ErrAttendanceNotFound):
		rec := &model.AttendanceRecord{
			SessionID:       in.SessionID,
			AssemblyID:      s.AssemblyID,
			ParticipantID:   in.ParticipantID,
			ParticipantType: in.ParticipantType,
			Name:            in.Name,
			Role:            in.Role,
			ComiteLocal:     in.ComiteLocal,
			Status:          in.Status,
			MarkedAt:        now,
			MarkedBy:        in.MarkedBy,
		}
		if err := e.attendance.Create(ctx, rec); err != nil {
			return 0, err
		}
		return rec.ID, nil
	default:
		return 0, err
	}
}

// SelfMarkResult is the soft outcome of a self check-in. Participant
// facing flows degrade to a user-readable message instead of failing
// loudly the way admin paths do.
type SelfMarkResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MarkSelfAttendance records a participant's own check-in. The match is
// keyed by participant id alone, a deliberately looser key than
// operator marks use: self check-in only needs idempotence per person,
// and a person has exactly one participant type in this flow. The call
// can only set present; an already-present record is left untouched so
// repeated check-ins do not churn the audit fields.
func (e *Engine) MarkSelfAttendance(ctx context.Context, sessionID uint64, participantID, name, participantType string) (SelfMarkResult, error) {
	s, err := e.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return SelfMarkResult{Error: "session not found"}, nil
	}
	if err != nil {
		return SelfMarkResult{}, err
	}
	if s.Status != model.SessionActive {
		return SelfMarkResult{Error: "session is not active"}, nil
	}

	now := time.Now().UTC()
	existing, err := e.attendance.FindBySessionParticipant(ctx, sessionID, participantID)
	switch {
	case err == nil:
		if existing.Status == model.AttendancePresent {
			return SelfMarkResult{Success: true}, nil
		}
		if err := e.attendance.UpdateStatus(ctx, existing.ID, model.AttendancePresent, participantID, now); err != nil {
			return SelfMarkResult{}, err
		}
		return SelfMarkResult{Success: true}, nil
	case errors.Is(err, repository.ErrAttendanceNotFound):
		rec := &model.AttendanceRecord{
			SessionID:       sessionID,
			AssemblyID:      s.AssemblyID,
			ParticipantID:   participantID,
			ParticipantType: participantType,
			Name:            name,
			Status:          model.AttendancePresent,
			MarkedAt:        now,
			MarkedBy:        participantID,
		}
		if err := e.attendance.Create(ctx, rec); err != nil {
			// A concurrent first check-in can insert between the lookup
			// and here; the unique key rejects the loser. Re-find and
			// settle on the winner's row.
			again, ferr := e.attendance.FindBySessionParticipant(ctx, sessionID, participantID)
			if ferr != nil {
				return SelfMarkResult{}, err
			}
			if again.Status != model.AttendancePresent {
				if uerr := e.attendance.UpdateStatus(ctx, again.ID, model.AttendancePresent, participantID, now); uerr != nil {
					return SelfMarkResult{}, uerr
				}
			}
			return SelfMarkResult{Success: true}, nil
		}
		return SelfMarkResult{Success: true}, nil
	default:
		return SelfMarkResult{}, err
	}
}

// ArchiveSession flips the session to archived. Attendance rows are not
// touched; archival is reversible via ReopenSession.
func (e *Engine) ArchiveSession(ctx context.Context, sessionID uint64, archivedBy string) error {
	return e.sessions.SetStatus(ctx, sessionID, model.SessionArchived, archivedBy)
}

// ReopenSession restores an archived session to active.
func (e *Engine) ReopenSession(ctx context.Context, sessionID uint64, reopenedBy string) error {
	return e.sessions.SetStatus(ctx, sessionID, model.SessionActive, reopenedBy)
}

// DeleteSession removes a session and all of its attendance rows. The
// attendance rows go first: the two steps are not one transaction, and
// a crash in between must leave an orphaned session with no attendance
// rather than attendance rows with no parent session.
func (e *Engine) DeleteSession(ctx context.Context, sessionID uint64) error {
	if _, err := e.sessions.GetByID(ctx, sessionID); err != nil {
		return err
	}
	if err := e.attendance.DeleteBySession(ctx, sessionID); err != nil {
		return err
	}
	return e.sessions.Delete(ctx, sessionID)
}

// UserAttendanceStats aggregates one user's attendance across the
// sessions of an assembly.
type UserAttendanceStats struct {
	TotalSessions        int     `json:"total_sessions"`
	AttendedSessions     int     `json:"attended_sessions"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

// GetUserAttendanceStats computes a user's attendance across an
// assembly. A user may participate partly as a registered delegate
// (rows keyed by registration id) and partly as a walk-in (rows keyed
// by the user id with participant type "user") in different sessions,
// so both identity sets are unioned and deduplicated per session before
// the percentage is computed.
func (e *Engine) GetUserAttendanceStats(ctx context.Context, assemblyID uint64, userID string) (*UserAttendanceStats, error) {
	regs, err := e.registrations.ListByParticipant(ctx, assemblyID, userID)
	if err != nil {
		return nil, err
	}

	var rows []*model.AttendanceRecord
	if len(regs) == 0 {
		rows, err = e.attendance.ListByAssemblyAndParticipant(ctx, assemblyID, userID, model.AttendeeUser)
		if err != nil {
			return nil, err
		}
	} else {
		for _, g := range regs {
			regRows, err := e.attendance.ListByAssemblyAndParticipant(ctx, assemblyID, strconv.FormatUint(g.ID, 10), "")
			if err != nil {
				return nil, err
			}
			rows = append(rows, regRows...)
		}
		userRows, err := e.attendance.ListByAssemblyAndParticipant(ctx, assemblyID, userID, model.AttendeeUser)
		if err != nil {
			return nil, err
		}
		rows = append(rows, userRows...)
	}

	// One entry per session: a session attended under both identities
	// must not be double-counted.
	bySession := make(map[uint64]*model.AttendanceRecord, len(rows))
	for _, rec := range rows {
		cur, ok := bySession[rec.SessionID]
		if !ok || (cur.Status != model.AttendancePresent && rec.Status == model.AttendancePresent) {
			bySession[rec.SessionID] = rec
		}
	}

	stats := &UserAttendanceStats{TotalSessions: len(bySession)}
	for _, rec := range bySession {
		if rec.Status == model.AttendancePresent {
			stats.AttendedSessions++
		}
	}
	if stats.TotalSessions > 0 {
		p := float64(stats.AttendedSessions) / float64(stats.TotalSessions) * 100
		stats.AttendancePercentage = math.Round(p*100) / 100
	}
	return stats, nil
}

// EnrichedRecord pairs an attendance row with its originating
// registration when one can be resolved. Registration stays nil when
// the row is not registration-backed or the join fails.
type EnrichedRecord struct {
	Attendance   *model.AttendanceRecord `json:"attendance"`
	Registration *model.Registration     `json:"registration,omitempty"`
}

// EnrichedSession is a session together with its roster and, for sessão
// sessions, registration details joined onto each individual row.
type EnrichedSession struct {
	Session *model.Session   `json:"session"`
	Records []EnrichedRecord `json:"records"`
}

// GetSessionWithEnrichedData loads a session and its attendance rows.
// For sessão sessions, each "individual" row's participant id is
// treated as a registration id and the registration's contact and
// demographic fields are joined in for reporting. A failed join
// (registration deleted, unparsable id) degrades to the bare attendance
// row; it never fails the whole read.
func (e *Engine) GetSessionWithEnrichedData(ctx context.Context, sessionID uint64) (*EnrichedSession, error) {
	s, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := e.attendance.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := &EnrichedSession{Session: s, Records: make([]EnrichedRecord, 0, len(rows))}
	for _, rec := range rows {
		er := EnrichedRecord{Attendance: rec}
		if s.Kind == model.SessionSessao && rec.ParticipantType == model.AttendeeIndividual {
			if regID, convErr := strconv.ParseUint(rec.ParticipantID, 10, 64); convErr == nil {
				if g, getErr := e.registrations.GetByID(ctx, regID); getErr == nil {
					er.Registration = g
				}
			}
		}
		out.Records = append(out.Records, er)
	}
	return out, nil
}

// SessionStats counts a session's roster by attendance state.
type SessionStats struct {
	Total       int `json:"total"`
	Present     int `json:"present"`
	Absent      int `json:"absent"`
	Excluded    int `json:"excluded"`
	NotCounting int `json:"not_counting"`
}

// GetSessionStats aggregates the session's roster by state.
func (e *Engine) GetSessionStats(ctx context.Context, sessionID uint64) (*SessionStats, error) {
	if _, err := e.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := e.attendance.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stats := &SessionStats{Total: len(rows)}
	for _, rec := range rows {
		switch rec.Status {
		case model.AttendancePresent:
			stats.Present++
		case model.AttendanceAbsent:
			stats.Absent++
		case model.AttendanceExcluded:
			stats.Excluded++
		default:
			stats.NotCounting++
		}
	}
	return stats, nil
}
