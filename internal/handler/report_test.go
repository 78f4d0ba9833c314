package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifmsabrazil/agadmin/internal/model"
	"github.com/ifmsabrazil/agadmin/internal/report"
	"github.com/ifmsabrazil/agadmin/internal/repository"
)

type stubSessions struct{ s *model.Session }

func (f *stubSessions) GetByID(_ context.Context, id uint64) (*model.Session, error) {
	if f.s != nil && f.s.ID == id {
		cp := *f.s
		return &cp, nil
	}
	return nil, repository.ErrSessionNotFound
}

type stubAttendance struct{ rows []*model.AttendanceRecord }

func (f *stubAttendance) ListBySession(_ context.Context, _ uint64) ([]*model.AttendanceRecord, error) {
	return f.rows, nil
}

type stubRoster struct{ entries []*model.Participant }

func (f *stubRoster) ListByAssembly(_ context.Context, _ uint64) ([]*model.Participant, error) {
	return f.entries, nil
}

func reportContext(t *testing.T, id string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func sp(s string) *string { return &s }
func up(n uint64) *uint64 { return &n }

func TestSummaryUsesLiveRosterStanding(t *testing.T) {
	// The committee was Não-pleno when the plenária was seeded and was
	// promoted afterwards: the attendance row still carries the stale
	// standing, the roster carries the current one.
	h := NewReportHandler(
		&stubSessions{s: &model.Session{
			ID: 5, AssemblyID: up(1), Name: "Plenária 1",
			Kind: model.SessionPlenaria, Status: model.SessionActive,
		}},
		&stubAttendance{rows: []*model.AttendanceRecord{{
			ID: 1, SessionID: 5, AssemblyID: up(1), ParticipantID: "ifmsa-sp",
			ParticipantType: model.AttendeeComite, Name: "IFMSA SP",
			Status: model.AttendancePresent, ParticipantStatus: sp(model.StandingNaoPleno),
		}}},
		&stubRoster{entries: []*model.Participant{{
			AssemblyID: 1, ParticipantID: "ifmsa-sp", Name: "IFMSA SP",
			Type: model.ParticipantComite, Status: sp(model.StandingPleno),
		}}},
	)

	c, rec := reportContext(t, "5")
	require.NoError(t, h.Summary(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var sum report.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 1, sum.ComitesPlenos)
	assert.Equal(t, 0, sum.ComitesNaoPlenos)
	assert.Equal(t, 1, sum.Total)
}

func TestSummaryUnknownSession(t *testing.T) {
	h := NewReportHandler(&stubSessions{}, &stubAttendance{}, &stubRoster{})
	c, rec := reportContext(t, "99")
	require.NoError(t, h.Summary(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportStreamsAttachment(t *testing.T) {
	h := NewReportHandler(
		&stubSessions{s: &model.Session{
			ID: 7, AssemblyID: up(1), Name: "Sessão de Abertura",
			Kind: model.SessionSessao, Status: model.SessionActive,
		}},
		&stubAttendance{rows: []*model.AttendanceRecord{{
			ID: 1, SessionID: 7, AssemblyID: up(1), ParticipantID: "10",
			ParticipantType: model.AttendeeIndividual, Name: "Ana",
			Status: model.AttendancePresent,
		}}},
		&stubRoster{},
	)

	c, rec := reportContext(t, "7")
	require.NoError(t, h.Export(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment")
	assert.NotEmpty(t, rec.Body.Bytes())
}
