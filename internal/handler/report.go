package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ifmsabrazil/agadmin/internal/model"
	"github.com/ifmsabrazil/agadmin/internal/report"
)

// Stores the report endpoints read from, narrowed to the three queries
// they actually run.
type reportSessionStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Session, error)
}

type reportAttendanceStore interface {
	ListBySession(ctx context.Context, sessionID uint64) ([]*model.AttendanceRecord, error)
}

type reportRosterStore interface {
	ListByAssembly(ctx context.Context, assemblyID uint64) ([]*model.Participant, error)
}

// ReportHandler exposes the attendance export endpoint. It assembles
// the report input (attendance rows plus, for plenárias, the live
// roster) and streams the workbook back as a download.
type ReportHandler struct {
	Sessions     reportSessionStore
	Attendance   reportAttendanceStore
	Participants reportRosterStore
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(sessions reportSessionStore, att reportAttendanceStore, participants reportRosterStore) *ReportHandler {
	return &ReportHandler{Sessions: sessions, Attendance: att, Participants: participants}
}

// buildInput assembles the generator input for a session. Plenária
// exports read committee standing from the live roster, so a committee
// promoted after the session started is bucketed by its current
// standing, not the stale copy on its attendance row. Avulsa sessions
// have no roster; their rows are bucketed ad hoc from what the rows
// themselves carry. Export and Summary share this so the download and
// its counts can never disagree.
func (h *ReportHandler) buildInput(ctx context.Context, s *model.Session, records []*model.AttendanceRecord) (report.Input, error) {
	in := report.Input{SessionName: s.Name}
	if s.Kind == model.SessionAvulsa {
		in.PreBucketed = bucketAdHoc(records)
		return in, nil
	}
	snap := &report.Snapshot{Kind: s.Kind, Records: records}
	if s.Kind == model.SessionPlenaria && s.AssemblyID != nil {
		roster, err := h.Participants.ListByAssembly(ctx, *s.AssemblyID)
		if err != nil {
			return report.Input{}, err
		}
		snap.Roster = roster
	}
	in.Snapshot = snap
	return in, nil
}

func (h *ReportHandler) generate(c echo.Context, id uint64) (*report.Export, error) {
	ctx := c.Request().Context()
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := h.Attendance.ListBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err := h.buildInput(ctx, s, records)
	if err != nil {
		return nil, err
	}
	return report.Generate(in)
}

// Export handles GET /v1/sessions/:id/report, streaming the workbook
// back as an attachment.
func (h *ReportHandler) Export(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	exp, err := h.generate(c, id)
	if err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exp.Filename+`"`)
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		exp.Buffer.Bytes())
}

// Summary handles GET /v1/sessions/:id/report/summary, returning the
// export's bucket counts without the workbook download.
func (h *ReportHandler) Summary(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	exp, err := h.generate(c, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, exp.Summary)
}

// bucketAdHoc splits avulsa attendance rows into report buckets using
// only what each row carries: there is no assembly roster to consult.
func bucketAdHoc(records []*model.AttendanceRecord) *report.PreBucketed {
	var b report.PreBucketed
	for _, rec := range records {
		switch rec.ParticipantType {
		case model.AttendeeEB:
			b.EBs = append(b.EBs, rec)
		case model.AttendeeCR:
			b.CRs = append(b.CRs, rec)
		case model.AttendeeComite:
			if rec.ParticipantStatus != nil && *rec.ParticipantStatus == model.StandingPleno {
				b.ComitesPlenos = append(b.ComitesPlenos, rec)
			} else {
				b.ComitesNaoPlenos = append(b.ComitesNaoPlenos, rec)
			}
		default:
			b.EBs = append(b.EBs, rec)
		}
	}
	return &b
}
