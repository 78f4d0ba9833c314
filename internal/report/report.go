// Package report turns attendance snapshots into xlsx workbook exports
// for the assembly secretariat. It is a pure transformation: the input
// is an explicit tagged union built by the attendance engine, the
// output is an in-memory workbook buffer plus a filename and a summary
// object. Nothing here touches persistence.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/ifmsabrazil/agadmin/internal/model"
)

// Sheet names of the bucketed (plenária / avulsa) export.
const (
	SheetEB        = "Executive Board"
	SheetCR        = "Regional Coordinators"
	SheetPlenos    = "Comitês Plenos"
	SheetNaoPlenos = "Comitês Não-plenos"
	SheetSessao    = "Session Participants"
)

// Input is the tagged union the generator accepts. Exactly one of
// Snapshot or PreBucketed must be set: Snapshot for plenária and sessão
// sessions, PreBucketed for avulsa sessions whose buckets were built ad
// hoc by the operator.
type Input struct {
	SessionName string
	Snapshot    *Snapshot
	PreBucketed *PreBucketed
}

// Snapshot is a session's attendance roster. Roster optionally carries
// the authoritative participants list: committee standing is read from
// it when present, because the attendance rows' own denormalized
// standing may be stale relative to roster edits made after the session
// started.
type Snapshot struct {
	Kind    model.SessionKind
	Records []*model.AttendanceRecord
	Roster  []*model.Participant
}

// PreBucketed carries attendance rows already split into the four
// report buckets, the shape used by avulsa sessions.
type PreBucketed struct {
	EBs              []*model.AttendanceRecord
	CRs              []*model.AttendanceRecord
	ComitesPlenos    []*model.AttendanceRecord
	ComitesNaoPlenos []*model.AttendanceRecord
}

// Summary is the stats object handed to the report consumer alongside
// the workbook.
type Summary struct {
	EBs              int    `json:"ebs"`
	CRs              int    `json:"crs"`
	ComitesPlenos    int    `json:"comitesPlenos"`
	ComitesNaoPlenos int    `json:"comitesNaoPlenos"`
	Total            int    `json:"total"`
	Type             string `json:"type"`
}

// Export is the finished artifact: workbook bytes, a download filename
// and the summary.
type Export struct {
	Filename string
	Buffer   *bytes.Buffer
	Summary  Summary
}

// StatusLabel maps an attendance state to the Portuguese label used in
// exports. Unknown values render as not counted.
func StatusLabel(s model.AttendanceStatus) string {
	switch s {
	case model.AttendancePresent:
		return "Presente"
	case model.AttendanceAbsent:
		return "Ausente"
	case model.AttendanceExcluded:
		return "Excluído do quórum"
	default:
		return "Não contabilizado"
	}
}

// Generate builds the workbook for the given input. Plenária and avulsa
// inputs produce one sheet per bucket; sessão inputs produce a single
// flattened participants sheet.
func Generate(in Input) (*Export, error) {
	switch {
	case in.Snapshot != nil && in.PreBucketed != nil:
		return nil, fmt.Errorf("report: input carries both snapshot and pre-bucketed data")
	case in.Snapshot != nil:
		if in.Snapshot.Kind == model.SessionSessao {
			return generateSessao(in.SessionName, in.Snapshot.Records)
		}
		return generateBucketed(in.SessionName, string(in.Snapshot.Kind), bucketSnapshot(in.Snapshot))
	case in.PreBucketed != nil:
		return generateBucketed(in.SessionName, string(model.SessionAvulsa), *in.PreBucketed)
	default:
		return nil, fmt.Errorf("report: input carries neither snapshot nor pre-bucketed data")
	}
}

// bucketSnapshot splits a plenária snapshot into the four buckets.
// Committee standing comes from the authoritative roster when supplied;
// otherwise the attendance row's own denormalized standing is trusted,
// and unknown standing defaults to Não-pleno.
func bucketSnapshot(s *Snapshot) PreBucketed {
	rosterStanding := make(map[string]string, len(s.Roster))
	for _, p := range s.Roster {
		if p.Type == model.ParticipantComite && p.Status != nil {
			rosterStanding[p.ParticipantID] = *p.Status
		}
	}

	var out PreBucketed
	for _, rec := range s.Records {
		switch rec.ParticipantType {
		case model.AttendeeEB:
			out.EBs = append(out.EBs, rec)
		case model.AttendeeCR:
			out.CRs = append(out.CRs, rec)
		case model.AttendeeComite:
			standing, ok := rosterStanding[rec.ParticipantID]
			if !ok && rec.ParticipantStatus != nil {
				standing = *rec.ParticipantStatus
			}
			if standing == model.StandingPleno {
				out.ComitesPlenos = append(out.ComitesPlenos, rec)
			} else {
				out.ComitesNaoPlenos = append(out.ComitesNaoPlenos, rec)
			}
		default:
			// Walk-ins and individuals in a plenária are listed with the
			// officers rather than dropped from the export.
			out.EBs = append(out.EBs, rec)
		}
	}
	return out
}

func generateBucketed(sessionName, kind string, b PreBucketed) (*Export, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name string
		rows []*model.AttendanceRecord
	}{
		{SheetEB, b.EBs},
		{SheetCR, b.CRs},
		{SheetPlenos, b.ComitesPlenos},
		{SheetNaoPlenos, b.ComitesNaoPlenos},
	}
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.name); err != nil {
				return nil, err
			}
		} else {
			if _, err := f.NewSheet(sh.name); err != nil {
				return nil, err
			}
		}
		if err := writeRows(f, sh.name, sh.rows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename: exportFilename(sessionName),
		Buffer:   buf,
		Summary: Summary{
			EBs:              len(b.EBs),
			CRs:              len(b.CRs),
			ComitesPlenos:    len(b.ComitesPlenos),
			ComitesNaoPlenos: len(b.ComitesNaoPlenos),
			Total:            len(b.EBs) + len(b.CRs) + len(b.ComitesPlenos) + len(b.ComitesNaoPlenos),
			Type:             kind,
		},
	}, nil
}

func generateSessao(sessionName string, records []*model.AttendanceRecord) (*Export, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSessao); err != nil {
		return nil, err
	}
	if err := writeRows(f, SheetSessao, records); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename: exportFilename(sessionName),
		Buffer:   buf,
		Summary: Summary{
			Total: len(records),
			Type:  string(model.SessionSessao),
		},
	}, nil
}

func writeRows(f *excelize.File, sheet string, rows []*model.AttendanceRecord) error {
	header := []string{"Nome", "Cargo", "Comitê Local", "Presença"}
	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for i, rec := range rows {
		values := []string{
			rec.Name,
			deref(rec.Role),
			deref(rec.ComiteLocal),
			StatusLabel(rec.Status),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// exportFilename builds a safe download name from the session name plus
// a short random suffix so repeated exports never collide.
func exportFilename(sessionName string) string {
	slug := strings.ToLower(strings.TrimSpace(sessionName))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	if slug == "" {
		slug = "sessao"
	}
	return fmt.Sprintf("presenca-%s-%s.xlsx", slug, uuid.New().String()[:8])
}
