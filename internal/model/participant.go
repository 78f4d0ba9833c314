package model

import "time"

// ParticipantType classifies roster entries imported before an assembly.
type ParticipantType string

const (
	ParticipantEB     ParticipantType = "eb"     // Executive Board officer
	ParticipantCR     ParticipantType = "cr"     // Regional Coordinator
	ParticipantComite ParticipantType = "comite" // Local committee (one entry per committee)
)

// Committee standing values as they appear in the roster CSV.  Standing
// decides whether a committee's vote carries full quorum weight.
const (
	StandingPleno    = "Pleno"
	StandingNaoPleno = "Não-pleno"
)

// Participant is one row of an assembly's imported roster.  EB and CR
// entries identify individual officers; comite entries identify a whole
// local committee, which votes as a bloc in plenárias.  The roster is the
// authoritative source of committee standing for reports, even when
// attendance rows carry a stale denormalized copy.
//
// Fields:
//  ID            – primary key identifier.
//  AssemblyID    – owning assembly.
//  ParticipantID – external identity; unique within the assembly.
//  Name          – officer or committee name.
//  Type          – eb, cr or comite.
//  Role          – optional role label for officers.
//  ComiteLocal   – optional committee grouping tag.
//  Status        – committee standing (Pleno / Não-pleno); nil for officers.
type Participant struct {
	ID            uint64          // assembly_participants.id
	AssemblyID    uint64          // assembly_participants.assembly_id
	ParticipantID string          // assembly_participants.participant_id
	Name          string          // assembly_participants.name
	Type          ParticipantType // assembly_participants.type
	Role          *string         // assembly_participants.role (nullable)
	ComiteLocal   *string         // assembly_participants.comite_local (nullable)
	Status        *string         // assembly_participants.status (nullable)
	ImportedAt    time.Time       // assembly_participants.imported_at
	ImportedBy    string          // assembly_participants.imported_by
}
