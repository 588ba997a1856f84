package capsule

import (
	"github.com/familynest/backend/internal/domain/family"
)

// AccessLevel is what a caller may see of a capsule
type AccessLevel int

const (
	// NoAccess hides the capsule entirely
	NoAccess AccessLevel = iota
	// MetadataOnly shows existence and status, never content
	MetadataOnly
	// FullContent allows content once the capsule is unlocked
	FullContent
)

// String returns the access level name
func (a AccessLevel) String() string {
	switch a {
	case FullContent:
		return "full_content"
	case MetadataOnly:
		return "metadata_only"
	default:
		return "no_access"
	}
}

// ResolveAccess decides the caller's access to a capsule, in order:
// sender, recipient, owner or adult, anyone else.
// FullContent does not by itself reveal content; the capsule must also be unlocked.
func ResolveAccess(m *Metadata, caller family.Membership) AccessLevel {
	if m == nil || caller.FamilyID != m.FamilyID {
		return NoAccess
	}
	switch {
	case m.IsSender(caller.MemberID):
		return FullContent
	case m.IsRecipient(caller.MemberID):
		return FullContent
	case caller.Role.CanViewPrivateMetadata():
		return MetadataOnly
	default:
		return NoAccess
	}
}

// CanReadContent is the single content gate: both the access level and the
// unlock state must allow it.
func CanReadContent(access AccessLevel, unlocked bool) bool {
	return access == FullContent && unlocked
}
