package visibility

import (
	"notemesh/internal/services/sharing"
)

// Capabilities is the effective set of actions a user may take on a note
type Capabilities struct {
	CanRead   bool
	CanEdit   bool
	CanShare  bool
	CanDelete bool
	IsOwner   bool
}

// CapabilitiesFor derives what a user may do with a note. Ownership is the
// single test that grants everything; a recipient's rights come entirely
// from the share's permission, and only the owner may share onward or
// delete. Having shared a note out never reduces the owner's own rights.
func CapabilitiesFor(isOwner bool, share *sharing.Share) Capabilities {
	if isOwner {
		return Capabilities{CanRead: true, CanEdit: true, CanShare: true, CanDelete: true, IsOwner: true}
	}
	if share == nil {
		return Capabilities{}
	}
	return Capabilities{
		CanRead: true,
		CanEdit: share.Permission == sharing.PermissionWrite,
	}
}
