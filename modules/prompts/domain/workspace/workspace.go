package workspace

import (
	"time"

	"github.com/google/uuid"
)

// SharedID is the identifier of the single organization-wide workspace whose
// resources are governed by the change-request workflow.
const SharedID = "organization"

type Workspace struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	OwnerID   *uuid.UUID `json:"owner_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsShared reports whether the workspace is the shared organization scope.
func (w *Workspace) IsShared() bool {
	return w.ID == SharedID
}
