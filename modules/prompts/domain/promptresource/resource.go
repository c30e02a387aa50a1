package promptresource

import (
	"encoding/json"
	"errors"
	"time"
)

// Kind identifies one of the three prompt configuration resources held by a
// workspace.
type Kind string

const (
	KindDefinitions  Kind = "DEFINITIONS"
	KindExamples     Kind = "EXAMPLES"
	KindInstructions Kind = "INSTRUCTIONS"
)

// Kinds lists all resource kinds in provisioning order.
func Kinds() []Kind {
	return []Kind{KindDefinitions, KindExamples, KindInstructions}
}

func NewKind(k string) (Kind, error) {
	kind := Kind(k)
	if !kind.IsValid() {
		return "", errors.New("invalid resource kind")
	}
	return kind, nil
}

func (k Kind) IsValid() bool {
	switch k {
	case KindDefinitions, KindExamples, KindInstructions:
		return true
	}
	return false
}

// EmptyContent returns the default content a freshly provisioned workspace
// holds for the kind.
func (k Kind) EmptyContent() json.RawMessage {
	switch k {
	case KindDefinitions:
		return json.RawMessage(`{"categories":[]}`)
	case KindExamples:
		return json.RawMessage(`{"examples":[]}`)
	case KindInstructions:
		return json.RawMessage(`{"content":""}`)
	}
	return json.RawMessage(`{}`)
}

// Resource is the single mutable slot a workspace holds per kind.
type Resource struct {
	WorkspaceID string          `json:"workspace_id"`
	Kind        Kind            `json:"kind"`
	Content     json.RawMessage `json:"content"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
