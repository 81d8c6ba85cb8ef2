package domain

// TargetKind distinguishes the two things a call can be placed against.
type TargetKind string

const (
	TargetKindContent TargetKind = "content"
	TargetKindPersona TargetKind = "persona"
)

// ContentPayload identifies a capsule to be read into the call.
type ContentPayload struct {
	ID         string `json:"id"`
	AuthorName string `json:"authorName"`
	Body       string `json:"body"`
}

// PersonaPayload identifies another user's assistant persona.
type PersonaPayload struct {
	CalleeProfileID string `json:"calleeProfileId"`
	CalleeName      string `json:"calleeName"`
	SessionID       string `json:"sessionId"`
	ReplyID         string `json:"replyId,omitempty"`
}

// CallTarget is the unit of "what is being discussed in this call":
// a capsule or a persona reference. Exactly one payload is set, per Kind.
// Queued reports whether the target has already been sent over the wire
// (true) or is still waiting for the transport to connect (false).
type CallTarget struct {
	Kind    TargetKind      `json:"kind"`
	Content *ContentPayload `json:"content,omitempty"`
	Persona *PersonaPayload `json:"persona,omitempty"`
	Queued  bool            `json:"queued"`
}

// NewContentTarget builds an unsent capsule target.
func NewContentTarget(payload ContentPayload) *CallTarget {
	return &CallTarget{Kind: TargetKindContent, Content: &payload}
}

// NewPersonaTarget builds an unsent persona target.
func NewPersonaTarget(payload PersonaPayload) *CallTarget {
	return &CallTarget{Kind: TargetKindPersona, Persona: &payload}
}

// SameIdentity reports whether two targets refer to the same capsule or
// persona session, ignoring the Queued flag.
func (t *CallTarget) SameIdentity(other *CallTarget) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case TargetKindContent:
		return t.Content != nil && other.Content != nil && t.Content.ID == other.Content.ID
	case TargetKindPersona:
		return t.Persona != nil && other.Persona != nil && t.Persona.SessionID == other.Persona.SessionID
	default:
		return false
	}
}

// Clone returns a shallow copy with its own payload allocation so callers
// cannot mutate controller-owned state through a snapshot.
func (t *CallTarget) Clone() *CallTarget {
	if t == nil {
		return nil
	}
	out := &CallTarget{Kind: t.Kind, Queued: t.Queued}
	if t.Content != nil {
		content := *t.Content
		out.Content = &content
	}
	if t.Persona != nil {
		persona := *t.Persona
		out.Persona = &persona
	}
	return out
}
