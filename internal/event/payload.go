package event

// AgentRegisteredPayload captures the payload for agent.registered events.
//
// Re-registration with the same id refreshes Task and Interests; the
// projector keeps the first registration time.
type AgentRegisteredPayload struct {
	ID        string   `json:"id"`
	Task      string   `json:"task"`
	Interests []string `json:"interests,omitempty"`
	Status    string   `json:"status,omitempty"`
}

// FindingAddedPayload captures the payload for finding.added events.
type FindingAddedPayload struct {
	AgentID     string   `json:"agent_id"`
	FindingType string   `json:"finding_type"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags,omitempty"`
}
