package models

// Values carried in the operation, collection and action type fields.
const (
	OperationUpdate = "UPDATE"
	OperationInsert = "INSERT"
	OperationDelete = "DELETE"

	CollectionTimeline  = "timeline"
	CollectionLocations = "locations"

	ActionShare  = "SHARE"
	ActionReply  = "REPLY"
	ActionDelete = "DELETE"
	ActionCustom = "CUSTOM"
)

// Notification is the JSON body of a subscription callback.
// It lives for a single request and is never persisted.
type Notification struct {
	Collection  string       `json:"collection,omitempty"`
	ItemID      string       `json:"itemId"`
	Operation   string       `json:"operation"`
	UserToken   string       `json:"userToken"`
	VerifyToken string       `json:"verifyToken"`
	UserActions []UserAction `json:"userActions,omitempty"`
}

// UserAction describes what the user did to the timeline item.
type UserAction struct {
	Type    string `json:"type"`
	Payload string `json:"payload,omitempty"`
}

// FirstActionType returns the type of the first user action, or "" if none.
// Later actions are intentionally ignored by the timeline classifier.
func (n *Notification) FirstActionType() string {
	if len(n.UserActions) == 0 {
		return ""
	}
	return n.UserActions[0].Type
}
