package service

import "github.com/telhawk-systems/mirror-notify/internal/models"

// Rejection reasons logged when a notification is classified out.
const (
	ReasonWrongOperation  = "wrong operation"
	ReasonWrongAction     = "wrong action"
	ReasonWrongCollection = "wrong collection"
)

// ClassifyTimeline accepts UPDATE notifications whose first user action is a
// SHARE. Later actions are never looked at.
func ClassifyTimeline(n *models.Notification) (bool, string) {
	if n.Operation != models.OperationUpdate {
		return false, ReasonWrongOperation
	}
	if n.FirstActionType() != models.ActionShare {
		return false, ReasonWrongAction
	}
	return true, ""
}

// ClassifyLocation accepts UPDATE notifications for the locations collection.
func ClassifyLocation(n *models.Notification) (bool, string) {
	if n.Collection != models.CollectionLocations {
		return false, ReasonWrongCollection
	}
	if n.Operation != models.OperationUpdate {
		return false, ReasonWrongOperation
	}
	return true, ""
}
