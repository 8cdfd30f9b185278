package services

import "manuscript-review-api/models"

// Action names an operation subject to authorization.
type Action string

const (
	ActionSubmit          Action = "submit"
	ActionView            Action = "view"
	ActionListAll         Action = "list_all"
	ActionAssignReviewers Action = "assign_reviewers"
	ActionSubmitReview    Action = "submit_review"
	ActionDecide          Action = "decide"
	ActionOverrideStatus  Action = "override_status"
	ActionViewReviews     Action = "view_reviews"
	ActionManageUsers     Action = "manage_users"
)

// CanPerform decides whether actor may perform action on m. m may be nil for
// actions that do not target a single manuscript. The function is pure; it
// only looks at the values passed in.
func CanPerform(actor *models.User, action Action, m *models.Manuscript) bool {
	if actor == nil || !actor.IsActive {
		return false
	}

	staff := actor.Role == models.RoleEditor || actor.Role == models.RoleAdmin

	switch action {
	case ActionSubmit:
		return actor.Role == models.RoleAuthor
	case ActionView:
		if staff {
			return true
		}
		if m == nil {
			return false
		}
		switch actor.Role {
		case models.RoleAuthor:
			return m.SubmittedBy == actor.UserID
		case models.RoleReviewer:
			return m.IsAssigned(actor.UserID)
		}
		return false
	case ActionSubmitReview:
		return actor.Role == models.RoleReviewer && m != nil && m.IsAssigned(actor.UserID)
	case ActionListAll, ActionAssignReviewers, ActionDecide, ActionOverrideStatus, ActionViewReviews:
		return staff
	case ActionManageUsers:
		return actor.Role == models.RoleAdmin
	}
	return false
}

// HasRole reports whether user holds any of roles.
func HasRole(user *models.User, roles ...string) bool {
	if user == nil {
		return false
	}
	for _, r := range roles {
		if user.Role == r {
			return true
		}
	}
	return false
}
