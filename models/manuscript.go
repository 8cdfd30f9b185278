package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	StatusSubmitted     = "SUBMITTED"
	StatusUnderReview   = "UNDER_REVIEW"
	StatusDecisionReady = "DECISION_READY"
	StatusAccepted      = "ACCEPTED"
	StatusRejected      = "REJECTED"
)

// ManuscriptStatuses is the ordered set of workflow states.
var ManuscriptStatuses = []string{
	StatusSubmitted,
	StatusUnderReview,
	StatusDecisionReady,
	StatusAccepted,
	StatusRejected,
}

// IsValidManuscriptStatus reports whether status is one of the five workflow states.
func IsValidManuscriptStatus(status string) bool {
	for _, s := range ManuscriptStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no normal transition leaves status.
func IsTerminalStatus(status string) bool {
	return status == StatusAccepted || status == StatusRejected
}

type Manuscript struct {
	ManuscriptID uint           `gorm:"primaryKey;column:manuscript_id" json:"manuscript_id"`
	Title        string         `gorm:"column:title;size:500" json:"title"`
	Abstract     string         `gorm:"column:abstract;type:text" json:"abstract"`
	Keywords     datatypes.JSON `gorm:"column:keywords" json:"keywords"`
	Authors      string         `gorm:"column:authors;size:1000" json:"authors"`
	SubmittedBy  uint           `gorm:"column:submitted_by;index" json:"submitted_by"`
	Status       string         `gorm:"column:status;size:20;index" json:"status"`

	FileName string `gorm:"column:file_name" json:"file_name"`
	FilePath string `gorm:"column:file_path" json:"-"`
	FileSize int64  `gorm:"column:file_size" json:"file_size"`
	MimeType string `gorm:"column:mime_type" json:"mime_type"`

	// Version is bumped on every write; writers compare-and-swap on it.
	Version  uint       `gorm:"column:version;not null;default:1" json:"version"`
	CreateAt time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`

	// Relations
	Submitter   *User                `gorm:"foreignKey:SubmittedBy;references:UserID" json:"submitter,omitempty"`
	Assignments []ManuscriptReviewer `gorm:"foreignKey:ManuscriptID;references:ManuscriptID" json:"assigned_reviewers"`
}

func (Manuscript) TableName() string {
	return "manuscripts"
}

// SetKeywords stores kw as a JSON array.
func (m *Manuscript) SetKeywords(kw []string) error {
	if kw == nil {
		kw = []string{}
	}
	raw, err := json.Marshal(kw)
	if err != nil {
		return err
	}
	m.Keywords = datatypes.JSON(raw)
	return nil
}

// KeywordList decodes the stored keyword array.
func (m *Manuscript) KeywordList() []string {
	var kw []string
	if len(m.Keywords) == 0 {
		return kw
	}
	_ = json.Unmarshal(m.Keywords, &kw)
	return kw
}

// ReviewerIDs returns the assigned reviewer ids in assignment order.
func (m *Manuscript) ReviewerIDs() []uint {
	ids := make([]uint, 0, len(m.Assignments))
	for _, a := range m.Assignments {
		ids = append(ids, a.ReviewerID)
	}
	return ids
}

// IsAssigned reports whether userID is in the assigned-reviewer set.
func (m *Manuscript) IsAssigned(userID uint) bool {
	for _, a := range m.Assignments {
		if a.ReviewerID == userID {
			return true
		}
	}
	return false
}

// ManuscriptReviewer is one row of the assigned-reviewer set.
type ManuscriptReviewer struct {
	ManuscriptID uint      `gorm:"primaryKey;column:manuscript_id;autoIncrement:false" json:"manuscript_id"`
	ReviewerID   uint      `gorm:"primaryKey;column:reviewer_id;autoIncrement:false" json:"reviewer_id"`
	AssignedBy   uint      `gorm:"column:assigned_by" json:"assigned_by"`
	AssignedAt   time.Time `gorm:"column:assigned_at" json:"assigned_at"`

	Reviewer *User `gorm:"foreignKey:ReviewerID;references:UserID" json:"reviewer,omitempty"`
}

func (ManuscriptReviewer) TableName() string {
	return "manuscript_reviewers"
}
