package models

import "time"

const (
	RecommendationAccept        = "ACCEPT"
	RecommendationMinorRevision = "MINOR_REVISION"
	RecommendationMajorRevision = "MAJOR_REVISION"
	RecommendationReject        = "REJECT"
)

var Recommendations = []string{
	RecommendationAccept,
	RecommendationMinorRevision,
	RecommendationMajorRevision,
	RecommendationReject,
}

func IsValidRecommendation(rec string) bool {
	for _, r := range Recommendations {
		if r == rec {
			return true
		}
	}
	return false
}

// Review is a reviewer's recommendation on a manuscript. At most one exists
// per (manuscript, reviewer) pair and it is never updated.
type Review struct {
	ReviewID       uint      `gorm:"primaryKey;column:review_id" json:"review_id"`
	ManuscriptID   uint      `gorm:"column:manuscript_id;uniqueIndex:idx_reviews_manuscript_reviewer" json:"manuscript_id"`
	ReviewerID     uint      `gorm:"column:reviewer_id;uniqueIndex:idx_reviews_manuscript_reviewer" json:"reviewer_id"`
	Recommendation string    `gorm:"column:recommendation;size:20" json:"recommendation"`
	Comments       string    `gorm:"column:comments;type:text" json:"comments"`
	Strengths      *string   `gorm:"column:strengths;type:text" json:"strengths,omitempty"`
	Weaknesses     *string   `gorm:"column:weaknesses;type:text" json:"weaknesses,omitempty"`
	Suggestions    *string   `gorm:"column:suggestions;type:text" json:"suggestions,omitempty"`
	CreateAt       time.Time `gorm:"column:create_at" json:"create_at"`

	Reviewer *User `gorm:"foreignKey:ReviewerID;references:UserID" json:"reviewer,omitempty"`
}

func (Review) TableName() string {
	return "reviews"
}
