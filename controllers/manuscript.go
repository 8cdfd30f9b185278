package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"manuscript-review-api/services"
	"manuscript-review-api/utils"
)

type AssignReviewersRequest struct {
	ReviewerIDs []uint `json:"reviewerIds"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

type SubmitReviewRequest struct {
	Recommendation string  `json:"recommendation"`
	Comments       string  `json:"comments"`
	Strengths      *string `json:"strengths"`
	Weaknesses     *string `json:"weaknesses"`
	Suggestions    *string `json:"suggestions"`
}

// SubmitManuscript accepts multipart/form-data with title, abstract,
// keywords (repeated or comma separated), authors and file.
func (h *Handler) SubmitManuscript(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	// A missing or unreadable file is reported with the other missing fields.
	var upload *services.Upload
	if fh, err := c.FormFile("file"); err == nil {
		upload = services.UploadFromHeader(fh)
	}

	m, err := h.workflow.Submit(c.Request.Context(), services.ManuscriptDraft{
		Title:    c.PostForm("title"),
		Abstract: c.PostForm("abstract"),
		Keywords: c.PostFormArray("keywords"),
		Authors:  c.PostForm("authors"),
		File:     upload,
	}, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.RespondOK(c, http.StatusCreated, "Manuscript submitted successfully", m)
}

// GetMyManuscripts lists the caller's own submissions.
func (h *Handler) GetMyManuscripts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.workflow.ListByAuthor(c.Request.Context(), user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", items)
}

// GetAssignedManuscripts lists manuscripts the caller is assigned to review.
func (h *Handler) GetAssignedManuscripts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.workflow.ListAssigned(c.Request.Context(), user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", items)
}

func (h *Handler) GetManuscript(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "manuscript")
	if !ok {
		return
	}
	m, err := h.workflow.Get(c.Request.Context(), id, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", m)
}

// GetAllManuscripts lists every manuscript; ?status= narrows the list.
func (h *Handler) GetAllManuscripts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.workflow.ListAll(c.Request.Context(), user, c.Query("status"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", items)
}

func (h *Handler) AssignReviewers(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "manuscript")
	if !ok {
		return
	}
	var req AssignReviewersRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.workflow.AssignReviewers(c.Request.Context(), id, req.ReviewerIDs, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Reviewers assigned successfully", m)
}

// UpdateStatus is the administrative override.
func (h *Handler) UpdateStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "manuscript")
	if !ok {
		return
	}
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.workflow.SetStatus(c.Request.Context(), id, req.Status, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Manuscript status updated", m)
}

func (h *Handler) SubmitReview(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "manuscript")
	if !ok {
		return
	}
	var req SubmitReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.workflow.SubmitReview(c.Request.Context(), id, user, services.ReviewInput{
		Recommendation: req.Recommendation,
		Comments:       req.Comments,
		Strengths:      req.Strengths,
		Weaknesses:     req.Weaknesses,
		Suggestions:    req.Suggestions,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Review submitted successfully", result)
}

func (h *Handler) MakeDecision(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "manuscript")
	if !ok {
		return
	}
	var req DecisionRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.workflow.MakeDecision(c.Request.Context(), id, req.Decision, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Decision recorded", m)
}

func (h *Handler) GetManuscriptReviews(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "manuscript")
	if !ok {
		return
	}
	summary, err := h.workflow.Reviews(c.Request.Context(), id, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", summary)
}

func (h *Handler) GetManuscriptHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "manuscript")
	if !ok {
		return
	}
	rows, err := h.workflow.History(c.Request.Context(), id, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "", rows)
}
