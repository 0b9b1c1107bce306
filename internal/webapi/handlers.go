package webapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/llmcompass/compass/internal/catalog"
	"github.com/llmcompass/compass/internal/llm"
	"github.com/llmcompass/compass/internal/ranking"
	"github.com/llmcompass/compass/internal/workflow"
)

// QueryRequest is the body of POST /api/v1/query. A missing session id
// starts a fresh session.
type QueryRequest struct {
	UserQuery   string              `json:"user_query" binding:"required,min=5,max=2000"`
	Constraints catalog.Constraints `json:"constraints"`
	SessionID   string              `json:"session_id"`
}

// ClarifyRequest is the body of POST /api/v1/query/:session_id/clarify.
type ClarifyRequest struct {
	UserReply string `json:"user_reply" binding:"required,min=1,max=2000"`
}

// ErrorDetail is one structured error entry in a response.
type ErrorDetail struct {
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

// QueryResponse is the envelope for both query and clarify calls.
type QueryResponse struct {
	SessionID             string                           `json:"session_id"`
	UserQuery             string                           `json:"user_query"`
	AppliedConstraints    catalog.Constraints              `json:"applied_constraints"`
	Status                string                           `json:"status"` // ok | needs_clarification | error
	ClarificationQuestion string                           `json:"clarification_question,omitempty"`
	Traceability          map[string][]workflow.TraceEvent `json:"traceability"`
	RankedData            *ranking.Result                  `json:"ranked_data,omitempty"`
	Answer                *llm.Synthesis                   `json:"answer,omitempty"`
	Errors                []ErrorDetail                    `json:"errors,omitempty"`
}

func responseFromState(st *workflow.State) QueryResponse {
	resp := QueryResponse{
		SessionID:          st.SessionID,
		UserQuery:          st.Query,
		AppliedConstraints: st.Constraints,
		Status:             "ok",
		Traceability:       map[string][]workflow.TraceEvent{"events": st.Trace},
		RankedData:         st.Ranked,
		Answer:             st.Answer,
	}
	switch st.Stage {
	case workflow.StageAwaitingClarification:
		resp.Status = "needs_clarification"
		resp.ClarificationQuestion = st.ClarificationQuestion
	case workflow.StageClarificationExhausted:
		resp.Status = "error"
		resp.Errors = append(resp.Errors, ErrorDetail{
			Stage:   string(st.Stage),
			Message: "clarification attempts exhausted; please start over with a more specific query",
		})
	}
	return resp
}

func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	st, err := s.orch.Start(c.Request.Context(), req.SessionID, req.UserQuery, req.Constraints)
	if err != nil {
		s.renderError(c, req.SessionID, err)
		return
	}
	c.JSON(http.StatusOK, responseFromState(st))
}

func (s *Server) handleClarify(c *gin.Context) {
	var req ClarifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sessionID := c.Param("session_id")

	st, err := s.orch.Clarify(c.Request.Context(), sessionID, req.UserReply)
	if err != nil {
		s.renderError(c, sessionID, err)
		return
	}
	c.JSON(http.StatusOK, responseFromState(st))
}

// renderError maps workflow errors onto HTTP statuses. Collaborator contract
// failures are internal; session conflicts and unknown sessions are the
// caller's to handle.
func (s *Server) renderError(c *gin.Context, sessionID string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrSessionBusy), errors.Is(err, workflow.ErrNotSuspended):
		status = http.StatusConflict
	case errors.Is(err, ranking.ErrInvalidIORatio):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Error("query failed", "session", sessionID, "err", err)
	}
	c.JSON(status, QueryResponse{
		SessionID: sessionID,
		Status:    "error",
		Errors:    []ErrorDetail{{Message: err.Error()}},
	})
}
