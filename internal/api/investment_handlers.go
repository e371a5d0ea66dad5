package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"capitoro/internal/domain"
	"capitoro/internal/investment"
	"capitoro/internal/wallet"
)

type investRequest struct {
	InvestorID string `json:"investor_id" binding:"required"`
	Amount     string `json:"amount" binding:"required"` // SOL, e.g. "0.5"
}

type investResponse struct {
	Investment  *domain.Investment  `json:"investment"`
	ExplorerURL string              `json:"explorer_url"`
	Flow        investment.Snapshot `json:"flow"`
}

type unrecordedResponse struct {
	Signature   string `json:"transaction_hash"`
	ExplorerURL string `json:"explorer_url"`
}

// invest handles POST /api/v1/projects/:id/investments. The connected
// wallet pays the project's wallet.
func (s *Server) invest(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req investRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	investorID, err := uuid.Parse(req.InvestorID)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid investor_id")
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	project, err := s.deps.Projects.GetByID(ctx, projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	investor, connected := s.deps.Session.Address()
	if !connected {
		s.fail(c, wallet.ErrNotConnected)
		return
	}

	inv, err := s.deps.Flow.Submit(ctx, investment.Request{
		InvestorWallet:  investor.String(),
		RecipientWallet: project.EntrepreneurWallet,
		Amount:          amount,
		ProjectID:       project.ID,
		InvestorID:      investorID,
	})
	if err != nil {
		var unrecorded *investment.UnrecordedTransferError
		if errors.As(err, &unrecorded) {
			s.logFailure(c, err)
			c.JSON(http.StatusInternalServerError, Response{
				Success: false,
				Message: messageFor(err),
				Data: unrecordedResponse{
					Signature:   unrecorded.Signature.String(),
					ExplorerURL: domain.ExplorerURL(unrecorded.Signature.String(), s.deps.Cluster),
				},
			})
			return
		}
		s.fail(c, err)
		return
	}

	successResponse(c, http.StatusCreated, "Investment successful", investResponse{
		Investment:  inv,
		ExplorerURL: domain.ExplorerURL(inv.TransactionSignature, s.deps.Cluster),
		Flow:        s.deps.Flow.Snapshot(),
	})
}

// listProjectInvestments handles GET /api/v1/projects/:id/investments.
func (s *Server) listProjectInvestments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	investments, err := s.deps.Investments.GetByProjectID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if investments == nil {
		investments = []*domain.Investment{}
	}
	successResponse(c, http.StatusOK, "investments retrieved", investments)
}

// listInvestorInvestments handles GET /api/v1/investors/:id/investments.
func (s *Server) listInvestorInvestments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	investments, err := s.deps.Investments.GetByInvestorID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if investments == nil {
		investments = []*domain.Investment{}
	}
	successResponse(c, http.StatusOK, "investments retrieved", investments)
}

// getFlow handles GET /api/v1/flow.
func (s *Server) getFlow(c *gin.Context) {
	successResponse(c, http.StatusOK, "flow state", s.deps.Flow.Snapshot())
}

// resetFlow handles POST /api/v1/flow/reset.
func (s *Server) resetFlow(c *gin.Context) {
	if err := s.deps.Flow.Reset(); err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, http.StatusOK, "flow reset", s.deps.Flow.Snapshot())
}
