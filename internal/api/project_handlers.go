package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capitoro/internal/domain"
)

type createProjectRequest struct {
	EntrepreneurID     string `json:"entrepreneur_id" binding:"required"`
	EntrepreneurWallet string `json:"entrepreneur_wallet_address" binding:"required"`
	Name               string `json:"name" binding:"required"`
	Description        string `json:"description"`
	Category           string `json:"category"`
	Stage              string `json:"status"`
	FundingGoal        string `json:"funding_goal" binding:"required"`
}

type projectResponse struct {
	*domain.Project
	TotalRaised   decimal.Decimal `json:"total_raised"`
	InvestorCount int             `json:"investor_count"`
	ProgressPct   decimal.Decimal `json:"progress_pct"`
}

// createProject handles POST /api/v1/projects.
func (s *Server) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	entrepreneurID, err := uuid.Parse(req.EntrepreneurID)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid entrepreneur_id")
		return
	}
	goal, err := decimal.NewFromString(req.FundingGoal)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid funding_goal")
		return
	}

	p := &domain.Project{
		ID:                 uuid.New(),
		EntrepreneurID:     entrepreneurID,
		EntrepreneurWallet: strings.TrimSpace(req.EntrepreneurWallet),
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		Category:           req.Category,
		Stage:              domain.ProjectStage(req.Stage),
		FundingGoal:        goal,
		CreatedAt:          time.Now().UTC(),
	}
	if p.Stage == "" {
		p.Stage = domain.StageIdea
	}

	if err := s.deps.Projects.Insert(c.Request.Context(), p); err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, http.StatusCreated, "project created", projectResponse{
		Project:     p,
		TotalRaised: decimal.Zero,
		ProgressPct: decimal.Zero,
	})
}

// listProjects handles GET /api/v1/projects?category=&search=.
func (s *Server) listProjects(c *gin.Context) {
	filter := domain.ProjectFilter{
		Category: c.Query("category"),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	projects, err := s.deps.Projects.List(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	successResponse(c, http.StatusOK, "projects retrieved", projects)
}

// getProject handles GET /api/v1/projects/:id with live funding totals.
func (s *Server) getProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	p, err := s.deps.Projects.GetByID(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	totals, err := s.deps.Investments.FundingTotals(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, http.StatusOK, "project retrieved", projectResponse{
		Project:       p,
		TotalRaised:   totals.TotalRaised,
		InvestorCount: totals.InvestorCount,
		ProgressPct:   totals.ProgressPct(p.FundingGoal).Round(2),
	})
}

// projectAnalytics handles GET /api/v1/projects/:id/analytics. The mirror
// may lag the ledger.
func (s *Server) projectAnalytics(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if s.deps.Analytics == nil {
		errorResponse(c, http.StatusNotFound, "analytics are not enabled")
		return
	}
	totals, err := s.deps.Analytics.ProjectFunding(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	successResponse(c, http.StatusOK, "analytics retrieved", totals)
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid "+param+": "+err.Error())
		return uuid.Nil, false
	}
	return id, true
}
