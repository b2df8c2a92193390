package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jamiehall/expenseflow/internal/application/service"
	"github.com/jamiehall/expenseflow/internal/currency"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
	domainwf "github.com/jamiehall/expenseflow/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	expenseService    service.ExpenseService
	submissionService service.SubmissionService
	decisionService   service.DecisionService
	ruleService       service.RuleService
	auditService      service.AuditService
	logger            Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	expenseService service.ExpenseService,
	submissionService service.SubmissionService,
	decisionService service.DecisionService,
	ruleService service.RuleService,
	auditService service.AuditService,
	logger Logger,
) *Handlers {
	return &Handlers{
		expenseService:    expenseService,
		submissionService: submissionService,
		decisionService:   decisionService,
		ruleService:       ruleService,
		auditService:      auditService,
		logger:            logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateExpense handles POST /api/v1/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var input service.CreateExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body: " + err.Error()})
		return
	}

	expense, err := h.expenseService.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: expense})
}

// GetExpense handles GET /api/v1/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	expense, err := h.expenseService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}

// ListExpenses handles GET /api/v1/expenses?company_id=&limit=&offset=
func (h *Handlers) ListExpenses(c *gin.Context) {
	companyID := c.Query("company_id")
	if companyID == "" {
		c.JSON(http.StatusBadRequest, Response{Error: "company_id is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	expenses, err := h.expenseService.List(c.Request.Context(), companyID, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// GetExpenseSteps handles GET /api/v1/expenses/:id/steps
func (h *Handlers) GetExpenseSteps(c *gin.Context) {
	steps, err := h.expenseService.Steps(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: steps})
}

// GetExpenseAudit handles GET /api/v1/expenses/:id/audit
func (h *Handlers) GetExpenseAudit(c *gin.Context) {
	events, err := h.auditService.History(c.Request.Context(), "expense", c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: events})
}

type submitRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
}

// SubmitExpense handles POST /api/v1/expenses/:id/submit
func (h *Handlers) SubmitExpense(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.submissionService.Submit(c.Request.Context(), c.Param("id"), req.ActorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

type decideRequest struct {
	ActorID  string  `json:"actor_id" binding:"required"`
	Decision string  `json:"decision" binding:"required"`
	Comments *string `json:"comments,omitempty"`
}

// DecideStep handles POST /api/v1/steps/:id/decide
func (h *Handlers) DecideStep(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.decisionService.Decide(
		c.Request.Context(),
		c.Param("id"),
		req.ActorID,
		entity.StepStatus(req.Decision),
		req.Comments,
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// CreateRule handles POST /api/v1/rules
func (h *Handlers) CreateRule(c *gin.Context) {
	var input service.CreateRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body: " + err.Error()})
		return
	}

	rule, err := h.ruleService.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: rule})
}

// GetRule handles GET /api/v1/rules/:id
func (h *Handlers) GetRule(c *gin.Context) {
	rule, err := h.ruleService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: rule})
}

// ListRules handles GET /api/v1/rules?company_id=
func (h *Handlers) ListRules(c *gin.Context) {
	companyID := c.Query("company_id")
	if companyID == "" {
		c.JSON(http.StatusBadRequest, Response{Error: "company_id is required"})
		return
	}

	rules, err := h.ruleService.List(c.Request.Context(), companyID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: rules})
}

// DeactivateRule handles DELETE /api/v1/rules/:id
func (h *Handlers) DeactivateRule(c *gin.Context) {
	if err := h.ruleService.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// respondError maps domain errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domainwf.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domainwf.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domainwf.ErrAlreadyDecided),
		errors.Is(err, domainwf.ErrWorkflowClosed),
		errors.Is(err, domainwf.ErrAlreadySubmitted):
		status = http.StatusConflict
	case errors.Is(err, domainwf.ErrInvalidRuleConfig),
		errors.Is(err, domainwf.ErrInvalidDecision),
		errors.Is(err, domainwf.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, currency.ErrRateUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err, "path", c.Request.URL.Path)
		c.JSON(status, Response{Error: "internal error"})
		return
	}
	c.JSON(status, Response{Error: err.Error()})
}
