package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-cashflow/internal/date"
	"github.com/sjperalta/fintera-cashflow/internal/middleware"
	"github.com/sjperalta/fintera-cashflow/internal/models"
	"github.com/sjperalta/fintera-cashflow/internal/repository"
	"github.com/sjperalta/fintera-cashflow/internal/services"
)

type EntryHandler struct {
	cashflowService       *services.CashflowService
	reconciliationService *services.ReconciliationService
}

func NewEntryHandler(cashflowSvc *services.CashflowService, reconciliationSvc *services.ReconciliationService) *EntryHandler {
	return &EntryHandler{cashflowService: cashflowSvc, reconciliationService: reconciliationSvc}
}

func actorOf(c *gin.Context) services.Actor {
	return services.Actor{
		OrganizationID: middleware.GetOrganizationID(c),
		UserID:         middleware.GetUserID(c),
	}
}

// CreateEntryRequest is the body of POST /entries
type CreateEntryRequest struct {
	Operation         string          `json:"operation" binding:"required"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	DueDate           date.Date       `json:"due_date"`
	AccountID         *uint           `json:"account_id"`
	ClientID          *uint           `json:"client_id"`
	CommitmentGroupID *uint           `json:"commitment_group_id"`
	CommitmentID      *uint           `json:"commitment_id"`
	CostCenterID      *uint           `json:"cost_center_id"`
	ScheduleID        *uint           `json:"schedule_id"`
}

// ConfirmRequest is the optional body of the confirm endpoints
type ConfirmRequest struct {
	AccountID      uint            `json:"account_id"`
	SettlementDate date.Date       `json:"settlement_date"`
	Amount         decimal.Decimal `json:"amount"`
}

// BulkConfirmRequest is the body of POST /entries/confirm
type BulkConfirmRequest struct {
	EntryIDs       []uint    `json:"entry_ids" binding:"required,min=1"`
	AccountID      uint      `json:"account_id"`
	SettlementDate date.Date `json:"settlement_date"`
}

// UpdateEntryRequest is the body of PATCH /entries/:entry_id
type UpdateEntryRequest struct {
	Amount  *decimal.Decimal `json:"amount"`
	DueDate *date.Date       `json:"due_date"`
}

// ImportRequest is the body of POST /entries/import
type ImportRequest struct {
	Entries []repository.RawEntry `json:"entries" binding:"required,min=1"`
}

// @Summary List Entries
// @Description List ledger entries with their classification against today
// @Tags Entries
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param due_from query string false "YYYY-MM-DD"
// @Param due_to query string false "YYYY-MM-DD"
// @Param cost_center_id query int false "Cost center"
// @Param schedule_id query int false "Schedule"
// @Param limit query int false "Max rows"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /entries [get]
func (h *EntryHandler) Index(c *gin.Context) {
	filter := repository.EntryFilter{Statuses: queryList(c, "status")}
	var err error
	if filter.DueFrom, err = queryDate(c, "due_from"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.DueTo, err = queryDate(c, "due_to"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.CostCenterID, err = queryUint(c, "cost_center_id"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.ScheduleID, err = queryUint(c, "schedule_id"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if raw := c.Query("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil || filter.Limit < 0 {
			badRequest(c, "limit inválido")
			return
		}
	}

	entries, err := h.cashflowService.ListEntries(c.Request.Context(), middleware.GetOrganizationID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// @Summary Get Entry
// @Tags Entries
// @Produce json
// @Param entry_id path int true "Entry ID"
// @Success 200 {object} services.EntryView
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /entries/{entry_id} [get]
func (h *EntryHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "entry_id")
	if !ok {
		return
	}
	entry, err := h.cashflowService.GetEntry(c.Request.Context(), middleware.GetOrganizationID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// @Summary Create Entry
// @Description Create a one-off pending entry. The body may be flat or nested under "entry".
// @Tags Entries
// @Accept json
// @Produce json
// @Success 201 {object} models.LedgerEntryResponse
// @Security BearerAuth
// @Router /entries [post]
func (h *EntryHandler) Create(c *gin.Context) {
	var req CreateEntryRequest
	if err := BindNestedOrFlat(c, "entry", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	op, err := models.ParseOperation(req.Operation)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	entry := &models.LedgerEntry{
		Operation:         op,
		Amount:            req.Amount,
		Description:       req.Description,
		DueDate:           req.DueDate,
		AccountID:         req.AccountID,
		ClientID:          req.ClientID,
		CommitmentGroupID: req.CommitmentGroupID,
		CommitmentID:      req.CommitmentID,
		CostCenterID:      req.CostCenterID,
		ScheduleID:        req.ScheduleID,
	}
	if err := h.reconciliationService.Create(c.Request.Context(), actorOf(c), entry); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry.ToResponse()})
}

// Import records loosely typed entries. Answers 200 when every record was applied,
// 207 when some were and 422 when none were.
func (h *EntryHandler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	report := h.reconciliationService.Import(c.Request.Context(), actorOf(c), req.Entries)
	status := http.StatusOK
	switch {
	case len(report.Failures) > 0 && len(report.Created) == 0:
		status = http.StatusUnprocessableEntity
	case len(report.Failures) > 0:
		status = http.StatusMultiStatus
	}
	c.JSON(status, report)
}

// @Summary Confirm Entry
// @Description Settle a pending entry. Account, date and amount default to the entry's account, today and the scheduled amount.
// @Tags Entries
// @Accept json
// @Produce json
// @Param entry_id path int true "Entry ID"
// @Success 200 {object} models.LedgerEntryResponse
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /entries/{entry_id}/confirm [post]
func (h *EntryHandler) Confirm(c *gin.Context) {
	id, ok := paramID(c, "entry_id")
	if !ok {
		return
	}
	var req ConfirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	entry, err := h.reconciliationService.Confirm(c.Request.Context(), actorOf(c), id, services.ConfirmInput{
		AccountID: req.AccountID,
		On:        req.SettlementDate,
		Amount:    req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry.ToResponse()})
}

// Reverse undoes a confirmation
func (h *EntryHandler) Reverse(c *gin.Context) {
	h.transition(c, h.reconciliationService.Reverse)
}

// Skip excludes a pending entry from totals
func (h *EntryHandler) Skip(c *gin.Context) {
	h.transition(c, h.reconciliationService.Skip)
}

func (h *EntryHandler) Unskip(c *gin.Context) {
	h.transition(c, h.reconciliationService.Unskip)
}

type transitionFunc func(ctx context.Context, actor services.Actor, id uint) (*models.LedgerEntry, error)

func (h *EntryHandler) transition(c *gin.Context, fn transitionFunc) {
	id, ok := paramID(c, "entry_id")
	if !ok {
		return
	}
	entry, err := fn(c.Request.Context(), actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry.ToResponse()})
}

// @Summary Bulk Confirm
// @Description Confirm several entries; each one is applied independently. Answers 207 when some fail.
// @Tags Entries
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Success 207 {object} map[string]interface{}
// @Security BearerAuth
// @Router /entries/confirm [post]
func (h *EntryHandler) BulkConfirm(c *gin.Context) {
	var req BulkConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	report, err := h.reconciliationService.BulkConfirm(c.Request.Context(), actorOf(c), req.EntryIDs, services.ConfirmInput{
		AccountID: req.AccountID,
		On:        req.SettlementDate,
	})
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"confirmed": report.Confirmed, "failed": []gin.H{}})
		return
	}
	partial, ok := services.IsPartial(err)
	if !ok {
		respondError(c, err)
		return
	}

	failed := make([]gin.H, len(partial.Failures))
	for i, f := range partial.Failures {
		failed[i] = gin.H{"entry_id": f.EntryID, "error": f.Err.Error()}
	}
	c.JSON(http.StatusMultiStatus, gin.H{
		"message":   partial.Error(),
		"confirmed": report.Confirmed,
		"failed":    failed,
	})
}

// @Summary Update Entry
// @Description Change the amount and/or due date of a pending entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param entry_id path int true "Entry ID"
// @Success 200 {object} models.LedgerEntryResponse
// @Security BearerAuth
// @Router /entries/{entry_id} [patch]
func (h *EntryHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "entry_id")
	if !ok {
		return
	}
	var req UpdateEntryRequest
	if err := BindNestedOrFlat(c, "entry", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Amount == nil && req.DueDate == nil {
		badRequest(c, "informe amount ou due_date")
		return
	}

	entry, err := h.reconciliationService.Update(c.Request.Context(), actorOf(c), id,
		repository.EntryChanges{Amount: req.Amount, DueDate: req.DueDate})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry.ToResponse()})
}

// @Summary Delete Entry
// @Tags Entries
// @Param entry_id path int true "Entry ID"
// @Success 204
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /entries/{entry_id} [delete]
func (h *EntryHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "entry_id")
	if !ok {
		return
	}
	if err := h.reconciliationService.Delete(c.Request.Context(), actorOf(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
