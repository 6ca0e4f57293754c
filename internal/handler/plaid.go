package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/internal/dto"
	"github.com/nimbuswolf/finance-api/internal/middleware"
	"github.com/nimbuswolf/finance-api/internal/service"
	ctxutil "github.com/nimbuswolf/finance-api/pkg/context"
	"github.com/nimbuswolf/finance-api/pkg/logger"
)

type PlaidHandler struct {
	links        *service.LinkService
	syncs        *service.SyncService
	transactions *service.TransactionService
	production   bool
}

func NewPlaidHandler(links *service.LinkService, syncs *service.SyncService, transactions *service.TransactionService, production bool) *PlaidHandler {
	return &PlaidHandler{
		links:        links,
		syncs:        syncs,
		transactions: transactions,
		production:   production,
	}
}

func (h *PlaidHandler) CreateLinkToken(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), constants.ModuleHandler, "CreateLinkToken")
	userID, _ := middleware.UserID(c)

	resp, err := h.links.CreateLinkSession(ctx, userID)
	if err != nil {
		writeError(c, err, !h.production)
		return
	}
	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Link token created successfully", resp))
}

func (h *PlaidHandler) ExchangePublicToken(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), constants.ModuleHandler, "ExchangePublicToken")
	userID, _ := middleware.UserID(c)

	req, ok := middleware.ValidatedBody[dto.ExchangePublicTokenRequest](c)
	if !ok {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
		return
	}

	resp, err := h.links.ExchangePublicToken(ctx, userID, req.PublicToken)
	if err != nil {
		logger.WarnWithContext(ctx, "Account link failed").
			Err(err).
			Log()
		writeError(c, err, !h.production)
		return
	}
	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Account connected successfully", resp))
}

func (h *PlaidHandler) GetAccounts(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), constants.ModuleHandler, "GetAccounts")
	userID, _ := middleware.UserID(c)

	accounts, err := h.links.ListAccounts(ctx, userID)
	if err != nil {
		writeError(c, err, !h.production)
		return
	}
	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Accounts retrieved successfully", dto.AccountsResponse{Accounts: accounts}))
}

func (h *PlaidHandler) SyncTransactions(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), constants.ModuleHandler, "SyncTransactions")
	userID, _ := middleware.UserID(c)
	accountID := c.Param("accountId")

	resp, err := h.syncs.SyncTransactions(ctx, userID, accountID)
	if err != nil {
		logger.WarnWithContext(ctx, "Transaction sync failed").
			String("account_id", accountID).
			Err(err).
			Log()
		writeError(c, err, !h.production)
		return
	}
	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Transactions synced successfully", resp))
}

func (h *PlaidHandler) DeleteAccount(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), constants.ModuleHandler, "DeleteAccount")
	userID, _ := middleware.UserID(c)

	if err := h.links.DeleteAccount(ctx, userID, c.Param("accountId")); err != nil {
		writeError(c, err, !h.production)
		return
	}
	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Account disconnected successfully",
		dto.MessageResponse{Message: "Account disconnected successfully"}))
}

func (h *PlaidHandler) GetTransactions(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), constants.ModuleHandler, "GetTransactions")
	userID, _ := middleware.UserID(c)

	filter, problems := parseTransactionFilter(c)
	if len(problems) > 0 {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(problems[0], problems))
		return
	}
	filter.UserID = userID

	resp, err := h.transactions.ListTransactions(ctx, filter, constants.ParsePaginationParams(c))
	if err != nil {
		writeError(c, err, !h.production)
		return
	}
	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Transactions retrieved successfully", resp))
}

func parseTransactionFilter(c *gin.Context) (dto.TransactionFilter, []string) {
	var (
		filter   dto.TransactionFilter
		problems []string
	)

	filter.AccountID = c.Query(constants.QueryParamAccountID)

	parseDate := func(param string) *time.Time {
		raw := c.Query(param)
		if raw == "" {
			return nil
		}
		t, err := time.ParseInLocation(constants.ProviderDateLayout, raw, time.UTC)
		if err != nil {
			problems = append(problems, param+" must be a date in YYYY-MM-DD format")
			return nil
		}
		return &t
	}
	filter.StartDate = parseDate(constants.QueryParamStartDate)
	filter.EndDate = parseDate(constants.QueryParamEndDate)

	if raw := c.Query(constants.QueryParamPending); raw != "" {
		pending, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, "pending must be true or false")
		} else {
			filter.Pending = &pending
		}
	}

	return filter, problems
}
