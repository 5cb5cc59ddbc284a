package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	accountApp "nyxvpn/internal/application/account"
	"nyxvpn/internal/shared/logger"
	"nyxvpn/internal/shared/utils"
)

type AccountHandler struct {
	service *accountApp.Service
	logger  logger.Interface
}

func NewAccountHandler(service *accountApp.Service, log logger.Interface) *AccountHandler {
	return &AccountHandler{service: service, logger: log}
}

type balanceResponse struct {
	AccountID       int64  `json:"account_id"`
	Username        string `json:"username,omitempty"`
	Balance         int64  `json:"balance"`
	ReferralBalance int64  `json:"referral_balance"`
	InvitedCount    int64  `json:"invited_count"`
}

// GetBalance handles GET /api/v1/accounts/:id/balance.
func (h *AccountHandler) GetBalance(c *gin.Context) {
	tgID, ok := h.accountID(c)
	if !ok {
		return
	}

	info, err := h.service.GetReferralInfo(c.Request.Context(), tgID)
	if err != nil {
		h.logger.Errorw("failed to get account", "tg_id", tgID, "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to get account")
		return
	}
	if info == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "account not found")
		return
	}

	resp := balanceResponse{
		AccountID:       info.TgID,
		Balance:         info.Balance,
		ReferralBalance: info.ReferralBalance,
		InvitedCount:    info.InvitedCount,
	}
	if info.Username != nil {
		resp.Username = *info.Username
	}
	utils.SuccessResponse(c, http.StatusOK, "", resp)
}

type bindReferrerRequest struct {
	ReferrerID int64 `json:"referrer_id" binding:"required"`
}

// BindReferrer handles POST /api/v1/accounts/:id/referrer.
func (h *AccountHandler) BindReferrer(c *gin.Context) {
	tgID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req bindReferrerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	bound, err := h.service.BindReferrer(c.Request.Context(), tgID, req.ReferrerID)
	if err != nil {
		h.logger.Errorw("failed to bind referrer", "tg_id", tgID, "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to bind referrer")
		return
	}
	if !bound {
		utils.ErrorResponse(c, http.StatusConflict, "referrer binding refused")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "referrer bound", nil)
}

// TransferReferralBalance handles POST /api/v1/accounts/:id/referral-transfer.
func (h *AccountHandler) TransferReferralBalance(c *gin.Context) {
	tgID, ok := h.accountID(c)
	if !ok {
		return
	}

	transferred, err := h.service.TransferReferralBalance(c.Request.Context(), tgID)
	if err != nil {
		h.logger.Errorw("failed to transfer referral balance", "tg_id", tgID, "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to transfer referral balance")
		return
	}
	if !transferred {
		utils.ErrorResponse(c, http.StatusConflict, "referral balance below transfer minimum")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "referral balance transferred", nil)
}

func (h *AccountHandler) accountID(c *gin.Context) (int64, bool) {
	tgID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return tgID, true
}
