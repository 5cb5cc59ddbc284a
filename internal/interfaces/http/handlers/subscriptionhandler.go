package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"nyxvpn/internal/application/subscription"
	"nyxvpn/internal/domain/entitlement"
	"nyxvpn/internal/shared/logger"
	"nyxvpn/internal/shared/utils"
)

type SubscriptionHandler struct {
	service *subscription.Service
	logger  logger.Interface
}

func NewSubscriptionHandler(service *subscription.Service, log logger.Interface) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, logger: log}
}

type provisionRequest struct {
	AccountID int64  `json:"account_id" binding:"required"`
	Username  string `json:"username"`
	Region    string `json:"region"`
}

type subscriptionResponse struct {
	AccountID        int64     `json:"account_id"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	SubscriptionLink string    `json:"subscription_link"`
	Instructions     string    `json:"instructions"`
	Region           string    `json:"region"`
}

func toSubscriptionResponse(e *entitlement.Entitlement) subscriptionResponse {
	return subscriptionResponse{
		AccountID:        e.TgID,
		StartAt:          e.StartAt,
		EndAt:            e.EndAt,
		SubscriptionLink: e.SubscriptionLink,
		Instructions:     e.Instructions,
		Region:           string(e.Region),
	}
}

// ProvisionTrial handles POST /api/v1/subscriptions/trial.
func (h *SubscriptionHandler) ProvisionTrial(c *gin.Context) {
	var req provisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	e, err := h.service.ProvisionTrial(c.Request.Context(), req.AccountID, req.Username)
	if err != nil {
		h.respondProvisionError(c, req.AccountID, err)
		return
	}
	utils.CreatedResponse(c, toSubscriptionResponse(e))
}

// ProvisionPaid handles POST /api/v1/subscriptions.
func (h *SubscriptionHandler) ProvisionPaid(c *gin.Context) {
	var req provisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	region := entitlement.Region(req.Region)
	if req.Region == "" {
		region = entitlement.RegionPrimary
	}
	if !region.IsValid() {
		utils.ErrorResponse(c, http.StatusBadRequest, "unknown region")
		return
	}

	e, err := h.service.ProvisionPaid(c.Request.Context(), req.AccountID, req.Username, region)
	if err != nil {
		h.respondProvisionError(c, req.AccountID, err)
		return
	}
	utils.CreatedResponse(c, toSubscriptionResponse(e))
}

// GetStatus handles GET /api/v1/subscriptions/:id.
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	tgID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid account id")
		return
	}

	e, err := h.service.ResolveEntitlement(c.Request.Context(), tgID)
	if err != nil {
		h.logger.Errorw("failed to resolve entitlement", "tg_id", tgID, "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to resolve subscription")
		return
	}
	if e == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "no active subscription")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", toSubscriptionResponse(e))
}

func (h *SubscriptionHandler) respondProvisionError(c *gin.Context, tgID int64, err error) {
	switch {
	case errors.Is(err, subscription.ErrInsufficientBalance):
		utils.ErrorResponse(c, http.StatusPaymentRequired, "insufficient balance")
	case errors.Is(err, subscription.ErrActiveSubscriptionExists):
		utils.ErrorResponse(c, http.StatusConflict, "active subscription already exists")
	default:
		h.logger.Errorw("provisioning failed", "tg_id", tgID, "error", err)
		utils.ErrorResponse(c, http.StatusBadGateway, "provisioning failed, try again later")
	}
}
