package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"opstower/internal/models/request_models"
	"opstower/internal/models/response_models"
	"opstower/internal/services"
	"opstower/pkg/utils"
)

type PaymentController struct {
	orchestrator  services.PaymentOrchestrator
	webhookRouter services.WebhookRouter
}

func NewPaymentController(orchestrator services.PaymentOrchestrator, webhookRouter services.WebhookRouter) *PaymentController {
	return &PaymentController{
		orchestrator:  orchestrator,
		webhookRouter: webhookRouter,
	}
}

// InitiatePayment godoc
// @Summary Initiate a payment through the configured gateways
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.InitiatePaymentRequest true "Payment request"
// @Success 201 {object} utils.APIResponse
// @Router /payments/initiate [post]
func (p *PaymentController) InitiatePayment(c *gin.Context) {
	var request request_models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := p.orchestrator.InitiatePayment(c.Request.Context(), request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondCreated(c, resp, "Payment initiated")
}

// GetPaymentStatus godoc
// @Summary Read a transaction's status, optionally re-syncing with the gateway
// @Tags Payments
// @Produce json
// @Param transactionId path string true "Transaction ID"
// @Param sync query bool false "Force a synchronous gateway status query"
// @Success 200 {object} utils.APIResponse
// @Router /payments/status/{transactionId} [get]
func (p *PaymentController) GetPaymentStatus(c *gin.Context) {
	transactionID := c.Param("transactionId")
	if transactionID == "" {
		utils.RespondError(c, http.StatusBadRequest, "transactionId is required")
		return
	}
	sync := c.Query("sync") == "true"

	resp, err := p.orchestrator.GetPaymentStatus(c.Request.Context(), transactionID, sync)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, resp, "Payment status")
}

// ProcessRefund godoc
// @Summary Request a refund against a completed transaction
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.RefundRequest true "Refund request"
// @Success 201 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/refund [post]
func (p *PaymentController) ProcessRefund(c *gin.Context) {
	var request request_models.RefundRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := p.orchestrator.ProcessRefund(c.Request.Context(), request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondCreated(c, resp, "Refund recorded")
}

// HandleWebhook receives raw gateway notifications. Identified providers
// always get a 200 regardless of processing outcome, so gateways never spiral
// into retry storms; failures live in the delivery log instead.
func (p *PaymentController) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	results, ok := p.webhookRouter.Route(c.Request.Context(), c.Request.Header, body)
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, "Unknown webhook provider")
		return
	}

	acks := make([]response_models.WebhookAck, 0, len(results))
	for _, result := range results {
		acks = append(acks, response_models.WebhookAck{
			Outcome:       string(result.Outcome),
			TransactionID: result.TransactionID,
		})
	}
	utils.RespondSuccess(c, acks, "Webhook received")
}
