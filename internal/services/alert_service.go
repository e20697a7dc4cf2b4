// services/alert_service.go
package services

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"opstower/internal/models/db_models"
)

type IAlertService interface {
	// NotifyUnreconciledCharge pages ops when a local record failed to persist
	// after the gateway call succeeded: money may be in flight with no row.
	NotifyUnreconciledCharge(transactionID, provider, detail string)

	NotifyWebhookFailure(provider string, outcome db_models.WebhookOutcome, detail string)
}

// SMTPConfig holds SMTP + routing config for operator alerts.
type SMTPConfig struct {
	Host     string // e.g. "smtp.gmail.com"
	Port     int    // e.g. 587
	Username string
	Password string
	From     string // envelope from, e.g. "alerts@opstower.ph"
	OpsAddr  string // where alerts land
	AppName  string
}

type smtpAlertService struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

// NewSMTPAlertService returns an SMTP-backed alert channel, or a log-only
// no-op when SMTP is unconfigured so the payment path never depends on mail.
func NewSMTPAlertService(cfg SMTPConfig, logger *zap.Logger) IAlertService {
	if cfg.Host == "" || cfg.OpsAddr == "" {
		logger.Warn("SMTP alerts unconfigured, escalations go to logs only")
		return &noopAlertService{logger: logger}
	}
	return &smtpAlertService{cfg: cfg, logger: logger}
}

func (s *smtpAlertService) NotifyUnreconciledCharge(transactionID, provider, detail string) {
	subject := fmt.Sprintf("[%s] UNRECONCILED CHARGE %s", s.cfg.AppName, transactionID)
	body := fmt.Sprintf(
		"Transaction %s was accepted by %s but could not be persisted locally.\n"+
			"Money may be in flight at the gateway with no record.\n\n"+
			"Detail: %s\nAt: %s\n",
		transactionID, provider, detail, time.Now().Format(time.RFC3339))
	s.send(subject, body)
}

func (s *smtpAlertService) NotifyWebhookFailure(provider string, outcome db_models.WebhookOutcome, detail string) {
	subject := fmt.Sprintf("[%s] webhook %s from %s", s.cfg.AppName, outcome, provider)
	body := fmt.Sprintf(
		"A webhook from %s finished with outcome %s.\n\nDetail: %s\nAt: %s\n",
		provider, outcome, detail, time.Now().Format(time.RFC3339))
	s.send(subject, body)
}

func (s *smtpAlertService) send(subject, body string) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var msg strings.Builder
	msg.WriteString("From: " + s.cfg.From + "\r\n")
	msg.WriteString("To: " + s.cfg.OpsAddr + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{s.cfg.OpsAddr}, []byte(msg.String())); err != nil {
		// Alerting must never take the payment path down with it.
		s.logger.Error("ops alert send failed", zap.String("subject", subject), zap.Error(err))
	}
}

type noopAlertService struct {
	logger *zap.Logger
}

func (n *noopAlertService) NotifyUnreconciledCharge(transactionID, provider, detail string) {
	n.logger.Error("UNRECONCILED CHARGE",
		zap.String("transaction_id", transactionID),
		zap.String("provider", provider),
		zap.String("detail", detail))
}

func (n *noopAlertService) NotifyWebhookFailure(provider string, outcome db_models.WebhookOutcome, detail string) {
	n.logger.Error("webhook failure",
		zap.String("provider", provider),
		zap.String("outcome", string(outcome)),
		zap.String("detail", detail))
}
