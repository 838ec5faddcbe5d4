package services

import (
	"fmt"
	"net/smtp"

	"podoMarketAPI/internal/config"
)

type MailService struct {
	cfg config.SMTP
}

func NewMailService(cfg config.SMTP) *MailService {
	return &MailService{cfg: cfg}
}

func (m *MailService) send(to, subject, body string) error {
	if m.cfg.From == "" {
		return fmt.Errorf("smtp not configured")
	}

	msg := []byte("From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *MailService) SendPaymentFailed(to string) error {
	return m.send(to,
		"[podoMarket] We couldn't renew your membership",
		"Your monthly membership payment was declined. Please update your payment method in the app to keep your benefits.")
}

func (m *MailService) SendRefundConfirmation(to, orderID string, amount int) error {
	return m.send(to,
		"[podoMarket] Your refund is on its way",
		fmt.Sprintf("Order %s has been canceled and %d KRW will be returned to your original payment method.", orderID, amount))
}
