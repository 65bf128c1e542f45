package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/logger"
)

// mailClient is the part of *sendgrid.Client the email service uses.
type mailClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type sendGridEmailService struct {
	client    mailClient
	fromEmail string
	fromName  string
	opsEmail  string
}

// NewSendGridEmailService sends receipts and review digests through SendGrid.
func NewSendGridEmailService(apiKey, fromEmail, fromName, opsEmail string) EmailService {
	return newSendGridEmailService(sendgrid.NewSendClient(apiKey), fromEmail, fromName, opsEmail)
}

func newSendGridEmailService(client mailClient, fromEmail, fromName, opsEmail string) *sendGridEmailService {
	return &sendGridEmailService{client: client, fromEmail: fromEmail, fromName: fromName, opsEmail: opsEmail}
}

func (s *sendGridEmailService) send(to, toName, subject, plainText string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, "")

	logger.ExternalServiceCall("sendgrid", "Send", "subject", subject)
	response, err := s.client.Send(message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "Send", err)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *sendGridEmailService) SendSettlementReceipt(ctx context.Context, booking *domain.Booking, record *domain.CheckRecord, summary domain.SettlementSummary) error {
	if booking.RenterEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Your rental settlement for booking %s", booking.ID)
	return s.send(booking.RenterEmail, booking.RenterName, subject, renderReceipt(booking, record, summary))
}

func (s *sendGridEmailService) SendReviewDigest(ctx context.Context, records []domain.CheckRecord) error {
	if s.opsEmail == "" || len(records) == 0 {
		return nil
	}
	subject := fmt.Sprintf("%d check record(s) awaiting review", len(records))
	return s.send(s.opsEmail, "Operations", subject, renderDigest(records))
}

func renderReceipt(booking *domain.Booking, record *domain.CheckRecord, sum domain.SettlementSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nYour vehicle (%s) has been returned. Here is your settlement:\n\n", booking.RenterName, booking.Registration)
	line := func(label string, v interface{ StringFixed(int32) string }) {
		fmt.Fprintf(&b, "  %-24s %12s\n", label, v.StringFixed(2))
	}
	line("Rental price", sum.RentalPrice)
	line("Extra kilometers", sum.KmOverageFee)
	line("Fuel", sum.FuelFee)
	line("Exterior cleaning", sum.ExteriorCleaningFee)
	line("Interior cleaning", sum.InteriorCleaningFee)
	line("Outstanding fines", sum.FinesTotal)
	line("Total extra charges", sum.TotalCharges)
	line("Deposit", sum.DepositAmount)
	line("Deposit refund", sum.DepositRefund)
	line("Amount due", sum.AmountDueFromRenter)
	fmt.Fprintf(&b, "\nReturn odometer: %d km, fuel: %d%%\n", record.ConfirmedOdometer, record.ConfirmedFuelPercent)
	if record.ManualReconciliation {
		b.WriteString("This settlement was reconciled manually by our staff.\n")
	}
	b.WriteString("\nThank you for renting with us.\n")
	return b.String()
}

func renderDigest(records []domain.CheckRecord) string {
	var b strings.Builder
	b.WriteString("The following check records were flagged and have not been reviewed:\n\n")
	for _, r := range records {
		fmt.Fprintf(&b, "- booking %s, record %s (%s), odometer %d, flags: %s, recorded %s by %s\n",
			r.BookingID, r.ID, r.RecordType, r.ConfirmedOdometer, strings.Join(r.ReviewFlags, ", "),
			r.CreatedAt.Format("2006-01-02 15:04"), r.RecordedBy)
	}
	return b.String()
}

// nopEmailService is used when no mail provider is configured.
type nopEmailService struct{}

func NewNopEmailService() EmailService { return nopEmailService{} }

func (nopEmailService) SendSettlementReceipt(ctx context.Context, booking *domain.Booking, record *domain.CheckRecord, summary domain.SettlementSummary) error {
	return nil
}

func (nopEmailService) SendReviewDigest(ctx context.Context, records []domain.CheckRecord) error {
	return nil
}
