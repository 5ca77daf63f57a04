// Package notify sends assignment digests by email through AWS SES.
// Notifications are advisory and fire-and-forget: a send failure is logged,
// never surfaced to the request that triggered it.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/smarttickets/smarttickets/pkg/types"
)

// SESService is the slice of the SES API the mailer uses; satisfied by
// *ses.Client and by test fakes.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Mailer sends plain-text assignment notifications. The zero value is a
// disabled mailer whose methods are no-ops.
type Mailer struct {
	client    SESService
	sender    string
	recipient string
}

// NewMailer builds a mailer backed by AWS SES in the given region. Sender and
// recipient must both be set; SES additionally requires the sender address to
// be verified.
func NewMailer(ctx context.Context, region, sender, recipient string) (*Mailer, error) {
	if strings.TrimSpace(sender) == "" || strings.TrimSpace(recipient) == "" {
		return nil, fmt.Errorf("notify: sender and recipient are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("notify: load AWS config: %w", err)
	}

	return &Mailer{
		client:    ses.NewFromConfig(awsCfg),
		sender:    sender,
		recipient: recipient,
	}, nil
}

// NewMailerWithClient wraps an existing SES client; intended for tests.
func NewMailerWithClient(client SESService, sender, recipient string) *Mailer {
	return &Mailer{client: client, sender: sender, recipient: recipient}
}

// Enabled reports whether the mailer can actually send.
func (m *Mailer) Enabled() bool {
	return m != nil && m.client != nil
}

// NotifyAssignment emails a short digest of one routing decision. Disabled
// mailers and send failures are both silent apart from a log line.
func (m *Mailer) NotifyAssignment(ctx context.Context, ticketID int64, subject string, decision types.AssignmentDecision) {
	if !m.Enabled() {
		return
	}

	mailSubject := fmt.Sprintf("Ticket %d routed to %s", ticketID, decision.TeamName)
	if decision.Unassigned() {
		mailSubject = fmt.Sprintf("Ticket %d could not be routed", ticketID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ticket:    %d\n", ticketID)
	fmt.Fprintf(&b, "Subject:   %s\n", subject)
	fmt.Fprintf(&b, "Team:      %s\n", decision.TeamName)
	if decision.TeamID != "" {
		fmt.Fprintf(&b, "Team ID:   %s\n", decision.TeamID)
	}
	fmt.Fprintf(&b, "Reasoning: %s\n", decision.Reasoning)

	if err := m.send(ctx, mailSubject, b.String()); err != nil {
		log.Printf("notify: failed to send assignment mail for ticket %d: %v", ticketID, err)
	}
}

func (m *Mailer) send(ctx context.Context, subject, body string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(m.sender),
		Destination: &sestypes.Destination{
			ToAddresses: []string{m.recipient},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	}
	_, err := m.client.SendEmail(ctx, input)
	return err
}
