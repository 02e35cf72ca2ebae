package sim

import (
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/keyhaven/assignment-desk/internal/models"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

const offerEmailHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>New Property Assignment Offer</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif; background-color: #f3f4f6; color: #1f2937; margin: 0; padding: 20px; }
  .container { max-width: 600px; margin: auto; background: #fff; border: 1px solid #e5e7eb; border-radius: 8px; }
  .header { background-color: #dbeafe; padding: 15px 20px; border-bottom: 1px solid #bfdbfe; }
  .header h1 { margin: 0; font-size: 20px; color: #1e40af; }
  .content { padding: 20px; }
  ul { list-style: none; padding: 0; }
  li { padding: 8px; border-bottom: 1px solid #eee; }
  li:last-child { border-bottom: none; }
  strong { color: #000; }
</style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      <p>A property in your area needs an agent. Respond in the app before the offer expires.</p>
      <ul>
        <li><strong>Property:</strong> %s</li>
        <li><strong>Location:</strong> %s, %s %s</li>
        <li><strong>Round:</strong> %d</li>
        <li><strong>Respond by:</strong> %s</li>
      </ul>
    </div>
  </div>
</body>
</html>`

/*
OfferNotifier tells an agent a fresh offer was created for them. Email and
SMS are best-effort: a send failure is logged and never blocks the
assignment flow. Nil clients (local runs without credentials) degrade to
log-only.
*/
type OfferNotifier struct {
	twilioClient   *twilio.RestClient
	sendgridClient *sendgrid.Client
	fromPhone      string
	fromEmail      string
	orgName        string
	sandboxMode    bool
}

func NewOfferNotifier(
	twilioClient *twilio.RestClient,
	sendgridClient *sendgrid.Client,
	fromPhone, fromEmail, orgName string,
	sandboxMode bool,
) *OfferNotifier {
	return &OfferNotifier{
		twilioClient:   twilioClient,
		sendgridClient: sendgridClient,
		fromPhone:      fromPhone,
		fromEmail:      fromEmail,
		orgName:        orgName,
		sandboxMode:    sandboxMode,
	}
}

func (o *OfferNotifier) NotifyOffer(agent *models.Agent, n *models.AssignmentNotification) {
	subject := fmt.Sprintf("New assignment offer: %s", n.Property.Title)
	respondBy := n.ExpiresAt.UTC().Format(time.RFC1123Z)
	plainText := fmt.Sprintf(
		"%s\n\nProperty: %s\nLocation: %s, %s %s\nRound: %d\nRespond by: %s",
		subject,
		n.Property.Title,
		n.Property.City, n.Property.State, n.Property.Pincode,
		n.NotificationRound,
		respondBy,
	)

	if o.twilioClient != nil {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(agent.PhoneNumber)
		params.SetFrom(o.fromPhone)
		params.SetBody(plainText)
		if _, smsErr := o.twilioClient.Api.CreateMessage(params); smsErr != nil {
			utils.Logger.WithError(smsErr).Warnf("Failed to send offer SMS to agent %s", agent.ID)
		}
	} else {
		utils.Logger.Debugf("Twilio client is nil, skipping SMS to agent %s", agent.ID)
	}

	if o.sendgridClient != nil {
		htmlBody := fmt.Sprintf(
			offerEmailHTML,
			subject,
			n.Property.Title,
			n.Property.City, n.Property.State, n.Property.Pincode,
			n.NotificationRound,
			respondBy,
		)
		from := mail.NewEmail(o.orgName, o.fromEmail)
		to := mail.NewEmail(agent.Name, agent.Email)
		msg := mail.NewSingleEmail(from, subject, to, plainText, htmlBody)
		if o.sandboxMode {
			ms := mail.NewMailSettings()
			ms.SetSandboxMode(mail.NewSetting(true))
			msg.MailSettings = ms
		}
		if _, sgErr := o.sendgridClient.Send(msg); sgErr != nil {
			utils.Logger.WithError(sgErr).Warnf("Failed to send offer email to agent %s", agent.ID)
		}
	} else {
		utils.Logger.Debugf("SendGrid client is nil, skipping email to agent %s", agent.ID)
	}

	utils.Logger.Infof("Offer %s (round %d) notified to agent %s", n.ID, n.NotificationRound, agent.ID)
}
