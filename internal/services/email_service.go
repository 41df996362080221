package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	qrcode "github.com/skip2/go-qrcode"

	pkglogger "github.com/launchboxhq/launchbox/pkg/logger"
)

// AWSSESEmailSender delivers one-time codes over AWS SES. Each message
// carries the confirmation link (also rendered as a QR code) and the
// six-digit OTP for manual entry.
type AWSSESEmailSender struct {
	sesClient   *ses.Client
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

func NewAWSSESEmailSender(region, fromAddress, baseURL string, logger *slog.Logger) (*AWSSESEmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailSender{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}, nil
}

// SendOneTimeCode sends the delivery to its recipient.
func (s *AWSSESEmailSender) SendOneTimeCode(ctx context.Context, delivery CodeDelivery) error {
	link := fmt.Sprintf("%s/v1/codes/confirm?purpose=%s&code=%s",
		s.baseURL, url.QueryEscape(delivery.Purpose), url.QueryEscape(delivery.Code))

	qrDataURL, err := qrDataURL(link)
	if err != nil {
		return fmt.Errorf("failed to render QR code: %w", err)
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>Your one-time code</h1>
        <p>Use the link below to continue, or scan the QR code:</p>
        <p><a href="%s">%s</a></p>
        <p><img src="%s" alt="QR code" width="200" height="200"></p>
        <p>Alternatively, enter this code when prompted:</p>
        <p style="font-size: 28px; letter-spacing: 4px;"><strong>%s</strong></p>
        <p>This code expires at %s. If you did not request it, you can
        ignore this email.</p>
    </div>
</body>
</html>
`, link, link, qrDataURL, delivery.OTP, delivery.ExpiresAt.UTC().Format("15:04 MST, Jan 2 2006"))

	textBody := fmt.Sprintf(`Your one-time code

Use this link to continue:

%s

Alternatively, enter this code when prompted: %s

This code expires at %s. If you did not request it, you can ignore this
email.
`, link, delivery.OTP, delivery.ExpiresAt.UTC().Format("15:04 MST, Jan 2 2006"))

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{delivery.Recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your one-time code"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send one-time code via SES",
			slog.String("recipient", pkglogger.SanitizedEmail(delivery.Recipient)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("one-time code email sent",
		slog.String("recipient", pkglogger.SanitizedEmail(delivery.Recipient)),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

func qrDataURL(link string) (string, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, 200)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
