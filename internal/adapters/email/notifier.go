package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"eventregistration/internal/domain"
)

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	Region             string
	AccessKeyID        string
	SecretAccessKey    string
	InsecureSkipVerify bool
}

// Config holds configuration for creating a notifier. AdminRecipients are
// copied on every notification.
type Config struct {
	Provider        string
	FromAddress     string
	FromName        string
	AdminRecipients []string
	SES             SESConfig
}

// Rendering is out of scope here: each template key maps to a fixed subject
// and the context is sent as a plain key/value body.
var subjects = map[string]string{
	domain.TemplateRegistrationConfirmation: "Your event registration is confirmed",
	domain.TemplateRegistrationCancelled:    "Your event registration has been cancelled",
}

// NewNotifier creates a notifier from config. Provider "ses" uses AWS SES;
// "noop" or unknown logs and drops notifications.
func NewNotifier(config Config) (domain.Notifier, error) {
	switch config.Provider {
	case "ses":
		sesConfig := config.SES
		if sesConfig.InsecureSkipVerify {
			log.Printf("[NOTIFIER] WARNING: TLS certificate verification is disabled for SES. Use only in development.")
		}
		httpClient := &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: sesConfig.InsecureSkipVerify,
					MinVersion:         tls.VersionTLS12,
				},
			},
		}
		awsCfg := aws.Config{
			Region: sesConfig.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(
					sesConfig.AccessKeyID,
					sesConfig.SecretAccessKey,
					"",
				),
			),
			HTTPClient: httpClient,
		}
		client := ses.NewFromConfig(awsCfg)
		return &sesNotifier{
			client:          client,
			fromAddress:     config.FromAddress,
			fromName:        config.FromName,
			adminRecipients: config.AdminRecipients,
		}, nil
	case "noop":
		return &noopNotifier{}, nil
	default:
		log.Printf("[NOTIFIER] Unknown provider %q, using noop", config.Provider)
		return &noopNotifier{}, nil
	}
}

type sesNotifier struct {
	client          *ses.Client
	fromAddress     string
	fromName        string
	adminRecipients []string
}

func (s *sesNotifier) Send(ctx context.Context, recipients []string, templateKey string, data map[string]any) {
	subject, ok := subjects[templateKey]
	if !ok {
		log.Printf("[NOTIFIER] Unknown template %q, dropping notification", templateKey)
		return
	}

	to := dedupe(append(recipients, s.adminRecipients...))
	if len(to) == 0 {
		return
	}

	source := s.fromAddress
	if s.fromName != "" {
		source = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}
	input := &ses.SendEmailInput{
		Source: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: to,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(textBody(data)),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		// Notifications are fire and forget; a delivery failure never blocks
		// the registration or cancellation that triggered it.
		log.Printf("[NOTIFIER] Failed to send %q via SES: %v", templateKey, err)
		return
	}
	log.Printf("[NOTIFIER] Sent %q via SES. MessageID: %s", templateKey, aws.ToString(result.MessageId))
}

func textBody(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, data[k])
	}
	return b.String()
}

func dedupe(addrs []string) []string {
	seen := make(map[string]bool, len(addrs))
	var out []string
	for _, a := range addrs {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

type noopNotifier struct{}

func (n *noopNotifier) Send(ctx context.Context, recipients []string, templateKey string, data map[string]any) {
	log.Printf("[NOTIFIER] noop: %q to %v", templateKey, recipients)
}
