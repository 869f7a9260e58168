package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"ipc-alarm-relay/internal/auth"
	"ipc-alarm-relay/pkg/models"
)

// Fixed ntfy headers for every alarm notification.
const (
	DefaultTitle    = "Security Alert"
	DefaultPriority = "5" // ntfy "max"
	DefaultTags     = "warning,camera,security"
)

const DefaultTimeout = 10 * time.Second

type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// Client posts notifications to an ntfy topic URL.
type Client struct {
	HTTP   *resty.Client
	Config Config
}

// DeliveryError is returned when the webhook did not accept a notification,
// either because it answered with a status other than 200 or because the
// request never completed.
type DeliveryError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error sending notification: %v", e.Err)
	}
	return fmt.Sprintf("error sending notification (status %d): %s", e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	r := resty.New()
	r.SetLogger(logrus.StandardLogger())
	r.SetTimeout(cfg.Timeout)
	// One attempt per alarm; the camera re-sends on its own schedule.
	r.SetRetryCount(0)
	r.SetHeader("Authorization", auth.BearerToken(cfg.Token))
	r.SetHeader("Content-Type", "text/plain; charset=utf-8")

	return &Client{
		HTTP:   r,
		Config: cfg,
	}
}

// NewNotification wraps a composed message with the fixed alarm headers.
func NewNotification(message string) models.Notification {
	return models.Notification{
		Message:  message,
		Title:    DefaultTitle,
		Priority: DefaultPriority,
		Tags:     DefaultTags,
	}
}

// Send delivers one notification. Only a 200 response counts as success.
func (c *Client) Send(ctx context.Context, n models.Notification) error {
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetHeader("Title", n.Title).
		SetHeader("Priority", n.Priority).
		SetHeader("Tags", n.Tags).
		SetBody(n.Message).
		Post(c.Config.URL)

	if err != nil {
		return &DeliveryError{Err: errors.Wrapf(err, "POST %s", c.Config.URL)}
	}

	if resp.StatusCode() != 200 {
		return &DeliveryError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	return nil
}
