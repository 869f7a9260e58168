package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"ipc-alarm-relay/internal/alarm"
	"ipc-alarm-relay/internal/notify"
	"ipc-alarm-relay/pkg/models"
)

// DefaultMaxBodyBytes caps a request body when WithMaxBodyBytes is not used.
const DefaultMaxBodyBytes = 1 << 20

// Notifier delivers one composed notification.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// Handler receives camera alarm payloads on any path and forwards active
// alarms to a Notifier. It keeps no state between requests.
type Handler struct {
	notifier Notifier
	metrics  *Metrics
	maxBody  int64
	log      logrus.FieldLogger
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics records requests, alarms and notifications in m.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithMaxBodyBytes sets the request body cap. Values <= 0 are ignored.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// WithLogger replaces the standard logrus logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(h *Handler) { h.log = l }
}

// NewHandler returns a Handler that sends notifications through n.
func NewHandler(n Notifier, opts ...Option) *Handler {
	h := &Handler{
		notifier: n,
		maxBody:  DefaultMaxBodyBytes,
		log:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithFields(logrus.Fields{
		"remote": r.RemoteAddr,
		"path":   r.URL.Path,
	})

	// The relay only ever answers 200 or 400.
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeJSON(w, log, http.StatusBadRequest, models.Response{
			Status:  models.StatusError,
			Message: fmt.Sprintf("method %s not allowed", r.Method),
		})
		return
	}

	log.Info("Received alarm request")
	log.Debugf("Headers: %v", r.Header)

	// A caller hanging up does not cancel a notification already under way;
	// the notifier's own timeout bounds the call.
	ctx := context.WithoutCancel(r.Context())

	if err := h.process(ctx, w, r, log); err != nil {
		log.WithError(err).Error("Alarm request failed")
		h.metrics.request(resultError)
		h.writeJSON(w, log, http.StatusBadRequest, models.Response{
			Status:  models.StatusError,
			Message: err.Error(),
		})
		return
	}

	h.metrics.request(resultSuccess)
	h.writeJSON(w, log, http.StatusOK, models.Response{
		Status:  models.StatusSuccess,
		Message: "Request processed",
	})
}

// process runs one payload through parse, extract, compose and, when an
// alarm is active, a single notification attempt.
func (h *Handler) process(ctx context.Context, w http.ResponseWriter, r *http.Request, log logrus.FieldLogger) error {
	// 1. Read
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		return errors.Wrap(err, "cannot read request body")
	}
	log.Debugf("Data received: %s", body)

	// 2. Parse
	root, err := alarm.Parse(body)
	if err != nil {
		return err
	}

	// 3. Extract
	ev, err := alarm.Extract(root)
	if err != nil {
		return err
	}
	log = log.WithFields(logrus.Fields{
		"device": ev.Device.Name(),
		"ip":     ev.Device.IP(),
	})
	log.WithField("alarms", ev.Alarms).Info("Alarms extracted")
	h.metrics.observeAlarms(ev.Alarms)

	// 4. Compose
	msg, ok := alarm.Compose(ev)
	if !ok {
		log.Info("No alarms detected")
		return nil
	}
	if unknown := alarm.UnknownActive(ev.Alarms); len(unknown) > 0 {
		log.WithField("unknown", unknown).Warn("Active alarms have no message line")
	}

	// 5. Dispatch
	log.Info("Sending notification")
	start := time.Now()
	err = h.notifier.Send(ctx, notify.NewNotification(msg))
	h.metrics.observeNotification(err, time.Since(start))
	if err != nil {
		return err
	}
	log.Info("Notification sent")
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, log logrus.FieldLogger, status int, resp models.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.WithError(err).Warn("Cannot write response")
	}
}
