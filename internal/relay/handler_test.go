package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipc-alarm-relay/internal/notify"
	"ipc-alarm-relay/internal/notify/notifytest"
	"ipc-alarm-relay/pkg/models"
)

const motionPayload = `<root xmlns="http://www.ipc.com/ver10"><alarmStatusInfo><motionAlarm>true</motionAlarm></alarmStatusInfo><deviceInfo><deviceName>[C1]</deviceName><ipAddress>[1.2.3.4]</ipAddress></deviceInfo><dataTime>[T1]</dataTime></root>`

const quietPayload = `<root xmlns="http://www.ipc.com/ver10">
  <alarmStatusInfo>
    <motionAlarm>false</motionAlarm>
    <perimeterAlarm>false</perimeterAlarm>
    <tripwireAlarm>false</tripwireAlarm>
    <humanMotionAlarm>false</humanMotionAlarm>
    <vehicleMotionAlarm>false</vehicleMotionAlarm>
  </alarmStatusInfo>
  <deviceInfo><deviceName>[Cam1]</deviceName><ipAddress>[10.0.0.5]</ipAddress></deviceInfo>
  <dataTime>[2024-01-01T00:00:00]</dataTime>
</root>`

// recorder is a Notifier that keeps every notification in memory.
type recorder struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (r *recorder) Send(ctx context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func serve(t *testing.T, h http.Handler, method, body string) (int, models.Response) {
	t.Helper()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHandler_MotionAlarmScenario(t *testing.T) {
	ts := notifytest.NewServer()
	defer ts.Close()

	h := NewHandler(notify.New(notify.Config{URL: ts.URL, Token: "tk"}), WithLogger(quietLogger()))
	code, resp := serve(t, h, http.MethodPost, motionPayload)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.Response{Status: "success", Message: "Request processed"}, resp)

	reqs := ts.Requests()
	require.Len(t, reqs, 1)
	body := reqs[0].Body
	assert.Contains(t, body, "Time: T1")
	assert.Contains(t, body, "- General motion detected")
	assert.Contains(t, body, "Device name: C1")
	assert.Contains(t, body, "Device IP: 1.2.3.4")
	assert.Equal(t, "Bearer tk", reqs[0].Authorization)
}

func TestHandler_NoAlarmSendsNothing(t *testing.T) {
	n := &recorder{}
	h := NewHandler(n, WithLogger(quietLogger()))

	code, resp := serve(t, h, http.MethodPost, quietPayload)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", resp.Status)
	assert.Empty(t, n.sent)
}

func TestHandler_OneNotificationPerAlarmRequest(t *testing.T) {
	n := &recorder{}
	h := NewHandler(n, WithLogger(quietLogger()))

	payload := strings.Replace(quietPayload, "<humanMotionAlarm>false", "<humanMotionAlarm>true", 1)
	payload = strings.Replace(payload, "<perimeterAlarm>false", "<perimeterAlarm>true", 1)
	code, _ := serve(t, h, http.MethodPost, payload)

	assert.Equal(t, http.StatusOK, code)
	require.Len(t, n.sent, 1)
	msg := n.sent[0].Message
	assert.True(t, strings.HasPrefix(msg, "Time: 2024-01-01T00:00:00\n"), msg)
	assert.Less(t, strings.Index(msg, "Human detected"), strings.Index(msg, "Perimeter breach"))
	assert.Equal(t, "Security Alert", n.sent[0].Title)
	assert.Equal(t, "5", n.sent[0].Priority)
	assert.Equal(t, "warning,camera,security", n.sent[0].Tags)
}

func TestHandler_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		expMsg string
	}{
		{
			name:   "malformed xml",
			body:   `<root><alarmStatusInfo>`,
			expMsg: "cannot parse XML payload",
		},
		{
			name:   "empty body",
			body:   "",
			expMsg: "cannot parse XML payload",
		},
		{
			name:   "invalid utf-8",
			body:   "<root>\xc3\x28</root>",
			expMsg: "invalid UTF-8",
		},
		{
			name:   "missing deviceInfo",
			body:   `<root><alarmStatusInfo><motionAlarm>true</motionAlarm></alarmStatusInfo><dataTime>[T]</dataTime></root>`,
			expMsg: "missing <deviceInfo> element",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := &recorder{}
			h := NewHandler(n, WithLogger(quietLogger()))

			code, resp := serve(t, h, http.MethodPost, tc.body)

			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, "error", resp.Status)
			assert.Contains(t, resp.Message, tc.expMsg)
			assert.Empty(t, n.sent, "no notification on error")
		})
	}
}

func TestHandler_WebhookFailure(t *testing.T) {
	ts := notifytest.NewServer()
	defer ts.Close()
	ts.Fail(http.StatusInternalServerError, "ntfy is down")

	h := NewHandler(notify.New(notify.Config{URL: ts.URL, Token: "tk"}), WithLogger(quietLogger()))
	code, resp := serve(t, h, http.MethodPost, motionPayload)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Message, "ntfy is down")
	assert.Len(t, ts.Requests(), 1)
}

func TestHandler_BodyTooLarge(t *testing.T) {
	n := &recorder{}
	h := NewHandler(n, WithLogger(quietLogger()), WithMaxBodyBytes(32))

	code, resp := serve(t, h, http.MethodPost, motionPayload)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "cannot read request body")
	assert.Empty(t, n.sent)
}

func TestHandler_AnyPath(t *testing.T) {
	n := &recorder{}
	h := NewHandler(n, WithLogger(quietLogger()))

	req := httptest.NewRequest(http.MethodPost, "/some/camera/path?x=1", strings.NewReader(motionPayload))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, n.sent, 1)
}

func TestHandler_WrongMethod(t *testing.T) {
	n := &recorder{}
	h := NewHandler(n, WithLogger(quietLogger()))

	code, resp := serve(t, h, http.MethodGet, "")

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Message, "method GET not allowed")
	assert.Empty(t, n.sent)
}

func TestHandler_CallerGoneStillNotifies(t *testing.T) {
	ts := notifytest.NewServer()
	defer ts.Close()

	h := NewHandler(notify.New(notify.Config{URL: ts.URL, Token: "tk"}), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(motionPayload)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.Requests(), 1)
	assert.Contains(t, ts.Requests()[0].Body, "Time: T1")
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	header http.Header
	code   int
}

func (w *brokenWriter) Header() http.Header         { return w.header }
func (w *brokenWriter) WriteHeader(code int)        { w.code = code }
func (w *brokenWriter) Write(b []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestHandler_WriteFailureUsesHandlerLogger(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	h := NewHandler(&recorder{}, WithLogger(logger))

	w := &brokenWriter{header: http.Header{}}
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(quietPayload)))

	assert.Equal(t, http.StatusOK, w.code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Cannot write response", hook.LastEntry().Message)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	n := &recorder{}
	h := NewHandler(n, WithLogger(quietLogger()), WithMetrics(m))

	serve(t, h, http.MethodPost, motionPayload)
	serve(t, h, http.MethodPost, quietPayload)
	serve(t, h, http.MethodPost, "<broken")

	n.err = &notify.DeliveryError{StatusCode: 500, Body: "down"}
	serve(t, h, http.MethodPost, motionPayload)
	n.err = nil

	unknownTags := strings.Replace(motionPayload,
		"<motionAlarm>true</motionAlarm>",
		"<junk1>true</junk1><junk2>true</junk2>", 1)
	serve(t, h, http.MethodPost, unknownTags)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues(resultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(resultError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.alarms.WithLabelValues("motionAlarm")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.alarms.WithLabelValues(alarmOther)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.notifications.WithLabelValues(outcomeSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues(outcomeFailed)))

	count, err := testutil.GatherAndCount(reg, "ipc_relay_up")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Unknown tags share one series: motionAlarm and other.
	count, err = testutil.GatherAndCount(reg, "ipc_relay_alarms_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
