package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestMailer(err error) (*SMTPMailer, *[]sentMail) {
	var sent []sentMail
	m := NewSMTPMailer(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "hr@example.com",
		Password: "secret",
	})
	m.send = func(_ context.Context, addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return err
	}
	return m, &sent
}

func TestSMTPMailer_AttendanceMarked(t *testing.T) {
	m, sent := newTestMailer(nil)
	at := time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)

	err := m.AttendanceMarked(context.Background(),
		domain.Employee{ID: 1, Name: "Ana", Email: "ana@example.com"},
		domain.Attendance{ID: 3, Timestamp: at},
	)

	require.NoError(t, err)
	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", mail.addr)
	assert.Equal(t, "hr@example.com", mail.from)
	assert.Equal(t, []string{"ana@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "Subject: Attendance Confirmation\r\n")
	assert.Contains(t, mail.msg, "To: ana@example.com\r\n")
	assert.Contains(t, mail.msg, "marked successfully at 2024-03-01 09:05:07")
}

func TestSMTPMailer_SkipsEmployeeWithoutEmail(t *testing.T) {
	m, sent := newTestMailer(nil)

	err := m.AttendanceMarked(context.Background(), domain.Employee{ID: 1}, domain.Attendance{})

	require.NoError(t, err)
	assert.Empty(t, *sent)
}

func TestSMTPMailer_SendError(t *testing.T) {
	m, _ := newTestMailer(errors.New("535 authentication failed"))

	err := m.AttendanceMarked(context.Background(),
		domain.Employee{Email: "ana@example.com"}, domain.Attendance{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 authentication failed")
}

func TestSMTPMailer_HungServerBoundedByContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// accept and never send the greeting
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-accepted:
			_ = conn.Close()
		default:
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: addr.Port, From: "hr@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = m.AttendanceMarked(ctx, domain.Employee{Email: "ana@example.com"}, domain.Attendance{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewSMTPMailer_FromDefaultsToUsername(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "h", Username: "bot@example.com"})
	assert.Equal(t, "bot@example.com", m.config.From)
	assert.NotNil(t, m.auth)

	anon := NewSMTPMailer(SMTPConfig{Host: "h", From: "noreply@example.com"})
	assert.Nil(t, anon.auth)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{}
}

func (r *recordingNotifier) AttendanceMarked(ctx context.Context, _ domain.Employee, _ domain.Attendance) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestAsync_DeliversInBackground(t *testing.T) {
	next := &recordingNotifier{block: make(chan struct{})}
	async := NewAsync(next, time.Second, slog.New(slog.NewTextHandler(&syncBuffer{}, nil)))

	err := async.AttendanceMarked(context.Background(), domain.Employee{ID: 1}, domain.Attendance{ID: 2})
	require.NoError(t, err, "caller is not blocked by delivery")

	close(next.block)
	async.Wait()
	assert.Equal(t, 1, next.calls)
}

func TestAsync_FailureIsLoggedNotReturned(t *testing.T) {
	logs := &syncBuffer{}
	next := &recordingNotifier{err: errors.New("mailbox unavailable")}
	async := NewAsync(next, time.Second, slog.New(slog.NewTextHandler(logs, nil)))

	err := async.AttendanceMarked(context.Background(), domain.Employee{ID: 9}, domain.Attendance{ID: 4})
	async.Wait()

	require.NoError(t, err)
	out := logs.String()
	assert.True(t, strings.Contains(out, "notification failed"), out)
	assert.Contains(t, out, "employee_id=9")
	assert.Contains(t, out, "mailbox unavailable")
}

func TestAsync_Timeout(t *testing.T) {
	logs := &syncBuffer{}
	next := &recordingNotifier{block: make(chan struct{})}
	async := NewAsync(next, 10*time.Millisecond, slog.New(slog.NewTextHandler(logs, nil)))

	// the request context being canceled must not abort delivery early,
	// only the notifier's own timeout does
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, async.AttendanceMarked(ctx, domain.Employee{ID: 1}, domain.Attendance{}))
	async.Wait()

	assert.Contains(t, logs.String(), "context deadline exceeded")
}

func TestNoopNotifier(t *testing.T) {
	assert.NoError(t, NoopNotifier{}.AttendanceMarked(context.Background(), domain.Employee{}, domain.Attendance{}))
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("smtp down")}
	ok := &recordingNotifier{}

	err := Multi{failing, ok}.AttendanceMarked(context.Background(), domain.Employee{}, domain.Attendance{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls, "later notifiers still run")
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi(nil).AttendanceMarked(context.Background(), domain.Employee{}, domain.Attendance{}))
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error, completed bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if completed {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }

func (t *fakeToken) Error() error { return t.err }

type publishCall struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTT struct {
	token *fakeToken
	calls []publishCall
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.calls = append(f.calls, publishCall{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return f.token
}

func TestMQTTPublisher_AttendanceMarked(t *testing.T) {
	client := &fakeMQTT{token: newFakeToken(nil, true)}
	pub := NewMQTTPublisher(client, "", 1)

	at := time.Date(2024, 3, 1, 8, 5, 0, 0, time.UTC)
	err := pub.AttendanceMarked(context.Background(),
		domain.Employee{ID: 7, Name: "Ana Souza", Department: "Finance"},
		domain.Attendance{ID: 42, EmployeeID: 7, Timestamp: at},
	)

	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	call := client.calls[0]
	assert.Equal(t, DefaultMQTTTopic, call.topic)
	assert.Equal(t, byte(1), call.qos)
	assert.False(t, call.retained)
	assert.JSONEq(t,
		`{"attendance_id":42,"employee_id":7,"name":"Ana Souza","department":"Finance","timestamp":"2024-03-01T08:05:00Z"}`,
		string(call.payload))
}

func TestMQTTPublisher_BrokerError(t *testing.T) {
	client := &fakeMQTT{token: newFakeToken(errors.New("not connected"), true)}
	pub := NewMQTTPublisher(client, "site/a", 0)

	err := pub.AttendanceMarked(context.Background(), domain.Employee{}, domain.Attendance{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish to site/a")
	assert.Contains(t, err.Error(), "not connected")
}

func TestMQTTPublisher_ContextDone(t *testing.T) {
	client := &fakeMQTT{token: newFakeToken(nil, false)}
	pub := NewMQTTPublisher(client, "", 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := pub.AttendanceMarked(ctx, domain.Employee{}, domain.Attendance{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewMQTTPublisher_ClampsQoS(t *testing.T) {
	pub := NewMQTTPublisher(&fakeMQTT{}, "t", 7)
	assert.Equal(t, byte(1), pub.qos)
}
