// Package notify tells employees that their attendance was recorded.
package notify

import (
	"context"
	"errors"
	"fmt"
	"crypto/tls"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// Notifier delivers attendance confirmations.
type Notifier interface {
	AttendanceMarked(ctx context.Context, employee domain.Employee, record domain.Attendance) error
}

// NoopNotifier drops every notification.
type NoopNotifier struct{}

func (NoopNotifier) AttendanceMarked(context.Context, domain.Employee, domain.Attendance) error {
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends a plain-text confirmation email.
type SMTPMailer struct {
	config SMTPConfig
	auth   smtp.Auth
	send   sendFunc
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		config: cfg,
		auth:   auth,
		send:   sendMail,
	}
}

// AttendanceMarked is a no-op for employees without an email address.
func (m *SMTPMailer) AttendanceMarked(ctx context.Context, employee domain.Employee, record domain.Attendance) error {
	if employee.Email == "" {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	msg := buildMessage(m.config.From, employee.Email, record.Timestamp)
	if err := m.send(ctx, addr, m.auth, m.config.From, []string{employee.Email}, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return fmt.Errorf("send confirmation to %s: %w", employee.Email, err)
	}
	return nil
}

// sendMail is smtp.SendMail bounded by ctx: the connection is closed when
// ctx is done and carries its deadline.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return err
		}
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(from, to string, at time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Attendance Confirmation\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Your attendance was marked successfully at %s\r\n", at.UTC().Format("2006-01-02 15:04:05"))
	return []byte(b.String())
}

// Async sends through the wrapped Notifier in the background. Failures
// are logged and never reach the caller.
type Async struct {
	next    Notifier
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, timeout time.Duration, logger *slog.Logger) *Async {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Async{
		next:    next,
		timeout: timeout,
		logger:  logger.With("component", "notifier"),
	}
}

func (a *Async) AttendanceMarked(_ context.Context, employee domain.Employee, record domain.Attendance) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		// detached from the request, which is about to finish
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.next.AttendanceMarked(ctx, employee, record); err != nil {
			a.logger.Warn("notification failed",
				slog.Int64("employee_id", employee.ID),
				slog.Int64("attendance_id", record.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil
}

// Wait blocks until in-flight notifications finish.
func (a *Async) Wait() {
	a.wg.Wait()
}

// Multi delivers to every notifier in order and joins their errors.
type Multi []Notifier

func (m Multi) AttendanceMarked(ctx context.Context, employee domain.Employee, record domain.Attendance) error {
	var errs []error
	for _, n := range m {
		if err := n.AttendanceMarked(ctx, employee, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Notifier = NoopNotifier{}
	_ Notifier = Multi(nil)
	_ Notifier = (*SMTPMailer)(nil)
	_ Notifier = (*Async)(nil)
)
