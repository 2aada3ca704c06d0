package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newCapturingService(t *testing.T, config Config) (*Service, *[]capturedMail) {
	t.Helper()
	svc := NewService(config)
	sent := &[]capturedMail{}
	svc.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, capturedMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return svc, sent
}

func configured() Config {
	return Config{Host: "smtp.example.com", Port: "587", From: "trees@example.com", FromName: "Tree Planting Program"}
}

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{name: "empty config", config: Config{}, expected: false},
		{name: "missing host", config: Config{Port: "587", From: "a@example.com"}, expected: false},
		{name: "missing port", config: Config{Host: "smtp.example.com", From: "a@example.com"}, expected: false},
		{name: "missing from", config: Config{Host: "smtp.example.com", Port: "587"}, expected: false},
		{name: "fully configured", config: configured(), expected: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewService(tt.config).IsConfigured(); got != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUnconfiguredServiceRefusesToSend(t *testing.T) {
	svc, sent := newCapturingService(t, Config{})
	err := svc.SendVolunteerApproved("rosa@example.com", "Rosa")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if len(*sent) != 0 {
		t.Fatal("nothing should be sent")
	}
}

func TestSendRequestDecision(t *testing.T) {
	svc, sent := newCapturingService(t, configured())

	if err := svc.SendRequestDecision("rosa@example.com", "Rosa", "Coast Live Oak", true); err != nil {
		t.Fatalf("accepted: %v", err)
	}
	if err := svc.SendRequestDecision("rosa@example.com", "Rosa", "Coast Live Oak", false); err != nil {
		t.Fatalf("denied: %v", err)
	}
	if len(*sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(*sent))
	}

	accepted := (*sent)[0]
	if accepted.addr != "smtp.example.com:587" || accepted.from != "trees@example.com" {
		t.Fatalf("unexpected envelope: %+v", accepted)
	}
	for _, want := range []string{
		"Subject: Your tree request was accepted",
		"From: Tree Planting Program <trees@example.com>",
		"Coast Live Oak",
		"text/plain",
		"text/html",
	} {
		if !strings.Contains(accepted.msg, want) {
			t.Fatalf("accepted message missing %q", want)
		}
	}
	if !strings.Contains((*sent)[1].msg, "Subject: Your tree request was not accepted") {
		t.Fatal("denied message has wrong subject")
	}
}

func TestNotificationEscapesHTML(t *testing.T) {
	html, err := renderNotification(notification{AppName: appName, FirstName: "<script>", Body: "x"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("first name must be escaped")
	}
}

func TestSendFailureIsWrapped(t *testing.T) {
	svc := NewService(configured())
	svc.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }
	err := svc.SendVolunteerApproved("rosa@example.com", "Rosa")
	if err == nil || !strings.Contains(err.Error(), "send mail") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}
