package natspub

import (
	"docflow/event"
	"docflow/notify"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	HandlerName    = "nats"
	DefaultSubject = "docflow.documents"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// Publisher broadcasts document changes on <subject>.<category>, e.g. docflow.documents.created.
type Publisher struct {
	conn    Conn
	subject string
}

// ConnectFromEnv reads NATS_URL and NATS_SUBJECT. It returns nil when NATS_URL is unset.
func ConnectFromEnv() (*Publisher, error) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		return nil, nil
	}
	return Connect(url, os.Getenv("NATS_SUBJECT"))
}

func Connect(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("docflow"),
		nats.Timeout(2*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logrus.Warnf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logrus.Infof("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewPublisher(conn, subject), nil
}

func NewPublisher(conn Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *Publisher) Handle(e *event.EventRecord) *event.EventHandleResult {
	data, err := json.Marshal(notify.NewMessage(e))
	if err != nil {
		return &event.EventHandleResult{Message: err.Error(), HandlerIdentifier: HandlerName}
	}
	subject := notify.Subject(p.subject, e.Category)
	if err := p.conn.Publish(subject, data); err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("nats publish %s: %v", subject, err),
			HandlerIdentifier: HandlerName,
		}
	}
	return &event.EventHandleResult{Success: true, Message: "published to " + subject, HandlerIdentifier: HandlerName}
}
