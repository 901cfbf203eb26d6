package webhook

import (
	"context"
	"docflow/common"
	"docflow/event"
	"docflow/notify"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const HandlerName = "webhook"

type Config struct {
	URL     string
	Timeout time.Duration
	// consecutive failures opening the breaker
	MaxFailures uint32
	// how long an open breaker rejects calls before probing again
	OpenTimeout time.Duration
}

// ParseConfigFromEnv returns nil when NOTIFY_WEBHOOK_URL is unset.
func ParseConfigFromEnv() *Config {
	url := os.Getenv("NOTIFY_WEBHOOK_URL")
	if url == "" {
		return nil
	}
	return &Config{URL: url}
}

func (c Config) normalize() Config {
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// Notifier posts every document change to one http endpoint. A failing endpoint opens the
// breaker so transitions stop waiting on it.
type Notifier struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
}

func New(cfg Config) *Notifier {
	cfg = cfg.normalize()
	settings := gobreaker.Settings{
		Name:    HandlerName,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	}
	return &Notifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

func (n *Notifier) State() gobreaker.State {
	return n.breaker.State()
}

func (n *Notifier) Handle(e *event.EventRecord) *event.EventHandleResult {
	body, err := json.Marshal(notify.NewMessage(e))
	if err != nil {
		return &event.EventHandleResult{Message: err.Error(), HandlerIdentifier: HandlerName}
	}

	_, err = n.breaker.Execute(func() (string, error) {
		return common.HttpInvokeJson(context.Background(), n.client, http.MethodPost, n.cfg.URL, nil, string(body))
	})
	if err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("post %s of document %d: %v", e.Category, e.DocumentID, err),
			HandlerIdentifier: HandlerName,
		}
	}
	return &event.EventHandleResult{Success: true, Message: "posted", HandlerIdentifier: HandlerName}
}
