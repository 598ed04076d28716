package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestTelegramNotifierSendsHTML(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramNotifierWithSender(sender, 42)

	require.NoError(t, n.Send(context.Background(), Alert{Kind: AlertWelcome, Text: "<b>hello</b>"}))
	require.Len(t, sender.sent, 1)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	require.Equal(t, int64(42), msg.ChatID)
	require.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	require.Equal(t, "<b>hello</b>", msg.Text)
}

func TestTelegramNotifierWrapsError(t *testing.T) {
	boom := errors.New("flood wait")
	n := NewTelegramNotifierWithSender(&fakeSender{err: boom}, 42)

	err := n.Send(context.Background(), Alert{Kind: AlertDailySummary, Text: "x"})
	require.ErrorIs(t, err, boom)
}

func TestNewTelegramNotifierRequiresConfig(t *testing.T) {
	_, err := NewTelegramNotifier("", 1)
	require.Error(t, err)
	_, err = NewTelegramNotifier("token", 0)
	require.Error(t, err)
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func TestAMQPPublisherRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := NewAMQPPublisher(ch, "betflow.events")

	aggregate := uuid.New()
	event := NewEvent(EventBetSettled, aggregate, map[string]string{"outcome": "WIN"})
	require.NoError(t, p.Publish(context.Background(), event))

	require.Equal(t, "betflow.events", ch.exchange)
	require.Equal(t, EventBetSettled, ch.key)
	require.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	require.Equal(t, "application/json", ch.msg.ContentType)

	var decoded struct {
		Type        string            `json:"type"`
		AggregateID uuid.UUID         `json:"aggregate_id"`
		Payload     map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	require.Equal(t, EventBetSettled, decoded.Type)
	require.Equal(t, aggregate, decoded.AggregateID)
	require.Equal(t, "WIN", decoded.Payload["outcome"])
}

func TestHTTPRateProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/EUR" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{"USD":1.087,"GBP":0.86}}`))
	}))
	defer srv.Close()

	p := NewHTTPRateProvider(srv.URL+"/", srv.Client())

	rates, err := p.Rates(context.Background(), "EUR")
	require.NoError(t, err)
	require.Equal(t, "1.087", rates["USD"].String())
	require.Equal(t, "0.86", rates["GBP"].String())

	_, err = p.Rates(context.Background(), "XXX")
	require.Error(t, err)
}
