package saga

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const (
	StreamName      = "SUBSCRIPTION_SAGA"
	ProgressSubject = "subscription.saga.progress"
	AlertSubject    = "subscription.saga.alerts"
)

// NatsChannel publishes saga progress events and manual-intervention
// alerts on JetStream, so operator tooling and the UI can subscribe.
// It implements both ProgressSink and AlertChannel.
type NatsChannel struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *zap.Logger
}

func NewNatsChannel(ctx context.Context, url string, logger *zap.Logger) (*NatsChannel, error) {
	ch := &NatsChannel{
		logger: logger.Named("saga-nats"),
	}

	conn, err := nats.Connect(
		url,
		nats.ReconnectHandler(ch.reconnectHandler),
		nats.DisconnectErrHandler(ch.disconnectHandler),
	)
	if err != nil {
		return nil, err
	}
	ch.conn = conn

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	ch.js = js

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{ProgressSubject, AlertSubject},
		MaxMsgs:  100000,
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	return ch, nil
}

func (ch *NatsChannel) reconnectHandler(nc *nats.Conn) {
	ch.logger.Info("got reconnected", zap.String("url", nc.ConnectedUrl()))
}

func (ch *NatsChannel) disconnectHandler(_ *nats.Conn, err error) {
	ch.logger.Error("got disconnected", zap.Error(err))
}

func (ch *NatsChannel) Close() {
	ch.conn.Close()
}

func (ch *NatsChannel) Publish(event ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		ch.logger.Error("marshal progress event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := ch.js.Publish(ctx, ProgressSubject, data); err != nil {
		ch.logger.Error("publish progress event", zap.Error(err),
			zap.String("sagaID", event.SagaID), zap.String("step", string(event.StepID)))
	}
}

func (ch *NatsChannel) ManualInterventionRequired(ctx context.Context, alert ManualInterventionAlert) {
	data, err := json.Marshal(alert)
	if err != nil {
		ch.logger.Error("marshal alert", zap.Error(err))
		return
	}

	if _, err := ch.js.Publish(ctx, AlertSubject, data); err != nil {
		// the alert must never be lost silently; keep a local record
		ch.logger.Error("publish manual intervention alert",
			zap.Error(err),
			zap.String("sagaID", alert.SagaID),
			zap.String("triggeringError", alert.TriggeringError),
			zap.Strings("compensationFailures", alert.Failures),
		)
	}
}
