package push

import (
	"context"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// FCMSender delivers payloads over Firebase Cloud Messaging. The
// subscription endpoint carries the device registration token.
type FCMSender struct {
	client *messaging.Client
	log    *zap.Logger
}

func NewFCMSender(client *messaging.Client, log *zap.Logger) *FCMSender {
	return &FCMSender{client: client, log: log}
}

func (s *FCMSender) Send(ctx context.Context, sub Subscription, payload []byte) SendResult {
	msg := &messaging.Message{
		Token: sub.Endpoint,
		Data:  map[string]string{"payload": string(payload)},
	}
	_, err := s.client.Send(ctx, msg)
	if err == nil {
		return SendDelivered
	}
	if messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsInvalidArgument(err) {
		return SendGone
	}
	s.log.Debug("push: fcm send failed", zap.Error(err))
	return SendTransient
}

var _ Sender = (*FCMSender)(nil)
