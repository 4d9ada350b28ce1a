package chat

import (
	log "github.com/sirupsen/logrus"

	"github.com/akashbera009/kichu-kotha/pkg/chat/proto"
	"github.com/akashbera009/kichu-kotha/pkg/model"
	"github.com/akashbera009/kichu-kotha/pkg/notify"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

// Relay persists and forwards direct messages. Persistence is the source
// of truth: a message is durable before any delivery is attempted, and a
// receiver without a live session gets a push notification instead.
type Relay struct {
	registry *Registry
	store    storage.Interface
	notifier notify.Dispatcher
}

func NewRelay(registry *Registry, store storage.Interface, notifier notify.Dispatcher) *Relay {
	return &Relay{
		registry: registry,
		store:    store,
		notifier: notifier,
	}
}

// Send persists one message and delivers it. The sender always gets a
// messageSent echo carrying the stored record; the receiver gets either a
// live receiveMessage or a push notification.
func (r *Relay) Send(sender *Session, req *proto.SendMessage) error {
	if req.ReceiverID == "" {
		return NewValidationError("Invalid message data")
	}
	if req.Payload.Empty() {
		return NewValidationError("Invalid message data")
	}

	m := &model.Message{
		SenderID:   sender.UserID,
		ReceiverID: req.ReceiverID,
		Payload:    req.Payload,
		Type:       req.MessageType,
		Status:     model.MessageStatusSent,
	}
	if err := r.store.Messages().Create(m); err != nil {
		log.WithFields(log.Fields{
			"sender":   sender.UserID,
			"receiver": req.ReceiverID,
		}).Errorf("failed to persist message: %v", err)
		return NewValidationError("Failed to send message")
	}

	data := proto.NewMessageData(m)

	if receiver, ok := r.registry.Lookup(req.ReceiverID); ok {
		receiver.Send(proto.OutReceiveMessage, data)
	} else {
		r.pushNotification(sender, m)
	}

	sender.Send(proto.OutMessageSent, data)
	return nil
}

// MarkRead flips a message to read and tells its sender if they are live.
func (r *Relay) MarkRead(reader *Session, req *proto.MessageRead) error {
	if req.MessageID == "" {
		return NewValidationError("Invalid message id")
	}

	m, err := r.store.Messages().FindByID(req.MessageID)
	if err != nil {
		if storage.IsNotFound(err) {
			return NewValidationError("Message not found")
		}
		log.Errorf("failed to load message %s: %v", req.MessageID, err)
		return NewValidationError("Failed to update message")
	}

	// Only the receiver may flip a message to read.
	if m.ReceiverID != reader.UserID {
		return NewValidationError("Message not found")
	}

	m, err = r.store.Messages().UpdateStatus(req.MessageID, model.MessageStatusRead)
	if err != nil {
		log.Errorf("failed to mark message %s read: %v", req.MessageID, err)
		return NewValidationError("Failed to update message")
	}

	if sender, ok := r.registry.Lookup(m.SenderID); ok {
		sender.Send(proto.OutMessageRead, proto.MessageReadEvent{MessageID: m.ID})
	}

	return nil
}

// Typing relays a typing indicator, silently dropped when the receiver has
// no live session.
func (r *Relay) Typing(from *Session, req *proto.Typing, start bool) {
	if req.ReceiverID == "" {
		return
	}

	receiver, ok := r.registry.Lookup(req.ReceiverID)
	if !ok {
		return
	}

	event := proto.OutTypingStop
	if start {
		event = proto.OutTypingStart
	}
	receiver.Send(event, proto.TypingEvent{UserID: from.UserID})
}

func (r *Relay) pushNotification(sender *Session, m *model.Message) {
	receiver, err := r.store.Users().FindByID(m.ReceiverID)
	if err != nil {
		if !storage.IsNotFound(err) {
			log.Errorf("failed to load receiver %s for notification: %v", m.ReceiverID, err)
		}
		return
	}
	if len(receiver.PushTokens) == 0 {
		return
	}

	body := m.Payload.Text
	if body == "" {
		body = "Sent a file"
	}

	r.notifier.Notify(receiver.PushTokens, notify.Summary{
		MessageID:  m.ID,
		SenderID:   sender.UserID,
		SenderName: r.registry.Name(sender.UserID),
		Body:       body,
		Type:       m.Type.String(),
	})
}
