package resource

import (
	"time"

	"github.com/akashbera009/kichu-kotha/pkg/model"
)

type MessageResource struct {
	ID          string               `json:"id"`
	SenderID    string               `json:"senderId"`
	ReceiverID  string               `json:"receiverId"`
	Payload     model.MessagePayload `json:"payload"`
	MessageType model.MessageType    `json:"messageType"`
	Status      model.MessageStatus  `json:"status"`
	CreatedAt   *time.Time           `json:"createdAt,omitempty"`
}

type MessageListResource struct {
	Members []*MessageResource `json:"members"`
	HasMore bool               `json:"hasMore"`
}

func NewMessage(m *model.Message) (out *MessageResource) {
	out = &MessageResource{
		ID:          m.ID,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		Payload:     m.Payload,
		MessageType: m.Type,
		Status:      m.Status,
	}

	if !m.CreatedAt.IsZero() {
		out.CreatedAt = &time.Time{}
		*out.CreatedAt = m.CreatedAt
	}

	return // out
}

func NewMessageList(m []model.Message, hasMore bool) (out *MessageListResource) {
	out = &MessageListResource{
		Members: make([]*MessageResource, 0),
		HasMore: hasMore,
	}

	for i := range m {
		out.Members = append(out.Members, NewMessage(&m[i]))
	}

	return // out
}
