package postgres

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/akashbera009/kichu-kotha/pkg/model"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

func newMessageStore(db *sqlx.DB) *messageStore {
	return &messageStore{
		db: db,
	}
}

type messageStore struct {
	db *sqlx.DB
}

type sqlDataMessage struct {
	ID         string    `db:"id"`
	SenderID   string    `db:"sender_id"`
	ReceiverID string    `db:"receiver_id"`
	Text       string    `db:"text"`
	Image      string    `db:"image"`
	Audio      string    `db:"audio"`
	Type       string    `db:"message_type"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (d *sqlDataMessage) Scan(m *model.Message) error {
	d.ID = m.ID
	d.SenderID = m.SenderID
	d.ReceiverID = m.ReceiverID
	d.Text = m.Payload.Text
	d.Image = m.Payload.Image
	d.Audio = m.Payload.Audio
	d.Type = m.Type.String()
	d.Status = m.Status.String()
	d.CreatedAt = m.CreatedAt
	d.UpdatedAt = m.UpdatedAt

	return nil
}

func (d *sqlDataMessage) Model() (*model.Message, error) {
	var msgType model.MessageType
	if err := msgType.UnmarshalJSON([]byte(`"` + d.Type + `"`)); err != nil {
		return nil, err
	}
	var status model.MessageStatus
	if err := status.UnmarshalJSON([]byte(`"` + d.Status + `"`)); err != nil {
		return nil, err
	}

	m := &model.Message{
		ID:         d.ID,
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		Payload: model.MessagePayload{
			Text:  d.Text,
			Image: d.Image,
			Audio: d.Audio,
		},
		Type:      msgType,
		Status:    status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}

	return m, nil
}

func (s *messageStore) FindByID(id string) (*model.Message, error) {
	d := sqlDataMessage{}
	query := "SELECT * FROM messages WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find message")
	}

	return d.Model()
}

func (s *messageStore) Create(m *model.Message) error {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt

	d := sqlDataMessage{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert message model to SQL data")
	}

	query := `INSERT INTO messages (id, sender_id, receiver_id, text, image,
		audio, message_type, status, created_at, updated_at)
		VALUES (:id, :sender_id, :receiver_id, :text, :image, :audio,
		:message_type, :status, :created_at, :updated_at)`
	if _, err := s.db.NamedExec(query, d); err != nil {
		return errors.Wrap(err, "failed to create message")
	}

	return nil
}

func (s *messageStore) UpdateStatus(id string, status model.MessageStatus) (*model.Message, error) {
	query := "UPDATE messages SET status=$2, updated_at=$3 WHERE id=$1"
	res, err := s.db.Exec(query, id, status.String(), time.Now().UTC())
	if err != nil {
		return nil, errors.Wrap(err, "failed to update message status")
	}
	if err := ensureAffected(res); err != nil {
		return nil, err
	}

	return s.FindByID(id)
}

func (s *messageStore) FetchConversation(userID, peerID string, limit int, before time.Time) ([]model.Message, bool, error) {
	rows := make([]sqlDataMessage, 0)

	query := `SELECT * FROM messages
		WHERE ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1))`
	args := []interface{}{userID, peerID}
	if !before.IsZero() {
		query += " AND created_at < $3"
		args = append(args, before)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		// Fetch one extra row to detect whether older messages remain.
		query += " LIMIT " + strconv.Itoa(limit+1)
	}

	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, false, errors.Wrap(err, "failed to fetch conversation")
	}

	hasMore := false
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
		hasMore = true
	}

	// Newest first from the database, reversed to oldest first.
	models := make([]model.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		m, err := rows[i].Model()
		if err != nil {
			return nil, false, errors.Wrap(err, "failed to convert SQL data to message model")
		}
		models = append(models, *m)
	}

	return models, hasMore, nil
}
