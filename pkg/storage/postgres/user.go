package postgres

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/akashbera009/kichu-kotha/pkg/model"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

func newUserStore(db *sqlx.DB) *userStore {
	return &userStore{
		db: db,
	}
}

type userStore struct {
	db *sqlx.DB
}

type sqlDataUser struct {
	ID           string         `db:"id"`
	Username     string         `db:"username"`
	PasswordHash string         `db:"password_hash"`
	ProfilePic   string         `db:"profile_pic"`
	IsOnline     bool           `db:"is_online"`
	LastSeen     time.Time      `db:"last_seen"`
	Contacts     pq.StringArray `db:"contacts"`
	PushTokens   pq.StringArray `db:"push_tokens"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (d *sqlDataUser) Scan(m *model.User) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	d.ID = m.ID
	d.Username = m.Username
	d.PasswordHash = m.PasswordHash
	d.ProfilePic = m.ProfilePic
	d.IsOnline = m.IsOnline
	d.LastSeen = m.LastSeen
	d.Contacts = pq.StringArray(m.Contacts)
	d.PushTokens = pq.StringArray(m.PushTokens)
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataUser) Model() (*model.User, error) {
	m := &model.User{
		ID:           d.ID,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		ProfilePic:   d.ProfilePic,
		IsOnline:     d.IsOnline,
		LastSeen:     d.LastSeen,
		Contacts:     []string(d.Contacts),
		PushTokens:   []string(d.PushTokens),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}

	return m, nil
}

func (s *userStore) FindByID(id string) (*model.User, error) {
	d := sqlDataUser{}
	query := "SELECT * FROM users WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find user")
	}

	return d.Model()
}

func (s *userStore) FindByUsername(username string) (*model.User, error) {
	d := sqlDataUser{}
	query := "SELECT * FROM users WHERE username=$1"
	if err := s.db.Get(&d, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find user by username")
	}

	return d.Model()
}

func (s *userStore) Search(username, excludeID string) ([]model.User, error) {
	rows := make([]sqlDataUser, 0)
	models := make([]model.User, 0)

	query := "SELECT * FROM users WHERE username ILIKE '%' || $1 || '%' AND id != $2 ORDER BY username"
	if err := s.db.Select(&rows, query, username, excludeID); err != nil {
		return nil, errors.Wrap(err, "failed to search users")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to user model")
		}

		models = append(models, *m)
	}

	return models, nil
}

func (s *userStore) Create(m *model.User) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	d := sqlDataUser{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert user model to SQL data")
	}

	query := `INSERT INTO users (id, username, password_hash, profile_pic,
		is_online, last_seen, contacts, push_tokens, created_at, updated_at)
		VALUES (:id, :username, :password_hash, :profile_pic, :is_online,
		:last_seen, :contacts, :push_tokens, :created_at, :updated_at)`
	if _, err := s.db.NamedExec(query, d); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return storage.ErrAlreadyExists
		}
		return errors.Wrap(err, "failed to create user")
	}

	m.CreatedAt = d.CreatedAt
	m.UpdatedAt = d.UpdatedAt

	return nil
}

func (s *userStore) SetOnline(id string, online bool, lastSeen time.Time) error {
	query := "UPDATE users SET is_online=$2, last_seen=$3, updated_at=$4 WHERE id=$1"
	res, err := s.db.Exec(query, id, online, lastSeen, time.Now().Round(time.Second).UTC())
	if err != nil {
		return errors.Wrap(err, "failed to update user online state")
	}

	return ensureAffected(res)
}

func (s *userStore) AddContact(id, contactID string) error {
	if _, err := s.FindByID(contactID); err != nil {
		return err
	}

	query := `UPDATE users SET contacts = array_append(contacts, $2), updated_at=$3
		WHERE id=$1 AND NOT ($2 = ANY(contacts))`
	res, err := s.db.Exec(query, id, contactID, time.Now().Round(time.Second).UTC())
	if err != nil {
		return errors.Wrap(err, "failed to add contact")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		// Either the user is missing or the contact is present already.
		if _, err := s.FindByID(id); err != nil {
			return err
		}
		return storage.ErrAlreadyExists
	}

	return nil
}

func (s *userStore) Contacts(id string) ([]model.User, error) {
	owner, err := s.FindByID(id)
	if err != nil {
		return nil, err
	}

	models := make([]model.User, 0, len(owner.Contacts))
	if len(owner.Contacts) == 0 {
		return models, nil
	}

	rows := make([]sqlDataUser, 0)
	query := "SELECT * FROM users WHERE id = ANY($1) ORDER BY username"
	if err := s.db.Select(&rows, query, pq.StringArray(owner.Contacts)); err != nil {
		return nil, errors.Wrap(err, "failed to fetch contacts")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to user model")
		}

		models = append(models, *m)
	}

	return models, nil
}

func (s *userStore) AddPushToken(id, token string) error {
	query := `UPDATE users SET push_tokens = array_append(push_tokens, $2), updated_at=$3
		WHERE id=$1 AND NOT ($2 = ANY(push_tokens))`
	res, err := s.db.Exec(query, id, token, time.Now().Round(time.Second).UTC())
	if err != nil {
		return errors.Wrap(err, "failed to add push token")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		if _, err := s.FindByID(id); err != nil {
			return err
		}
		// Token registered already, nothing to do.
	}

	return nil
}

func ensureAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
