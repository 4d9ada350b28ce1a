package resource

import (
	"fmt"
	"sort"
	"time"

	"github.com/akashbera009/kichu-kotha/pkg/model"
)

type UserResource struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	ProfilePic string     `json:"profilePic,omitempty"`
	IsOnline   bool       `json:"isOnline"`
	LastSeen   *time.Time `json:"lastSeen,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
}

type UserListResource struct {
	Members []*UserResource `json:"members"`
}

func NewUser(m *model.User) (out *UserResource) {
	out = &UserResource{
		ID:         m.ID,
		Username:   m.Username,
		ProfilePic: m.ProfilePic,
		IsOnline:   m.IsOnline,
	}

	if !m.LastSeen.IsZero() {
		out.LastSeen = &time.Time{}
		*out.LastSeen = m.LastSeen.Round(time.Second)
	}
	if !m.CreatedAt.IsZero() {
		out.CreatedAt = &time.Time{}
		*out.CreatedAt = m.CreatedAt.Round(time.Second)
	}

	return // out
}

func NewUserList(m []model.User) (out *UserListResource) {
	out = &UserListResource{
		Members: make([]*UserResource, 0),
	}

	for i := range m {
		out.Members = append(out.Members, NewUser(&m[i]))
	}

	// Default sort by username
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].Username < out.Members[j].Username
	})

	return // out
}

type RegisterResource struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	ProfilePic string `json:"profilePic,omitempty"`
}

func ValidateRegister(r *RegisterResource) (m *model.User, err error) {
	if r.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(r.Password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters")
	}

	m = &model.User{
		Username:   r.Username,
		ProfilePic: r.ProfilePic,
	}

	return m, nil
}

type LoginResource struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ContactResource struct {
	ContactID string `json:"contactId"`
}

type PushTokenResource struct {
	Token string `json:"token"`
}
