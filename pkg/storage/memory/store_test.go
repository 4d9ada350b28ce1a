package memory

import (
	"testing"
	"time"

	"github.com/akashbera009/kichu-kotha/pkg/model"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
)

func TestUserCreateRejectsDuplicateUsername(t *testing.T) {
	s := NewStore()

	if err := s.Users().Create(&model.User{Username: "alice"}); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	err := s.Users().Create(&model.User{Username: "alice"})
	if !storage.IsAlreadyExists(err) {
		t.Fatalf("expected already exists error, got %v", err)
	}
}

func TestUserCreateAssignsID(t *testing.T) {
	s := NewStore()

	m := &model.User{Username: "alice"}
	if err := s.Users().Create(m); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if m.ID == "" {
		t.Fatalf("expected an ID to be assigned")
	}

	found, err := s.Users().FindByUsername("alice")
	if err != nil {
		t.Fatalf("expected find to succeed, got %v", err)
	}
	if found.ID != m.ID {
		t.Fatalf("expected the same user, got %+v", found)
	}
}

func TestUserSearchExcludesSelf(t *testing.T) {
	s := NewStore()

	alice := &model.User{Username: "alice"}
	for _, m := range []*model.User{alice, {Username: "alicia"}, {Username: "bob"}} {
		if err := s.Users().Create(m); err != nil {
			t.Fatalf("expected create to succeed, got %v", err)
		}
	}

	found, err := s.Users().Search("ali", alice.ID)
	if err != nil {
		t.Fatalf("expected search to succeed, got %v", err)
	}
	if len(found) != 1 || found[0].Username != "alicia" {
		t.Fatalf("expected only alicia, got %+v", found)
	}
}

func TestUserSetOnline(t *testing.T) {
	s := NewStore()

	m := &model.User{Username: "alice"}
	if err := s.Users().Create(m); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	seen := time.Now().Round(time.Second).UTC()
	if err := s.Users().SetOnline(m.ID, true, seen); err != nil {
		t.Fatalf("expected set online to succeed, got %v", err)
	}

	found, _ := s.Users().FindByID(m.ID)
	if !found.IsOnline || !found.LastSeen.Equal(seen) {
		t.Fatalf("expected online user with last seen %v, got %+v", seen, found)
	}

	if err := s.Users().SetOnline("ghost", true, seen); !storage.IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestUserContacts(t *testing.T) {
	s := NewStore()

	alice := &model.User{Username: "alice"}
	bob := &model.User{Username: "bob"}
	for _, m := range []*model.User{alice, bob} {
		if err := s.Users().Create(m); err != nil {
			t.Fatalf("expected create to succeed, got %v", err)
		}
	}

	if err := s.Users().AddContact(alice.ID, bob.ID); err != nil {
		t.Fatalf("expected add contact to succeed, got %v", err)
	}
	if err := s.Users().AddContact(alice.ID, bob.ID); !storage.IsAlreadyExists(err) {
		t.Fatalf("expected already exists error, got %v", err)
	}

	contacts, err := s.Users().Contacts(alice.ID)
	if err != nil {
		t.Fatalf("expected contacts to succeed, got %v", err)
	}
	if len(contacts) != 1 || contacts[0].Username != "bob" {
		t.Fatalf("expected bob as contact, got %+v", contacts)
	}
}

func TestUserAddPushTokenDeduplicates(t *testing.T) {
	s := NewStore()

	m := &model.User{Username: "alice"}
	if err := s.Users().Create(m); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.Users().AddPushToken(m.ID, "token-1"); err != nil {
			t.Fatalf("expected add push token to succeed, got %v", err)
		}
	}

	found, _ := s.Users().FindByID(m.ID)
	if len(found.PushTokens) != 1 {
		t.Fatalf("expected one push token, got %v", found.PushTokens)
	}
}

func TestMessageUpdateStatus(t *testing.T) {
	s := NewStore()

	m := &model.Message{
		SenderID:   "alice",
		ReceiverID: "bob",
		Payload:    model.MessagePayload{Text: "hello"},
		Status:     model.MessageStatusSent,
	}
	if err := s.Messages().Create(m); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	updated, err := s.Messages().UpdateStatus(m.ID, model.MessageStatusRead)
	if err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}
	if updated.Status != model.MessageStatusRead {
		t.Fatalf("expected read status, got %s", updated.Status)
	}

	if _, err := s.Messages().UpdateStatus("ghost", model.MessageStatusRead); !storage.IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestFetchConversationPagination(t *testing.T) {
	s := NewStore()

	texts := []string{"one", "two", "three", "four", "five"}
	for i, text := range texts {
		sender, receiver := "alice", "bob"
		if i%2 == 1 {
			sender, receiver = "bob", "alice"
		}
		if err := s.Messages().Create(&model.Message{
			SenderID:   sender,
			ReceiverID: receiver,
			Payload:    model.MessagePayload{Text: text},
		}); err != nil {
			t.Fatalf("expected create to succeed, got %v", err)
		}
		// Creation timestamps must strictly increase for a stable order.
		time.Sleep(time.Millisecond)
	}

	// An unrelated conversation must not leak in.
	if err := s.Messages().Create(&model.Message{
		SenderID:   "carol",
		ReceiverID: "alice",
		Payload:    model.MessagePayload{Text: "other"},
	}); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	page, hasMore, err := s.Messages().FetchConversation("alice", "bob", 3, time.Time{})
	if err != nil {
		t.Fatalf("expected fetch to succeed, got %v", err)
	}
	if !hasMore {
		t.Fatalf("expected more messages to remain")
	}
	if len(page) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(page))
	}
	// Newest three of the conversation, oldest first.
	for i, want := range []string{"three", "four", "five"} {
		if page[i].Payload.Text != want {
			t.Fatalf("expected message %d to be %q, got %q", i, want, page[i].Payload.Text)
		}
	}

	older, hasMore, err := s.Messages().FetchConversation("alice", "bob", 3, page[0].CreatedAt)
	if err != nil {
		t.Fatalf("expected fetch to succeed, got %v", err)
	}
	if hasMore {
		t.Fatalf("expected no more messages")
	}
	for i, want := range []string{"one", "two"} {
		if older[i].Payload.Text != want {
			t.Fatalf("expected message %d to be %q, got %q", i, want, older[i].Payload.Text)
		}
	}
}
