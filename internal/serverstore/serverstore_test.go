package serverstore

import "testing"

func TestOpenInMemoryAndPing(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if err := store.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestCreateUserAndVerifyToken(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	user, token, err := store.CreateUser("alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	found, err := store.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if found.ID != user.ID {
		t.Fatalf("expected to resolve back to the same user")
	}

	if _, err := store.VerifyToken("wrong-token"); err != ErrUnknownUser {
		t.Fatalf("expected ErrUnknownUser for bad token, got %v", err)
	}
}

func TestResetAllOnEmptyStoreReportsZero(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	n, err := store.ResetAll()
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 todos deleted on empty store, got %d", n)
	}
}
