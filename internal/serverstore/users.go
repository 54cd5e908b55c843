package serverstore

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// User is a server-side account (§3): an id and a name. The salted hash
// of its bearer token stays in the users table and is not loaded here.
type User struct {
	ID   string
	Name string
}

// ErrUnknownUser indicates no user matched the presented bearer token.
var ErrUnknownUser = errors.New("unknown user")

// hashToken combines a per-user salt with the raw token before hashing,
// so that a leaked token table does not let an attacker precompute
// rainbow tables across users (unlike a plain, unsalted hash).
func hashToken(salt, token string) string {
	sum := sha256.Sum256([]byte(salt + token))
	return hex.EncodeToString(sum[:])
}

// CreateUser provisions a new user and a freshly generated bearer token.
// The raw token is returned exactly once; only its salted hash is stored.
func (s *Store) CreateUser(name string) (user *User, token string, err error) {
	id := uuid.NewString()
	token = generateToken()

	saltBytes := make([]byte, 16)
	if _, err := rand.Read(saltBytes); err != nil {
		return nil, "", fmt.Errorf("generate salt: %w", err)
	}
	salt := hex.EncodeToString(saltBytes)
	hash := hashToken(salt, token)

	_, err = s.conn.Exec(
		`INSERT INTO users (id, name, token_salt, token_hash) VALUES (?, ?, ?, ?)`,
		id, name, salt, hash,
	)
	if err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}
	return &User{ID: id, Name: name}, token, nil
}

// VerifyToken looks up the user whose salted token hash matches token.
// Returns ErrUnknownUser if no user matches.
func (s *Store) VerifyToken(token string) (*User, error) {
	rows, err := s.conn.Query(`SELECT id, name, token_salt, token_hash FROM users`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name, salt, hash string
		if err := rows.Scan(&id, &name, &salt, &hash); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		candidate := hashToken(salt, token)
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1 {
			return &User{ID: id, Name: name}, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return nil, ErrUnknownUser
}

// GetUser fetches a user by id, used to resolve createdBy/updatedBy for
// display.
func (s *Store) GetUser(id string) (*User, error) {
	var name string
	err := s.conn.QueryRow(`SELECT name FROM users WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &User{ID: id, Name: name}, nil
}

func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("generate token: " + err.Error())
	}
	return hex.EncodeToString(b)
}
