package account

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Store keeps accounts as <dir>/<email>.yaml.
type Store struct {
	dir  string
	cost int
	mu   sync.Mutex
}

// NewStore creates the directory if needed. cost <= 0 uses bcrypt.DefaultCost.
func NewStore(dir string, cost int) (*Store, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create accounts dir: %w", err)
	}
	return &Store{dir: dir, cost: cost}, nil
}

// path maps an email to its account file. Anything that is not a plain
// address is rejected so the result always stays inside dir.
func (s *Store) path(email string) (string, error) {
	key := normalizeEmail(email)
	if err := ValidateEmail(key); err != nil {
		return "", err
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", &ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	return filepath.Join(s.dir, key+".yaml"), nil
}

// Create validates the fields, hashes the password and writes a new account.
func (s *Store) Create(first, last, email, password string) (*Account, error) {
	if err := validateNames(first, last); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acct := &Account{
		FirstName:    first,
		LastName:     last,
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
	}

	path, err := s.path(acct.Email)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%s: %w", acct.Email, ErrExists)
	}
	if err := s.write(path, acct); err != nil {
		return nil, err
	}

	log.Info().Str("email", acct.Email).Msg("Account created")
	return acct, nil
}

// Authenticate returns the account when password matches.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Store) Authenticate(email, password string) (*Account, error) {
	acct, err := s.Load(email)
	var verr *ValidationError
	if errors.Is(err, ErrNotFound) || errors.As(err, &verr) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}

// Load reads an account file.
func (s *Store) Load(email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(email)
}

// Save overwrites an existing account.
func (s *Store) Save(acct *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(acct.Email)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", acct.Email, ErrNotFound)
	}
	return s.write(path, acct)
}

// Update loads the account, applies fn and saves it under one lock.
// The account is written back to the file it was read from.
func (s *Store) Update(email string, fn func(*Account) error) (*Account, error) {
	path, err := s.path(email)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.read(email)
	if err != nil {
		return nil, err
	}
	if err := fn(acct); err != nil {
		return nil, err
	}
	if acct.Email != normalizeEmail(email) {
		return nil, fmt.Errorf("account %s: email is the file key and cannot change", normalizeEmail(email))
	}
	if err := s.write(path, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// UpdateProfile changes the names. The email is the file key and is fixed.
func (s *Store) UpdateProfile(email, first, last string) (*Account, error) {
	if err := validateNames(first, last); err != nil {
		return nil, err
	}
	return s.Update(email, func(a *Account) error {
		a.FirstName = first
		a.LastName = last
		return nil
	})
}

// ChangePassword verifies current before storing the hash of next.
func (s *Store) ChangePassword(email, current, next string) error {
	if err := ValidatePassword(next); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.Update(email, func(a *Account) error {
		if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(current)) != nil {
			return ErrInvalidCredentials
		}
		a.PasswordHash = string(hash)
		return nil
	})
	return err
}

// ShareBridge copies the bridge at index from one account to another,
// credentials included.
func (s *Store) ShareBridge(from string, index int, to string) error {
	if err := ValidateEmail(normalizeEmail(to)); err != nil {
		return err
	}
	if normalizeEmail(from) == normalizeEmail(to) {
		return &ValidationError{Field: "email", Reason: "cannot share a bridge with yourself"}
	}

	src, err := s.Load(from)
	if err != nil {
		return err
	}
	bridge, err := src.BridgeAt(index)
	if err != nil {
		return err
	}

	_, err = s.Update(to, func(a *Account) error {
		return a.AddBridge(bridge)
	})
	if err != nil {
		return err
	}

	log.Info().Str("from", src.Email).Str("to", normalizeEmail(to)).Str("bridge", bridge.Address()).Msg("Bridge shared")
	return nil
}

func (s *Store) read(email string) (*Account, error) {
	path, err := s.path(email)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", normalizeEmail(email), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account: %w", err)
	}

	var acct Account
	if err := yaml.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("failed to parse account %s: %w", normalizeEmail(email), err)
	}
	if acct.Email != normalizeEmail(email) {
		return nil, fmt.Errorf("account file %s holds %q", filepath.Base(path), acct.Email)
	}
	return &acct, nil
}

// write replaces the account file at path atomically via a temp file and rename.
func (s *Store) write(path string, acct *Account) error {
	data, err := yaml.Marshal(acct)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".account-*")
	if err != nil {
		return fmt.Errorf("failed to write account: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write account: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write account: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write account: %w", err)
	}
	return nil
}
