// Package account stores user accounts and their registered bridges as one
// YAML file per account.
package account

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrExists             = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoBridge           = errors.New("no bridge at index")
)

// Bridge is a bridge registered to an account.
type Bridge struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	IP       string `yaml:"ip"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"` // whitelisted API user on the bridge
}

// Address returns ip:port.
func (b Bridge) Address() string {
	port := b.Port
	if port == 0 {
		port = 80
	}
	return net.JoinHostPort(b.IP, strconv.Itoa(port))
}

// Account represents one user account
type Account struct {
	FirstName    string   `yaml:"first_name"`
	LastName     string   `yaml:"last_name"`
	Email        string   `yaml:"email"`
	PasswordHash string   `yaml:"password_hash"`
	Bridges      []Bridge `yaml:"bridges"`
}

// FullName returns "First Last".
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// AddBridge appends b unless a bridge with the same address is already registered.
func (a *Account) AddBridge(b Bridge) error {
	for _, existing := range a.Bridges {
		if existing.Address() == b.Address() {
			return fmt.Errorf("bridge %s: %w", b.Address(), ErrExists)
		}
	}
	a.Bridges = append(a.Bridges, b)
	return nil
}

func (a *Account) BridgeAt(i int) (Bridge, error) {
	if i < 0 || i >= len(a.Bridges) {
		return Bridge{}, fmt.Errorf("%w %d", ErrNoBridge, i)
	}
	return a.Bridges[i], nil
}

func (a *Account) RemoveBridgeAt(i int) error {
	if i < 0 || i >= len(a.Bridges) {
		return fmt.Errorf("%w %d", ErrNoBridge, i)
	}
	a.Bridges = append(a.Bridges[:i], a.Bridges[i+1:]...)
	return nil
}

// ReplaceBridgeAt swaps in b for the bridge at i. The new address must not
// collide with another registered bridge.
func (a *Account) ReplaceBridgeAt(i int, b Bridge) error {
	if i < 0 || i >= len(a.Bridges) {
		return fmt.Errorf("%w %d", ErrNoBridge, i)
	}
	for j, existing := range a.Bridges {
		if j != i && existing.Address() == b.Address() {
			return fmt.Errorf("bridge %s: %w", b.Address(), ErrExists)
		}
	}
	a.Bridges[i] = b
	return nil
}
