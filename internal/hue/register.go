package hue

import (
	"context"
	"fmt"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
)

// Register creates a whitelisted user on the bridge at address. The bridge's
// link button must have been pressed within the last 30 seconds.
func Register(ctx context.Context, address, deviceType string) (string, error) {
	c := NewClient(address, "", 0)
	user, err := c.bridge.CreateUserContext(ctx, deviceType)
	if err != nil {
		return "", fmt.Errorf("failed to register with bridge %s: %w", c.address, err)
	}

	log.Info().Str("bridge", c.address).Msg("Registered with bridge")
	return user, nil
}

// Discover lists bridges on the local network
func Discover(ctx context.Context) ([]DiscoveredBridge, error) {
	found, err := huego.DiscoverAllContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover bridges: %w", err)
	}

	bridges := make([]DiscoveredBridge, 0, len(found))
	for _, b := range found {
		bridges = append(bridges, DiscoveredBridge{ID: b.ID, Address: b.Host})
	}
	return bridges, nil
}
