package devkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-integrations/core"
)

func ValidateTransportAdapterConformance(
	ctx context.Context,
	adapter core.TransportAdapter,
	request core.TransportRequest,
) error {
	if adapter == nil {
		return fmt.Errorf("devkit: transport adapter is required")
	}
	if strings.TrimSpace(adapter.Kind()) == "" {
		return fmt.Errorf("devkit: transport adapter kind is required")
	}
	_, err := adapter.Do(ctx, request)
	return err
}

// ValidateProviderConformance checks the static contract every provider must
// honor: a normalized id that matches its config and a config the flow
// engine accepts.
func ValidateProviderConformance(provider core.Provider) error {
	if provider == nil {
		return fmt.Errorf("devkit: provider is required")
	}
	id := provider.ID()
	if id == "" || id != core.NormalizeProviderID(id) {
		return fmt.Errorf("devkit: provider id %q must be lower case and trimmed", id)
	}
	cfg := provider.Config()
	if cfg.ID != id {
		return fmt.Errorf("devkit: provider config id %q does not match provider id %q", cfg.ID, id)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ContentMode == "" {
		return fmt.Errorf("devkit: provider %q must declare a token content mode", id)
	}
	return nil
}

// ValidateEphemeralStoreConformance exercises put, get, consume, delete and
// expiry against a store. Keys are derived from prefix so concurrent runs
// against shared backends do not collide.
func ValidateEphemeralStoreConformance(ctx context.Context, store core.EphemeralStore, prefix string) error {
	if store == nil {
		return fmt.Errorf("devkit: ephemeral store is required")
	}
	key := prefix + ":conformance"

	if _, found, err := store.Get(ctx, key); err != nil {
		return err
	} else if found {
		return fmt.Errorf("devkit: unexpected value for fresh key %q", key)
	}
	if err := store.Put(ctx, key, "first", time.Minute); err != nil {
		return err
	}
	if err := store.Put(ctx, key, "second", time.Minute); err != nil {
		return err
	}
	value, found, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found || value != "second" {
		return fmt.Errorf("devkit: expected overwritten value %q, got %q (found=%t)", "second", value, found)
	}

	if consumer, ok := store.(core.EphemeralConsumer); ok {
		value, found, err := consumer.Consume(ctx, key)
		if err != nil {
			return err
		}
		if !found || value != "second" {
			return fmt.Errorf("devkit: consume returned %q (found=%t)", value, found)
		}
		if _, found, err := consumer.Consume(ctx, key); err != nil {
			return err
		} else if found {
			return fmt.Errorf("devkit: second consume should report absent")
		}
	} else if err := store.Delete(ctx, key); err != nil {
		return err
	}

	if _, found, err := store.Get(ctx, key); err != nil {
		return err
	} else if found {
		return fmt.Errorf("devkit: value should be absent after removal")
	}
	if err := store.Delete(ctx, key); err != nil {
		return fmt.Errorf("devkit: deleting an absent key must succeed: %w", err)
	}
	return nil
}
