package keystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
)

// Memory keeps key material in process memory. The first key stored for a
// role is that role's default key.
type Memory struct {
	mu       sync.RWMutex
	keys     map[model.Role]map[string]model.KeyMaterial
	defaults map[model.Role]string
}

// NewMemory returns a store holding keys.
func NewMemory(keys ...*model.KeyMaterial) (*Memory, error) {
	m := &Memory{
		keys:     make(map[model.Role]map[string]model.KeyMaterial),
		defaults: make(map[model.Role]string),
	}
	for _, km := range keys {
		if err := m.Put(km); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Put stores km, replacing any key with the same role and DID.
func (m *Memory) Put(km *model.KeyMaterial) error {
	if km == nil || km.Role == "" || km.DID == "" {
		return fmt.Errorf("key material needs a role and a DID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	byDID, ok := m.keys[km.Role]
	if !ok {
		byDID = make(map[string]model.KeyMaterial)
		m.keys[km.Role] = byDID
	}
	byDID[km.DID] = *km
	if _, ok := m.defaults[km.Role]; !ok {
		m.defaults[km.Role] = km.DID
	}
	return nil
}

// LoadPrivateKey returns a copy of the key addressed by ref.
func (m *Memory) LoadPrivateKey(_ context.Context, ref model.KeyRef) (*model.KeyMaterial, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	did := ref.DID
	if did == "" {
		did = m.defaults[ref.Role]
	}
	km, ok := m.keys[ref.Role][did]
	if !ok {
		return nil, fmt.Errorf("%w: no %s key for '%s'", sdkerr.ErrKeyNotFound, ref.Role, ref.DID)
	}
	return &km, nil
}
