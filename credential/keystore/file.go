package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/anam145/go-credential-sdk/credential/common/model"
	"github.com/anam145/go-credential-sdk/credential/common/sdkerr"
)

const walletExt = ".wallet"

// wallet is the on-disk form of a key pair. Both keys are flat base64.
type wallet struct {
	ID         string `json:"id"`
	DID        string `json:"did"`
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// File stores one wallet file per key under <dir>/<role>/<id>.wallet. The
// file <dir>/<role>/<role>.wallet holds the role's default key.
type File struct {
	dir string
}

// NewFile returns a store rooted at dir.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

// Save writes km to its wallet file and returns the path. The first key
// saved for a role also becomes the role's default wallet.
func (f *File) Save(km *model.KeyMaterial) (string, error) {
	if km == nil || km.Role == "" || km.DID == "" {
		return "", fmt.Errorf("key material needs a role and a DID")
	}
	id := km.ID
	if id == "" {
		id = keyID(km.DID)
	}

	data, err := json.MarshalIndent(wallet{
		ID:         id,
		DID:        km.DID,
		PublicKey:  km.PublicKey,
		PrivateKey: km.PrivateKey,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal wallet: %w", err)
	}

	roleDir := filepath.Join(f.dir, string(km.Role))
	if err := os.MkdirAll(roleDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create wallet directory: %w", err)
	}
	path := filepath.Join(roleDir, id+walletExt)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write wallet: %w", err)
	}

	defaultPath := f.defaultPath(km.Role)
	if _, err := os.Stat(defaultPath); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(defaultPath, data, 0o600); err != nil {
			return "", fmt.Errorf("failed to write default wallet: %w", err)
		}
	}
	return path, nil
}

// Put saves km, discarding the wallet path.
func (f *File) Put(km *model.KeyMaterial) error {
	_, err := f.Save(km)
	return err
}

// LoadPrivateKey reads the wallet addressed by ref. A DID without its own
// wallet file resolves to the default wallet only if that wallet belongs to
// the DID.
func (f *File) LoadPrivateKey(_ context.Context, ref model.KeyRef) (*model.KeyMaterial, error) {
	if ref.Role == "" {
		return nil, fmt.Errorf("%w: role is empty", sdkerr.ErrKeyNotFound)
	}
	if ref.DID != "" {
		km, err := f.read(ref.Role, filepath.Join(f.dir, string(ref.Role), keyID(ref.DID)+walletExt))
		if err == nil || !errors.Is(err, sdkerr.ErrKeyNotFound) {
			return km, err
		}
	}

	km, err := f.read(ref.Role, f.defaultPath(ref.Role))
	if err != nil {
		return nil, err
	}
	if ref.DID != "" && km.DID != ref.DID {
		return nil, fmt.Errorf("%w: no %s wallet for '%s'", sdkerr.ErrKeyNotFound, ref.Role, ref.DID)
	}
	return km, nil
}

func (f *File) defaultPath(role model.Role) string {
	return filepath.Join(f.dir, string(role), string(role)+walletExt)
}

func (f *File) read(role model.Role, path string) (*model.KeyMaterial, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: wallet '%s' does not exist", sdkerr.ErrKeyNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet '%s': %w", path, err)
	}

	var w wallet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet '%s': %w", path, err)
	}
	return &model.KeyMaterial{
		ID:         w.ID,
		Role:       role,
		DID:        w.DID,
		PublicKey:  w.PublicKey,
		PrivateKey: w.PrivateKey,
	}, nil
}
