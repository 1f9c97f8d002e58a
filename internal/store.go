package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const (
	PermissionsDefault = 0o744
	PermissionWrite    = 0o600
)

// AssetStore owns the generated-pack directory tree: one directory per pack,
// holding pack_info.json and the pack's asset files. Pure file I/O.
type AssetStore struct {
	Logger zerolog.Logger

	root string
}

func NewAssetStore(root string, logger zerolog.Logger) *AssetStore {
	return &AssetStore{
		Logger: logger,
		root:   root,
	}
}

func (as *AssetStore) Root() string {
	return as.root
}

// PackDirectory returns the absolute directory for a pack identifier.
func (as *AssetStore) PackDirectory(packID string) string {
	return filepath.Join(as.root, packID)
}

// ReadManifest reads and parses a pack's manifest document.
// Returns ErrNotFound when the pack directory or manifest is absent.
func (as *AssetStore) ReadManifest(packID string) (*StickerPack, error) {
	data, err := os.ReadFile(filepath.Join(as.PackDirectory(packID), ManifestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	pack, err := ParseStickerPack(data)
	if err != nil {
		return nil, err
	}

	pack.directory = as.PackDirectory(packID)

	return pack, nil
}

// WriteManifest persists a pack's manifest. The document is written to a
// temporary file and renamed into place so readers never observe a partial
// manifest.
func (as *AssetStore) WriteManifest(packID string, pack *StickerPack) error {
	data, err := EncodeStickerPack(pack)
	if err != nil {
		return err
	}

	err = as.ensurePackDirectory(packID)
	if err != nil {
		return err
	}

	target := filepath.Join(as.PackDirectory(packID), ManifestFileName)
	temp := target + ".tmp"

	err = os.WriteFile(temp, data, PermissionWrite)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	err = os.Rename(temp, target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	return nil
}

// ReadAsset returns the raw bytes of one asset file in a pack directory.
func (as *AssetStore) ReadAsset(packID, fileName string) ([]byte, error) {
	return ReadFileAt(as.PackDirectory(packID), fileName)
}

// WriteAsset writes raw asset bytes, creating the pack directory on first
// write for a new identifier.
func (as *AssetStore) WriteAsset(packID, fileName string, data []byte) error {
	if filepath.Base(fileName) != fileName {
		return fmt.Errorf("%w: invalid asset file name %q", ErrIOFailure, fileName)
	}

	err := as.ensurePackDirectory(packID)
	if err != nil {
		return err
	}

	target := filepath.Join(as.PackDirectory(packID), fileName)
	temp := target + ".tmp"

	err = os.WriteFile(temp, data, PermissionWrite)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	err = os.Rename(temp, target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	return nil
}

// AssetSize returns the on-disk byte size of one asset file.
func (as *AssetStore) AssetSize(packID, fileName string) (int64, error) {
	info, err := os.Stat(filepath.Join(as.PackDirectory(packID), fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}

		return 0, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	return info.Size(), nil
}

// ListPackDirectories enumerates the directory names under the store root.
func (as *AssetStore) ListPackDirectories() ([]string, error) {
	entries, err := os.ReadDir(as.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	directories := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			directories = append(directories, entry.Name())
		}
	}

	return directories, nil
}

func (as *AssetStore) ensurePackDirectory(packID string) error {
	err := os.MkdirAll(as.PackDirectory(packID), PermissionsDefault)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	return nil
}

// ReadFileAt reads fileName from an absolute pack directory. Used for both
// generated and bundled packs, which live under different roots.
func ReadFileAt(directory, fileName string) ([]byte, error) {
	if filepath.Base(fileName) != fileName {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(directory, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	return data, nil
}
