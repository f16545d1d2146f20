package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidSlot is returned for slot names that cannot be used as file names.
var ErrInvalidSlot = errors.New("invalid slot name")

// FileSaveRepository keeps each slot as <dir>/<slot>.json.
type FileSaveRepository struct {
	dir string
}

func NewFileSaveRepository(dir string) (*FileSaveRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileSaveRepository{dir: dir}, nil
}

func (r *FileSaveRepository) path(slot string) (string, error) {
	if slot == "" || slot == "." || slot == ".." || strings.ContainsAny(slot, `/\`) {
		return "", fmt.Errorf("%q: %w", slot, ErrInvalidSlot)
	}
	return filepath.Join(r.dir, slot+".json"), nil
}

func (r *FileSaveRepository) Load(ctx context.Context, slot string) ([]byte, error) {
	p, err := r.path(slot)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("slot %s: %w", slot, ErrSaveNotFound)
		}
		return nil, fmt.Errorf("failed to read slot %s: %w", slot, err)
	}
	return data, nil
}

// Save writes to a temporary file and renames it over the slot, so a crash
// mid-write leaves the previous save intact.
func (r *FileSaveRepository) Save(ctx context.Context, slot string, data []byte) error {
	p, err := r.path(slot)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(r.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync slot %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close slot %s: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to replace slot %s: %w", slot, err)
	}
	return nil
}

func (r *FileSaveRepository) Delete(ctx context.Context, slot string) error {
	p, err := r.path(slot)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete slot %s: %w", slot, err)
	}
	return nil
}
