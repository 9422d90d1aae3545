// Package filestore хранит сущности проекта по одному файлу на сущность:
// {id}-{typeStub}.{ext}. Имя файла кодирует и ID, и тип, поэтому все типы
// можно просканировать одним чтением каталога.
package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/iudanet/manuscript/internal/models"
)

var (
	// ErrNotFound indicates that no file exists for the requested entity
	ErrNotFound = errors.New("entity file not found")

	// ErrDecode indicates that an entity file exists but cannot be decoded
	ErrDecode = errors.New("failed to decode entity file")
)

// Ref описывает найденный файл сущности.
type Ref struct {
	Type models.EntityType
	Name string // Name имя файла без каталога
	ID   int
}

// Dir каталог сущностей одного проекта.
type Dir struct {
	codec   Codec
	pattern *regexp.Regexp
	path    string
}

// New creates a store rooted at path. The directory is created lazily on first write.
func New(path string, codec Codec) *Dir {
	return &Dir{
		path:    path,
		codec:   codec,
		pattern: regexp.MustCompile(`^([0-9]+)-([a-zA-Z_]+)\.` + regexp.QuoteMeta(codec.Ext()) + `$`),
	}
}

// Path returns the directory of the store.
func (d *Dir) Path() string {
	return d.path
}

// FileName returns the file name for an entity.
func (d *Dir) FileName(t models.EntityType, id int) string {
	return fmt.Sprintf("%d-%s.%s", id, t.Stub(), d.codec.Ext())
}

// ParseFileName extracts id and type from an entity file name.
func (d *Dir) ParseFileName(name string) (Ref, bool) {
	m := d.pattern.FindStringSubmatch(name)
	if m == nil {
		return Ref{}, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return Ref{}, false
	}
	t, err := models.ParseEntityType(m[2])
	if err != nil {
		return Ref{}, false
	}
	return Ref{ID: id, Type: t, Name: name}, true
}

// List returns refs for every entity file of every type, sorted by id.
// A missing directory is an empty project.
func (d *Dir) List() ([]Ref, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Ref{}, nil
		}
		return nil, fmt.Errorf("failed to read entity directory: %w", err)
	}

	refs := make([]Ref, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ref, ok := d.ParseFileName(entry.Name())
		if !ok {
			continue
		}
		refs = append(refs, ref)
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ID != refs[j].ID {
			return refs[i].ID < refs[j].ID
		}
		return refs[i].Type < refs[j].Type
	})

	return refs, nil
}

// ListType returns refs of a single entity type, sorted by id.
func (d *Dir) ListType(t models.EntityType) ([]Ref, error) {
	all, err := d.List()
	if err != nil {
		return nil, err
	}

	refs := make([]Ref, 0, len(all))
	for _, ref := range all {
		if ref.Type == t {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// Find returns every ref with the given id. More than one ref means the
// id space is corrupted; callers decide how to treat it.
func (d *Dir) Find(id int) ([]Ref, error) {
	all, err := d.List()
	if err != nil {
		return nil, err
	}

	var refs []Ref
	for _, ref := range all {
		if ref.ID == id {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// Exists reports whether an entity file exists.
func (d *Dir) Exists(t models.EntityType, id int) (bool, error) {
	_, err := os.Stat(filepath.Join(d.path, d.FileName(t, id)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat entity file: %w", err)
}

// Read decodes the entity file into v.
func (d *Dir) Read(t models.EntityType, id int, v any) error {
	data, err := os.ReadFile(filepath.Join(d.path, d.FileName(t, id)))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read entity file: %w", err)
	}

	if err := d.codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w %s: %v", ErrDecode, d.FileName(t, id), err)
	}
	return nil
}

// Write stores the entity atomically: the data goes to a temp file in the
// same directory which is then renamed over the target.
func (d *Dir) Write(e models.Entity) error {
	if err := os.MkdirAll(d.path, 0750); err != nil {
		return fmt.Errorf("failed to create entity directory: %w", err)
	}

	data, err := d.codec.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entity %d: %w", e.EntityID(), err)
	}

	name := d.FileName(e.EntityType(), e.EntityID())
	tmp, err := os.CreateTemp(d.path, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(d.path, name)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Remove deletes the entity file. Returns ErrNotFound if it does not exist.
func (d *Dir) Remove(t models.EntityType, id int) error {
	err := os.Remove(filepath.Join(d.path, d.FileName(t, id)))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove entity file: %w", err)
	}
	return nil
}
