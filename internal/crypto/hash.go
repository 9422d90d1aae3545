package crypto

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sort"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/iudanet/manuscript/internal/models"
)

// HashEntity вычисляет стабильный хеш содержимого сущности (BLAKE2b-256, hex).
// Хешируется явный список полей каждого типа, поэтому порядок полей
// в файле хранения не влияет на результат. Используется клиентом для
// ClientEntityState и сервером для обнаружения конфликтов.
func HashEntity(e models.Entity) (string, error) {
	if e == nil {
		return "", fmt.Errorf("entity cannot be nil")
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create hasher: %w", err)
	}
	w := &fieldWriter{h: h}

	// Тип входит в хеш: сцена и заметка с одинаковыми полями не равны
	w.str("type", string(e.EntityType()))

	switch v := e.(type) {
	case *models.Scene:
		w.int("id", v.ID)
		w.str("name", v.Name)
		w.int("order", v.Order)
		w.str("scene_type", string(v.Type))
		w.int("parent_id", v.ParentID)
		w.str("content", v.Content)
	case *models.Note:
		w.int("id", v.ID)
		w.time("created", v.Created)
		w.str("content", v.Content)
	case *models.TimelineEvent:
		w.int("id", v.ID)
		w.int("order", v.Order)
		w.str("date", v.Date)
		w.str("content", v.Content)
	case *models.EncyclopediaEntry:
		w.int("id", v.ID)
		w.str("name", v.Name)
		w.str("entry_type", v.EntryType)
		w.str("text", v.Text)
		w.str("image_ext", v.ImageExt)
		// Теги - множество, порядок хранения не значим
		tags := append([]string(nil), v.Tags...)
		sort.Strings(tags)
		w.int("tags", len(tags))
		for _, tag := range tags {
			w.str("tag", tag)
		}
	case *models.SceneDraft:
		w.int("id", v.ID)
		w.int("scene_id", v.SceneID)
		w.str("name", v.Name)
		w.time("created", v.Created)
		w.str("content", v.Content)
	default:
		return "", fmt.Errorf("unsupported entity type %T", e)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustHashEntity is HashEntity for entities known to be supported.
func MustHashEntity(e models.Entity) string {
	sum, err := HashEntity(e)
	if err != nil {
		panic(err)
	}
	return sum
}

// fieldWriter пишет поля в формате name:len:value\x00, чтобы границы полей
// были однозначны.
type fieldWriter struct {
	h hash.Hash
}

func (w *fieldWriter) str(name, value string) {
	_, _ = io.WriteString(w.h, name)
	_, _ = io.WriteString(w.h, ":")
	_, _ = io.WriteString(w.h, strconv.Itoa(len(value)))
	_, _ = io.WriteString(w.h, ":")
	_, _ = io.WriteString(w.h, value)
	_, _ = w.h.Write([]byte{0})
}

func (w *fieldWriter) int(name string, value int) {
	w.str(name, strconv.Itoa(value))
}

func (w *fieldWriter) time(name string, value time.Time) {
	if value.IsZero() {
		w.str(name, "")
		return
	}
	w.str(name, value.UTC().Format(time.RFC3339Nano))
}
