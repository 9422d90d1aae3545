package filestore

import (
	"encoding/json"

	"github.com/BurntSushi/toml"
)

// Codec кодирует сущности для хранения в файлах.
type Codec interface {
	// Ext returns the file extension without the leading dot
	Ext() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec используется серверным хранилищем.
type JSONCodec struct{}

func (JSONCodec) Ext() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	// С отступами для читаемости, как и остальные файлы данных
	return json.MarshalIndent(v, "", "  ")
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// TOMLCodec используется локальным хранилищем клиента: файлы проекта
// удобно читать и править руками.
type TOMLCodec struct{}

func (TOMLCodec) Ext() string { return "toml" }

func (TOMLCodec) Marshal(v any) ([]byte, error) {
	return toml.Marshal(v)
}

func (TOMLCodec) Unmarshal(data []byte, v any) error {
	return toml.Unmarshal(data, v)
}
