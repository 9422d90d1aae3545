package iocli

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Проверяем что NewStdio возвращает валидный объект
func TestNewStdio(t *testing.T) {
	stdio := NewStdio()
	assert.NotNil(t, stdio)
}

func TestPrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	stdio := NewFileIO(os.Stdin, &out)

	stdio.Println("hello", "world")
	stdio.Printf("test %d %s", 1, "abc")
	_, err := stdio.Write([]byte("!"))
	require.NoError(t, err)

	assert.Equal(t, "hello world\ntest 1 abc!", out.String())
}

// pipeIO подменяет ввод pipe с заранее записанным текстом
func pipeIO(t *testing.T, input string) (*Stdio, *bytes.Buffer) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	// Пишем в pipe в отдельной горутине, имитируя ввод пользователя
	go func() {
		_, _ = w.Write([]byte(input))
		_ = w.Close()
	}()

	var out bytes.Buffer
	return NewFileIO(r, &out), &out
}

func TestReadInput(t *testing.T) {
	stdio, out := pipeIO(t, "first line\n  second  \nlast")

	first, err := stdio.ReadInput("Prompt: ")
	require.NoError(t, err)
	assert.Equal(t, "first line", first)
	assert.Equal(t, "Prompt: ", out.String())

	// Буферизованный остаток не теряется между вызовами
	second, err := stdio.ReadInput("")
	require.NoError(t, err)
	assert.Equal(t, "second", second)

	// Последняя строка без перевода строки
	last, err := stdio.ReadInput("")
	require.NoError(t, err)
	assert.Equal(t, "last", last)

	_, err = stdio.ReadInput("")
	assert.Error(t, err)
}

func TestReadPassword_NotTerminal(t *testing.T) {
	stdio, _ := pipeIO(t, "s3cret\n")
	assert.False(t, stdio.IsInteractive())

	pw, err := stdio.ReadPassword("Token: ")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)
}
