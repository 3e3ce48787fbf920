package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)

func TestSanitizeName(t *testing.T) {
	t.Run("strips accents", func(t *testing.T) {
		assert.Equal(t, "Joao_da_Silva", SanitizeName("João da Silva"))
	})

	t.Run("collapses runs of forbidden characters", func(t *testing.T) {
		assert.Equal(t, "a_b", SanitizeName("a  ?! b"))
	})

	t.Run("falls back on empty input", func(t *testing.T) {
		assert.Equal(t, "Desconhecido", SanitizeName(""))
		assert.Equal(t, "Desconhecido", SanitizeName("???"))
	})

	t.Run("limits length", func(t *testing.T) {
		long := SanitizeName(string(make([]byte, 0, 0)) + "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
		assert.LessOrEqual(t, len(long), 50)
	})
}

func TestFileName(t *testing.T) {
	t.Run("coded batch includes the code", func(t *testing.T) {
		name := FileName(2, "Maria", "2025000001", "jpg", fixedNow)
		assert.Equal(t, "002_15-01-2026_14h30_Maria_2025000001.jpg", name)
	})

	t.Run("uncoded batch omits the code", func(t *testing.T) {
		name := FileName(1, "Maria", "", "png", fixedNow)
		assert.Equal(t, "001_15-01-2026_14h30_Maria.png", name)
	})

	t.Run("empty extension defaults to jpg", func(t *testing.T) {
		name := FileName(1, "Maria", "", "", fixedNow)
		assert.Equal(t, "001_15-01-2026_14h30_Maria.jpg", name)
	})
}

func TestDestinationFolder(t *testing.T) {
	t.Run("coded batches go under the code", func(t *testing.T) {
		assert.Equal(t, "2025000001", DestinationFolder("2025000001", "Maria", fixedNow))
	})

	t.Run("uncoded batches go under the SEM_AS bucket", func(t *testing.T) {
		assert.Equal(t, "SEM_AS/Maria_15-01-2026_14h30", DestinationFolder("", "Maria", fixedNow))
	})
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "png", Extension("foto_123.png"))
	assert.Equal(t, "jpg", Extension("noext"))
	assert.Equal(t, "jpg", Extension("trailingdot."))
}
