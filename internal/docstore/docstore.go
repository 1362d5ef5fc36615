// Package docstore guarda documentos de referencia (fichas técnicas, PDFs)
// bajo un directorio fijo, clave por nombre de archivo saneado, y los sirve
// de vuelta tal cual, sin transformación ni metadatos.
package docstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var ErrDocumentNotFound = errors.New("documento no encontrado")

var unsafeChars = regexp.MustCompile(`[^\w.\- ]+`)

// Store almacén de documentos sobre un directorio local.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("crear directorio de documentos %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Sanitize reduce un nombre de archivo a su base sin caracteres peligrosos.
func Sanitize(name string) string {
	name = filepath.Base(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	return name
}

// Save escribe el documento y devuelve el nombre bajo el que quedó guardado.
// Un nombre repetido sobreescribe: el archivo es la clave.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	clean := Sanitize(name)
	if clean == "" || clean == "." {
		return "", fmt.Errorf("nombre de documento inválido: %q", name)
	}
	f, err := os.Create(filepath.Join(s.dir, clean))
	if err != nil {
		return "", fmt.Errorf("crear documento: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("escribir documento: %w", err)
	}
	return clean, nil
}

// DocInfo metadatos mínimos de un documento listado.
type DocInfo struct {
	Nombre string    `json:"nombre"`
	Bytes  int64     `json:"bytes"`
	Subido time.Time `json:"subido"`
}

// List enumera los documentos guardados.
func (s *Store) List() ([]DocInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listar documentos: %w", err)
	}
	var out []DocInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, DocInfo{Nombre: e.Name(), Bytes: info.Size(), Subido: info.ModTime()})
	}
	return out, nil
}

// Path devuelve la ruta local de un documento existente; el nombre se sanea
// de nuevo para que nunca escape del directorio.
func (s *Store) Path(name string) (string, error) {
	clean := Sanitize(name)
	p := filepath.Join(s.dir, clean)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", ErrDocumentNotFound
		}
		return "", fmt.Errorf("consultar documento: %w", err)
	}
	return p, nil
}
