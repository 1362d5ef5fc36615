package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/ValeMina/pruebadashboard/internal/report/entity"
)

// ErrProjectNotFound: el proyecto pedido ya no existe (p.ej. carrera con un
// borrado concurrente). Estado no-fatal para el consumidor.
var ErrProjectNotFound = errors.New("proyecto no encontrado")

// RefreshFunc re-deriva los campos calculados de un proyecto al cargarlo
// (backfill de esquemas persistidos antes de conteo_general / tendencia).
type RefreshFunc func(*entity.Project)

// ProjectStore almacén de proyectos: colección en memoria como fuente de
// verdad de la sesión, serializada completa a un archivo JSON plano en cada
// mutación. Lectura-modificación-escritura bajo lock; entre procesos rige
// last-writer-wins, sin garantías transaccionales.
type ProjectStore struct {
	path    string
	refresh RefreshFunc
	logger  *zap.Logger

	mu       sync.Mutex
	projects []entity.Project
}

func NewProjectStore(path string, refresh RefreshFunc, logger *zap.Logger) *ProjectStore {
	return &ProjectStore{path: path, refresh: refresh, logger: logger}
}

// Load lee el archivo una vez al arranque. Archivo ausente arranca vacío;
// archivo corrupto también, pero dejando constancia en el log.
func (s *ProjectStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.projects = nil
			return nil
		}
		return fmt.Errorf("leer almacén %s: %w", s.path, err)
	}

	var projects []entity.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		s.logger.Warn("almacén de proyectos corrupto, arrancando vacío",
			zap.String("archivo", s.path), zap.Error(err))
		s.projects = nil
		return nil
	}

	if s.refresh != nil {
		for i := range projects {
			if projects[i].Resumen.ConteoGeneral == nil || projects[i].Resumen.Tendencia == nil {
				s.refresh(&projects[i])
			}
		}
	}

	s.projects = projects
	return nil
}

// List devuelve una copia de la colección.
func (s *ProjectStore) List() []entity.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// FindByName busca por nombre exacto.
func (s *ProjectStore) FindByName(nombre string) (entity.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.Nombre == nombre {
			return p, nil
		}
	}
	return entity.Project{}, ErrProjectNotFound
}

// Upsert reemplaza por nombre: elimina cualquier proyecto homónimo y anexa
// el nuevo. Reemplazo completo del resumen, nunca una fusión. Si la
// escritura a disco falla, la mutación en memoria se revierte.
func (s *ProjectStore) Upsert(p entity.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.projects
	kept := make([]entity.Project, 0, len(s.projects)+1)
	for _, q := range s.projects {
		if q.Nombre != p.Nombre {
			kept = append(kept, q)
		}
	}
	s.projects = append(kept, p)

	if err := s.save(); err != nil {
		s.projects = prev
		return err
	}
	return nil
}

// Clear borra todos los proyectos (único borrado soportado).
func (s *ProjectStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.projects
	s.projects = nil
	if err := s.save(); err != nil {
		s.projects = prev
		return err
	}
	return nil
}

// DedupeAll pasa de mantenimiento: re-aplica la clave de deduplicación a la
// lista de partidas de cada proyecto almacenado. Devuelve cuántas partidas
// duplicadas se eliminaron.
func (s *ProjectStore) DedupeAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	prev := make([]entity.Project, len(s.projects))
	copy(prev, s.projects)

	for i := range s.projects {
		before := len(s.projects[i].Resumen.Items)
		s.projects[i].Resumen.Items = entity.Dedupe(s.projects[i].Resumen.Items)
		removed += before - len(s.projects[i].Resumen.Items)
	}

	if removed == 0 {
		return 0, nil
	}
	if err := s.save(); err != nil {
		s.projects = prev
		return 0, err
	}
	return removed, nil
}

// save reescribe el archivo completo. JSON con sangría: el archivo es parte
// de la interfaz y debe poder diffearse a mano.
func (s *ProjectStore) save() error {
	data, err := json.MarshalIndent(s.projects, "", "  ")
	if err != nil {
		return fmt.Errorf("serializar almacén: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("escribir almacén %s: %w", s.path, err)
	}
	return nil
}
