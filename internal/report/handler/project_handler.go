package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ValeMina/pruebadashboard/internal/report/entity"
	"github.com/ValeMina/pruebadashboard/internal/report/repository"
	"github.com/ValeMina/pruebadashboard/internal/report/service"
)

// ProjectHandler expone la colección de proyectos y la ingesta de Excel.
type ProjectHandler struct {
	ingest  *service.IngestService
	summary *service.SummaryService
	store   *repository.ProjectStore
	logger  *zap.Logger
}

func NewProjectHandler(ingest *service.IngestService, summary *service.SummaryService, store *repository.ProjectStore, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{ingest: ingest, summary: summary, store: store, logger: logger}
}

// ProjectListItem entrada compacta del listado público.
type ProjectListItem struct {
	ID             string    `json:"id"`
	Nombre         string    `json:"nombre"`
	Archivo        string    `json:"archivo,omitempty"`
	CreadoEn       time.Time `json:"creado_en"`
	TotalRegistros int       `json:"total_registros"`
	Criticos       int       `json:"criticos"`
}

// List GET /proyectos
func (h *ProjectHandler) List(c *gin.Context) {
	projects := h.store.List()
	items := make([]ProjectListItem, 0, len(projects))
	for _, p := range projects {
		items = append(items, ProjectListItem{
			ID:             p.ID,
			Nombre:         p.Nombre,
			Archivo:        p.Archivo,
			CreadoEn:       p.CreadoEn,
			TotalRegistros: p.Resumen.TotalRegistros,
			Criticos:       len(p.Resumen.Criticos),
		})
	}
	Success(c, gin.H{"items": items, "total": len(items)})
}

// Get GET /proyectos/:nombre — resumen completo.
func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.store.FindByName(c.Param("nombre"))
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			NotFound(c, "proyecto no encontrado")
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, p)
}

// Criticals GET /proyectos/:nombre/criticos — detalle calculado contra el
// reloj de la petición (días restantes, avance), no persistido.
func (h *ProjectHandler) Criticals(c *gin.Context) {
	p, err := h.store.FindByName(c.Param("nombre"))
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			NotFound(c, "proyecto no encontrado")
			return
		}
		InternalError(c, err.Error())
		return
	}
	details := h.summary.CriticalDetails(p.Resumen.Items, time.Now())
	Success(c, gin.H{"proyecto": p.Nombre, "items": details, "total": len(details)})
}

// FileResult resultado por archivo de una ingesta en lote.
type FileResult struct {
	Archivo string `json:"archivo"`
	Nombre  string `json:"nombre,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ImportReport reporte de la ingesta: conteos y causa por archivo fallido.
type ImportReport struct {
	Procesados int          `json:"procesados"`
	Fallidos   int          `json:"fallidos"`
	Resultados []FileResult `json:"resultados"`
}

// Import POST /proyectos/importar — lote multipart. Cada archivo se procesa
// por separado: uno malformado se reporta y se excluye de la mutación sin
// abortar el resto. Un campo "nombre" opcional fuerza el nombre de proyecto
// (solo tiene sentido con un único archivo).
func (h *ProjectHandler) Import(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, fmt.Sprintf("formulario inválido: %v", err))
		return
	}
	files := form.File["archivos"]
	if len(files) == 0 {
		BadRequest(c, "no se adjuntó ningún archivo (campo 'archivos')")
		return
	}
	override := c.PostForm("nombre")

	report := ImportReport{Resultados: make([]FileResult, 0, len(files))}
	now := time.Now()

	for _, fh := range files {
		result := FileResult{Archivo: fh.Filename}

		f, err := fh.Open()
		if err != nil {
			result.Error = fmt.Sprintf("abrir archivo: %v", err)
			report.Fallidos++
			report.Resultados = append(report.Resultados, result)
			continue
		}

		parsed, err := h.ingest.ParseFile(fh.Filename, f)
		f.Close()
		if err != nil {
			h.logger.Warn("fallo de ingesta",
				zap.String("archivo", fh.Filename), zap.Error(err))
			result.Error = err.Error()
			report.Fallidos++
			report.Resultados = append(report.Resultados, result)
			continue
		}

		nombre := parsed.ProjectName
		if override != "" {
			nombre = override
		}

		project := entity.Project{
			ID:       uuid.New().String()[:32],
			Nombre:   nombre,
			Archivo:  parsed.SourceFile,
			CreadoEn: now,
			Resumen:  h.summary.Build(parsed.Items, now),
		}

		if err := h.store.Upsert(project); err != nil {
			result.Error = fmt.Sprintf("guardar proyecto: %v", err)
			report.Fallidos++
			report.Resultados = append(report.Resultados, result)
			continue
		}

		result.Nombre = nombre
		report.Procesados++
		report.Resultados = append(report.Resultados, result)
	}

	Created(c, report)
}

// Clear DELETE /proyectos — borrado total, única eliminación soportada.
func (h *ProjectHandler) Clear(c *gin.Context) {
	if err := h.store.Clear(); err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"eliminados": "todos"})
}

// Dedupe POST /proyectos/depurar — pase de mantenimiento sobre todos los
// proyectos almacenados.
func (h *ProjectHandler) Dedupe(c *gin.Context) {
	removed, err := h.store.DedupeAll()
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"duplicados_eliminados": removed})
}
