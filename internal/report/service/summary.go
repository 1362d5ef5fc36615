package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ValeMina/pruebadashboard/internal/report/entity"
)

// SummaryService reduce el conjunto de partidas de un Excel a su resumen
// ejecutivo: conteos, críticos, tendencia semanal.
type SummaryService struct{}

func NewSummaryService() *SummaryService {
	return &SummaryService{}
}

// Build calcula el resumen completo. Excluye servicios y deduplica antes de
// cualquier conteo; ambos pasos son idempotentes, así que es seguro
// re-aplicarlos sobre datos ya filtrados (p.ej. al refrescar un proyecto
// persistido con un esquema anterior).
func (s *SummaryService) Build(items []entity.Item, now time.Time) entity.Summary {
	items = entity.Dedupe(entity.ExcludeServices(items))

	conteoSC := map[entity.Status]int{
		entity.StatusCompleted:      0,
		entity.StatusPendingArrival: 0,
		entity.StatusNoOrder:        0,
		entity.StatusCancelled:      0,
	}
	conteoOC := map[entity.Status]int{
		entity.StatusCompleted:      0,
		entity.StatusPendingArrival: 0,
		entity.StatusNoOrder:        0,
		entity.StatusCancelled:      0,
	}
	conteoGeneral := map[entity.GeneralClass]int{
		entity.ClassCompleted:      0,
		entity.ClassPendingArrival: 0,
		entity.ClassNoPO:           0,
		entity.ClassCancelled:      0,
	}

	var totalDisponible float64
	sinOC := 0
	var criticos []entity.CriticalItem

	for _, it := range items {
		conteoSC[entity.CanonicalSC(it.EstatusSC)]++
		conteoOC[entity.CanonicalOC(it.EstatusOC)]++
		conteoGeneral[entity.Classify(it)]++
		totalDisponible += CoerceQuantity(it.CantDisponible)
		if entity.IsEmptyPO(it.NoOC) {
			sinOC++
		}
		if entity.IsCritical(it, now) {
			criticos = append(criticos, criticalRow(it))
		}
	}

	return entity.Summary{
		TotalRegistros:  len(items),
		TotalDisponible: totalDisponible,
		ConteoSC:        conteoSC,
		ConteoOC:        conteoOC,
		ConteoGeneral:   conteoGeneral,
		SinOCReal:       sinOC,
		Criticos:        criticos,
		Items:           items,
		Tendencia:       WeeklyTrend(items),
	}
}

// Refresh re-deriva los campos calculados de un proyecto ya persistido a
// partir de su lista de partidas (backfill perezoso al cargar esquemas
// anteriores a conteo_general / tendencia).
func (s *SummaryService) Refresh(p *entity.Project, now time.Time) {
	p.Resumen = s.Build(p.Resumen.Items, now)
}

// criticalRow arma la fila persistida del crítico. Motivo distingue la rama
// que disparó la criticidad.
func criticalRow(it entity.Item) entity.CriticalItem {
	motivo := "VENCIDA"
	if entity.IsCancelledItem(it) {
		motivo = "CANCELADA"
	}
	prometida := "-"
	if it.FechaPrometida != nil {
		prometida = it.FechaPrometida.Format("02/01/2006")
	}
	return entity.CriticalItem{
		NoSC:      it.NoSC,
		Titulo:    it.Titulo,
		EstatusSC: entity.CanonicalSC(it.EstatusSC),
		EstatusOC: entity.CanonicalOC(it.EstatusOC),
		Prometida: prometida,
		Motivo:    motivo,
	}
}

// CoerceQuantity convierte la celda de cantidad a número; lo no numérico
// aporta 0, nunca falla.
func CoerceQuantity(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// WeeklyTrend agrupa partidas con fecha prometida en cubetas semanales
// etiquetadas con el lunes en-o-después de la fecha (un lunes se etiqueta a
// sí mismo). Serie dispersa: semanas sin partidas se omiten.
func WeeklyTrend(items []entity.Item) []entity.TrendPoint {
	buckets := make(map[string]int)
	for _, it := range items {
		if it.FechaPrometida == nil {
			continue
		}
		buckets[weekLabel(*it.FechaPrometida)]++
	}
	if len(buckets) == 0 {
		return nil
	}
	out := make([]entity.TrendPoint, 0, len(buckets))
	for semana, n := range buckets {
		out = append(out, entity.TrendPoint{Semana: semana, Solicitudes: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Semana < out[j].Semana })
	return out
}

func weekLabel(d time.Time) string {
	days := (8 - int(d.Weekday())) % 7 // días hasta el próximo lunes; 0 si ya es lunes
	label := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return label.Format("2006-01-02")
}

// CriticalDetail fila de la vista de detalle: se calcula bajo demanda contra
// el reloj de la petición, no se persiste.
type CriticalDetail struct {
	entity.CriticalItem
	DiasRestantes *int   `json:"dias_restantes"`
	Progreso      int    `json:"progreso"`
	Etiqueta      string `json:"etiqueta"`
}

// CriticalDetails arma la tabla de detalle de críticos con días restantes y
// porcentaje de avance por fila.
func (s *SummaryService) CriticalDetails(items []entity.Item, now time.Time) []CriticalDetail {
	items = entity.Dedupe(entity.ExcludeServices(items))

	var out []CriticalDetail
	for _, it := range items {
		if !entity.IsCritical(it, now) {
			continue
		}
		dias := DiasRestantes(it, now)
		pct, etiqueta := Progress(it, dias)
		out = append(out, CriticalDetail{
			CriticalItem:  criticalRow(it),
			DiasRestantes: dias,
			Progreso:      pct,
			Etiqueta:      etiqueta,
		})
	}
	return out
}

// DiasRestantes días con signo entre hoy y la fecha prometida (negativo si
// ya venció); nil si la fecha se desconoce.
func DiasRestantes(it entity.Item, now time.Time) *int {
	if it.FechaPrometida == nil {
		return nil
	}
	hoy := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	p := *it.FechaPrometida
	prom := time.Date(p.Year(), p.Month(), p.Day(), 0, 0, 0, 0, time.UTC)
	d := int(prom.Sub(hoy).Hours() / 24)
	return &d
}

// Progress porcentaje y etiqueta de avance, en orden de prioridad fijo:
// completado, cancelado, sin fecha, vencido, rampa lineal de 30 días.
func Progress(it entity.Item, dias *int) (int, string) {
	sc := entity.CanonicalSC(it.EstatusSC)
	oc := entity.CanonicalOC(it.EstatusOC)

	switch {
	case sc == entity.StatusCompleted && oc == entity.StatusCompleted:
		return 100, "Completado"
	case sc == entity.StatusCancelled || oc == entity.StatusCancelled:
		return 0, "Cancelado"
	case dias == nil:
		return 5, "Sin fecha"
	case *dias < 0:
		return 0, fmt.Sprintf("Vencido %d días", -*dias)
	default:
		d := *dias
		if d > 30 {
			d = 30
		}
		pct := int(math.Round(100 * float64(30-d) / 30))
		return pct, fmt.Sprintf("%d días restantes", *dias)
	}
}
