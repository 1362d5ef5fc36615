package entity

import (
	"regexp"
	"strings"
	"time"
)

// Status 状态 canónico de S.C. / O.C.
type Status string

const (
	StatusCompleted      Status = "COMPLETED"
	StatusPendingArrival Status = "PENDING_ARRIVAL"
	StatusNoOrder        Status = "NO_ORDER"
	StatusCancelled      Status = "CANCELLED"
)

// GeneralClass clasificación unificada por partida.
type GeneralClass string

const (
	ClassCompleted      GeneralClass = "COMPLETED"
	ClassPendingArrival GeneralClass = "PENDING_ARRIVAL"
	ClassNoPO           GeneralClass = "NO_PO"
	ClassCancelled      GeneralClass = "CANCELLED"
)

// Item una línea de solicitud de compra, tal como se ingesta del Excel.
// Las fechas ausentes quedan en nil; CantDisponible conserva el texto crudo
// y se coerciona a número recién en la agregación.
type Item struct {
	NoSC           string     `json:"no_sc"`
	Titulo         string     `json:"titulo"`
	Descripcion    string     `json:"descripcion"`
	NoOC           string     `json:"no_oc"`
	EstatusSC      string     `json:"estatus_sc"`
	EstatusOC      string     `json:"estatus_oc"`
	FechaPrometida *time.Time `json:"fecha_prometida,omitempty"`
	FechaLlegada   *time.Time `json:"fecha_llegada,omitempty"`
	CantDisponible string     `json:"cant_disponible,omitempty"`
}

// CanonicalSC mapea el código crudo de estatus S.C. al conjunto canónico.
// Función total: cualquier valor, incluido vacío, cae en PENDING_ARRIVAL.
func CanonicalSC(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "A":
		return StatusCompleted
	case "Q":
		return StatusNoOrder
	case "U":
		return StatusCancelled
	default:
		return StatusPendingArrival
	}
}

// CanonicalOC mapea el código crudo de estatus O.C. al conjunto canónico.
func CanonicalOC(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "A":
		return StatusCompleted
	case "C":
		return StatusCancelled
	default:
		return StatusPendingArrival
	}
}

// serviceLineRe: palabra que empieza con el tallo SERVICI (servicio,
// servicios, servicio-precio-fijo...).
var serviceLineRe = regexp.MustCompile(`(?i)\bSERVICI\w*`)

// IsServiceLine indica si la descripción corresponde a una línea de servicio
// (no material); estas líneas se excluyen de todos los KPIs.
func IsServiceLine(descripcion string) bool {
	return serviceLineRe.MatchString(descripcion)
}

// IsEmptyPO indica si el valor de orden de compra cuenta como vacío.
func IsEmptyPO(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "0.0", "nan", "none":
		return true
	}
	return false
}

// rawCancelled: señal de cancelación, por código exacto o por texto libre.
// Las cuatro variantes de origen mezclaban ambos chequeos; aquí se unifica
// al superconjunto (código canónico O substring CANCEL).
func rawCancelled(raw string, canonical Status) bool {
	if canonical == StatusCancelled {
		return true
	}
	return strings.Contains(strings.ToUpper(raw), "CANCEL")
}

// Classify deriva la clase general de la partida. El orden de prioridad es
// fijo y el primer match gana: una partida sin O.C. es siempre NO_PO aunque
// su estatus luzca cancelado o completado.
func Classify(it Item) GeneralClass {
	sc := CanonicalSC(it.EstatusSC)
	oc := CanonicalOC(it.EstatusOC)

	switch {
	case IsEmptyPO(it.NoOC):
		return ClassNoPO
	case sc == StatusCancelled || oc == StatusCancelled:
		return ClassCancelled
	case sc == StatusCompleted || oc == StatusCompleted:
		return ClassCompleted
	default:
		return ClassPendingArrival
	}
}

// IsCritical indica si la partida es crítica a la fecha dada: cancelada, o
// vencida (fecha prometida conocida, sin llegada, y prometida anterior a now).
// Una partida sin ninguna fecha nunca se marca vencida por esta regla.
func IsCritical(it Item, now time.Time) bool {
	if rawCancelled(it.EstatusSC, CanonicalSC(it.EstatusSC)) ||
		rawCancelled(it.EstatusOC, CanonicalOC(it.EstatusOC)) {
		return true
	}
	if it.FechaPrometida != nil && it.FechaLlegada == nil {
		return it.FechaPrometida.Before(now)
	}
	return false
}

// IsCancelledItem reexpone la señal unificada de cancelación (S.C. u O.C.).
func IsCancelledItem(it Item) bool {
	return rawCancelled(it.EstatusSC, CanonicalSC(it.EstatusSC)) ||
		rawCancelled(it.EstatusOC, CanonicalOC(it.EstatusOC))
}

// DedupKey clave de identidad de la partida dentro de un proyecto.
func DedupKey(it Item) string {
	return it.NoSC + "|" + it.Descripcion + "|" + it.NoOC
}

// ExcludeServices filtra líneas de servicio. Idempotente y seguro de
// re-aplicar: los datos persistidos pueden anteceder al filtro.
func ExcludeServices(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !IsServiceLine(it.Descripcion) {
			out = append(out, it)
		}
	}
	return out
}

// Dedupe elimina duplicados por DedupKey conservando la primera aparición
// y el orden original.
func Dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		k := DedupKey(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
