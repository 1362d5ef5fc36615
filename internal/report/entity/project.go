package entity

import "time"

// TrendPoint un punto de la serie semanal de solicitudes: la semana se
// etiqueta con el lunes en-o-después de la fecha prometida (agrupación
// semanal cerrada a derecha, etiquetada en lunes).
type TrendPoint struct {
	Semana      string `json:"semana"` // YYYY-MM-DD
	Solicitudes int    `json:"solicitudes"`
}

// CriticalItem fila de la tabla de materiales críticos persistida en el
// resumen. Prometida va formateada dd/mm/yyyy, o "-" si se desconoce.
type CriticalItem struct {
	NoSC      string `json:"no_sc"`
	Titulo    string `json:"titulo"`
	EstatusSC Status `json:"estatus_sc"`
	EstatusOC Status `json:"estatus_oc"`
	Prometida string `json:"prometida"`
	Motivo    string `json:"motivo"` // CANCELADA | VENCIDA
}

// Summary resumen ejecutivo de un proyecto, calculado una vez por ingesta.
// TotalRegistros cuenta partidas tras excluir servicios y deduplicar, nunca
// las filas crudas del Excel. Los mapas de conteo llevan siempre las cuatro
// claves, con 0 para las ausentes.
type Summary struct {
	TotalRegistros  int                  `json:"total_registros"`
	TotalDisponible float64              `json:"total_disponible"`
	ConteoSC        map[Status]int       `json:"conteo_sc"`
	ConteoOC        map[Status]int       `json:"conteo_oc"`
	ConteoGeneral   map[GeneralClass]int `json:"conteo_general,omitempty"`
	SinOCReal       int                  `json:"sin_oc_real"`
	Criticos        []CriticalItem       `json:"criticos"`
	Items           []Item               `json:"items"`
	Tendencia       []TrendPoint         `json:"tendencia,omitempty"`
}

// Project contenedor con nombre único dentro del almacén. Re-ingestar un
// Excel cuyo nombre derivado coincide reemplaza el resumen completo.
type Project struct {
	ID       string    `json:"id"`
	Nombre   string    `json:"nombre"`
	Archivo  string    `json:"archivo,omitempty"`
	CreadoEn time.Time `json:"creado_en"`
	Resumen  Summary   `json:"resumen"`
}
