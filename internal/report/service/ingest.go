package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ValeMina/pruebadashboard/internal/report/entity"
)

// Nombres canónicos de columna (ya normalizados: trim + mayúsculas,
// saltos de línea colapsados).
const (
	ColNoSC           = "NO. S.C."
	ColTitulo         = "TITULO DE LA REQUISICION"
	ColDescripcion    = "DESCRIPCION DE LA PARTIDA"
	ColEstatusSC      = "ESTATUS S.C."
	ColEstatusOC      = "ESTATUS O.C."
	ColNoOC           = "NO. O.C."
	ColFechaPrometida = "FECHA PROMETIDA"
	ColFechaLlegada   = "FECHA DE LLEGADA"
	ColCantDisponible = "CANT DISPONIBLE"
)

// FallbackProjectName se usa cuando la celda de nombre está vacía o ilegible.
const FallbackProjectName = "PROYECTO SIN NOMBRE"

// HeaderNotFoundError: ninguna fila dentro del rango escaneado contiene un
// ancla de encabezado. Error de ingesta visible al usuario, nunca un pánico.
type HeaderNotFoundError struct {
	Anchors []string
	Scanned int
}

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf("no se encontró la fila de encabezado en las primeras %d filas (anclas probadas: %s)",
		e.Scanned, strings.Join(e.Anchors, ", "))
}

// RequiredColumnMissingError: falta una columna canónica requerida y ningún
// sinónimo conocido la cubre.
type RequiredColumnMissingError struct {
	Column string
}

func (e *RequiredColumnMissingError) Error() string {
	return fmt.Sprintf("falta la columna requerida %q", e.Column)
}

// ParsedSheet resultado de la ingesta de un archivo: nombre de proyecto
// derivado y partidas ya tipadas.
type ParsedSheet struct {
	ProjectName string
	SourceFile  string
	Items       []entity.Item
}

// IngestService localiza el encabezado, normaliza columnas y construye las
// partidas a partir de un export xlsx o csv.
type IngestService struct {
	anchors       []string
	maxHeaderScan int
	logger        *zap.Logger
}

// defaultAnchors: los exports reales varían la grafía del ancla; se prueban
// en orden.
var defaultAnchors = []string{"No. S.C.", "NO. S.C.", "No. SC"}

func NewIngestService(logger *zap.Logger) *IngestService {
	return &IngestService{
		anchors:       defaultAnchors,
		maxHeaderScan: 20,
		logger:        logger,
	}
}

// ParseFile ingesta un archivo completo. El formato se decide por extensión:
// .csv como texto delimitado, todo lo demás como libro xlsx (primera hoja).
func (s *IngestService) ParseFile(filename string, r io.Reader) (*ParsedSheet, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		rows, err = readCSV(r)
	} else {
		rows, err = readWorkbook(r)
	}
	if err != nil {
		return nil, fmt.Errorf("leer %s: %w", filename, err)
	}

	headerIdx, err := s.LocateHeader(rows)
	if err != nil {
		return nil, err
	}

	cols, err := BuildColumnIndex(rows[headerIdx])
	if err != nil {
		return nil, err
	}

	items := buildItems(rows[headerIdx+1:], cols)

	name := ExtractProjectName(rows)

	s.logger.Info("archivo ingestado",
		zap.String("archivo", filename),
		zap.String("proyecto", name),
		zap.Int("fila_encabezado", headerIdx),
		zap.Int("partidas", len(items)),
	)

	return &ParsedSheet{
		ProjectName: name,
		SourceFile:  filepath.Base(filename),
		Items:       items,
	}, nil
}

// LocateHeader escanea filas desde arriba hasta encontrar una cuyo contenido
// incluya un ancla conocida; devuelve el índice de esa fila. Los exports
// traen un número variable de filas de título antes de la tabla real.
func (s *IngestService) LocateHeader(rows [][]string) (int, error) {
	limit := len(rows)
	if limit > s.maxHeaderScan {
		limit = s.maxHeaderScan
	}
	for i := 0; i < limit; i++ {
		for _, cell := range rows[i] {
			norm := NormalizeLabel(cell)
			for _, anchor := range s.anchors {
				if norm == NormalizeLabel(anchor) {
					return i, nil
				}
			}
		}
	}
	return 0, &HeaderNotFoundError{Anchors: s.anchors, Scanned: limit}
}

// NormalizeLabel deja una etiqueta de columna en forma canónica: saltos de
// línea a espacios, espacios colapsados, trim y mayúsculas.
func NormalizeLabel(s string) string {
	s = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToUpper(s)
}

// BuildColumnIndex mapea nombre canónico → índice de columna a partir de la
// fila de encabezado. Resuelve el sinónimo conocido de la columna de
// descripción: cualquier etiqueta que contenga DESCRIPCION y PARTIDA como
// substrings independientes. La descripción es requerida aguas abajo
// (dedup y filtro de servicios).
func BuildColumnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, raw := range header {
		norm := NormalizeLabel(raw)
		if norm == "" {
			continue
		}
		if _, ok := idx[norm]; !ok {
			idx[norm] = i
		}
	}

	if _, ok := idx[ColDescripcion]; !ok {
		for norm, i := range idx {
			if strings.Contains(norm, "DESCRIPCION") && strings.Contains(norm, "PARTIDA") {
				idx[ColDescripcion] = i
				break
			}
		}
	}
	if _, ok := idx[ColDescripcion]; !ok {
		return nil, &RequiredColumnMissingError{Column: ColDescripcion}
	}

	return idx, nil
}

// ExtractProjectName lee la celda fija (fila 4, columna 3), quita el rótulo
// hasta ":" y cae al nombre centinela si queda vacío.
func ExtractProjectName(rows [][]string) string {
	if len(rows) < 4 || len(rows[3]) < 3 {
		return FallbackProjectName
	}
	cell := rows[3][2]
	if i := strings.Index(cell, ":"); i >= 0 {
		cell = cell[i+1:]
	}
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return FallbackProjectName
	}
	return cell
}

func buildItems(rows [][]string, cols map[string]int) []entity.Item {
	items := make([]entity.Item, 0, len(rows))
	for _, row := range rows {
		it := entity.Item{
			NoSC:           cellAt(row, cols, ColNoSC),
			Titulo:         cellAt(row, cols, ColTitulo),
			Descripcion:    cellAt(row, cols, ColDescripcion),
			NoOC:           cellAt(row, cols, ColNoOC),
			EstatusSC:      cellAt(row, cols, ColEstatusSC),
			EstatusOC:      cellAt(row, cols, ColEstatusOC),
			CantDisponible: cellAt(row, cols, ColCantDisponible),
		}
		if it.NoSC == "" && it.Descripcion == "" {
			continue // fila vacía o de pie de tabla
		}
		it.FechaPrometida = ParseDate(cellAt(row, cols, ColFechaPrometida))
		it.FechaLlegada = ParseDate(cellAt(row, cols, ColFechaLlegada))
		items = append(items, it)
	}
	return items
}

func cellAt(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// dateLayouts: los exports mezclan formatos día/mes y ISO.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"02/01/06",
	time.RFC3339,
}

// ParseDate coerciona una celda a fecha. Valores ilegibles degradan a nil,
// nunca a error. Acepta además el serial numérico de Excel.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 59 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return &t
		}
	}
	return nil
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("abrir libro: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("leer hoja %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("leer csv: %w", err)
	}
	return rows, nil
}
