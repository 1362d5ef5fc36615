package service

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// buildWorkbook arma un export realista: filas de título, celda de nombre de
// proyecto en C4, encabezado en la fila 6 y datos debajo.
func buildWorkbook(t *testing.T, header []string, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	f.SetCellValue(sheet, "A1", "ASTILLERO - CONTROL DE MATERIALES")
	f.SetCellValue(sheet, "A2", "INFORME EJECUTIVO")
	f.SetCellValue(sheet, "C4", "PROYECTO: R-1916")

	for i, h := range header {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, fmt.Sprintf("%s6", col), h)
	}
	for r, row := range rows {
		for i, v := range row {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, r+7), v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

var testHeader = []string{
	"No. S.C.", "TITULO DE LA REQUISICION", "DESCRIPCION\nDE LA PARTIDA",
	"ESTATUS S.C.", "ESTATUS O.C.", "No. O.C.", "FECHA PROMETIDA",
	"FECHA DE LLEGADA", "CANT DISPONIBLE",
}

func TestParseFileWorkbook(t *testing.T) {
	data := buildWorkbook(t, testHeader, [][]string{
		{"SC-100", "TUBERIA PRINCIPAL", "TUBO ACERO 6IN", "A", "A", "OC-1", "15/01/2026", "14/01/2026", "150"},
		{"SC-101", "VALVULAS", "VALVULA MARIPOSA", "X", "", "", "20/02/2026", "", "N/A"},
		{"", "", "", "", "", "", "", "", ""}, // fila vacía de pie de tabla
	})

	svc := NewIngestService(zap.NewNop())
	parsed, err := svc.ParseFile("reporte.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	if parsed.ProjectName != "R-1916" {
		t.Errorf("project name = %q, want R-1916 (rótulo recortado)", parsed.ProjectName)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(parsed.Items))
	}

	it := parsed.Items[0]
	if it.NoSC != "SC-100" || it.Descripcion != "TUBO ACERO 6IN" {
		t.Errorf("unexpected first item: %+v", it)
	}
	if it.FechaPrometida == nil || it.FechaPrometida.Format("02/01/2006") != "15/01/2026" {
		t.Errorf("fecha_prometida = %v, want 15/01/2026", it.FechaPrometida)
	}
	if it.FechaLlegada == nil {
		t.Error("fecha_llegada should parse")
	}

	it2 := parsed.Items[1]
	if it2.FechaLlegada != nil {
		t.Errorf("empty arrival cell should stay nil, got %v", it2.FechaLlegada)
	}
	if it2.CantDisponible != "N/A" {
		t.Errorf("raw quantity should be preserved, got %q", it2.CantDisponible)
	}
}

func TestLocateHeaderNotFound(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "archivo sin tabla")
	f.SetCellValue(sheet, "B9", "otra cosa")
	buf, _ := f.WriteToBuffer()

	svc := NewIngestService(zap.NewNop())
	_, err := svc.ParseFile("vacio.xlsx", bytes.NewReader(buf.Bytes()))

	var hdrErr *HeaderNotFoundError
	if !errors.As(err, &hdrErr) {
		t.Fatalf("expected HeaderNotFoundError, got %v", err)
	}
	if len(hdrErr.Anchors) == 0 {
		t.Error("error should name the anchors tried")
	}
}

func TestColumnSynonymResolution(t *testing.T) {
	header := make([]string, len(testHeader))
	copy(header, testHeader)
	header[2] = "DESCRIPCION CORTA DE PARTIDA" // sinónimo: contiene ambos substrings

	data := buildWorkbook(t, header, [][]string{
		{"SC-1", "T", "PLACA", "A", "A", "OC-1", "", "", ""},
	})

	svc := NewIngestService(zap.NewNop())
	parsed, err := svc.ParseFile("reporte.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if parsed.Items[0].Descripcion != "PLACA" {
		t.Errorf("synonym column should map to descripcion, got %q", parsed.Items[0].Descripcion)
	}
}

func TestRequiredColumnMissing(t *testing.T) {
	header := make([]string, len(testHeader))
	copy(header, testHeader)
	header[2] = "OTRA COLUMNA" // sin descripción ni sinónimo

	data := buildWorkbook(t, header, nil)

	svc := NewIngestService(zap.NewNop())
	_, err := svc.ParseFile("reporte.xlsx", bytes.NewReader(data))

	var colErr *RequiredColumnMissingError
	if !errors.As(err, &colErr) {
		t.Fatalf("expected RequiredColumnMissingError, got %v", err)
	}
	if colErr.Column != ColDescripcion {
		t.Errorf("error column = %q, want %q", colErr.Column, ColDescripcion)
	}
}

func TestParseFileCSV(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("INFORME,,\n")
	sb.WriteString(",,\n")
	sb.WriteString(",,\n")
	sb.WriteString(",,PROYECTO: R-2024\n")
	sb.WriteString(",,\n")
	sb.WriteString("No. S.C.,TITULO DE LA REQUISICION,DESCRIPCION DE LA PARTIDA,ESTATUS S.C.,ESTATUS O.C.,No. O.C.,FECHA PROMETIDA,FECHA DE LLEGADA\n")
	sb.WriteString("SC-1,TITULO,PLACA NAVAL,A,A,OC-1,2026-01-15,\n")

	svc := NewIngestService(zap.NewNop())
	parsed, err := svc.ParseFile("reporte.csv", strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ParseFile csv: %v", err)
	}
	if parsed.ProjectName != "R-2024" {
		t.Errorf("project name = %q, want R-2024", parsed.ProjectName)
	}
	if len(parsed.Items) != 1 || parsed.Items[0].Descripcion != "PLACA NAVAL" {
		t.Fatalf("unexpected items: %+v", parsed.Items)
	}
	if parsed.Items[0].FechaPrometida == nil {
		t.Error("ISO date should parse")
	}
}

func TestNormalizeLabel(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  No. S.C. ", "NO. S.C."},
		{"DESCRIPCION\nDE LA\nPARTIDA", "DESCRIPCION DE LA PARTIDA"},
		{"estatus   o.c.", "ESTATUS O.C."},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeLabel(tc.in); got != tc.want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseDateFallbacks(t *testing.T) {
	if d := ParseDate("15/01/2026"); d == nil || d.Day() != 15 || d.Month() != 1 {
		t.Errorf("dd/mm/yyyy should parse, got %v", d)
	}
	if d := ParseDate("2026-01-15"); d == nil {
		t.Error("ISO should parse")
	}
	if d := ParseDate("45000"); d == nil {
		t.Error("excel serial should parse")
	}
	if d := ParseDate("no es fecha"); d != nil {
		t.Errorf("garbage should degrade to nil, got %v", d)
	}
	if d := ParseDate(""); d != nil {
		t.Error("empty should be nil")
	}
}

func TestExtractProjectNameFallback(t *testing.T) {
	if got := ExtractProjectName([][]string{{"solo una fila"}}); got != FallbackProjectName {
		t.Errorf("short sheet should fall back, got %q", got)
	}
	rows := [][]string{{}, {}, {}, {"", "", "PROYECTO:   "}}
	if got := ExtractProjectName(rows); got != FallbackProjectName {
		t.Errorf("blank cell should fall back, got %q", got)
	}
}
