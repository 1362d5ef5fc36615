package handler

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ValeMina/pruebadashboard/internal/docstore"
	"github.com/ValeMina/pruebadashboard/internal/middleware"
	"github.com/ValeMina/pruebadashboard/internal/testutil"
)

func setupDocumentRouter(t *testing.T) *gin.Engine {
	t.Helper()
	docs, err := docstore.New(filepath.Join(t.TempDir(), "documentos"))
	if err != nil {
		t.Fatalf("docstore.New: %v", err)
	}
	h := NewDocumentHandler(docs, zap.NewNop())

	router := testutil.SetupRouter()
	api := router.Group("/api/v1")
	api.GET("/documentos", h.List)
	api.GET("/documentos/:nombre", h.Download)
	admin := api.Group("", middleware.AdminKey(testAdminKey))
	admin.POST("/documentos", h.Upload)
	return router
}

func TestDocumentUploadRequiresAdminKey(t *testing.T) {
	router := setupDocumentRouter(t)

	w := testutil.DoUpload(router, "/api/v1/documentos",
		"archivo", "ficha.pdf", []byte("pdf"), nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	router := setupDocumentRouter(t)

	w := testutil.DoUpload(router, "/api/v1/documentos",
		"archivo", "../ficha tecnica.pdf", []byte("contenido pdf"), nil, adminHeaders())
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d\nbody: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(t, w)
	nombre := resp["data"].(map[string]interface{})["nombre"].(string)
	if nombre != "ficha tecnica.pdf" {
		t.Errorf("saved name = %q, want sanitized base", nombre)
	}

	// Listado público.
	w = testutil.DoRequest(router, http.MethodGet, "/api/v1/documentos", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	resp = testutil.ParseResponse(t, w)
	if resp["data"].(map[string]interface{})["total"].(float64) != 1 {
		t.Fatalf("expected 1 document, got %v", resp["data"])
	}

	// Descarga verbatim.
	w = testutil.DoRequest(router, http.MethodGet, "/api/v1/documentos/ficha%20tecnica.pdf", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d", w.Code)
	}
	if w.Body.String() != "contenido pdf" {
		t.Errorf("download body = %q", w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd == "" {
		t.Error("download should set Content-Disposition")
	}
}

func TestDocumentDownloadNotFound(t *testing.T) {
	router := setupDocumentRouter(t)

	w := testutil.DoRequest(router, http.MethodGet, "/api/v1/documentos/no-existe.pdf", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDocumentUploadMissingFile(t *testing.T) {
	router := setupDocumentRouter(t)

	w := testutil.DoUpload(router, "/api/v1/documentos",
		"otro_campo", "ficha.pdf", []byte("pdf"), nil, adminHeaders())
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
