package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ValeMina/pruebadashboard/internal/docstore"
)

// DocumentHandler sube, lista y sirve documentos de referencia (PDFs).
type DocumentHandler struct {
	docs   *docstore.Store
	logger *zap.Logger
}

func NewDocumentHandler(docs *docstore.Store, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, logger: logger}
}

// Upload POST /documentos — campo multipart "archivo". El documento se
// guarda tal cual bajo su nombre saneado.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("archivo")
	if err != nil {
		BadRequest(c, "no se adjuntó ningún archivo (campo 'archivo')")
		return
	}

	f, err := fh.Open()
	if err != nil {
		InternalError(c, fmt.Sprintf("abrir archivo: %v", err))
		return
	}
	defer f.Close()

	name, err := h.docs.Save(fh.Filename, f)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	h.logger.Info("documento guardado", zap.String("nombre", name))
	Created(c, gin.H{"nombre": name})
}

// List GET /documentos
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.List()
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": docs, "total": len(docs)})
}

// Download GET /documentos/:nombre — sirve el archivo verbatim.
func (h *DocumentHandler) Download(c *gin.Context) {
	path, err := h.docs.Path(c.Param("nombre"))
	if err != nil {
		if errors.Is(err, docstore.ErrDocumentNotFound) {
			NotFound(c, "documento no encontrado")
			return
		}
		InternalError(c, err.Error())
		return
	}
	c.FileAttachment(path, docstore.Sanitize(c.Param("nombre")))
}
