package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/campushub/events-api/pkg/errors"
	"github.com/campushub/events-api/pkg/response"
	"github.com/campushub/events-api/pkg/storage"
)

// CertificateHandler serves rendered certificate files through signed tokens.
type CertificateHandler struct {
	files  *storage.LocalStorage
	signer *storage.SignedURLSigner
}

// NewCertificateHandler constructs CertificateHandler.
func NewCertificateHandler(files *storage.LocalStorage, signer *storage.SignedURLSigner) *CertificateHandler {
	return &CertificateHandler{files: files, signer: signer}
}

// Download godoc
// @Summary Download a certificate PDF
// @Description Requires a valid signed token issued alongside the certificate.
// @Tags Certificates
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /certificates/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing download token"))
		return
	}

	certificateID, relPath, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}

	file, err := h.files.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "certificate file not found"))
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", "attachment; filename="+certificateID+".pdf")
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		_ = c.Error(err)
	}
}
