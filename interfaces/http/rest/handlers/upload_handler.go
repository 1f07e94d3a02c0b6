package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/pkg/auth"
	"inkboard-backend/pkg/common"
	pkgerrors "inkboard-backend/pkg/errors"
)

const maxUploadSize = 10 << 20

// UploadHandler handles image uploads backing image nodes
type UploadHandler struct {
	storage ports.ObjectStorage
	errs    *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewUploadHandler creates a new upload handler. storage may be nil when no
// object store is configured; uploads then fail with 503.
func NewUploadHandler(storage ports.ObjectStorage, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		storage: storage,
		errs:    errs,
		logger:  logger,
	}
}

// UploadResponse carries the public URL of a stored object
type UploadResponse struct {
	URL string `json:"url"`
}

// Upload handles POST /uploads. Expects a multipart form with a single
// "file" field and responds with the public URL to put on an image node.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	if h.storage == nil {
		h.errs.Handle(w, r, pkgerrors.NewUnavailableError("object storage"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid multipart form").WithCause(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("missing file field"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := h.storage.Upload(r.Context(), header.Filename, file, header.Size, contentType)
	if err != nil {
		h.logger.Error("upload failed",
			zap.String("userID", userCtx.UserID),
			zap.String("filename", header.Filename),
			zap.Error(err),
		)
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, UploadResponse{URL: url})
}
