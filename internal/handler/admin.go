package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pavelanni/gradereport/internal/i18n"
	"github.com/pavelanni/gradereport/internal/model"
)

type importResponse struct {
	Imported bool             `json:"imported"`
	Message  string           `json:"message"`
	Info     model.ExportInfo `json:"info"`
}

// handleImportDataset replaces the stored dataset with the request body.
// The name query parameter labels the upload; re-sending identical content
// under the same name is a no-op.
func (h *Handler) handleImportDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "dataset too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if _, err := model.ParseDataset(data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	source := "upload:" + name

	res, err := h.store.ImportDataset(r.Context(), source, data)
	if err != nil {
		slog.Error("failed to import dataset", "source", source, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	user := model.UserFromContext(r.Context())
	slog.Info("dataset upload", "source", source, "imported", res.Imported, "user", user.Username)
	msg := "DatasetUnchanged"
	if res.Imported {
		msg = "DatasetImported"
	}
	writeJSON(w, http.StatusOK, importResponse{
		Imported: res.Imported,
		Message:  i18n.T(r.Context(), msg),
		Info:     res.Info,
	})
}
