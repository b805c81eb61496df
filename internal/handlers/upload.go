package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/snapcard/internal/images"
)

func (h *Handler) HandleCards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, h.store.List())
	case "POST":
		if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
			h.handleURLUpload(w, r)
			return
		}
		h.handleFileUpload(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURL string `json:"image_url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}
	if !images.IsURL(request.ImageURL) {
		h.writeError(w, "image_url must be an http(s) URL", http.StatusBadRequest)
		return
	}

	data, name, err := h.fetcher.Fetch(r.Context(), request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to process image URL: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.generate(w, r, data, name, "url")
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !images.IsSupported(header.Filename) {
		h.writeError(w, "Unsupported image type: "+header.Filename, http.StatusBadRequest)
		return
	}

	fileData, err := io.ReadAll(io.LimitReader(file, images.MaxImageBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if len(fileData) > images.MaxImageBytes {
		h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
		return
	}

	h.generate(w, r, fileData, header.Filename, "upload")
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, data []byte, name, source string) {
	imagePath, err := h.saveImage(data, name)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	session, err := h.createCardSession(r.Context(), imagePath, name, source)
	if err != nil {
		h.writeJSONStatus(w, statusFor(err), session)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, session)
}
