package site

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxQuoteSize = 16 << 20

// Attachment extensions accepted with a quote request.  Others are dropped.
var quoteAttachmentExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".pdf": true, ".doc": true, ".docx": true, ".txt": true,
}

// QuoteRequest is a validated submission of the consultation form.
type QuoteRequest struct {
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
}

// QuoteSender delivers quote requests, eg by mail.
type QuoteSender func(ctx context.Context, req QuoteRequest) error

func (s *Site) quoteHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxQuoteSize); err != nil && err != http.ErrNotMultipart {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Could not read the form."})
		return
	}
	req := QuoteRequest{
		Title: strings.TrimSpace(r.FormValue("title")),
		Body:  strings.TrimSpace(r.FormValue("body")),
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "A subject is required."})
		return
	}
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["attachments"] {
			name := filepath.Base(fh.Filename)
			if quoteAttachmentExts[strings.ToLower(filepath.Ext(name))] {
				req.Attachments = append(req.Attachments, name)
			}
		}
	}

	if s.SendQuote == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Server email is not configured."})
		return
	}
	if err := s.SendQuote(r.Context(), req); err != nil {
		s.Logger.Error("sending quote failed", zap.String("title", req.Title), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Could not send email. Try again later."})
		return
	}
	s.Logger.Info("quote request sent", zap.String("title", req.Title), zap.Int("attachments", len(req.Attachments)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
