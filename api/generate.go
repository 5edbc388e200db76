package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/printkit/qr-postcard/postcard"
)

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge,
				"request body too large: maximum upload size is 16 MiB")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}

	url := strings.TrimSpace(r.FormValue("url"))

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image file provided")
		return
	}
	defer file.Close()

	// Reject on the declared part size before buffering the upload.
	if header.Size > postcard.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("image exceeds maximum upload size of %d bytes", postcard.MaxUploadBytes))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read image upload")
		return
	}

	res, err := s.Generator.Composite(data, url)
	if err != nil {
		var perr *postcard.Error
		if errors.As(err, &perr) {
			writeError(w, statusFor(perr.Code), perr.Message)
			return
		}
		s.Log.Error("composite failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.Log.Info("postcard generated",
		"dimensions", fmt.Sprintf("%dx%d", res.Width, res.Height),
		"qr_size", res.QRSize,
		"bytes", len(res.PNG))

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename=qr_postcard.png`)
	w.Header().Set("X-QR-Size", strconv.Itoa(res.QRSize))
	w.Header().Set("X-QR-Center-X", strconv.Itoa(res.Center.X))
	w.Header().Set("X-QR-Center-Y", strconv.Itoa(res.Center.Y))
	w.Header().Set("X-Postcard-Size", fmt.Sprintf("%dx%d", res.Width, res.Height))
	w.WriteHeader(http.StatusOK)
	w.Write(res.PNG)
}
