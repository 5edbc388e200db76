package api

import (
	"fmt"
	"net/http"
)

type qrConfigInfo struct {
	Size       int    `json:"size"`
	Center     [2]int `json:"center"`
	TopLeft    [2]int `json:"top_left"`
	Background string `json:"background"`
}

type healthResponse struct {
	Status       string       `json:"status"`
	Service      string       `json:"service"`
	Version      string       `json:"version"`
	ScaleToImage bool         `json:"scale_to_image"`
	QRConfig     qrConfigInfo `json:"qr_config"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	g := s.Generator
	anchor := g.Placement()
	bg := g.QR.Background

	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "healthy",
		Service:      "QR Postcard Generator",
		Version:      s.Version,
		ScaleToImage: g.ScaleToImage,
		QRConfig: qrConfigInfo{
			Size:       g.QR.Size,
			Center:     [2]int{g.Center.X, g.Center.Y},
			TopLeft:    [2]int{anchor.X, anchor.Y},
			Background: fmt.Sprintf("#%02x%02x%02x", bg.R, bg.G, bg.B),
		},
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "QR Postcard Generator API",
		"version": s.Version,
		"endpoints": map[string]interface{}{
			"POST /generate-qr-postcard": map[string]interface{}{
				"description": "Generate a postcard with a QR code applied",
				"parameters": map[string]string{
					"image": "Postcard image file (multipart/form-data)",
					"url":   "URL to encode in the QR code (form field)",
				},
				"returns": "PNG image with QR code applied",
			},
			"GET /health": "Health check and configuration",
		},
		"security": map[string]interface{}{
			"api_key_required": s.Cfg.APIKey != "",
		},
	})
}
