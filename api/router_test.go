package api_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printkit/qr-postcard/api"
	"github.com/printkit/qr-postcard/config"
	"github.com/printkit/qr-postcard/postcard"
)

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	gen := postcard.NewGenerator()
	gen.QR.Size = 64
	gen.Center = image.Pt(500, 500)
	gen.ScaleToImage = cfg.ScaleToImage

	return api.NewRouter(&api.Server{
		Cfg:       cfg,
		Generator: gen,
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Version:   "test",
	})
}

func pngUpload(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartRequest builds a POST /generate-qr-postcard request. A nil
// imageBytes omits the image part entirely.
func multipartRequest(t *testing.T, fields map[string]string, imageBytes []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if imageBytes != nil {
		part, err := mw.CreateFormFile("image", "postcard.png")
		require.NoError(t, err)
		_, err = part.Write(imageBytes)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/generate-qr-postcard", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp, "error")
	return resp["error"]
}

func TestGenerateSuccess(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	req := multipartRequest(t, map[string]string{"url": "https://example.com/campaign"}, pngUpload(t, 1000, 1000))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=qr_postcard.png`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "64", w.Header().Get("X-QR-Size"))
	assert.Equal(t, "500", w.Header().Get("X-QR-Center-X"))
	assert.Equal(t, "500", w.Header().Get("X-QR-Center-Y"))
	assert.Equal(t, "1000x1000", w.Header().Get("X-Postcard-Size"))

	out, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1000, out.Bounds().Dx())
	assert.Equal(t, 1000, out.Bounds().Dy())
}

func TestGenerateMissingURL(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	req := multipartRequest(t, nil, pngUpload(t, 1000, 1000))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decodeErrorBody(t, w))
}

func TestGenerateMissingImage(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	req := multipartRequest(t, map[string]string{"url": "https://example.com"}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no image file provided", decodeErrorBody(t, w))
}

func TestGenerateImageTooSmall(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	req := multipartRequest(t, map[string]string{"url": "https://example.com"}, pngUpload(t, 640, 480))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeErrorBody(t, w), "too small")
}

func TestGenerateInvalidImage(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	req := multipartRequest(t, map[string]string{"url": "https://example.com"}, []byte("definitely not an image"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeErrorBody(t, w), "invalid image")
}

func TestGenerateOversizedContentLength(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	req := multipartRequest(t, map[string]string{"url": "https://example.com"}, pngUpload(t, 1000, 1000))
	// Declared size over the cap must be rejected without reading the body.
	req.ContentLength = 20 << 20
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestGenerateAPIKey(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &config.Config{APIKey: "sekret"})

	// Missing key -> 401.
	req := multipartRequest(t, map[string]string{"url": "https://example.com"}, pngUpload(t, 1000, 1000))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong key -> 401.
	req = multipartRequest(t, map[string]string{"url": "https://example.com"}, pngUpload(t, 1000, 1000))
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Header key -> 200.
	req = multipartRequest(t, map[string]string{"url": "https://example.com"}, pngUpload(t, 1000, 1000))
	req.Header.Set("X-API-Key", "sekret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Form field key -> 200.
	req = multipartRequest(t, map[string]string{"url": "https://example.com", "api_key": "sekret"}, pngUpload(t, 1000, 1000))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status   string `json:"status"`
		Service  string `json:"service"`
		QRConfig struct {
			Size    int    `json:"size"`
			Center  [2]int `json:"center"`
			TopLeft [2]int `json:"top_left"`
		} `json:"qr_config"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "QR Postcard Generator", resp.Service)
	assert.Equal(t, 64, resp.QRConfig.Size)
	assert.Equal(t, [2]int{500, 500}, resp.QRConfig.Center)
	assert.Equal(t, [2]int{468, 468}, resp.QRConfig.TopLeft)
}

func TestIndex(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "QR Postcard Generator API", resp["service"])
}
