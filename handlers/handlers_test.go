package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandlers(nil, nil)
	router.GET("/api/v3/health", h.HealthCheck)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v3/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "photo-intel-pipeline", body["service"])
}

func TestGenerateRequestBinding(t *testing.T) {
	raw := `{"force_photo_ids": ["p1", "p2"], "full_rerun": true}`

	var req generateRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	assert.Equal(t, []string{"p1", "p2"}, req.ForcePhotoIDs)
	assert.True(t, req.FullRerun)
}
