package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"chunk-upload-system/service/upload_service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   int
		kind   string
	}{
		{"validation", upload_service.ErrValidation.New("bad"), http.StatusBadRequest, CodeInvalidParam, "fix_request"},
		{"not found", upload_service.ErrSessionNotFound, http.StatusNotFound, CodeNotFound, "restart"},
		{"expired", upload_service.ErrSessionExpired, http.StatusGone, CodeGone, "restart"},
		{"size mismatch", &upload_service.SizeMismatchError{Received: 6, Declared: 10}, http.StatusConflict, CodeConflict, "retry"},
		{"interrupted", fmt.Errorf("chunk 1 interrupted: %w", context.DeadlineExceeded), http.StatusRequestTimeout, CodeTimeout, "retry"},
		{"storage write", upload_service.ErrUploadFailed.Wrap(upload_service.ErrStorageWrite.New("disk full")), http.StatusBadGateway, CodeBadGateway, "retry"},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeServerError, "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			UploadError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			require.NotNil(t, body.Data)
			assert.Equal(t, tc.kind, body.Data.Kind)
		})
	}
}
