package respond

import (
	"context"
	"errors"
	"net/http"

	"chunk-upload-system/service/upload_service"

	"github.com/gin-gonic/gin"
)

// UploadError maps an upload service error onto status, business code and a
// detail telling the client whether to restart, retry or fix the request.
func UploadError(c *gin.Context, err error) {
	detail := &UploadErrorDetail{Kind: string(upload_service.ErrorKind(err))}

	var incomplete *upload_service.IncompleteUploadError
	var nonContiguous *upload_service.NonContiguousChunksError
	var sizeMismatch *upload_service.SizeMismatchError

	switch {
	case upload_service.ErrValidation.Has(err):
		uploadError(c, http.StatusBadRequest, CodeInvalidParam, err, detail)
	case errors.Is(err, upload_service.ErrSessionNotFound), errors.Is(err, upload_service.ErrFileNotFound):
		uploadError(c, http.StatusNotFound, CodeNotFound, err, detail)
	case errors.Is(err, upload_service.ErrSessionExpired):
		uploadError(c, http.StatusGone, CodeGone, err, detail)
	case errors.As(err, &incomplete):
		detail.Missing = incomplete.Missing
		uploadError(c, http.StatusConflict, CodeConflict, err, detail)
	case errors.As(err, &nonContiguous):
		detail.FirstMissing = nonContiguous.FirstMissing
		uploadError(c, http.StatusConflict, CodeConflict, err, detail)
	case errors.As(err, &sizeMismatch), errors.Is(err, upload_service.ErrSessionBusy):
		uploadError(c, http.StatusConflict, CodeConflict, err, detail)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		uploadError(c, http.StatusRequestTimeout, CodeTimeout, err, detail)
	case upload_service.ErrUploadFailed.Has(err):
		uploadError(c, http.StatusBadGateway, CodeBadGateway, err, detail)
	default:
		uploadError(c, http.StatusInternalServerError, CodeServerError, err, detail)
	}
}

func uploadError(c *gin.Context, status, code int, err error, detail *UploadErrorDetail) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:           code,
		Message:        err.Error(),
		ProcessingTime: processingTime(c),
		Data:           detail,
	})
}
