package handler

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"chunk-upload-system/controller/respond"
	"chunk-upload-system/service/upload_service"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// UploadHandler upload handler
type UploadHandler struct {
	uploadService *upload_service.UploadService
	log           *zap.Logger
}

// NewUploadHandler create upload handler instance
func NewUploadHandler(uploadService *upload_service.UploadService, log *zap.Logger) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		log:           log,
	}
}

func isGzip(c *gin.Context) bool {
	encoding := strings.ToLower(strings.TrimSpace(c.GetHeader("Content-Encoding")))
	return strings.Contains(encoding, "gzip")
}

// bindJSONWithOptionalGzip handles JSON payloads that may be gzip-compressed.
// If the request header specifies gzip encoding, the body is decompressed before binding.
func bindJSONWithOptionalGzip(c *gin.Context, obj interface{}) error {
	if isGzip(c) {
		defer c.Request.Body.Close()

		gzipReader, err := gzip.NewReader(c.Request.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()

		bodyBytes, err := io.ReadAll(gzipReader)
		if err != nil {
			return err
		}

		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		c.Request.ContentLength = int64(len(bodyBytes))
		c.Request.Header.Del("Content-Encoding")
	}

	return c.ShouldBindJSON(obj)
}

// chunkBody returns the chunk payload: a multipart "chunk" field, or the raw
// request body, gunzipped when sent with Content-Encoding gzip
func chunkBody(c *gin.Context) (io.ReadCloser, error) {
	var body io.ReadCloser = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		file, _, err := c.Request.FormFile("chunk")
		if err != nil {
			return nil, err
		}
		body = file
	}

	if !isGzip(c) {
		return body, nil
	}
	gzipReader, err := gzip.NewReader(body)
	if err != nil {
		body.Close()
		return nil, err
	}
	return &gzipBody{Reader: gzipReader, src: body}, nil
}

type gzipBody struct {
	*gzip.Reader
	src io.Closer
}

func (g *gzipBody) Close() error {
	g.Reader.Close()
	return g.src.Close()
}

// InitUploadRequest init upload request
type InitUploadRequest struct {
	FileName    string `json:"fileName" binding:"required" example:"report.pdf" description:"Original file name"`
	TotalSize   int64  `json:"totalSize" example:"2500000" description:"Declared file size in bytes"`
	TotalChunks int    `json:"totalChunks" example:"3" description:"Declared chunk count"`
	Category    string `json:"category" example:"docs" description:"Free-form category"`
	Owner       string `json:"owner" example:"alice" description:"Owner identifier"`
	FileHash    string `json:"fileHash" example:"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" description:"Optional SHA256 hex of the whole file, enables dedup"`
}

// InitUpload start an upload
// @Summary      Initialize upload
// @Description  Open an upload session. When fileHash matches stored content of the same size the file is
// @Description  copied server-side and returned immediately (fastPath=true); no chunks need to be sent.
// @Tags         Chunked Upload
// @Accept       json
// @Produce      json
// @Param        request  body      InitUploadRequest  true  "Init upload request"
// @Success      200      {object}  respond.Response{data=respond.InitUploadResponse}
// @Failure      400      {object}  respond.ErrorResponse  "Parameter error"
// @Failure      500      {object}  respond.Response  "Server error"
// @Router       /uploads [post]
func (h *UploadHandler) InitUpload(c *gin.Context) {
	var req InitUploadRequest
	if err := bindJSONWithOptionalGzip(c, &req); err != nil {
		respond.InvalidParam(c, err.Error())
		return
	}

	res, err := h.uploadService.InitUpload(c.Request.Context(), upload_service.InitUploadRequest{
		FileName:    req.FileName,
		TotalSize:   req.TotalSize,
		TotalChunks: req.TotalChunks,
		Category:    req.Category,
		Owner:       req.Owner,
		FileHash:    req.FileHash,
	})
	if err != nil {
		respond.UploadError(c, err)
		return
	}

	respond.Success(c, respond.ToInitUploadResponse(res))
}

// UploadChunk upload one chunk
// @Summary      Upload chunk
// @Description  Store one chunk. Chunks may arrive in any order and a resend replaces the earlier bytes.
// @Description  The body is the raw chunk (optionally Content-Encoding gzip) or a multipart field named "chunk".
// @Tags         Chunked Upload
// @Accept       application/octet-stream
// @Accept       multipart/form-data
// @Produce      json
// @Param        sessionId    path      string  true   "Session ID"
// @Param        chunkNumber  path      int     true   "Chunk number, starting at 1"
// @Param        chunk        formData  file    false  "Chunk content (multipart)"
// @Success      200          {object}  respond.Response{data=respond.ChunkAckResponse}
// @Failure      400          {object}  respond.ErrorResponse  "Parameter error"
// @Failure      404          {object}  respond.ErrorResponse  "Session not found"
// @Failure      409          {object}  respond.ErrorResponse  "Session is being completed"
// @Failure      408          {object}  respond.ErrorResponse  "Upload interrupted, resend the chunk"
// @Failure      410          {object}  respond.ErrorResponse  "Session expired"
// @Failure      502          {object}  respond.ErrorResponse  "Chunk could not be written, resend it"
// @Router       /uploads/{sessionId}/chunks/{chunkNumber} [put]
func (h *UploadHandler) UploadChunk(c *gin.Context) {
	sessionId := c.Param("sessionId")
	chunkNumber, err := strconv.Atoi(c.Param("chunkNumber"))
	if err != nil {
		respond.InvalidParam(c, "invalid chunk number")
		return
	}

	body, err := chunkBody(c)
	if err != nil {
		respond.InvalidParam(c, "invalid chunk body: "+err.Error())
		return
	}
	defer body.Close()

	ack, err := h.uploadService.UploadChunk(c.Request.Context(), sessionId, chunkNumber, body)
	if err != nil {
		h.log.Debug("Chunk rejected",
			zap.String("session_id", sessionId),
			zap.Int("chunk", chunkNumber),
			zap.Error(err))
		respond.UploadError(c, err)
		return
	}

	respond.Success(c, respond.ToChunkAckResponse(ack))
}

// CompleteUpload finish an upload
// @Summary      Complete upload
// @Description  Verify that chunks 1..totalChunks are present, merge them into storage and publish the file
// @Description  record. Failures after verification keep the session; calling again resumes.
// @Tags         Chunked Upload
// @Produce      json
// @Param        sessionId  path      string  true  "Session ID"
// @Success      200        {object}  respond.Response{data=respond.FileRecordResponse}
// @Failure      400        {object}  respond.ErrorResponse  "Hash mismatch"
// @Failure      404        {object}  respond.ErrorResponse  "Session not found"
// @Failure      409        {object}  respond.ErrorResponse  "Chunks missing, size mismatch or completion in progress"
// @Failure      410        {object}  respond.ErrorResponse  "Session expired"
// @Failure      502        {object}  respond.ErrorResponse  "Storage or metadata write failed"
// @Router       /uploads/{sessionId}/complete [post]
func (h *UploadHandler) CompleteUpload(c *gin.Context) {
	record, err := h.uploadService.CompleteUpload(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respond.UploadError(c, err)
		return
	}

	respond.Success(c, respond.ToFileRecordResponse(record))
}

// AbortUpload discard an upload
// @Summary      Abort upload
// @Description  Discard a session and its chunks. Unknown sessions are accepted.
// @Tags         Chunked Upload
// @Produce      json
// @Param        sessionId  path      string  true  "Session ID"
// @Success      200        {object}  respond.Response  "Abort successful"
// @Failure      409        {object}  respond.ErrorResponse  "Completion in progress"
// @Router       /uploads/{sessionId} [delete]
func (h *UploadHandler) AbortUpload(c *gin.Context) {
	if err := h.uploadService.AbortUpload(c.Request.Context(), c.Param("sessionId")); err != nil {
		respond.UploadError(c, err)
		return
	}

	respond.Success(c, gin.H{"message": "Upload aborted successfully"})
}

// GetProgress received chunks of a session
// @Summary      Upload progress
// @Description  Received chunk numbers of a live session, used to resume an interrupted upload
// @Tags         Chunked Upload
// @Produce      json
// @Param        sessionId  path      string  true  "Session ID"
// @Success      200        {object}  respond.Response{data=respond.UploadProgressResponse}
// @Failure      404        {object}  respond.ErrorResponse  "Session not found"
// @Failure      410        {object}  respond.ErrorResponse  "Session expired"
// @Router       /uploads/{sessionId} [get]
func (h *UploadHandler) GetProgress(c *gin.Context) {
	progress, err := h.uploadService.GetProgress(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respond.UploadError(c, err)
		return
	}

	respond.Success(c, respond.ToUploadProgressResponse(progress))
}

// GetFile file record by id
// @Summary      Get file record
// @Description  Query a published file record by ID
// @Tags         Files
// @Produce      json
// @Param        id   path      int  true  "File record ID"
// @Success      200  {object}  respond.Response{data=respond.FileRecordResponse}
// @Failure      400  {object}  respond.Response  "Parameter error"
// @Failure      404  {object}  respond.Response  "File not found"
// @Router       /files/{id} [get]
func (h *UploadHandler) GetFile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.InvalidParam(c, "invalid file id")
		return
	}

	record, err := h.uploadService.GetFileRecord(c.Request.Context(), id)
	if err != nil {
		respond.UploadError(c, err)
		return
	}

	respond.Success(c, respond.ToFileRecordResponse(record))
}
