package respond

import (
	"time"

	"chunk-upload-system/model"
	"chunk-upload-system/service/upload_service"
)

// FileRecordResponse public view of a stored file record
type FileRecordResponse struct {
	ID          int64     `json:"id" example:"1"`
	FileName    string    `json:"fileName" example:"report.pdf"`
	StorageKey  string    `json:"storageKey" example:"files/2024/06/01/4b1d6f0e-3f4c-4a57-9c55-2f8e7d0a1b2c.pdf"`
	FileSize    int64     `json:"fileSize" example:"500000"`
	ContentType string    `json:"contentType" example:"application/pdf"`
	Bucket      string    `json:"bucket" example:"uploads"`
	Category    string    `json:"category" example:"docs"`
	Owner       string    `json:"owner" example:"alice"`
	FileHash    string    `json:"fileHash" example:"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"`
	Status      string    `json:"status" example:"active"`
	CreatedAt   time.Time `json:"createdAt" example:"2024-01-01T00:00:00Z"`
}

// InitUploadResponse either a finished fast-path upload or a new session
type InitUploadResponse struct {
	FastPath           bool                `json:"fastPath" example:"false" description:"True when identical content was already stored"`
	SessionId          string              `json:"sessionId,omitempty" example:"6f1c1a8e-8d0e-4a52-9a59-3c1f7c1e9b11"`
	StorageKey         string              `json:"storageKey" example:"files/2024/06/01/4b1d6f0e-3f4c-4a57-9c55-2f8e7d0a1b2c.pdf"`
	TotalChunks        int                 `json:"totalChunks,omitempty" example:"3"`
	SuggestedChunkSize int64               `json:"suggestedChunkSize" example:"1048576"`
	ExpiresAt          *time.Time          `json:"expiresAt,omitempty" example:"2024-01-02T00:00:00Z"`
	File               *FileRecordResponse `json:"file,omitempty" description:"Set on fast path"`
}

// ChunkAckResponse acknowledgement of a stored chunk
type ChunkAckResponse struct {
	SessionId     string `json:"sessionId" example:"6f1c1a8e-8d0e-4a52-9a59-3c1f7c1e9b11"`
	ChunkNumber   int    `json:"chunkNumber" example:"2"`
	Size          int64  `json:"size" example:"1048576"`
	ReceivedCount int    `json:"receivedCount" example:"2"`
	TotalChunks   int    `json:"totalChunks" example:"3"`
}

// UploadProgressResponse received chunks of a live session
type UploadProgressResponse struct {
	SessionId      string    `json:"sessionId" example:"6f1c1a8e-8d0e-4a52-9a59-3c1f7c1e9b11"`
	State          string    `json:"state" example:"open"`
	TotalChunks    int       `json:"totalChunks" example:"3"`
	ReceivedCount  int       `json:"receivedCount" example:"2"`
	ReceivedChunks []int     `json:"receivedChunks"`
	ReceivedBytes  int64     `json:"receivedBytes" example:"2097152"`
	TotalSize      int64     `json:"totalSize" example:"2500000"`
	ExpiresAt      time.Time `json:"expiresAt" example:"2024-01-02T00:00:00Z"`
}

// UploadErrorDetail error payload telling the client what to do next
type UploadErrorDetail struct {
	Kind         string `json:"kind" example:"retry" description:"restart, retry, fix_request or internal"`
	Missing      int    `json:"missing,omitempty" example:"1" description:"Missing chunk count for an incomplete upload"`
	FirstMissing int    `json:"firstMissing,omitempty" example:"2" description:"First absent chunk number"`
}

// ErrorResponse error envelope of the upload endpoints
type ErrorResponse struct {
	Code           int                `json:"code" example:"40900"`
	Message        string             `json:"message" example:"incomplete upload: 1 of 3 chunks missing"`
	ProcessingTime int64              `json:"processingTime" example:"3"`
	Data           *UploadErrorDetail `json:"data"`
}

// ToFileRecordResponse converts a model.FileRecord into a public response struct.
func ToFileRecordResponse(record *model.FileRecord) *FileRecordResponse {
	if record == nil {
		return nil
	}
	return &FileRecordResponse{
		ID:          record.ID,
		FileName:    record.FileName,
		StorageKey:  record.StorageKey,
		FileSize:    record.FileSize,
		ContentType: record.ContentType,
		Bucket:      record.Bucket,
		Category:    record.Category,
		Owner:       record.Owner,
		FileHash:    record.FileHash,
		Status:      string(record.Status),
		CreatedAt:   record.CreatedAt,
	}
}

// ToInitUploadResponse converts the service init result
func ToInitUploadResponse(res *upload_service.InitUploadResult) *InitUploadResponse {
	resp := &InitUploadResponse{
		FastPath:           res.FastPath,
		SessionId:          res.SessionId,
		StorageKey:         res.StorageKey,
		TotalChunks:        res.TotalChunks,
		SuggestedChunkSize: res.SuggestedChunkSize,
	}
	if res.FastPath {
		resp.File = ToFileRecordResponse(res.Record)
	} else {
		expiresAt := res.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

// ToChunkAckResponse converts a service chunk ack
func ToChunkAckResponse(ack *upload_service.ChunkAck) *ChunkAckResponse {
	return &ChunkAckResponse{
		SessionId:     ack.SessionId,
		ChunkNumber:   ack.ChunkNumber,
		Size:          ack.Size,
		ReceivedCount: ack.ReceivedCount,
		TotalChunks:   ack.TotalChunks,
	}
}

// ToUploadProgressResponse converts a session progress view
func ToUploadProgressResponse(p *model.UploadProgress) *UploadProgressResponse {
	received := p.ReceivedChunks
	if received == nil {
		received = []int{}
	}
	return &UploadProgressResponse{
		SessionId:      p.SessionId,
		State:          string(p.State),
		TotalChunks:    p.TotalChunks,
		ReceivedCount:  p.ReceivedCount,
		ReceivedChunks: received,
		ReceivedBytes:  p.ReceivedBytes,
		TotalSize:      p.TotalSize,
		ExpiresAt:      p.ExpiresAt,
	}
}
