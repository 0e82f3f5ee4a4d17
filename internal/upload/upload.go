// Package upload keeps sheet ingestion sessions in Redis for the upload
// review flow. A session records what was uploaded; its summary records
// everything the review screen needs to show. Both expire with the
// configured TTL, so nothing a sender uploads outlives the review.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/recipient-engine/internal/config"
	"github.com/ignite/recipient-engine/internal/pkg/logger"
	"github.com/ignite/recipient-engine/internal/recipients"
	"github.com/ignite/recipient-engine/internal/template"
)

var (
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file is too large")
	ErrUnknownTemplateType = errors.New("unknown template type")
	ErrSessionNotFound     = errors.New("upload session not found")
	ErrSessionExpired      = errors.New("upload session has expired")
)

// Session statuses.
const (
	StatusReady       = "ready"
	StatusNeedsFixing = "needs_fixing"
)

// Session tracks one ingested sheet until its TTL runs out.
type Session struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	TemplateType string    `json:"template_type"`
	FileSize     int64     `json:"file_size"`
	RowCount     int       `json:"row_count"`
	Status       string    `json:"status"` // ready or needs_fixing
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Summary is the review-screen view of one ingested sheet: header
// problems, sheet-level limits, per-category row counts and the rows
// worth displaying.
type Summary struct {
	SessionID string `json:"session_id"`
	RowCount  int    `json:"row_count"`

	HasErrors                       bool     `json:"has_errors"`
	MissingColumnHeaders            []string `json:"missing_column_headers,omitempty"`
	DuplicateRecipientColumnHeaders []string `json:"duplicate_recipient_column_headers,omitempty"`
	TooManyRows                     bool     `json:"too_many_rows"`
	MoreRowsThanCanSend             bool     `json:"more_rows_than_can_send"`
	NotAllowedToSendTo              bool     `json:"not_allowed_to_send_to"`

	BadRecipientCount   int `json:"bad_recipient_count"`
	MissingDataCount    int `json:"missing_data_count"`
	MessageTooLongCount int `json:"message_too_long_count"`
	EmptyMessageCount   int `json:"empty_message_count"`
	BadQRCodeCount      int `json:"bad_qr_code_count"`

	ColumnHeaders []string   `json:"column_headers"`
	Rows          []*RowView `json:"rows"`
	Errors        []string   `json:"errors,omitempty"` // Sample of row errors
}

// RowView is one displayed row flattened for storage. Rows past the sheet
// cap are kept as nulls so the review screen can show where the cutoff
// fell.
type RowView struct {
	Index  int                    `json:"index"`
	Values map[string]interface{} `json:"values"`
	Errors map[string]string      `json:"errors,omitempty"`
	Extra  []interface{}          `json:"extra,omitempty"`

	MessageTooLong bool                  `json:"message_too_long,omitempty"`
	MessageEmpty   bool                  `json:"message_empty,omitempty"`
	BadAddress     bool                  `json:"bad_address,omitempty"`
	QRCodeError    *template.QRCodeError `json:"qr_code_error,omitempty"`
}

// IngestRequest describes one uploaded sheet and the template it is for.
// Subject is only read for email templates.
type IngestRequest struct {
	Filename     string
	FileData     string
	TemplateType string
	Subject      string
	Content      string

	// Guestlist restricts who the sender may send to. Empty means
	// unrestricted.
	Guestlist         []string
	RemainingMessages int
}

// Service ingests uploaded sheets and keeps the review state for each one
// in Redis. Nothing is stored durably.
type Service struct {
	redis      *redis.Client
	upload     config.UploadConfig
	validation config.ValidationConfig
}

// NewService creates an upload service backed by the given Redis client.
func NewService(redisClient *redis.Client, uploadCfg config.UploadConfig, validationCfg config.ValidationConfig) *Service {
	return &Service{
		redis:      redisClient,
		upload:     uploadCfg,
		validation: validationCfg,
	}
}

// Ingest parses and validates an uploaded sheet against its template, then
// stores the session and its review summary under the configured TTL. Only
// the summary survives ingestion; recipient data is not kept beyond the
// displayed-row sample.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*Session, *Summary, error) {
	if size := int64(len(req.FileData)); size > s.upload.MaxFileBytes {
		return nil, nil, fmt.Errorf("%w: %d bytes exceeds maximum %d", ErrFileTooLarge, size, s.upload.MaxFileBytes)
	}
	if strings.TrimSpace(req.FileData) == "" {
		return nil, nil, ErrEmptyFile
	}

	tmpl, err := templateFor(req)
	if err != nil {
		return nil, nil, err
	}

	sheet, err := recipients.New(req.FileData, tmpl, recipients.Options{
		MaxErrorsShown:            s.upload.MaxErrorsShown,
		MaxInitialRowsShown:       s.upload.MaxInitialRowsShown,
		MaxRows:                   s.upload.MaxRows,
		RemainingMessages:         req.RemainingMessages,
		Guestlist:                 req.Guestlist,
		AllowInternationalSMS:     s.validation.AllowInternationalSMS,
		AllowInternationalLetters: s.validation.AllowInternationalLetters,
	})
	if err != nil {
		return nil, nil, err
	}

	sessionID := uuid.New().String()
	now := time.Now()
	session := &Session{
		ID:           sessionID,
		Filename:     req.Filename,
		TemplateType: req.TemplateType,
		FileSize:     int64(len(req.FileData)),
		RowCount:     sheet.Len(),
		Status:       StatusReady,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.upload.SessionTTL()),
	}
	summary := s.buildSummary(sessionID, sheet)
	if summary.HasErrors {
		session.Status = StatusNeedsFixing
	}

	sessionJSON, _ := json.Marshal(session)
	if err := s.redis.Set(ctx, s.sessionKey(sessionID), sessionJSON, s.upload.SessionTTL()).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to store upload session: %w", err)
	}
	summaryJSON, _ := json.Marshal(summary)
	if err := s.redis.Set(ctx, s.summaryKey(sessionID), summaryJSON, s.upload.SessionTTL()).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to store upload summary: %w", err)
	}

	logger.Info("sheet ingested",
		"session_id", sessionID,
		"filename", req.Filename,
		"template_type", req.TemplateType,
		"rows", sheet.Len(),
		"status", session.Status)

	return session, summary, nil
}

// GetSession returns a previously ingested session by ID.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// GetSummary returns the stored review summary for a session.
func (s *Service) GetSummary(ctx context.Context, sessionID string) (*Summary, error) {
	data, err := s.redis.Get(ctx, s.summaryKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}

	return &summary, nil
}

func (s *Service) buildSummary(sessionID string, sheet *recipients.RecipientCSV) *Summary {
	summary := &Summary{
		SessionID:                       sessionID,
		RowCount:                        sheet.Len(),
		HasErrors:                       sheet.HasErrors(),
		MissingColumnHeaders:            sheet.MissingColumnHeaders(),
		DuplicateRecipientColumnHeaders: sheet.DuplicateRecipientColumnHeaders(),
		TooManyRows:                     sheet.TooManyRows(),
		MoreRowsThanCanSend:             sheet.MoreRowsThanCanSend(),
		NotAllowedToSendTo:              !sheet.AllowedToSendTo(),
		BadRecipientCount:               len(sheet.RowsWithBadRecipients()),
		MissingDataCount:                len(sheet.RowsWithMissingData()),
		MessageTooLongCount:             len(sheet.RowsWithMessageTooLong()),
		EmptyMessageCount:               len(sheet.RowsWithEmptyMessage()),
		BadQRCodeCount:                  len(sheet.RowsWithBadQRCodes()),
		ColumnHeaders:                   sheet.ColumnHeaders(),
	}

	for _, row := range sheet.DisplayedRows() {
		summary.Rows = append(summary.Rows, rowView(row))
	}
	summary.Errors = sampleErrors(sheet, s.upload.MaxErrorsShown)

	return summary
}

func rowView(row *recipients.Row) *RowView {
	if row == nil {
		return nil
	}

	view := &RowView{
		Index:          row.Index,
		Values:         make(map[string]interface{}),
		Errors:         make(map[string]string),
		Extra:          row.Extra(),
		MessageTooLong: row.MessageTooLong(),
		MessageEmpty:   row.MessageEmpty(),
		BadAddress:     row.HasBadPostalAddress(),
		QRCodeError:    row.QRCodeTooLong(),
	}
	for _, key := range row.Keys() {
		cell := row.Get(key)
		view.Values[key] = cell.Data
		if cell.Error != "" {
			view.Errors[key] = cell.Error
		}
	}
	return view
}

// sampleErrors collects a bounded, human-readable sample of what is wrong
// with the sheet's rows.
func sampleErrors(sheet *recipients.RecipientCSV, limit int) []string {
	var samples []string
	for _, row := range sheet.RowsWithErrors() {
		if len(samples) >= limit {
			break
		}
		for _, key := range row.Keys() {
			if msg := row.Get(key).Error; msg != "" {
				samples = append(samples, fmt.Sprintf("row %d: %s: %s", row.Index+1, key, msg))
			}
		}
		if row.MessageEmpty() {
			samples = append(samples, fmt.Sprintf("row %d: message is empty", row.Index+1))
		}
		if row.MessageTooLong() {
			samples = append(samples, fmt.Sprintf("row %d: message is too long", row.Index+1))
		}
		if row.QRCodeTooLong() != nil {
			samples = append(samples, fmt.Sprintf("row %d: too much data for the QR code", row.Index+1))
		}
		if row.HasBadPostalAddress() {
			samples = append(samples, fmt.Sprintf("row %d: address is not valid", row.Index+1))
		}
	}
	if len(samples) > limit {
		samples = samples[:limit]
	}
	return samples
}

func templateFor(req IngestRequest) (template.Template, error) {
	switch template.Type(req.TemplateType) {
	case template.TypeEmail:
		return template.NewEmail(req.Subject, req.Content), nil
	case template.TypeSMS:
		return template.NewSMS(req.Content), nil
	case template.TypeLetter:
		return template.NewLetter(req.Content), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplateType, req.TemplateType)
	}
}

func (s *Service) sessionKey(sessionID string) string {
	return fmt.Sprintf("sheet:session:%s", sessionID)
}

func (s *Service) summaryKey(sessionID string) string {
	return fmt.Sprintf("sheet:summary:%s", sessionID)
}
