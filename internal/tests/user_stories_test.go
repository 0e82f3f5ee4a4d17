package tests

// User Story Tests for Recipient Validation Engine
// These tests validate end-to-end functionality for critical sender journeys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/recipient-engine/internal/api"
	"github.com/ignite/recipient-engine/internal/config"
	"github.com/ignite/recipient-engine/internal/recipients"
	"github.com/ignite/recipient-engine/internal/upload"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

// TestContext holds shared test infrastructure
type TestContext struct {
	MiniR   *miniredis.Miniredis
	Redis   *redis.Client
	Config  *config.Config
	Uploads *upload.Service
	Router  http.Handler
	Ctx     context.Context
	Cancel  context.CancelFunc
}

func setupTestContext(t *testing.T) *TestContext {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Upload: config.UploadConfig{
			MaxFileBytes:        1 << 20,
			MaxRows:             100,
			MaxErrorsShown:      3,
			MaxInitialRowsShown: 5,
			SessionTTLMinutes:   30,
		},
		Validation: config.ValidationConfig{
			AllowInternationalSMS:     false,
			AllowInternationalLetters: false,
		},
	}

	uploads := upload.NewService(redisClient, cfg.Upload, cfg.Validation)
	server := api.NewServer(cfg, uploads)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	return &TestContext{
		MiniR:   mr,
		Redis:   redisClient,
		Config:  cfg,
		Uploads: uploads,
		Router:  server.Handler(),
		Ctx:     ctx,
		Cancel:  cancel,
	}
}

func (tc *TestContext) Cleanup() {
	tc.Cancel()
	tc.Redis.Close()
	tc.MiniR.Close()
}

// postJSON sends a JSON body through the router and decodes the response.
func (tc *TestContext) postJSON(t *testing.T, path string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	tc.Router.ServeHTTP(rec, req)

	return rec.Code, decodeBody(t, rec)
}

func (tc *TestContext) getJSON(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	tc.Router.ServeHTTP(rec, req)

	return rec.Code, decodeBody(t, rec)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// previewSheet uploads a sheet and returns the decoded session and summary.
func (tc *TestContext) previewSheet(t *testing.T, payload map[string]interface{}) (map[string]interface{}, map[string]interface{}) {
	t.Helper()

	status, body := tc.postJSON(t, "/api/sheets/preview", payload)
	require.Equal(t, http.StatusOK, status, "preview should accept the sheet: %v", body)

	session, ok := body["session"].(map[string]interface{})
	require.True(t, ok, "response should include a session")
	summary, ok := body["summary"].(map[string]interface{})
	require.True(t, ok, "response should include a summary")
	return session, summary
}

// =============================================================================
// US-001: Clean Sheet Upload Review
// =============================================================================

// As a campaign manager, I want to upload a recipient sheet and see it
// pass review, so that I can start sending without guesswork.
func TestUS001_CleanSheetUploadReview(t *testing.T) {
	tc := setupTestContext(t)
	defer tc.Cleanup()

	fileData := "phone number,name\n" +
		"07700900123,Jo\n" +
		"07700900456,Sam\n" +
		"+44 7700 900789,Alex"

	var sessionID string

	t.Run("Criterion1_UploadSheetAndGetReadyStatus", func(t *testing.T) {
		// Given: A sheet where every number is a valid UK mobile
		payload := map[string]interface{}{
			"filename":      "campaign.csv",
			"file_data":     fileData,
			"template_type": "sms",
			"content":       "Hello {{ name }}",
		}

		// When: The sheet is uploaded for preview
		session, summary := tc.previewSheet(t, payload)

		// Then: The session is ready with every row accounted for
		assert.Equal(t, upload.StatusReady, session["status"])
		assert.Equal(t, float64(3), summary["row_count"])
		assert.Equal(t, false, summary["has_errors"])

		sessionID, _ = session["id"].(string)
		require.NotEmpty(t, sessionID)
	})

	t.Run("Criterion2_SummaryShowsHeadersAndRowValues", func(t *testing.T) {
		// Given: The stored review summary for the session
		status, summary := tc.getJSON(t, "/api/sheets/"+sessionID)
		require.Equal(t, http.StatusOK, status)

		// Then: Column headers keep their original spelling
		headers, ok := summary["column_headers"].([]interface{})
		require.True(t, ok)
		assert.Equal(t, []interface{}{"phone number", "name"}, headers)

		// Then: Row values are available for the preview table
		rows, ok := summary["rows"].([]interface{})
		require.True(t, ok)
		require.Len(t, rows, 3)

		first, ok := rows[0].(map[string]interface{})
		require.True(t, ok)
		values, ok := first["values"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Jo", values["name"])
	})

	t.Run("Criterion3_StatusEndpointTracksTheSession", func(t *testing.T) {
		// When: Polling the session status endpoint
		status, session := tc.getJSON(t, "/api/sheets/"+sessionID+"/status")
		require.Equal(t, http.StatusOK, status)

		// Then: The session record identifies the upload
		assert.Equal(t, sessionID, session["id"])
		assert.Equal(t, "campaign.csv", session["filename"])
		assert.Equal(t, "sms", session["template_type"])
		assert.Equal(t, upload.StatusReady, session["status"])
	})

	t.Run("Criterion4_SessionExpiresAfterTTL", func(t *testing.T) {
		// Given: The session TTL has elapsed
		tc.MiniR.FastForward(31 * time.Minute)

		// Then: The summary is gone and the API says so
		status, body := tc.getJSON(t, "/api/sheets/"+sessionID)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "upload session not found", body["error"])
	})
}

// =============================================================================
// US-002: Fixing a Sheet With Mistakes
// =============================================================================

// As a sender, I want row errors pointed at the exact cell, so that I can
// fix my sheet and re-upload it without hunting through the file.
func TestUS002_FixingSheetWithMistakes(t *testing.T) {
	tc := setupTestContext(t)
	defer tc.Cleanup()

	t.Run("Criterion1_BadNumbersAreCountedAndFlagged", func(t *testing.T) {
		// Given: Two of four rows carry unusable numbers
		fileData := "phone number,name\n" +
			"07700900123,Jo\n" +
			"0770090,Sam\n" +
			"07700900456,Alex\n" +
			"not a number,Chris"
		payload := map[string]interface{}{
			"file_data":     fileData,
			"template_type": "sms",
			"content":       "Hello {{ name }}",
		}

		// When: The sheet is uploaded
		session, summary := tc.previewSheet(t, payload)

		// Then: The session needs fixing and the counts say why
		assert.Equal(t, upload.StatusNeedsFixing, session["status"])
		assert.Equal(t, true, summary["has_errors"])
		assert.Equal(t, float64(2), summary["bad_recipient_count"])
	})

	t.Run("Criterion2_CellErrorsNameTheOffendingColumn", func(t *testing.T) {
		// Given: A single too-short number
		payload := map[string]interface{}{
			"file_data":     "phone number,name\n07700900123,Jo\n0770090,Sam",
			"template_type": "sms",
			"content":       "Hello {{ name }}",
		}

		_, summary := tc.previewSheet(t, payload)

		// Then: Only the broken row appears, with the error on its column
		rows, ok := summary["rows"].([]interface{})
		require.True(t, ok)
		require.Len(t, rows, 1, "only rows with errors should be displayed")

		row, ok := rows[0].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(1), row["index"])

		rowErrors, ok := row["errors"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Mobile number is too short", rowErrors["phone number"])
	})

	t.Run("Criterion3_ErrorSampleIsCappedForDisplay", func(t *testing.T) {
		// Given: Ten broken rows against a display cap of three
		var sheet strings.Builder
		sheet.WriteString("phone number,name\n")
		for i := 0; i < 10; i++ {
			fmt.Fprintf(&sheet, "0770090,Person %d\n", i)
		}
		payload := map[string]interface{}{
			"file_data":     sheet.String(),
			"template_type": "sms",
			"content":       "Hello {{ name }}",
		}

		_, summary := tc.previewSheet(t, payload)

		// Then: The sample stops at the configured cap
		errs, ok := summary["errors"].([]interface{})
		require.True(t, ok)
		assert.Len(t, errs, tc.Config.Upload.MaxErrorsShown)
	})

	t.Run("Criterion4_CorrectedSheetComesBackReady", func(t *testing.T) {
		// Given: The sender fixed every number and uploads again
		payload := map[string]interface{}{
			"file_data":     "phone number,name\n07700900123,Jo\n07700900456,Sam",
			"template_type": "sms",
			"content":       "Hello {{ name }}",
		}

		session, summary := tc.previewSheet(t, payload)

		// Then: The fresh session passes review
		assert.Equal(t, upload.StatusReady, session["status"])
		assert.Equal(t, false, summary["has_errors"])
		assert.Equal(t, float64(0), summary["bad_recipient_count"])
	})
}

// =============================================================================
// US-003: Trial Mode Guestlist
// =============================================================================

// As a sender still in trial mode, I want uploads checked against my
// guestlist, so that nothing goes to a stranger by accident.
func TestUS003_TrialModeGuestlist(t *testing.T) {
	tc := setupTestContext(t)
	defer tc.Cleanup()

	t.Run("Criterion1_GuestlistMatchesFlexibleFormats", func(t *testing.T) {
		// Given: The guestlist entry and the sheet spell the number differently
		payload := map[string]interface{}{
			"file_data":     "phone number\n+44 7700 900123",
			"template_type": "sms",
			"content":       "Team update",
			"guestlist":     []string{"07700 900 123"},
		}

		// When: The sheet is uploaded
		session, summary := tc.previewSheet(t, payload)

		// Then: Both spellings canonicalise to the same recipient
		assert.Equal(t, false, summary["not_allowed_to_send_to"])
		assert.Equal(t, upload.StatusReady, session["status"])
	})

	t.Run("Criterion2_OffListRecipientBlocksTheSheet", func(t *testing.T) {
		// Given: One row is not on the guestlist
		payload := map[string]interface{}{
			"file_data":     "phone number\n07700900123\n07700900456",
			"template_type": "sms",
			"content":       "Team update",
			"guestlist":     []string{"07700900123"},
		}

		session, summary := tc.previewSheet(t, payload)

		// Then: The whole upload is held back
		assert.Equal(t, true, summary["not_allowed_to_send_to"])
		assert.Equal(t, true, summary["has_errors"])
		assert.Equal(t, upload.StatusNeedsFixing, session["status"])
	})

	t.Run("Criterion3_EmailGuestlistIgnoresCase", func(t *testing.T) {
		// Given: The sheet shouts the address the guestlist whispers
		payload := map[string]interface{}{
			"file_data":     "email address\nTeam@Example.COM",
			"template_type": "email",
			"subject":       "Hello",
			"content":       "Team update",
			"guestlist":     []string{"team@example.com"},
		}

		_, summary := tc.previewSheet(t, payload)

		// Then: Case never blocks a send
		assert.Equal(t, false, summary["not_allowed_to_send_to"])
		assert.Equal(t, false, summary["has_errors"])
	})
}

// =============================================================================
// US-004: Letter Sheet Address Review
// =============================================================================

// As a letter sender, I want addresses checked during review, so that
// print jobs never include undeliverable mail.
func TestUS004_LetterSheetAddressReview(t *testing.T) {
	tc := setupTestContext(t)
	defer tc.Cleanup()

	t.Run("Criterion1_DomesticAddressWithPostcodePasses", func(t *testing.T) {
		// Given: A three line address ending in a real postcode
		payload := map[string]interface{}{
			"file_data": "address line 1,address line 2,address line 3\n" +
				"A. Person,7 Example Street,SW1A 1AA",
			"template_type": "letter",
			"content":       "Dear resident",
		}

		session, summary := tc.previewSheet(t, payload)

		// Then: The sheet passes review
		assert.Equal(t, upload.StatusReady, session["status"])
		assert.Equal(t, false, summary["has_errors"])
	})

	t.Run("Criterion2_BadLastLineIsFlagged", func(t *testing.T) {
		// Given: The last line is neither a postcode nor a country
		payload := map[string]interface{}{
			"file_data": "address line 1,address line 2,address line 3\n" +
				"A. Person,7 Example Street,Not A Postcode",
			"template_type": "letter",
			"content":       "Dear resident",
		}

		session, summary := tc.previewSheet(t, payload)

		// Then: The address counts as a bad recipient
		assert.Equal(t, upload.StatusNeedsFixing, session["status"])
		assert.Equal(t, float64(1), summary["bad_recipient_count"])

		rows, ok := summary["rows"].([]interface{})
		require.True(t, ok)
		require.Len(t, rows, 1)
		row, ok := rows[0].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, row["bad_address"])
	})

	t.Run("Criterion3_InternationalAddressFollowsPolicy", func(t *testing.T) {
		// Given: A French address under a domestic-only policy
		payload := map[string]interface{}{
			"file_data": "address line 1,address line 2,address line 3\n" +
				"A. Person,2 Rue de la Paix,France",
			"template_type": "letter",
			"content":       "Dear resident",
		}

		_, summary := tc.previewSheet(t, payload)

		// Then: The default policy rejects it
		assert.Equal(t, float64(1), summary["bad_recipient_count"])

		// Given: A service allowed to post abroad
		international := upload.NewService(tc.Redis, tc.Config.Upload, config.ValidationConfig{
			AllowInternationalLetters: true,
		})

		// When: The same sheet goes through that service
		session, intlSummary, err := international.Ingest(tc.Ctx, upload.IngestRequest{
			FileData: "address line 1,address line 2,address line 3\n" +
				"A. Person,2 Rue de la Paix,France",
			TemplateType: "letter",
			Content:      "Dear resident",
		})
		require.NoError(t, err)

		// Then: The country line is accepted
		assert.Equal(t, upload.StatusReady, session.Status)
		assert.Equal(t, 0, intlSummary.BadRecipientCount)
	})
}

// =============================================================================
// US-005: Upload Guardrails
// =============================================================================

// As a platform operator, I want hopeless uploads rejected at the door
// and oversized ones reported honestly, so that review capacity is spent
// on sheets that can actually be fixed.
func TestUS005_UploadGuardrails(t *testing.T) {
	tc := setupTestContext(t)
	defer tc.Cleanup()

	t.Run("Criterion1_EmptyFileGetsBadRequest", func(t *testing.T) {
		// Given: A file that is nothing but whitespace
		payload := map[string]interface{}{
			"file_data":     "   \n\n  ",
			"template_type": "sms",
			"content":       "Hello",
		}

		status, body := tc.postJSON(t, "/api/sheets/preview", payload)

		// Then: No session is created
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "file is empty", body["error"])
	})

	t.Run("Criterion2_OversizedFileIsRefused", func(t *testing.T) {
		// Given: A file one byte over the configured limit
		oversized := strings.Repeat("a", int(tc.Config.Upload.MaxFileBytes)+1)
		payload := map[string]interface{}{
			"file_data":     oversized,
			"template_type": "sms",
			"content":       "Hello",
		}

		status, body := tc.postJSON(t, "/api/sheets/preview", payload)

		// Then: The API answers with entity too large
		assert.Equal(t, http.StatusRequestEntityTooLarge, status)
		assert.Contains(t, body["error"], "file is too large")
	})

	t.Run("Criterion3_UnknownTemplateTypeGetsBadRequest", func(t *testing.T) {
		payload := map[string]interface{}{
			"file_data":     "phone number\n07700900123",
			"template_type": "fax",
			"content":       "Hello",
		}

		status, body := tc.postJSON(t, "/api/sheets/preview", payload)

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body["error"], "unknown template type")
	})

	t.Run("Criterion4_TooManyRowsIsReportedNotRejected", func(t *testing.T) {
		// Given: One row more than the sheet limit
		var sheet strings.Builder
		sheet.WriteString("phone number\n")
		for i := 0; i < tc.Config.Upload.MaxRows+1; i++ {
			sheet.WriteString("07700900123\n")
		}
		payload := map[string]interface{}{
			"file_data":     sheet.String(),
			"template_type": "sms",
			"content":       "Hello",
		}

		// When: The sheet is uploaded
		session, summary := tc.previewSheet(t, payload)

		// Then: The sheet is stored for review with the limit breach flagged
		assert.Equal(t, upload.StatusNeedsFixing, session["status"])
		assert.Equal(t, true, summary["too_many_rows"])
		assert.Equal(t, float64(tc.Config.Upload.MaxRows+1), summary["row_count"])
	})
}

// =============================================================================
// US-006: Ad-hoc Validation Under Load
// =============================================================================

// As an integrator, I want the one-off validation endpoints to stay
// correct under concurrent traffic, so that signup forms can call them
// on every keystroke.
func TestUS006_AdHocValidationUnderLoad(t *testing.T) {
	tc := setupTestContext(t)
	defer tc.Cleanup()

	t.Run("Criterion1_ConcurrentPhoneValidationsStayConsistent", func(t *testing.T) {
		// Given: Many clients validating the same number at once
		const workers = 25
		const perWorker = 8

		var okCount int64
		var wg sync.WaitGroup

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					body, _ := json.Marshal(map[string]interface{}{
						"number": "07700 900 123",
					})
					req := httptest.NewRequest(http.MethodPost, "/api/phone/validate", bytes.NewReader(body))
					req.Header.Set("Content-Type", "application/json")
					rec := httptest.NewRecorder()
					tc.Router.ServeHTTP(rec, req)

					if rec.Code != http.StatusOK {
						continue
					}
					var resp map[string]interface{}
					if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
						continue
					}
					if resp["number"] == "447700900123" {
						atomic.AddInt64(&okCount, 1)
					}
				}
			}()
		}
		wg.Wait()

		// Then: Every request got the same canonical answer
		assert.Equal(t, int64(workers*perWorker), okCount)
	})

	t.Run("Criterion2_SharedRecipientCacheIsSafeUnderLoad", func(t *testing.T) {
		// Given: Concurrent canonicalisation of mixed recipient forms
		inputs := []string{
			"07700 900 123",
			"+44 7700 900 123",
			"Jo.Bloggs@Example.com",
			"not a recipient",
		}
		want := []string{
			"447700900123",
			"447700900123",
			"jo.bloggs@example.com",
			"not a recipient",
		}

		var mismatches int64
		var wg sync.WaitGroup

		for w := 0; w < 16; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					idx := i % len(inputs)
					if recipients.FormatRecipient(inputs[idx]) != want[idx] {
						atomic.AddInt64(&mismatches, 1)
					}
				}
			}()
		}
		wg.Wait()

		// Then: The cache never hands back the wrong canonical form
		assert.Equal(t, int64(0), mismatches)
	})

	t.Run("Criterion3_EmailValidationNormalisesCase", func(t *testing.T) {
		status, body := tc.postJSON(t, "/api/email/validate", map[string]interface{}{
			"address": "Jo.Bloggs@Example.com",
		})

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["valid"])
		assert.Equal(t, "jo.bloggs@example.com", body["address"])
	})
}
