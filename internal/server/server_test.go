package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ledger-cleaner/internal/cleaner"
	"github.com/ginjaninja78/ledger-cleaner/internal/config"
	"github.com/ginjaninja78/ledger-cleaner/internal/testutil"
	"github.com/ginjaninja78/ledger-cleaner/internal/xlsxparser"
)

func newTestServer(t *testing.T, maxMB int64, profiles ...*config.Profile) *Server {
	t.Helper()
	set, err := config.NewProfileSet(config.DefaultProfileCode, profiles...)
	require.NoError(t, err)

	srv, err := New(config.ServerConfig{Mode: gin.TestMode, MaxUploadMB: maxMB}, set, nil)
	require.NoError(t, err)
	return srv
}

func upload(t *testing.T, srv *Server, target, field, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestClean_ReturnsWorkbook(t *testing.T) {
	srv := newTestServer(t, 0)

	for _, target := range []string{"/", "/api/clean"} {
		rec := upload(t, srv, target, "file", "razao.xlsx", testutil.LedgerXLSX(t, testutil.LedgerRows))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.Equal(t, XLSXContentType, rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="processed.xlsx"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "7", rec.Header().Get("X-Cleaned-Rows"))
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

		wb, err := xlsxparser.DecodeBytes(rec.Body.Bytes())
		require.NoError(t, err)
		assert.Equal(t, []string{"Razao", "Notas", cleaner.DefaultSheetName}, wb.Names())
	}
}

func TestClean_CSVUpload(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := upload(t, srv, "/", "file", "razao.csv", testutil.LedgerCSV(t, testutil.LedgerRows, ','))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	wb, err := xlsxparser.DecodeBytes(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"razao", cleaner.DefaultSheetName}, wb.Names())
}

func TestClean_MissingFile(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := upload(t, srv, "/", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", rec.Body.String())

	rec = upload(t, srv, "/", "other", "razao.xlsx", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClean_UnreadableUpload(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := upload(t, srv, "/", "file", "razao.xlsx", []byte("not a workbook"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Error reading Excel file: "), rec.Body.String())
}

func TestClean_SchemaAndParseFailures(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := upload(t, srv, "/", "file", "short.xlsx", testutil.LedgerXLSX(t, [][]string{{"05/03/2023", "x"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "schema error")

	rows := append([][]string(nil), testutil.LedgerRows...)
	rows[0] = []string{"05/03/2023", "", "1.1.01", "CX", "Abertura", "", "abc", "C", "ana"}
	rec = upload(t, srv, "/", "file", "razao.xlsx", testutil.LedgerXLSX(t, rows))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"abc"`)
}

func TestClean_Profiles(t *testing.T) {
	lenient := config.DefaultProfile()
	lenient.Code = "lenient"
	lenient.Cleaning.AmountPolicy = string(cleaner.AmountBlank)
	srv := newTestServer(t, 0, lenient)

	rows := append([][]string(nil), testutil.LedgerRows...)
	rows[0] = []string{"05/03/2023", "", "1.1.01", "CX", "Abertura", "", "abc", "C", "ana"}
	data := testutil.LedgerXLSX(t, rows)

	rec := upload(t, srv, "/?profile=lenient", "file", "razao.xlsx", data)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = upload(t, srv, "/?profile=nope", "file", "razao.xlsx", data)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "nope")
}

func TestClean_UploadLimit(t *testing.T) {
	srv := newTestServer(t, 1)
	rec := upload(t, srv, "/", "file", "big.xlsx", bytes.Repeat([]byte("x"), 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Upload exceeds 1 MB", rec.Body.String())
}

func TestHealthzAndRequestID(t *testing.T) {
	srv := newTestServer(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestNew_RejectsBadProfile(t *testing.T) {
	bad := config.DefaultProfile()
	bad.Code = "bad"
	bad.Cleaning.AmountPolicy = "maybe"
	set, err := config.NewProfileSet(config.DefaultProfileCode, bad)
	require.NoError(t, err)

	_, err = New(config.ServerConfig{Mode: gin.TestMode}, set, nil)
	assert.ErrorIs(t, err, cleaner.ErrInvalidSpec)
}
