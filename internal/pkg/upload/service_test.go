package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CC90210/ECHOES-APP/internal/pkg/messages"
	"github.com/CC90210/ECHOES-APP/internal/pkg/persistence"
	"github.com/CC90210/ECHOES-APP/internal/pkg/status"
	"github.com/CC90210/ECHOES-APP/internal/pkg/test"
	"github.com/CC90210/ECHOES-APP/internal/pkg/test/mocks"
)

var (
	filerMock  *mocks.Filer
	dbMock     *mocks.DB
	senderMock *mocks.Sender

	tData *Data
)

func initTest(t *testing.T) {
	filerMock = &mocks.Filer{}
	dbMock = &mocks.DB{}
	senderMock = &mocks.Sender{}
	tData = &Data{Saver: filerMock, DB: dbMock, MsgSender: senderMock, MaxSizeBytes: 100}
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	dbMock.On("InsertEcho", mock.Anything, mock.Anything).Return(nil)
	senderMock.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func TestLive(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	testCode(t, req, http.StatusOK)
}

func TestUpload(t *testing.T) {
	initTest(t)
	req := newUploadRequest(t, [][2]string{{"owner", "u1"}, {"question", "2"}}, [][2]string{{"audio", "olia.webm"}})
	resp := testCode(t, req, http.StatusOK)
	res := test.Decode[result](t, resp.Result())
	assert.NotEmpty(t, res.ID)

	dbMock.AssertNumberOfCalls(t, "InsertEcho", 1)
	iEcho := mocks.To[*persistence.Echo](dbMock.Calls[0].Arguments[1])
	assert.Equal(t, "u1", iEcho.OwnerID.String)
	assert.Equal(t, int32(2), iEcho.QuestionID.Int32)
	assert.Equal(t, status.Pending.String(), iEcho.TranscriptionStatus)
	assert.True(t, strings.HasPrefix(iEcho.AudioKey, "echoes/u1/"))
	assert.True(t, strings.HasSuffix(iEcho.AudioKey, ".webm"))

	filerMock.AssertNumberOfCalls(t, "SaveFile", 1)
	senderMock.AssertNumberOfCalls(t, "SendMessage", 1)
	assert.Equal(t, messages.Process, senderMock.Calls[0].Arguments[2])
}

func TestUpload_Guest(t *testing.T) {
	initTest(t)
	req := newUploadRequest(t, nil, [][2]string{{"audio", "olia.webm"}})
	testCode(t, req, http.StatusOK)
	iEcho := mocks.To[*persistence.Echo](dbMock.Calls[0].Arguments[1])
	assert.False(t, iEcho.OwnerID.Valid)
	assert.True(t, strings.HasPrefix(iEcho.AudioKey, "echoes/guest/"))
}

func TestUpload_FailNoFile(t *testing.T) {
	initTest(t)
	req := newUploadRequest(t, [][2]string{{"owner", "u1"}}, nil)
	testCode(t, req, http.StatusBadRequest)
}

func TestUpload_FailWrongExt(t *testing.T) {
	initTest(t)
	req := newUploadRequest(t, nil, [][2]string{{"audio", "olia.txt"}})
	testCode(t, req, http.StatusBadRequest)
}

func TestUpload_FailWrongParam(t *testing.T) {
	initTest(t)
	req := newUploadRequest(t, [][2]string{{"olia", "u1"}}, [][2]string{{"audio", "olia.webm"}})
	testCode(t, req, http.StatusBadRequest)
}

func TestUpload_FailWrongQuestion(t *testing.T) {
	initTest(t)
	req := newUploadRequest(t, [][2]string{{"question", "olia"}}, [][2]string{{"audio", "olia.webm"}})
	testCode(t, req, http.StatusBadRequest)
}

func TestUpload_FailTooLarge(t *testing.T) {
	initTest(t)
	tData.MaxSizeBytes = 3
	req := newUploadRequest(t, nil, [][2]string{{"audio", "olia.webm"}})
	testCode(t, req, http.StatusRequestEntityTooLarge)
}

func TestUpload_FailSaver(t *testing.T) {
	initTest(t)
	filerMock.ExpectedCalls = nil
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("olia"))
	req := newUploadRequest(t, nil, [][2]string{{"audio", "olia.webm"}})
	testCode(t, req, http.StatusBadGateway)
	dbMock.AssertNumberOfCalls(t, "InsertEcho", 0)
}

func TestUpload_FailDB(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("InsertEcho", mock.Anything, mock.Anything).Return(fmt.Errorf("olia"))
	req := newUploadRequest(t, nil, [][2]string{{"audio", "olia.webm"}})
	testCode(t, req, http.StatusInternalServerError)
}

func TestUpload_SenderFailureIgnored(t *testing.T) {
	initTest(t)
	senderMock.ExpectedCalls = nil
	senderMock.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("olia"))
	req := newUploadRequest(t, nil, [][2]string{{"audio", "olia.webm"}})
	testCode(t, req, http.StatusOK)
	dbMock.AssertNumberOfCalls(t, "InsertEcho", 1)
}

func TestTranscribe(t *testing.T) {
	initTest(t)
	dbMock.On("LoadEcho", mock.Anything, "id1").Return(
		&persistence.Echo{ID: "id1", TranscriptionStatus: status.Failed.String()}, nil)
	req := httptest.NewRequest(http.MethodPost, "/echoes/id1/transcribe", nil)
	testCode(t, req, http.StatusOK)
	senderMock.AssertNumberOfCalls(t, "SendMessage", 1)
}

func TestTranscribe_CompletedNoResend(t *testing.T) {
	initTest(t)
	dbMock.On("LoadEcho", mock.Anything, "id1").Return(
		&persistence.Echo{ID: "id1", TranscriptionStatus: status.Completed.String()}, nil)
	req := httptest.NewRequest(http.MethodPost, "/echoes/id1/transcribe", nil)
	testCode(t, req, http.StatusOK)
	senderMock.AssertNumberOfCalls(t, "SendMessage", 0)
}

func TestTranscribe_FailNotFound(t *testing.T) {
	initTest(t)
	dbMock.On("LoadEcho", mock.Anything, "id1").Return(nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/echoes/id1/transcribe", nil)
	testCode(t, req, http.StatusNotFound)
}

func TestTranscribe_FailDB(t *testing.T) {
	initTest(t)
	dbMock.On("LoadEcho", mock.Anything, "id1").Return(nil, fmt.Errorf("olia"))
	req := httptest.NewRequest(http.MethodPost, "/echoes/id1/transcribe", nil)
	testCode(t, req, http.StatusInternalServerError)
}

func TestValidate(t *testing.T) {
	initTest(t)
	require.NoError(t, validate(tData))
	assert.Equal(t, int64(100), tData.MaxSizeBytes)
	tData.MaxSizeBytes = 0
	require.NoError(t, validate(tData))
	assert.Equal(t, int64(defaultMaxSize), tData.MaxSizeBytes)
	tData.Saver = nil
	assert.Error(t, validate(tData))
}

func testCode(t *testing.T, req *http.Request, code int) *httptest.ResponseRecorder {
	t.Helper()
	e := initRoutes(tData)
	resp := httptest.NewRecorder()
	e.ServeHTTP(resp, req)
	require.Equal(t, code, resp.Code)
	return resp
}

func newUploadRequest(t *testing.T, params, files [][2]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, p := range params {
		require.NoError(t, writer.WriteField(p[0], p[1]))
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f[0], f[1])
		require.NoError(t, err)
		_, err = part.Write([]byte("olia"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/echoes", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}
