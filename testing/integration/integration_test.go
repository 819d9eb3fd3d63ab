//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type config struct {
	uploadURL  string
	statusURL  string
	dbURL      string
	httpclient *http.Client
}

var cfg config

func TestMain(m *testing.M) {
	cfg.uploadURL = GetEnvOrFail("UPLOAD_URL")
	cfg.statusURL = GetEnvOrFail("STATUS_URL")
	cfg.dbURL = GetEnvOrFail("DB_URL")
	cfg.httpclient = &http.Client{Timeout: time.Second * 30}

	tCtx, cf := context.WithTimeout(context.Background(), time.Second*20)
	defer cf()
	WaitForOpenOrFail(tCtx, cfg.dbURL)
	WaitForOpenOrFail(tCtx, cfg.uploadURL)
	WaitForOpenOrFail(tCtx, cfg.statusURL)
	waitForDB(tCtx, cfg.dbURL)

	//start mock for external AI services - not in this docker compose
	l, ts := startMockService(9876)
	defer ts.Close()
	defer l.Close()

	os.Exit(m.Run())
}

func TestUploadLive(t *testing.T) {
	t.Parallel()
	CheckCode(t, Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.uploadURL, "/live", nil)), http.StatusOK)
}

func TestUpload(t *testing.T) {
	t.Parallel()
	req := newUploadRequest(t, "audio.wav", [][2]string{{"email", "olia@o.o"}, {"owner", "user-1"},
		{"question", "1"}})
	CheckCode(t, Invoke(t, cfg.httpclient, req), http.StatusOK)
}

func TestUpload_Guest(t *testing.T) {
	t.Parallel()
	req := newUploadRequest(t, "audio.m4a", nil)
	CheckCode(t, Invoke(t, cfg.httpclient, req), http.StatusOK)
}

func TestUpload_Fail_NoFile(t *testing.T) {
	t.Parallel()
	req := newUploadRequest(t, "", [][2]string{{"email", "olia@o.o"}})
	CheckCode(t, Invoke(t, cfg.httpclient, req), http.StatusBadRequest)
}

func TestUpload_Fail_WrongExt(t *testing.T) {
	t.Parallel()
	req := newUploadRequest(t, "audio.txt", nil)
	CheckCode(t, Invoke(t, cfg.httpclient, req), http.StatusBadRequest)
}

func TestStatusLive(t *testing.T) {
	t.Parallel()
	CheckCode(t, Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.statusURL, "/live", nil)), http.StatusOK)
}

func TestStatus_Check_None(t *testing.T) {
	t.Parallel()
	st := getStatus(t, "10")
	assert.Equal(t, "NOT_FOUND", st.Status)
	assert.Equal(t, "NOT_FOUND", st.ErrorCode)
	assert.Equal(t, "10", st.ID)
}

type uploadResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	ErrorCode     string   `json:"errorCode"`
	Transcript    string   `json:"transcript"`
	EmotionalTone string   `json:"emotionalTone"`
	Themes        []string `json:"themes"`
	AISummary     string   `json:"aiSummary"`
}

func getStatus(t *testing.T, id string) statusResponse {
	resp := Invoke(t, cfg.httpclient, NewRequest(t, http.MethodGet, cfg.statusURL, "echoes/"+id, nil))
	CheckCode(t, resp, http.StatusOK)
	var st statusResponse
	Decode(t, resp, &st)
	return st
}

func TestStatus_Check(t *testing.T) {
	t.Parallel()
	req := newUploadRequest(t, "audio.wav", [][2]string{{"owner", "user-1"}, {"question", "1"}})
	resp := Invoke(t, cfg.httpclient, req)
	CheckCode(t, resp, http.StatusOK)
	var ur uploadResponse
	Decode(t, resp, &ur)
	assert.NotEmpty(t, ur.ID)
	st := getStatus(t, ur.ID)
	assert.NotEqual(t, "NOT_FOUND", st.Status)
	dur := time.Second * 20
	tm := time.After(dur)
	for {
		select {
		case <-tm:
			require.Failf(t, "Fail", "Not completed in %v", dur)
		default:
			st = getStatus(t, ur.ID)
			if st.Status == "completed" {
				assert.Equal(t, "olia text", st.Transcript)
				assert.Equal(t, "joyful", st.EmotionalTone)
				assert.Equal(t, []string{"family"}, st.Themes)
				return
			}
			time.Sleep(time.Second)
		}
	}
}

func newUploadRequest(t *testing.T, file string, params [][2]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if file != "" {
		part, _ := writer.CreateFormFile("audio", file)
		_, _ = io.Copy(part, strings.NewReader(file))
	}
	for _, p := range params {
		writer.WriteField(p[0], p[1])
	}
	writer.Close()
	req, err := http.NewRequest(http.MethodPost, cfg.uploadURL+"/echoes", body)
	require.Nil(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func startMockService(port int) (net.Listener, *httptest.Server) {
	// create a listener with the desired port.
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Fatalf("can't start mock service: %v", err)
	}
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/audio/transcriptions":
			io.Copy(w, strings.NewReader(`{"text":"olia text","duration":2.5}`))
		case "/v1/chat/completions":
			io.Copy(w, strings.NewReader(`{"choices":[{"message":{"content":
				"{\"emotionalTone\":\"joyful\",\"themes\":[\"family\"],\"summary\":\"olia\"}"}}]}`))
		default:
			log.Printf("Unknown request to: " + r.URL.String())
		}
	}))

	ts.Listener.Close()
	ts.Listener = l

	// Start the server.
	ts.Start()
	log.Printf("started mock srv on port: %d", port)
	return l, ts
}
