package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/zalo-accounts/internal/adapters/media"
	"github.com/bnema/zalo-accounts/internal/domain"
)

func newTestServer(commands *fakeCommands, logins *fakeLogins) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{AllowedOrigins: []string{"http://localhost:3000"}}, commands, logins, nil, media.NewInspector(), log)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorInfo      `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(&fakeCommands{}, &fakeLogins{}), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Success)
}

func TestListAccounts(t *testing.T) {
	commands := &fakeCommands{accounts: []domain.Account{{ID: "1001", DisplayName: "Lan", Status: domain.AccountStatusOnline}}}
	rec := doJSON(t, newTestServer(commands, &fakeLogins{}), http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var accounts []domain.Account
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, domain.AccountID("1001"), accounts[0].ID)
}

func TestSendMessage(t *testing.T) {
	commands := &fakeCommands{}
	s := newTestServer(commands, &fakeLogins{})

	rec := doJSON(t, s, http.MethodPost, "/api/messages", map[string]string{
		"accountId":           "1001",
		"recipientIdentifier": "0901 234 567",
		"recipientType":       "group",
		"messageText":         "hello",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, commands.sent, 1)
	assert.Equal(t, domain.ThreadTypeGroup, commands.sent[0].ThreadType)
	assert.Equal(t, "0901 234 567", commands.sent[0].RecipientID)
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(&fakeCommands{}, &fakeLogins{})
	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   string
	}{
		{name: "missing recipient", method: http.MethodPost, path: "/api/messages", body: map[string]string{"accountId": "1"}, want: "recipientIdentifier is required"},
		{name: "blank recipient", method: http.MethodPost, path: "/api/messages", body: map[string]string{"accountId": "1", "recipientIdentifier": "   "}, want: "recipientIdentifier"},
		{name: "empty members", method: http.MethodPost, path: "/api/groups", body: map[string]any{"accountId": "1", "groupName": "x", "members": []string{}}, want: "members"},
		{name: "lookup without identifier", method: http.MethodGet, path: "/api/users/lookup?accountId=1", want: "identifier is required"},
		{name: "group members without ref", method: http.MethodGet, path: "/api/groups/members?accountId=1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			env := decode(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, "validation_error", env.Error.Type)
			assert.Contains(t, env.Error.Message, tc.want)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{name: "not found", err: domain.ErrAccountNotFound, status: http.StatusNotFound},
		{name: "user not found", err: domain.ErrUserNotFound, status: http.StatusNotFound},
		{name: "empty message", err: domain.ErrEmptyMessage, status: http.StatusBadRequest},
		{name: "upstream", err: &domain.UpstreamError{Op: "sendMessage", Code: 114, Err: errors.New("blocked")}, status: http.StatusBadGateway, code: 114},
		{name: "malformed", err: domain.ErrMalformedResponse, status: http.StatusBadGateway},
		{name: "other", err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeCommands{err: tc.err}, &fakeLogins{})
			rec := doJSON(t, s, http.MethodGet, "/api/users/profile?accountId=1&identifier=u1", nil)
			require.Equal(t, tc.status, rec.Code)
			env := decode(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", env.Error.Message)
			}
		})
	}
}

func TestLoginAndQRCode(t *testing.T) {
	logins := &fakeLogins{qr: map[string][]byte{"temp-1": []byte("png")}}
	s := newTestServer(&fakeCommands{}, logins)

	rec := doJSON(t, s, http.MethodPost, "/api/login?origin=dashboard", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"tempId":"temp-1","qrCodeUrl":"/api/qr-code/temp-1.png"}`, string(decode(t, rec).Data))
	assert.Equal(t, []string{"dashboard"}, logins.originList())

	rec = doJSON(t, s, http.MethodGet, "/api/qr-code/temp-1.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png", rec.Body.String())

	rec = doJSON(t, s, http.MethodGet, "/api/qr-code/temp-2.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/qr-code/temp-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogout(t *testing.T) {
	s := newTestServer(&fakeCommands{}, &fakeLogins{})
	assert.Equal(t, http.StatusNoContent, doJSON(t, s, http.MethodDelete, "/api/accounts/1001", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, s, http.MethodDelete, "/api/accounts/missing", nil).Code)
}

func TestGroupsAndBulk(t *testing.T) {
	commands := &fakeCommands{jobs: map[string]domain.Job{"job-1": {ID: "job-1", State: domain.JobStateRunning}}}
	s := newTestServer(commands, &fakeLogins{})

	rec := doJSON(t, s, http.MethodPost, "/api/groups", map[string]any{
		"accountId": "1001",
		"groupName": "Team",
		"members":   []string{"0901234567", "u2"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, commands.groups, 1)
	assert.Equal(t, []string{"0901234567", "u2"}, commands.groups[0].Identifiers)

	rec = doJSON(t, s, http.MethodGet, "/api/groups/members?accountId=1001&groupLink=https://zalo.me/g/abc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"groupId":"https://zalo.me/g/abc"`)

	rec = doJSON(t, s, http.MethodPost, "/api/groups/join", map[string]string{"accountId": "1001", "groupLink": "https://zalo.me/g/abc"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"pending"}`, string(decode(t, rec).Data))

	rec = doJSON(t, s, http.MethodPost, "/api/bulk/send", map[string]any{
		"accountId": "1001",
		"targets":   []string{"u1", "u2"},
		"message":   "hi",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"jobId":"job-1","acceptedCount":2}`, string(decode(t, rec).Data))

	rec = doJSON(t, s, http.MethodGet, "/api/jobs/job-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFriends(t *testing.T) {
	commands := &fakeCommands{}
	s := newTestServer(commands, &fakeLogins{})

	rec := doJSON(t, s, http.MethodPost, "/api/friends/request", map[string]string{"accountId": "1", "targetIdentifier": "0901234567"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"u-0901234567"}`, string(decode(t, rec).Data))

	rec = doJSON(t, s, http.MethodDelete, "/api/friends", map[string]string{"accountId": "1", "userId": "u9"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"u9"}, commands.unfriends)

	rec = doJSON(t, s, http.MethodGet, "/api/accounts/1/friends", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileField string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, data := range files {
		part, err := w.CreateFormFile(fileField, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestSendMessageUpload(t *testing.T) {
	commands := &fakeCommands{}
	s := newTestServer(commands, &fakeLogins{})

	req := multipartRequest(t, "/api/messages/upload", map[string]string{
		"accountId":           "1001",
		"recipientIdentifier": "u1",
		"messageText":         "see attached",
	}, "files", map[string][]byte{"notes.txt": []byte("hello world")})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, commands.sent, 1)
	require.Len(t, commands.sent[0].Attachments, 1)
	att := commands.sent[0].Attachments[0]
	assert.Equal(t, "notes.txt", att.Filename)
	assert.Equal(t, int64(len("hello world")), att.Metadata.TotalSize)
	assert.True(t, strings.HasPrefix(att.Metadata.MIME, "text/plain"))
}

func TestBulkUpload(t *testing.T) {
	commands := &fakeCommands{}
	s := newTestServer(commands, &fakeLogins{})

	req := multipartRequest(t, "/api/bulk/upload", map[string]string{
		"accountId": "1001",
		"message":   "promo",
	}, "file", map[string][]byte{"list.txt": []byte("0901234567\nu2\n")})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, commands.campaigns, 1)
	assert.Equal(t, []string{"84901234567", "u2"}, commands.campaigns[0].Targets)
	assert.Equal(t, "promo", commands.campaigns[0].Message)

	req = multipartRequest(t, "/api/bulk/upload", map[string]string{"accountId": "1001"}, "file", map[string][]byte{"list.txt": []byte("u1\n")})
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(&fakeCommands{}, &fakeLogins{})

	req := httptest.NewRequest(http.MethodOptions, "/api/accounts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
