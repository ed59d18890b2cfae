package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"
)

func uploadFile(t *testing.T, env *testEnv, token, path, contentType string, content []byte) (int, []byte) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="upload.bin"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write part: %v", err)
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, env.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("upload request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, data
}

func TestUploadAvatar(t *testing.T) {
	env := startTestEnv(t)
	_, token := env.registerUser(t, "alice", "alice@example.com")

	status, resp := uploadFile(t, env, token, "/api/upload/avatar", "image/png", []byte("fake png bytes"))
	if status != http.StatusOK {
		t.Fatalf("upload failed with status %d: %s", status, resp)
	}
	var decoded struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp, &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(decoded.URL, "/api/uploads/avatars/") || !strings.HasSuffix(decoded.URL, ".png") {
		t.Fatalf("unexpected upload URL: %q", decoded.URL)
	}

	// The profile now points at the uploaded file.
	status, body := env.request(t, http.MethodGet, "/api/auth/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me failed with status %d", status)
	}
	var user UserResponse
	if err := json.Unmarshal(body, &user); err != nil {
		t.Fatalf("failed to decode user: %v", err)
	}
	if user.Avatar != decoded.URL {
		t.Fatalf("avatar not updated, got %q", user.Avatar)
	}

	// The file is reachable through the static route.
	fileResp, err := env.server.Client().Get(env.server.URL + decoded.URL)
	if err != nil {
		t.Fatalf("fetch uploaded file failed: %v", err)
	}
	defer fileResp.Body.Close()
	if fileResp.StatusCode != http.StatusOK {
		t.Fatalf("uploaded file not served, status %d", fileResp.StatusCode)
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	env := startTestEnv(t)
	_, token := env.registerUser(t, "alice", "alice@example.com")

	status, _ := uploadFile(t, env, token, "/api/upload/message-image", "application/pdf", []byte("%PDF"))
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-image upload, got %d", status)
	}
}
