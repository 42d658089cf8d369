package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// Black-box tests against a running server. Set TEST_BASE_URL or run the
// server on localhost:8080; the suite skips itself when nothing answers.

var baseURL = getEnv("TEST_BASE_URL", "http://localhost:8080")

type apiClient struct {
	client  *http.Client
	baseURL string
	token   string
}

func newClient() *apiClient {
	return &apiClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

func (c *apiClient) withToken(token string) *apiClient {
	c.token = token
	return c
}

func (c *apiClient) get(path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.client.Do(req)
}

func (c *apiClient) post(path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.client.Do(req)
}

func parseJSON(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireServer(t *testing.T) {
	t.Helper()
	resp, err := newClient().get("/health")
	if err != nil {
		t.Skipf("server not reachable at %s: %v", baseURL, err)
	}
	resp.Body.Close()
}

type authResult struct {
	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		ImageURL string `json:"image_url"`
	} `json:"user"`
	AccessToken string `json:"access_token"`
}

// signupUser creates a fresh user with a unique name and returns its id and
// access token.
func signupUser(t *testing.T, prefix string) (int64, string, string) {
	t.Helper()

	username := fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	resp, err := newClient().post("/signup", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("signup failed with status %d: %s", resp.StatusCode, body)
	}

	var result authResult
	if err := parseJSON(resp, &result); err != nil {
		t.Fatalf("parse signup response: %v", err)
	}
	return result.User.ID, username, result.AccessToken
}

func postMessage(t *testing.T, token, text string) int64 {
	t.Helper()

	resp, err := newClient().withToken(token).post("/messages/new", map[string]string{"text": text})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("create message failed with status %d: %s", resp.StatusCode, body)
	}

	var msg struct {
		ID int64 `json:"id"`
	}
	if err := parseJSON(resp, &msg); err != nil {
		t.Fatalf("parse message: %v", err)
	}
	return msg.ID
}

func TestSignupLoginAndProfile(t *testing.T) {
	requireServer(t)

	userID, username, _ := signupUser(t, "warbler")

	// Fresh login with the same credentials
	resp, err := newClient().post("/login", map[string]string{
		"username": username,
		"password": "password123",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("login failed with status %d: %s", resp.StatusCode, body)
	}
	var login authResult
	if err := parseJSON(resp, &login); err != nil {
		t.Fatalf("parse login: %v", err)
	}
	if login.User.ID != userID {
		t.Errorf("login user id = %d, want %d", login.User.ID, userID)
	}

	// Profile shows the username
	resp, err = newClient().get(fmt.Sprintf("/users/%d", userID))
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	var profile struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := parseJSON(resp, &profile); err != nil {
		t.Fatalf("parse profile: %v", err)
	}
	if profile.User.Username != username {
		t.Errorf("profile username = %q, want %q", profile.User.Username, username)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	requireServer(t)

	_, username, _ := signupUser(t, "badpass")

	resp, err := newClient().post("/login", map[string]string{
		"username": username,
		"password": "not-the-password",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAnonymousFollowingPageRefused(t *testing.T) {
	requireServer(t)

	userID, _, _ := signupUser(t, "private")

	resp, err := newClient().get(fmt.Sprintf("/users/%d/following", userID))
	if err != nil {
		t.Fatalf("get following: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for the flash-style refusal", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Contains(body, []byte("Access unauthorized")) {
		t.Errorf("body %q should contain the unauthorized message", body)
	}
}

func TestMessageLengthBound(t *testing.T) {
	requireServer(t)

	_, _, token := signupUser(t, "longwinded")
	client := newClient().withToken(token)

	// Exactly 140 characters is fine
	ok := bytes.Repeat([]byte("a"), 140)
	resp, err := client.post("/messages/new", map[string]string{"text": string(ok)})
	if err != nil {
		t.Fatalf("create 140-char message: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("140 chars: status = %d, want 201", resp.StatusCode)
	}

	// 141 characters is refused at the storage bound
	tooLong := bytes.Repeat([]byte("a"), 141)
	resp, err = client.post("/messages/new", map[string]string{"text": string(tooLong)})
	if err != nil {
		t.Fatalf("create 141-char message: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("141 chars: status = %d, want 400", resp.StatusCode)
	}
}

func TestNonOwnerDeleteLeavesMessageIntact(t *testing.T) {
	requireServer(t)

	_, _, ownerToken := signupUser(t, "owner")
	_, _, otherToken := signupUser(t, "intruder")

	messageID := postMessage(t, ownerToken, "mine, hands off")

	// The non-owner's delete is refused with the uniform 200 body
	resp, err := newClient().withToken(otherToken).post(fmt.Sprintf("/messages/%d/delete", messageID), nil)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Contains(body, []byte("Access unauthorized")) {
		t.Errorf("body %q should contain the unauthorized message", body)
	}

	// The message survives
	resp, err = newClient().get(fmt.Sprintf("/messages/%d", messageID))
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("message should still exist, status = %d", resp.StatusCode)
	}
}

func TestLikeToggle(t *testing.T) {
	requireServer(t)

	_, _, authorToken := signupUser(t, "author")
	_, _, fanToken := signupUser(t, "fan")

	messageID := postMessage(t, authorToken, "like me twice")
	fan := newClient().withToken(fanToken)

	var toggle struct {
		Liked     bool `json:"liked"`
		LikeCount int  `json:"like_count"`
	}

	resp, err := fan.post(fmt.Sprintf("/users/add_like/%d", messageID), nil)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if err := parseJSON(resp, &toggle); err != nil {
		t.Fatalf("parse toggle: %v", err)
	}
	if !toggle.Liked || toggle.LikeCount != 1 {
		t.Errorf("first toggle = %+v, want liked=true count=1", toggle)
	}

	// Second like from the same user undoes the first
	resp, err = fan.post(fmt.Sprintf("/users/add_like/%d", messageID), nil)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if err := parseJSON(resp, &toggle); err != nil {
		t.Fatalf("parse toggle: %v", err)
	}
	if toggle.Liked || toggle.LikeCount != 0 {
		t.Errorf("second toggle = %+v, want liked=false count=0", toggle)
	}
}

func TestFollowAndFeed(t *testing.T) {
	requireServer(t)

	authorID, authorName, authorToken := signupUser(t, "writer")
	_, _, readerToken := signupUser(t, "reader")

	messageID := postMessage(t, authorToken, "hello timeline")
	reader := newClient().withToken(readerToken)

	resp, err := reader.post(fmt.Sprintf("/users/follow/%d", authorID), nil)
	if err != nil {
		t.Fatalf("follow: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("follow status = %d, want 200", resp.StatusCode)
	}

	// Fan-out is async; give the workers a moment
	deadline := time.Now().Add(5 * time.Second)
	var feed struct {
		Messages []struct {
			ID     int64 `json:"id"`
			Author struct {
				Username string `json:"username"`
			} `json:"author"`
		} `json:"messages"`
	}
	for {
		resp, err := reader.get("/feed")
		if err != nil {
			t.Fatalf("get feed: %v", err)
		}
		if err := parseJSON(resp, &feed); err != nil {
			t.Fatalf("parse feed: %v", err)
		}
		if len(feed.Messages) > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}

	found := false
	for _, m := range feed.Messages {
		if m.ID == messageID {
			found = true
			if m.Author.Username != authorName {
				t.Errorf("author = %q, want %q", m.Author.Username, authorName)
			}
		}
	}
	if !found {
		t.Errorf("message %d missing from follower's feed", messageID)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	requireServer(t)

	userID, _, token := signupUser(t, "leaving")
	messageID := postMessage(t, token, "soon gone")

	resp, err := newClient().withToken(token).post("/users/delete", nil)
	if err != nil {
		t.Fatalf("delete account: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete account status = %d, want 200", resp.StatusCode)
	}

	// The user and their messages are gone
	resp, err = newClient().get(fmt.Sprintf("/users/%d", userID))
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted user profile status = %d, want 404", resp.StatusCode)
	}

	resp, err = newClient().get(fmt.Sprintf("/messages/%d", messageID))
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cascaded message status = %d, want 404", resp.StatusCode)
	}
}
