package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"
)

const baseURL = "http://localhost:8080"

// Smoke test against a running server: register, log in, walk the read
// endpoints. Trades are not exercised here because they need a reachable
// market-data upstream.
func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	// 1. Health Check
	checkEndpoint("GET", "/health", nil, "", 200)

	// 2. Register a fresh user
	username := fmt.Sprintf("e2euser%d", rand.Intn(100000))
	checkEndpoint("POST", "/register", map[string]string{
		"username": username,
		"password": "e2epassword",
	}, "", 201)

	// 3. Login
	token := login(username, "e2epassword")
	fmt.Printf("Logged in as %s\n", username)

	// 4. Account value (fresh user: cash only)
	checkEndpoint("GET", "/account-value", nil, token, 200)

	// 5. Portfolio report (empty)
	checkEndpoint("GET", "/portfolio", nil, token, 200)

	// 6. Leaderboard
	checkEndpoint("GET", "/leaderboard", nil, "", 200)

	// 7. Logout, then verify the session is gone
	checkEndpoint("POST", "/logout", nil, token, 200)
	checkEndpoint("GET", "/portfolio", nil, token, 401)

	fmt.Println("ALL TESTS PASSED")
}

func login(username, password string) string {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(baseURL+"/login", "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		log.Fatalf("login failed with status %d: %s", resp.StatusCode, b)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatalf("decode login response: %v", err)
	}
	return out.Token
}

func checkEndpoint(method, path string, body interface{}, token string, expectedStatus int) {
	fmt.Printf("Testing %s %s...\n", method, path)
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, baseURL+path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		b, _ := io.ReadAll(resp.Body)
		log.Fatalf("%s %s: expected status %d, got %d: %s", method, path, expectedStatus, resp.StatusCode, b)
	}
}
