package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// ----------------------------------------------------------------------------
// Config ---------------------------------------------------------------------
var (
	baseURL = flag.String("url", env("API_BASE_URL", "http://localhost:8080"), "Server base URL")
	pass    = flag.String("pass", env("PASSWORD", "Password123"), "Password for all demo users")
	nUsers  = flag.Int("users", envInt("USERS", 3), "How many demo users to create")
	nNotes  = flag.Int("n", envInt("COUNT", 40), "How many notes to create per user")
	nShares = flag.Int("shares", envInt("SHARES", 10), "How many notes each user shares with the next user")
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		i, err := fmt.Sscan(v, &i)
		if err != nil {
			return def
		}
		if i > 0 {
			return i
		}
	}
	return def
}

// ----------------------------------------------------------------------------
// HTTP helpers ---------------------------------------------------------------
func postJSON(path string, body any, hdr map[string]string) (*http.Response, error) {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, *baseURL+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	return http.DefaultClient.Do(req)
}

func must(body io.ReadCloser) []byte {
	defer body.Close()
	data, _ := io.ReadAll(body)
	return data
}

type account struct {
	username string
	token    string
	noteIDs  []string
}

// ----------------------------------------------------------------------------
// Main -----------------------------------------------------------------------
func main() {
	flag.Parse()
	gofakeit.Seed(time.Now().UnixNano())

	fmt.Printf("Seeding %d users × %d notes on %s\n", *nUsers, *nNotes, *baseURL)

	accounts := make([]*account, 0, *nUsers)
	for i := 0; i < *nUsers; i++ {
		acc, err := ensureUser(demoUsername(i))
		if err != nil {
			fmt.Fprintln(os.Stderr, "FATAL:", err)
			os.Exit(1)
		}
		if err := createNotes(acc, *nNotes); err != nil {
			fmt.Fprintln(os.Stderr, "FATAL:", err)
			os.Exit(1)
		}
		accounts = append(accounts, acc)
	}

	// Each user shares a slice of their notes with the next user round-robin,
	// so every account has both given and received shares to look at.
	for i, acc := range accounts {
		recipient := accounts[(i+1)%len(accounts)]
		if recipient == acc {
			continue
		}
		if err := createShares(acc, recipient.username, *nShares); err != nil {
			fmt.Fprintln(os.Stderr, "FATAL:", err)
			os.Exit(1)
		}
	}

	fmt.Println("✔ done")
}

// demoUsername returns stable names for the first accounts so manual testing
// can rely on them, then falls back to generated ones.
func demoUsername(i int) string {
	known := []string{"alice", "bob", "carol"}
	if i < len(known) {
		return known[i]
	}
	return strings.ToLower(gofakeit.Username())
}

// ----------------------------------------------------------------------------
// Step 1 – make sure the user exists -----------------------------------------
func ensureUser(username string) (*account, error) {
	payload := map[string]string{"username": username, "password": *pass}

	// Try sign-up first …
	if resp, err := postJSON("/api/v1/auth/sign-up", payload, nil); err == nil && resp.StatusCode < 300 {
		var r struct {
			Token string `json:"token"`
		}
		_ = json.Unmarshal(must(resp.Body), &r)
		fmt.Printf("• signed-up %s\n", username)
		return &account{username: username, token: r.Token}, nil
	}

	// … otherwise fall back to sign-in.
	resp, err := postJSON("/api/v1/auth/sign-in", payload, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sign-in %s failed (%d): %s", username, resp.StatusCode, must(resp.Body))
	}
	var r struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(must(resp.Body), &r)
	fmt.Printf("• signed-in %s\n", username)
	return &account{username: username, token: r.Token}, nil
}

// ----------------------------------------------------------------------------
// Step 2 – create notes -------------------------------------------------------
func createNotes(acc *account, total int) error {
	h := map[string]string{"Authorization": "Bearer " + acc.token}

	for i := 1; i <= total; i++ {
		note := map[string]any{
			"title":   gofakeit.Sentence(3),
			"content": gofakeit.Paragraph(1, 3, 40, " ") + " #" + gofakeit.Word(),
			"tags":    []string{strings.ToLower(gofakeit.Word())},
		}

		resp, err := postJSON("/api/v1/notes", note, h)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("create note %d for %s failed (%d): %s", i, acc.username, resp.StatusCode, must(resp.Body))
		}

		var r struct {
			Note struct {
				ID string `json:"id"`
			} `json:"note"`
		}
		_ = json.Unmarshal(must(resp.Body), &r)
		if r.Note.ID != "" {
			acc.noteIDs = append(acc.noteIDs, r.Note.ID)
		}

		if i%20 == 0 || i == total {
			fmt.Printf("  … %s %d/%d\n", acc.username, i, total)
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Step 3 – share notes --------------------------------------------------------
func createShares(acc *account, recipient string, total int) error {
	h := map[string]string{"Authorization": "Bearer " + acc.token}

	if total > len(acc.noteIDs) {
		total = len(acc.noteIDs)
	}

	for i := 0; i < total; i++ {
		share := map[string]any{
			"note_id":               acc.noteIDs[i],
			"shared_with_usernames": []string{recipient},
			"message":               gofakeit.Sentence(5),
		}

		resp, err := postJSON("/api/v1/sharing", share, h)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("share note for %s failed (%d): %s", acc.username, resp.StatusCode, must(resp.Body))
		}
		_ = must(resp.Body)
	}

	fmt.Printf("  … %s shared %d notes with %s\n", acc.username, total, recipient)
	return nil
}
