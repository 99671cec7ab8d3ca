package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// cmdList lists an owner's projects
func cmdList(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("owner ID required (e.g., craftpad list alice)")
	}

	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'craftpad start' first)")
	}

	resp, err := http.Get(daemonAddr + "/v1/projects?owner_id=" + args[0])
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Projects []struct {
			ID        string    `json:"id"`
			Name      string    `json:"name"`
			Type      string    `json:"type"`
			FileCount int       `json:"file_count"`
			UpdatedAt time.Time `json:"updated_at"`
		} `json:"projects"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	if len(result.Projects) == 0 {
		fmt.Println("No projects found")
		return nil
	}

	fmt.Printf("Projects for %s:\n", args[0])
	for _, p := range result.Projects {
		fmt.Printf("  %s  %s (%s, %d files, updated %s)\n",
			p.ID, p.Name, p.Type, p.FileCount, p.UpdatedAt.Format("2006-01-02 15:04"))
	}

	return nil
}

// cmdExport writes a project's files to a local directory
func cmdExport(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: craftpad export <project-id> <dir>")
	}
	projectID, dir := args[0], args[1]

	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'craftpad start' first)")
	}

	sessionID, files, err := openSession(projectID)
	if err != nil {
		return err
	}
	defer closeSession(sessionID)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	for _, name := range files {
		content, err := fetchFile(sessionID, name)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", name, err)
		}
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create directory for %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		fmt.Printf("  %s\n", name)
	}

	fmt.Printf("Exported %d files to %s\n", len(files), dir)
	return nil
}

// cmdPreview prints the composed preview document to stdout
func cmdPreview(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: craftpad preview <project-id>")
	}

	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'craftpad start' first)")
	}

	sessionID, _, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer closeSession(sessionID)

	resp, err := http.Get(fmt.Sprintf("%s/v1/sessions/%s/preview", daemonAddr, sessionID))
	if err != nil {
		return fmt.Errorf("get preview: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read preview: %w", err)
	}

	fmt.Print(string(doc))
	return nil
}

// openSession loads a project into a fresh editor session
func openSession(projectID string) (string, []string, error) {
	body, _ := json.Marshal(map[string]string{"project_id": projectID})
	resp, err := http.Post(daemonAddr+"/v1/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("open session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil, fmt.Errorf("project not found: %s", projectID)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", nil, apiError(resp)
	}

	var result struct {
		SessionID string `json:"session_id"`
		Workspace struct {
			Files []string `json:"files"`
		} `json:"workspace"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", nil, fmt.Errorf("parse response: %w", err)
	}
	return result.SessionID, result.Workspace.Files, nil
}

func fetchFile(sessionID, name string) (string, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/sessions/%s/files/%s", daemonAddr, sessionID, name))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	var result struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Content, nil
}

func closeSession(sessionID string) {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/v1/sessions/%s", daemonAddr, sessionID), nil)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// apiError extracts the error message from a daemon JSON error response
func apiError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if body.Details != "" {
		return fmt.Errorf("%s: %s", body.Error, body.Details)
	}
	return fmt.Errorf("%s", body.Error)
}
