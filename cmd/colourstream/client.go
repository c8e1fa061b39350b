package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"colourstream/internal/rooms"
	"colourstream/internal/store"
	"colourstream/internal/uploads"
)

// apiClient is a thin HTTP client for the colourstream daemon API. All
// admin calls carry the bearer token obtained by Login.
type apiClient struct {
	base   string
	token  string
	client *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base:   base,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type healthStatus struct {
	Status        string `json:"status"`
	Rooms         int64  `json:"rooms"`
	UploadLinks   int64  `json:"uploadLinks"`
	ActiveUploads int    `json:"activeUploads"`
}

func (c *apiClient) Health() (*healthStatus, error) {
	var status healthStatus
	if err := c.do(http.MethodGet, "/api/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *apiClient) Login(username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	payload := map[string]string{"username": username, "password": password}
	if err := c.do(http.MethodPost, "/api/auth/login", payload, &resp); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

func (c *apiClient) ListRooms() ([]rooms.Room, error) {
	var resp struct {
		Rooms []rooms.Room `json:"rooms"`
	}
	if err := c.do(http.MethodGet, "/api/rooms", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (c *apiClient) CreateRoom(name, password string, expiresAt *time.Time) (*rooms.Room, error) {
	payload := map[string]any{"name": name}
	if password != "" {
		payload["password"] = password
	}
	if expiresAt != nil {
		payload["expiresAt"] = expiresAt
	}
	var room rooms.Room
	if err := c.do(http.MethodPost, "/api/rooms", payload, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *apiClient) DeleteRoom(id string) error {
	return c.do(http.MethodDelete, "/api/rooms/"+id, nil, nil)
}

func (c *apiClient) ListUploadLinks() ([]store.UploadLink, error) {
	var resp struct {
		Links []store.UploadLink `json:"links"`
	}
	if err := c.do(http.MethodGet, "/api/upload-links", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Links, nil
}

func (c *apiClient) CreateUploadLink(clientName, projectName string, expiresAt *time.Time) (*store.UploadLink, error) {
	payload := map[string]any{"clientName": clientName, "projectName": projectName}
	if expiresAt != nil {
		payload["expiresAt"] = expiresAt
	}
	var link store.UploadLink
	if err := c.do(http.MethodPost, "/api/upload-links", payload, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *apiClient) DeleteUploadLink(token string) error {
	return c.do(http.MethodDelete, "/api/upload-links/"+token, nil, nil)
}

func (c *apiClient) ActiveUploads() ([]uploads.Record, error) {
	return c.fetchUploads("/api/upload/active")
}

func (c *apiClient) AllUploads() ([]uploads.Record, error) {
	return c.fetchUploads("/api/upload/all")
}

func (c *apiClient) fetchUploads(path string) ([]uploads.Record, error) {
	var resp struct {
		Uploads []uploads.Record `json:"uploads"`
	}
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Uploads, nil
}

func (c *apiClient) do(method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var failure struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&failure); decodeErr == nil && failure.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, failure.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
