// Package profile fetches the caller's voice preference and recent goals
// from the Supabase REST API. The database is a collaborator; only the two
// reads the call pipeline needs are exposed here.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultVoice is substituted when a profile has no voice preference.
// It is a valid identifier for the synthesis collaborator.
const DefaultVoice = "Joanna"

// How many recent goals flow into the conversation context.
const recentGoalLimit = 3

// Profile is the per-user context one turn needs.
type Profile struct {
	VoicePreference string
	RecentGoals     []string
}

// Client talks to the Supabase PostgREST endpoint with the service role key.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewClient creates a profile client. timeout 0 picks a default.
func NewClient(baseURL, serviceKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the user's voice preference and recent goal titles. A
// profile without a stored preference gets DefaultVoice; a failed lookup is
// an error for the caller to classify.
func (c *Client) Fetch(ctx context.Context, userID string) (Profile, error) {
	prof := Profile{VoicePreference: DefaultVoice}

	var profileRows []struct {
		VoicePreference *string `json:"voice_preference"`
	}
	profileQuery := url.Values{
		"id":     {"eq." + userID},
		"select": {"voice_preference"},
	}
	if err := c.get(ctx, "profiles", profileQuery, &profileRows); err != nil {
		return Profile{}, fmt.Errorf("profile lookup for user %s: %w", userID, err)
	}
	if len(profileRows) > 0 && profileRows[0].VoicePreference != nil && *profileRows[0].VoicePreference != "" {
		prof.VoicePreference = *profileRows[0].VoicePreference
	}

	var goalRows []struct {
		Title string `json:"title"`
	}
	goalQuery := url.Values{
		"user_id": {"eq." + userID},
		"select":  {"title"},
		"order":   {"created_at.desc"},
		"limit":   {fmt.Sprintf("%d", recentGoalLimit)},
	}
	if err := c.get(ctx, "goals", goalQuery, &goalRows); err != nil {
		return Profile{}, fmt.Errorf("goal lookup for user %s: %w", userID, err)
	}
	for _, row := range goalRows {
		if row.Title != "" {
			prof.RecentGoals = append(prof.RecentGoals, row.Title)
		}
	}

	return prof, nil
}

func (c *Client) get(ctx context.Context, table string, query url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s query returned status %d", table, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", table, err)
	}
	return nil
}
