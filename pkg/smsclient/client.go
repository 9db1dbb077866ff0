/**
 * @description
 * This package provides a client for sending SMS notifications through the
 * ClickSend REST API. It encapsulates the authenticated HTTP request, South
 * African phone-number normalization, and the message templates used for
 * transfer notifications.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package smsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://rest.clicksend.com/v3"

// Client is a client for the ClickSend SMS API.
type Client struct {
	BaseURL    string
	Username   string
	APIKey     string
	Sender     string
	HTTPClient *http.Client
}

// NewClient creates a new ClickSend client.
func NewClient(username, apiKey, sender string) *Client {
	return &Client{
		BaseURL:  defaultBaseURL,
		Username: username,
		APIKey:   apiKey,
		Sender:   sender,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type smsMessage struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	From   string `json:"from,omitempty"`
	Source string `json:"source"`
}

type sendRequest struct {
	Messages []smsMessage `json:"messages"`
}

type sendResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseMsg  string `json:"response_msg"`
}

// Send delivers one SMS to the given phone number. The number is normalized
// to international format first; bodies longer than one SMS segment are
// truncated rather than split.
func (c *Client) Send(ctx context.Context, phone, body string) error {
	to := CleanPhone(phone)
	if to == "" {
		return fmt.Errorf("smsclient: unusable phone number %q", phone)
	}

	payload := sendRequest{
		Messages: []smsMessage{{
			To:     to,
			Body:   Truncate(body),
			From:   c.Sender,
			Source: "hawala-service",
		}},
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/sms/send", bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.Username, c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("smsclient: send failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// A 2xx with an unreadable body still counts as delivered to the API.
		return nil
	}
	if parsed.ResponseCode != "" && parsed.ResponseCode != "SUCCESS" {
		return fmt.Errorf("smsclient: api rejected message: %s %s", parsed.ResponseCode, parsed.ResponseMsg)
	}
	return nil
}

// CleanPhone normalizes a South African phone number to international
// format: separators stripped, a leading national 0 replaced by 27, and a
// single + prefix. Numbers that reduce to fewer than 9 digits are rejected
// by returning "".
func CleanPhone(phone string) string {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if strings.HasPrefix(normalized, "0") {
		normalized = "27" + normalized[1:]
	}
	if len(normalized) < 9 {
		return ""
	}
	return "+" + normalized
}

// Truncate caps a message body at one 160-character SMS segment.
func Truncate(body string) string {
	const maxLen = 160
	runes := []rune(body)
	if len(runes) <= maxLen {
		return body
	}
	return string(runes[:maxLen])
}
