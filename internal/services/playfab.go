package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"unity-upload-backend/internal/logger"

	"github.com/tidwall/gjson"
)

// PlayFabClient lifts title-level bans on PlayFab, either after a local
// revoke or on request for voice bans that never entered the registry.
type PlayFabClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewPlayFabClient(titleID, secretKey string, timeout time.Duration) *PlayFabClient {
	return &PlayFabClient{
		baseURL:   fmt.Sprintf("https://%s.playfabapi.com", titleID),
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the client at another API host, e.g. a regional
// endpoint or a local stub.
func (p *PlayFabClient) WithBaseURL(baseURL string) *PlayFabClient {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

func (p *PlayFabClient) UnbanUsers(ctx context.Context, playerIDs ...string) error {
	body, err := json.Marshal(map[string][]string{"PlayFabIds": playerIDs})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/Admin/UnbanUsers", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-SecretKey", p.secretKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("playfab unban: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "errorMessage").String()
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("playfab unban: %s (code %d)", msg, gjson.GetBytes(data, "errorCode").Int())
	}
	return nil
}

// RevokeHook mirrors committed revokes to PlayFab. Failures are logged only;
// the local revoke stands.
func (p *PlayFabClient) RevokeHook() RevokeHook {
	return func(ctx context.Context, playerID string) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.http.Timeout)
		defer cancel()
		if err := p.UnbanUsers(ctx, playerID); err != nil {
			logger.Error("[playfab] %v", err)
			return
		}
		logger.Success("[playfab] unbanned %s", playerID)
	}
}
