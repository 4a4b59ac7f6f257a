package api

import (
	"context"
	"fmt"
	"io"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/sydney/internal/errors"
	"github.com/diogo/sydney/internal/models"
)

// encryptedSignatureHeader carries the signature when the service no longer
// puts it in the body
const encryptedSignatureHeader = "X-Sydney-Encryptedconversationsignature"

// maxCreateBody bounds how much of the create response is read
const maxCreateBody = 1 << 20

// CreateConversation asks the service for a new conversation
func (c *Client) CreateConversation(ctx context.Context) (models.Conversation, error) {
	endpoint := c.createURL

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Conversation{}, apierrors.NewNetworkError("create conversation", endpoint, err)
	}
	req = req.WithContext(ctx)

	// Set headers
	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}

	// Set cookies
	cookies := c.GetCookies().ToMap()
	for _, name := range c.GetCookies().Names() {
		req.AddCookie(&http.Cookie{Name: name, Value: cookies[name]})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Conversation{}, apierrors.NewNetworkError("create conversation", endpoint, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCreateBody))
	if err != nil {
		return models.Conversation{}, apierrors.NewNetworkError("create conversation", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		return models.Conversation{}, createStatusError(endpoint, resp.StatusCode, body)
	}

	return parseConversation(endpoint, body, resp.Header.Get(encryptedSignatureHeader))
}

func createStatusError(endpoint string, status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		authErr := apierrors.NewAuthError(endpoint, fmt.Sprintf("conversation create rejected, status: %d", status))
		authErr.HTTPStatus = status
		authErr.WithBody(string(body))
		return authErr
	case http.StatusTooManyRequests:
		return apierrors.NewThrottledError("too many conversations created, try again later")
	}

	sessErr := apierrors.NewSessionError("create conversation", endpoint, fmt.Sprintf("unexpected status %d", status))
	sessErr.HTTPStatus = status
	return sessErr.WithBody(string(body))
}

// parseConversation reads the create response. encrypted is the value of
// the signature header, possibly empty.
func parseConversation(endpoint string, body []byte, encrypted string) (models.Conversation, error) {
	if !gjson.ValidBytes(body) {
		sessErr := apierrors.NewSessionError("create conversation", endpoint, "response is not JSON; the service may be unavailable in your region")
		sessErr.Err = apierrors.ErrInvalidResponse
		return models.Conversation{}, sessErr.WithBody(string(body))
	}

	result := gjson.GetBytes(body, PathCreateResult)
	if value := result.Get(PathResultValue).String(); value != "" && value != "Success" {
		message := result.Get(PathResultMessage).String()
		switch value {
		case "UnauthorizedRequest", "Forbidden":
			return models.Conversation{}, apierrors.NewAuthError(endpoint, message)
		case "Throttled":
			return models.Conversation{}, apierrors.NewThrottledError(message)
		}
		return models.Conversation{}, apierrors.NewSessionError("create conversation", endpoint, value+": "+message)
	}

	conv := models.Conversation{
		ID:                 gjson.GetBytes(body, PathConversationID).String(),
		ClientID:           gjson.GetBytes(body, PathClientID).String(),
		Signature:          gjson.GetBytes(body, PathConversationSig).String(),
		EncryptedSignature: encrypted,
	}
	if !conv.Valid() {
		sessErr := apierrors.NewSessionError("create conversation", endpoint, "response is missing conversation fields")
		sessErr.Err = apierrors.ErrInvalidResponse
		return models.Conversation{}, sessErr.WithBody(string(body))
	}

	return conv, nil
}
