// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package authclient talks to the RBAC platform's authentication REST API.

Every response is wrapped in a {code, message, data} envelope where code 0 means
success. Failures come back as [session.Error] values so the session store can
tell a rejected credential from an unreachable service.
*/
package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/taibuivan/ucenter/internal/platform/constants"
	"github.com/taibuivan/ucenter/internal/rbac"
	"github.com/taibuivan/ucenter/internal/session"
)

// Envelope is the response wrapper of the authentication API.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Config configures a [Client].
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Retries applies to idempotent reads only. Login, logout and refresh are
	// never retried.
	Retries int

	Logger *slog.Logger
}

// Client implements [session.Authenticator] over HTTP.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

var _ session.Authenticator = (*Client)(nil)

// New creates a client for the API rooted at cfg.BaseURL.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(response *resty.Response, err error) bool {
			if response == nil || response.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || response.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", constants.AppName)

	return &Client{http: httpClient, logger: cfg.Logger}
}

// # Authentication

// Login exchanges credentials for a full session.
func (client *Client) Login(ctx context.Context, credentials session.Credentials) (*session.LoginResult, error) {
	var result session.LoginResult
	request := client.http.R().SetContext(ctx).SetBody(credentials)
	if err := client.do(ctx, "login", request, http.MethodPost, "/auth/login", true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout invalidates the access token remotely.
func (client *Client) Logout(ctx context.Context, accessToken string) error {
	request := client.http.R().SetContext(ctx).SetAuthToken(accessToken)
	return client.do(ctx, "logout", request, http.MethodPost, "/auth/logout", false, nil)
}

// Refresh exchanges a refresh token for a new access token.
func (client *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var result struct {
		Token string `json:"token"`
	}
	request := client.http.R().SetContext(ctx).SetBody(map[string]string{"refreshToken": refreshToken})
	if err := client.do(ctx, "refresh", request, http.MethodPost, "/auth/refresh", true, &result); err != nil {
		return "", err
	}
	return result.Token, nil
}

// # Current Identity

// CurrentUser reads the identity behind accessToken.
func (client *Client) CurrentUser(ctx context.Context, accessToken string) (*rbac.User, error) {
	var user rbac.User
	request := client.http.R().SetContext(ctx).SetAuthToken(accessToken)
	if err := client.do(ctx, "fetch_user", request, http.MethodGet, "/auth/user", false, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentPermissions reads the permission codes held in systemCode.
func (client *Client) CurrentPermissions(ctx context.Context, accessToken, systemCode string) ([]string, error) {
	codes := make([]string, 0)
	request := client.system(ctx, accessToken, systemCode)
	if err := client.do(ctx, "fetch_permissions", request, http.MethodGet, "/auth/permissions", false, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// CurrentMenus reads the menu tree of systemCode.
func (client *Client) CurrentMenus(ctx context.Context, accessToken, systemCode string) ([]*rbac.Menu, error) {
	menus := make([]*rbac.Menu, 0)
	request := client.system(ctx, accessToken, systemCode)
	if err := client.do(ctx, "fetch_menus", request, http.MethodGet, "/auth/menus", false, &menus); err != nil {
		return nil, err
	}
	return menus, nil
}

func (client *Client) system(ctx context.Context, accessToken, systemCode string) *resty.Request {
	request := client.http.R().SetContext(ctx).SetAuthToken(accessToken)
	if systemCode != "" {
		request.SetQueryParam("systemCode", systemCode)
	}
	return request
}

// # Transport

/*
do sends request and decodes the envelope's data into target.

Description: Transport failures and 5xx answers are KindNetwork. 401 is KindAuth.
Other 4xx answers, 403 included, are KindAuth when rejects is set and KindData
otherwise, so a refused read never ends the session. A non-zero envelope code
is KindAuth when rejects is set (the call validates a credential) or when it is
401, else KindData. An undecodable body is KindData.
*/
func (client *Client) do(ctx context.Context, op string, request *resty.Request, method, url string, rejects bool, target any) error {
	started := time.Now()
	response, err := request.Execute(method, url)

	logAttrs := []any{
		slog.String("op", op),
		slog.String("url", url),
		slog.Duration("latency", time.Since(started)),
	}

	if err != nil {
		client.logger.WarnContext(ctx, "authclient_request_failed", append(logAttrs, slog.Any("error", err))...)
		return session.NewError(session.KindNetwork, op, fmt.Errorf("authclient_%s_failed: %w", op, err))
	}

	status := response.StatusCode()
	logAttrs = append(logAttrs, slog.Int("status", status))

	switch {
	case status == http.StatusUnauthorized:
		client.logger.InfoContext(ctx, "authclient_request_rejected", logAttrs...)
		return session.NewError(session.KindAuth, op, fmt.Errorf("authclient_%s_rejected: %s", op, upstreamMessage(response)))
	case status >= http.StatusInternalServerError:
		client.logger.WarnContext(ctx, "authclient_upstream_error", logAttrs...)
		return session.NewError(session.KindNetwork, op, fmt.Errorf("authclient_%s_upstream_error: status %d", op, status))
	case status >= http.StatusBadRequest:
		kind := session.KindData
		if rejects {
			kind = session.KindAuth
		}
		client.logger.InfoContext(ctx, "authclient_request_refused", logAttrs...)
		return session.NewError(kind, op, fmt.Errorf("authclient_%s_refused: %s", op, upstreamMessage(response)))
	}

	var envelope Envelope
	if err := json.Unmarshal(response.Body(), &envelope); err != nil {
		return session.NewError(session.KindData, op, fmt.Errorf("authclient_%s_decode_failed: %w", op, err))
	}

	if envelope.Code != 0 {
		kind := session.KindData
		if rejects || envelope.Code == http.StatusUnauthorized {
			kind = session.KindAuth
		}
		client.logger.InfoContext(ctx, "authclient_business_error", append(logAttrs, slog.Int("code", envelope.Code))...)
		return session.NewError(kind, op, fmt.Errorf("authclient_%s_refused: %s", op, envelope.Message))
	}

	if target == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return session.NewError(session.KindData, op, fmt.Errorf("authclient_%s_decode_failed: %w", op, err))
	}

	client.logger.DebugContext(ctx, "authclient_request_succeeded", logAttrs...)
	return nil
}

// upstreamMessage extracts a message from either envelope shape the API uses.
func upstreamMessage(response *resty.Response) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(response.Body(), &body); err != nil {
		return http.StatusText(response.StatusCode())
	}
	if body.Message != "" {
		return body.Message
	}
	if body.Error != "" {
		return body.Error
	}
	return http.StatusText(response.StatusCode())
}

