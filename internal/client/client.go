// Package client is a small Go client for the dashboard API, used by the
// smoke binary and end-to-end tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"opsboard.io/internal/auth"
	"opsboard.io/internal/dashboard"
)

// APIError is a non-2xx response.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s (request %s)", e.Status, e.Message, e.RequestID)
}

// Client talks to the HTTP API and remembers the last issued token.
type Client struct {
	base string
	http *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for baseURL. A nil hc uses a client with a 10s timeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// Token returns the bearer token from the last register or login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

type authResponse struct {
	User  auth.PublicUser `json:"user"`
	Token string          `json:"token"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) (auth.PublicUser, error) {
	var out authResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return auth.PublicUser{}, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.PublicUser, error) {
	var out authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return auth.PublicUser{}, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

func (c *Client) Projects(ctx context.Context) ([]dashboard.Project, error) {
	var out struct {
		Projects []dashboard.Project `json:"projects"`
	}
	err := c.do(ctx, http.MethodGet, "/projects", nil, &out)
	return out.Projects, err
}

func (c *Client) CreateProject(ctx context.Context, name, status string) (dashboard.Project, error) {
	var out struct {
		Project dashboard.Project `json:"project"`
	}
	err := c.do(ctx, http.MethodPost, "/projects", map[string]string{"name": name, "status": status}, &out)
	return out.Project, err
}

// LogWork records hours for the authenticated caller. projectID may be empty.
func (c *Client) LogWork(ctx context.Context, projectID, day string, hours float64, description string) (dashboard.WorkLog, error) {
	var out struct {
		WorkLog dashboard.WorkLog `json:"workLog"`
	}
	body := map[string]any{"projectId": projectID, "workDate": day, "hours": hours, "description": description}
	err := c.do(ctx, http.MethodPost, "/work-logs", body, &out)
	return out.WorkLog, err
}

// WorkLogs lists the caller's logs; day may be empty.
func (c *Client) WorkLogs(ctx context.Context, day string) ([]dashboard.WorkLog, error) {
	path := "/work-logs"
	if day != "" {
		path += "?" + url.Values{"date": []string{day}}.Encode()
	}
	var out struct {
		WorkLogs []dashboard.WorkLog `json:"workLogs"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.WorkLogs, err
}

func (c *Client) Overview(ctx context.Context) (dashboard.Overview, error) {
	var out dashboard.Overview
	err := c.do(ctx, http.MethodGet, "/manager/overview", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Dial opens a gRPC connection; without options the transport is insecure.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	return grpc.NewClient(target, opts...)
}

// Health queries the standard gRPC health service.
func Health(ctx context.Context, conn grpc.ClientConnInterface, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

const whoAmIMethod = "/opsboard.v1.Session/WhoAmI"

// Session is the identity the gRPC listener resolved from a token.
type Session struct {
	ID        string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// WhoAmI calls the authenticated session method with token.
func WhoAmI(ctx context.Context, conn grpc.ClientConnInterface, token string) (Session, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, whoAmIMethod, &emptypb.Empty{}, out); err != nil {
		return Session{}, err
	}
	f := out.GetFields()
	sess := Session{
		ID:    f["id"].GetStringValue(),
		Email: f["email"].GetStringValue(),
		Role:  f["role"].GetStringValue(),
	}
	if exp := f["expires_at"].GetStringValue(); exp != "" {
		t, err := time.Parse(time.RFC3339, exp)
		if err != nil {
			return Session{}, fmt.Errorf("client: session expiry %q: %w", exp, err)
		}
		sess.ExpiresAt = t
	}
	return sess, nil
}
