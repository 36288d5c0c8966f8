package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
)

// Client calls the remote agent execution service. Every failure mode is
// returned as an Outcome value; Execute never panics and never returns an
// error the caller has to catch.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxTimeout time.Duration
}

type Config struct {
	BaseURL    string
	MaxTimeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxTimeout:          10 * time.Minute,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

func NewClient(cfg Config) *Client {
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = 10 * time.Minute
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Transport: transport},
		maxTimeout: cfg.MaxTimeout,
	}
}

// Request carries one dispatch to the execution service.
type Request struct {
	AgentName  string
	TenantID   uuid.UUID
	UserID     uuid.UUID
	Payload    models.JSON
	ProjectID  *string
	WorkflowID *string
}

// Outcome is the closed set of dispatch results.
type Outcome interface {
	isOutcome()
}

// Success: the service ran the task and reported a result.
type Success struct {
	AgentTaskID string
	Result      models.JSON
	TokensUsed  int
	CostUSD     float64
}

// RemoteFailure: the service responded but reported the task failed.
type RemoteFailure struct {
	Message string
}

// TransportError: non-2xx status, connection failure, or malformed response.
type TransportError struct {
	Message string
}

// Timeout: the call exceeded its deadline.
type Timeout struct {
	Message string
}

func (Success) isOutcome()        {}
func (RemoteFailure) isOutcome()  {}
func (TransportError) isOutcome() {}
func (Timeout) isOutcome()        {}

type executeBody struct {
	Task       models.JSON `json:"task"`
	Context    models.JSON `json:"context"`
	RiskLevel  string      `json:"risk_level"`
	ProjectID  *string     `json:"project_id,omitempty"`
	WorkflowID *string     `json:"workflow_id,omitempty"`
}

type executeResponse struct {
	Status     string      `json:"status"`
	TaskID     string      `json:"task_id"`
	Result     models.JSON `json:"result"`
	TokensUsed int         `json:"tokens_used"`
	CostInfo   struct {
		TotalCostUSD float64 `json:"total_cost_usd"`
	} `json:"cost_info"`
	Error string `json:"error"`
}

// Execute sends one task to the execution service, bounded by timeout. The
// timeout is clamped to the client's configured ceiling so a misconfigured
// task cannot pin a worker indefinitely.
func (c *Client) Execute(ctx context.Context, req Request, timeout time.Duration) Outcome {
	if timeout <= 0 || timeout > c.maxTimeout {
		timeout = c.maxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body := executeBody{
		Task:       req.Payload,
		Context:    models.JSON{},
		RiskLevel:  riskLevel(req.Payload),
		ProjectID:  req.ProjectID,
		WorkflowID: req.WorkflowID,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return TransportError{Message: fmt.Sprintf("encode request: %v", err)}
	}

	endpoint := fmt.Sprintf("%s/agents/%s/execute", c.baseURL, url.PathEscape(req.AgentName))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return TransportError{Message: fmt.Sprintf("build request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", req.TenantID.String())
	httpReq.Header.Set("X-User-ID", req.UserID.String())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return Timeout{Message: fmt.Sprintf("agent %s timed out after %s", req.AgentName, timeout)}
		}
		return TransportError{Message: fmt.Sprintf("call agent %s: %v", req.AgentName, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TransportError{Message: fmt.Sprintf("agent %s returned HTTP %d", req.AgentName, resp.StatusCode)}
	}

	var parsed executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return TransportError{Message: fmt.Sprintf("decode agent response: %v", err)}
	}

	switch parsed.Status {
	case "success":
		return Success{
			AgentTaskID: parsed.TaskID,
			Result:      parsed.Result,
			TokensUsed:  parsed.TokensUsed,
			CostUSD:     parsed.CostInfo.TotalCostUSD,
		}
	case "error", "failed":
		msg := parsed.Error
		if msg == "" {
			msg = "agent reported failure without detail"
		}
		return RemoteFailure{Message: msg}
	default:
		log.Warn().
			Str("agent", req.AgentName).
			Str("status", parsed.Status).
			Msg("Unexpected status in agent response")
		return TransportError{Message: fmt.Sprintf("unexpected agent status %q", parsed.Status)}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// riskLevel is carried inside the task payload; absent means low.
func riskLevel(payload models.JSON) string {
	if payload != nil {
		if rl, ok := payload["risk_level"].(string); ok && rl != "" {
			return rl
		}
	}
	return "low"
}
