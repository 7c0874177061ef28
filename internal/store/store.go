package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"atsmatch/internal/config"
	"atsmatch/internal/errors"
	"atsmatch/internal/types"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Persistence modes
const (
	ModeMCP      = "mcp"
	ModeREST     = "rest"
	ModeDisabled = "disabled"
)

// Saver persists evaluation records
type Saver interface {
	Save(ctx context.Context, record types.EvaluationRecord) (types.SaveResult, error)
	Mode() string
}

// Client posts evaluation records to an MCP intermediary or the Back4App REST API
type Client struct {
	http     *resty.Client
	mode     string
	endpoint string
	appID    string
	restKey  string
	logger   *errors.Logger
}

var _ Saver = (*Client)(nil)

// New returns the saver selected by configuration.
// A configured MCP URL takes precedence over the REST API.
func New(cfg config.StoreConfig, logger *errors.Logger) Saver {
	if !cfg.Enabled {
		return Disabled{}
	}

	client := &Client{
		http:    resty.New().SetTimeout(cfg.Timeout),
		appID:   cfg.AppID,
		restKey: cfg.RESTKey,
		logger:  logger,
	}

	if cfg.MCPURL != "" {
		client.mode = ModeMCP
		client.endpoint = strings.TrimRight(cfg.MCPURL, "/") + "/evaluation"
	} else {
		client.mode = ModeREST
		client.endpoint = fmt.Sprintf("%s/classes/%s", strings.TrimRight(cfg.BaseURL, "/"), cfg.ClassName)
	}

	return client
}

// Mode reports where records are sent
func (c *Client) Mode() string {
	return c.mode
}

// Endpoint is the URL records are posted to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Save posts one record. Saved is true only when the store answers with an objectId.
func (c *Client) Save(ctx context.Context, record types.EvaluationRecord) (types.SaveResult, error) {
	if c.mode == ModeREST && (c.appID == "" || c.restKey == "") {
		return types.SaveResult{}, errors.NewPersistenceError(errors.ErrCodeMissingStoreCreds,
			"Please set BACK4APP_APP_ID and BACK4APP_REST_KEY to save evaluations", nil)
	}

	requestID := uuid.NewString()
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Request-ID", requestID).
		SetBody(record)

	if c.mode == ModeREST {
		req.SetHeader("X-Parse-Application-Id", c.appID).
			SetHeader("X-Parse-REST-API-Key", c.restKey)
	}

	resp, err := req.Post(c.endpoint)
	if err != nil {
		return types.SaveResult{}, errors.NewPersistenceError(errors.ErrCodeStoreUnreachable,
			"Evaluation store is unreachable", err).
			WithContext("mode", c.mode).
			WithContext("request_id", requestID)
	}

	if !resp.IsSuccess() {
		return types.SaveResult{}, errors.NewPersistenceError(errors.ErrCodeStoreRejected,
			fmt.Sprintf("Evaluation store returned %s", resp.Status()), nil).
			WithContext("mode", c.mode).
			WithContext("status", resp.StatusCode()).
			WithContext("body", truncate(resp.String(), 512)).
			WithContext("request_id", requestID)
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return types.SaveResult{}, errors.NewPersistenceError(errors.ErrCodeStoreRejected,
			"Evaluation store returned a non-JSON body", nil).
			WithContext("mode", c.mode).
			WithContext("body", truncate(resp.String(), 512)).
			WithContext("request_id", requestID)
	}

	objectID := gjson.GetBytes(body, "objectId").String()
	if c.logger != nil {
		c.logger.Debug("Evaluation stored",
			"mode", c.mode,
			"request_id", requestID,
			"object_id", objectID)
	}

	return types.SaveResult{ObjectID: objectID, Saved: objectID != ""}, nil
}

// Disabled drops every record
type Disabled struct{}

// Save implements Saver
func (Disabled) Save(context.Context, types.EvaluationRecord) (types.SaveResult, error) {
	return types.SaveResult{}, nil
}

// Mode implements Saver
func (Disabled) Mode() string {
	return ModeDisabled
}

// NewRecord builds the persisted subset of a run, truncating both texts to maxChars characters.
func NewRecord(resumeText, jobText string, assessment *types.Assessment, maxChars int) types.EvaluationRecord {
	record := types.EvaluationRecord{
		ResumeText:      truncate(resumeText, maxChars),
		JobText:         truncate(jobText, maxChars),
		MissingKeywords: []string{},
	}
	if assessment != nil {
		record.ATSScore = assessment.ATSScore
		if assessment.MissingKeywords != nil {
			record.MissingKeywords = assessment.MissingKeywords
		}
	}
	return record
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
