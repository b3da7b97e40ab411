// Package salesforce provides client functionality for interacting with the
// record store REST API: token lifecycle, SOQL queries, sobject writes.
package salesforce

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
	"time"

	"rfpsonar/internal/config"
	"rfpsonar/internal/logger"
	"rfpsonar/internal/models"
)

// Client errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrNoIDReceived         = errors.New("no record id in create response")
)

// Client defines the interface for record store communication.
type Client interface {
	QueryExistingNumbers(ctx context.Context, accountID string) (map[string]struct{}, error)
	CreateOpportunity(ctx context.Context, payload *OpportunityPayload) (string, error)
	UpdateAccountStatus(ctx context.Context, accountID string, status models.RunStatus, message string) error
	CountOpportunities(ctx context.Context, accountID string) (int, error)
	RecentOpportunities(ctx context.Context, accountID string, limit int) ([]OpportunityRecord, error)
}

// Ensure RESTClient implements Client.
var _ Client = (*RESTClient)(nil)

// RESTClient talks to the record store's REST and SOQL endpoints.
type RESTClient struct {
	httpClient  *http.Client
	instanceURL string
	basePath    string
	tokens      *TokenManager
	logger      *logger.Logger
}

// NewRESTClient creates a record store client from configuration.
func NewRESTClient(cfg *config.RecordStoreConfig, log *logger.Logger) *RESTClient {
	return &RESTClient{
		httpClient:  &http.Client{Timeout: cfg.GetRequestTimeout()},
		instanceURL: strings.TrimRight(cfg.InstanceURL, "/"),
		basePath:    "/services/data/" + cfg.APIVersion,
		tokens:      NewTokenManager(cfg, log),
		logger:      log,
	}
}

// QueryExistingNumbers returns the set of solicitation numbers already
// present for the account. The whole result is walked, following
// nextRecordsUrl pages, so the dedup set is complete even past the store's
// page size.
func (c *RESTClient) QueryExistingNumbers(ctx context.Context, accountID string) (map[string]struct{}, error) {
	soql := fmt.Sprintf(
		"SELECT Solicitation_Number__c FROM Opportunity WHERE AccountId = '%s'",
		escapeSOQL(accountID),
	)

	existing := make(map[string]struct{})

	page, err := c.query(ctx, soql)
	if err != nil {
		return nil, fmt.Errorf("existing-number query failed: %w", err)
	}

	for {
		for _, rec := range page.Records {
			if rec.SolicitationNumber != "" {
				existing[rec.SolicitationNumber] = struct{}{}
			}
		}

		if page.Done || page.NextRecordsURL == "" {
			break
		}

		page, err = c.queryPage(ctx, page.NextRecordsURL)
		if err != nil {
			return nil, fmt.Errorf("existing-number query failed: %w", err)
		}
	}

	c.logger.Debug("fetched existing solicitation numbers", "account_id", accountID, "count", len(existing))

	return existing, nil
}

// CreateOpportunity posts one opportunity and returns the new record id.
func (c *RESTClient) CreateOpportunity(ctx context.Context, payload *OpportunityPayload) (string, error) {
	var created CreateResponse

	err := c.do(ctx, http.MethodPost, c.basePath+"/sobjects/Opportunity", payload, http.StatusCreated, &created)
	if err != nil {
		return "", err
	}

	if created.ID == "" {
		return "", ErrNoIDReceived
	}

	return created.ID, nil
}

// UpdateAccountStatus patches the jurisdiction's account with the run
// outcome. The store answers 204 with no body on success.
func (c *RESTClient) UpdateAccountStatus(ctx context.Context, accountID string, status models.RunStatus, message string) error {
	payload := NewAccountStatusPayload(status, message, time.Now())
	path := c.basePath + "/sobjects/Account/" + url.PathEscape(accountID)

	return c.do(ctx, http.MethodPatch, path, payload, http.StatusNoContent, nil)
}

// CountOpportunities returns the number of opportunities on the account.
func (c *RESTClient) CountOpportunities(ctx context.Context, accountID string) (int, error) {
	soql := fmt.Sprintf(
		"SELECT COUNT() FROM Opportunity WHERE AccountId = '%s'",
		escapeSOQL(accountID),
	)

	page, err := c.query(ctx, soql)
	if err != nil {
		return 0, err
	}

	return page.TotalSize, nil
}

// RecentOpportunities returns the most recently created records for the
// account, newest first.
func (c *RESTClient) RecentOpportunities(ctx context.Context, accountID string, limit int) ([]OpportunityRecord, error) {
	soql := fmt.Sprintf(
		"SELECT Name, Solicitation_Number__c, CloseDate, Data_Source__c, CreatedDate FROM Opportunity WHERE AccountId = '%s' ORDER BY CreatedDate DESC LIMIT %d",
		escapeSOQL(accountID), limit,
	)

	page, err := c.query(ctx, soql)
	if err != nil {
		return nil, err
	}

	return page.Records, nil
}

// query runs a SOQL statement and returns the first result page.
func (c *RESTClient) query(ctx context.Context, soql string) (*QueryResponse, error) {
	path := c.basePath + "/query?q=" + url.QueryEscape(soql)

	return c.queryPage(ctx, path)
}

// queryPage fetches one result page by store-relative path, which is also
// the shape of nextRecordsUrl values.
func (c *RESTClient) queryPage(ctx context.Context, path string) (*QueryResponse, error) {
	var page QueryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// do sends one authenticated request and decodes the response into out when
// out is non-nil. Any status other than wantStatus is an error carrying the
// store's message.
func (c *RESTClient) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.instanceURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("token unavailable: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Limit response size to 10MB
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("%w: %s %s returned %d: %s",
			ErrUnexpectedStatusCode, method, path, resp.StatusCode, apiErrorMessage(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// apiErrorMessage extracts the first store error message from an error
// body, falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var apiErrs []APIError
	if err := json.Unmarshal(body, &apiErrs); err == nil && len(apiErrs) > 0 {
		return apiErrs[0].ErrorCode + ": " + apiErrs[0].Message
	}

	return string(body)
}

// escapeSOQL escapes single quotes and backslashes in a SOQL string literal.
func escapeSOQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)

	return strings.ReplaceAll(s, `'`, `\'`)
}
