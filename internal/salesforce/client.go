// Package salesforce implements the REST client for the CRM the import
// flow reads cases, contracts and attachments from. The external field
// names are a fixed contract with the CRM and must not be renamed.
package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aethra/upfronts/internal/config"
)

// APIVersion pins the Salesforce REST API version.
const APIVersion = "v48.0"

// ActivatedDateFormat is the timestamp layout Salesforce uses for
// Contract.ActivatedDate.
const ActivatedDateFormat = "2006-01-02T15:04:05.000-0700"

// ErrNotFound is returned when the CRM has no record for the given id.
var ErrNotFound = errors.New("salesforce: record not found")

// Case is the subset of the CRM Case object the importer reads.
type Case struct {
	ID          string `json:"Id"`
	CaseNumber  string `json:"CaseNumber"`
	ContractID  string `json:"Contract__c"`
	Description string `json:"Description"`
}

// Contract is the subset of the CRM Contract object the importer reads.
type Contract struct {
	ID             string `json:"Id"`
	AccountName    string `json:"Hoopla_Account_Name__c"`
	OrganizerEmail string `json:"Eventbrite_Username__c"`
	ActivatedDate  string `json:"ActivatedDate"`
}

// SignedDate parses the contract activation timestamp into a calendar day.
func (c Contract) SignedDate() (time.Time, error) {
	t, err := time.Parse(ActivatedDateFormat, c.ActivatedDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable ActivatedDate %q: %w", c.ActivatedDate, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Attachment is the CRM attachment metadata cached locally per contract.
type Attachment struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	ContentType string `json:"ContentType"`
}

// CasePreview is the lightweight DTO returned by the read-only case
// search, before anything is persisted.
type CasePreview struct {
	CaseID         string `json:"caseId"`
	CaseNumber     string `json:"caseNumber"`
	ContractID     string `json:"contractId"`
	Description    string `json:"description"`
	OrganizerName  string `json:"organizerName"`
	OrganizerEmail string `json:"organizerEmail"`
	SignedDate     string `json:"signedDate"`
	LinkToCase     string `json:"linkToCase"`
}

// API is the surface the handlers depend on; tests substitute a fake.
type API interface {
	FetchCasesByNumbers(ctx context.Context, caseNumbers []string) ([]CasePreview, error)
	FetchCasesByDateRange(ctx context.Context, from, to time.Time) ([]CasePreview, error)
	GetCase(ctx context.Context, caseID string) (*Case, error)
	GetContract(ctx context.Context, contractID string) (*Contract, error)
	ListAttachments(ctx context.Context, contractID string) ([]Attachment, error)
	DownloadAttachment(ctx context.Context, attachmentID string) (io.ReadCloser, string, error)
	CaseLink(caseID string) string
}

// Client talks to the Salesforce REST API. Calls fail fast: there is no
// retry layer, a transport or auth error surfaces immediately.
type Client struct {
	cfg  config.Salesforce
	http *http.Client

	token       string
	instanceURL string
}

var _ API = (*Client)(nil)

// NewClient creates a Salesforce client from configuration.
func NewClient(cfg config.Salesforce) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// ensureSession performs the OAuth username-password flow once and caches
// the access token and instance URL for subsequent calls.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.token != "" {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password+c.cfg.SecurityToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL()+"/services/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("salesforce login failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("salesforce login failed: status %d: %s", resp.StatusCode, body)
	}

	var session struct {
		AccessToken string `json:"access_token"`
		InstanceURL string `json:"instance_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return fmt.Errorf("salesforce login failed: %w", err)
	}

	c.token = session.AccessToken
	c.instanceURL = session.InstanceURL
	return nil
}

func (c *Client) loginURL() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	return fmt.Sprintf("https://%s.salesforce.com", c.cfg.Domain)
}

// get issues an authenticated GET against the instance and decodes JSON
// into out. A 404 maps to ErrNotFound.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	u := c.instanceURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("salesforce request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("salesforce request failed: status %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// query runs a SOQL query and decodes its records.
func (c *Client) query(ctx context.Context, soql string, records interface{}) error {
	q := url.Values{}
	q.Set("q", soql)
	var envelope struct {
		Records json.RawMessage `json:"records"`
	}
	if err := c.get(ctx, "/services/data/"+APIVersion+"/query", q, &envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Records, records)
}

// GetCase fetches a single CRM case by id.
func (c *Client) GetCase(ctx context.Context, caseID string) (*Case, error) {
	var out Case
	if err := c.get(ctx, c.sobjectPath("Case", caseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetContract fetches a single CRM contract by id.
func (c *Client) GetContract(ctx context.Context, contractID string) (*Contract, error) {
	var out Contract
	if err := c.get(ctx, c.sobjectPath("Contract", contractID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAttachments returns attachment metadata linked to a CRM contract.
func (c *Client) ListAttachments(ctx context.Context, contractID string) ([]Attachment, error) {
	soql := fmt.Sprintf(
		"SELECT Id, Name, ContentType FROM Attachment WHERE ParentId = %s",
		soqlString(contractID))
	var attachments []Attachment
	if err := c.query(ctx, soql, &attachments); err != nil {
		return nil, err
	}
	return attachments, nil
}

// DownloadAttachment streams the attachment binary. The caller owns the
// returned reader.
func (c *Client) DownloadAttachment(ctx context.Context, attachmentID string) (io.ReadCloser, string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, "", err
	}

	u := c.instanceURL + c.sobjectPath("Attachment", attachmentID) + "/Body"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("salesforce request failed: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("salesforce request failed: status %d", resp.StatusCode)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// FetchCasesByNumbers looks up cases by case number and joins each to its
// linked contract. The join is keyed on the Contract__c reference field,
// not on record order, so a reordered CRM response cannot mispair them.
func (c *Client) FetchCasesByNumbers(ctx context.Context, caseNumbers []string) ([]CasePreview, error) {
	if len(caseNumbers) == 0 {
		return nil, nil
	}
	soql := fmt.Sprintf(
		"SELECT Id, Contract__c, Description, CaseNumber FROM Case WHERE CaseNumber IN (%s)",
		soqlStringList(caseNumbers))
	return c.fetchCases(ctx, soql)
}

// FetchCasesByDateRange looks up cases whose contract was activated inside
// the given range.
func (c *Client) FetchCasesByDateRange(ctx context.Context, from, to time.Time) ([]CasePreview, error) {
	soql := fmt.Sprintf(
		"SELECT Id, Contract__c, Description, CaseNumber FROM Case WHERE CreatedDate >= %s AND CreatedDate <= %s",
		from.UTC().Format("2006-01-02T15:04:05Z"), to.UTC().Format("2006-01-02T15:04:05Z"))
	return c.fetchCases(ctx, soql)
}

func (c *Client) fetchCases(ctx context.Context, soql string) ([]CasePreview, error) {
	var cases []Case
	if err := c.query(ctx, soql, &cases); err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, nil
	}

	contractIDs := make([]string, 0, len(cases))
	for _, cs := range cases {
		if cs.ContractID != "" {
			contractIDs = append(contractIDs, cs.ContractID)
		}
	}

	contractsByID := map[string]Contract{}
	if len(contractIDs) > 0 {
		soql := fmt.Sprintf(
			"SELECT Id, Eventbrite_Username__c, Hoopla_Account_Name__c, ActivatedDate FROM Contract WHERE Id IN (%s)",
			soqlStringList(contractIDs))
		var contracts []Contract
		if err := c.query(ctx, soql, &contracts); err != nil {
			return nil, err
		}
		for _, contract := range contracts {
			contractsByID[contract.ID] = contract
		}
	}

	previews := make([]CasePreview, 0, len(cases))
	for _, cs := range cases {
		preview := CasePreview{
			CaseID:      cs.ID,
			CaseNumber:  cs.CaseNumber,
			ContractID:  cs.ContractID,
			Description: cs.Description,
			LinkToCase:  c.CaseLink(cs.ID),
		}
		if contract, ok := contractsByID[cs.ContractID]; ok {
			preview.OrganizerName = contract.AccountName
			preview.OrganizerEmail = contract.OrganizerEmail
			if signed, err := contract.SignedDate(); err == nil {
				preview.SignedDate = signed.Format("2006-01-02")
			}
		}
		previews = append(previews, preview)
	}
	return previews, nil
}

// CaseLink builds the deep link to a case on the CRM instance.
func (c *Client) CaseLink(caseID string) string {
	base := c.instanceURL
	if base == "" {
		base = c.loginURL()
	}
	return base + "/" + caseID
}

func (c *Client) sobjectPath(objectType, id string) string {
	return "/services/data/" + APIVersion + "/sobjects/" + objectType + "/" + url.PathEscape(id)
}

// soqlString quotes a SOQL string literal.
func soqlString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func soqlStringList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = soqlString(strings.TrimSpace(v))
	}
	return strings.Join(quoted, ",")
}
