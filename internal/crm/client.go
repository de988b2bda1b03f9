// Package crm talks to the CRM's companies API: exact-match search by the
// place-id property, create, and property updates. Identity matching uses
// the place id only; display names are never matched on.
package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"reviewmonitor/internal/gateway"
	"reviewmonitor/internal/metrics"
)

var (
	// ErrSearchFailed means the lookup itself errored. Callers must not treat
	// it as "not found": creating a company after a failed search is how
	// duplicates happen.
	ErrSearchFailed = errors.New("company search failed")
	ErrCreateFailed = errors.New("company create failed")
	ErrUpdateFailed = errors.New("company update failed")
)

// Location carries the optional company address fields. Empty fields are
// omitted from the create payload.
type Location struct {
	City    string
	State   string
	Country string
}

type Client struct {
	gw          *gateway.Client
	baseURL     string
	token       string
	placeIDProp string
}

func New(gw *gateway.Client, baseURL, accessToken, placeIDProp string) *Client {
	return &Client{
		gw:          gw,
		baseURL:     baseURL,
		token:       accessToken,
		placeIDProp: placeIDProp,
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.token,
	}
}

type searchFilter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchFilterGroup struct {
	Filters []searchFilter `json:"filters"`
}

type searchRequest struct {
	FilterGroups []searchFilterGroup `json:"filterGroups"`
	Properties   []string            `json:"properties"`
	Limit        int                 `json:"limit"`
}

type searchResponse struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

// FindCompanyIDByPlaceID searches for exactly one company whose place-id
// property equals placeID. The three outcomes are distinct: (id, true, nil)
// found, ("", false, nil) confirmed not found, ("", false, ErrSearchFailed)
// lookup failed.
func (c *Client) FindCompanyIDByPlaceID(ctx context.Context, placeID string) (string, bool, error) {
	payload := searchRequest{
		FilterGroups: []searchFilterGroup{{
			Filters: []searchFilter{{
				PropertyName: c.placeIDProp,
				Operator:     "EQ",
				Value:        placeID,
			}},
		}},
		Properties: []string{"name", c.placeIDProp},
		Limit:      1,
	}

	res := c.gw.Do(ctx, "POST", c.baseURL+"/crm/v3/objects/companies/search", payload, c.headers())
	if !res.OK {
		metrics.CRMCallsTotal.WithLabelValues("search", "error").Inc()
		return "", false, fmt.Errorf("%w: status %d", ErrSearchFailed, res.Status)
	}
	metrics.CRMCallsTotal.WithLabelValues("search", "ok").Inc()

	var body searchResponse
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return "", false, fmt.Errorf("%w: bad response: %v", ErrSearchFailed, err)
	}
	if len(body.Results) == 0 || body.Results[0].ID == "" {
		return "", false, nil
	}
	return body.Results[0].ID, true, nil
}

type createResponse struct {
	ID string `json:"id"`
}

// CreateCompany creates a company with the given property map and returns
// the new company id.
func (c *Client) CreateCompany(ctx context.Context, properties map[string]any) (string, error) {
	payload := map[string]any{"properties": properties}

	res := c.gw.Do(ctx, "POST", c.baseURL+"/crm/v3/objects/companies", payload, c.headers())
	if !res.OK {
		metrics.CRMCallsTotal.WithLabelValues("create", "error").Inc()
		return "", fmt.Errorf("%w: status %d", ErrCreateFailed, res.Status)
	}
	metrics.CRMCallsTotal.WithLabelValues("create", "ok").Inc()

	var body createResponse
	if err := json.Unmarshal(res.Body, &body); err != nil || body.ID == "" {
		return "", fmt.Errorf("%w: no id in response", ErrCreateFailed)
	}
	return body.ID, nil
}

// UpdateCompany patches company properties. Used by the pipeline to trigger
// downstream CRM workflows.
func (c *Client) UpdateCompany(ctx context.Context, companyID string, properties map[string]any) error {
	payload := map[string]any{"properties": properties}

	res := c.gw.Do(ctx, "PATCH", c.baseURL+"/crm/v3/objects/companies/"+url.PathEscape(companyID), payload, c.headers())
	if !res.OK {
		metrics.CRMCallsTotal.WithLabelValues("update", "error").Inc()
		return fmt.Errorf("%w: status %d", ErrUpdateFailed, res.Status)
	}
	metrics.CRMCallsTotal.WithLabelValues("update", "ok").Inc()
	return nil
}

// ResolveOrCreate maps a place id to a company id, creating the company when
// a successful search confirms it does not exist. A failed search never
// falls through to create.
func (c *Client) ResolveOrCreate(ctx context.Context, placeID, name string, loc Location) (string, error) {
	id, found, err := c.FindCompanyIDByPlaceID(ctx, placeID)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}

	props := map[string]any{
		"name":        name,
		c.placeIDProp: placeID,
	}
	if loc.City != "" {
		props["city"] = loc.City
	}
	if loc.State != "" {
		props["state"] = loc.State
	}
	if loc.Country != "" {
		props["country"] = loc.Country
	}

	return c.CreateCompany(ctx, props)
}
