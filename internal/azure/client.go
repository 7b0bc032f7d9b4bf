package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aryankumar/costfleet/internal/util"
)

const (
	// DefaultEndpoint is the public Azure Resource Manager endpoint
	DefaultEndpoint = "https://management.azure.com"

	computeAPIVersion      = "2024-03-01"
	diskAPIVersion         = "2024-03-02"
	networkAPIVersion      = "2024-01-01"
	subscriptionAPIVersion = "2022-12-01"
	costAPIVersion         = "2023-03-01"
)

// API is the surface the audits need from Azure. Implementations must
// classify failures with util.Transient and util.Permanent so the engine can
// decide whether to retry.
type API interface {
	// ListSubscriptions enumerates subscriptions visible to the credential
	ListSubscriptions(ctx context.Context) ([]Subscription, error)

	// ListVMs returns every VM in the subscription with its power state
	ListVMs(ctx context.Context, subscriptionID string) ([]VM, error)

	// ListDisks returns every managed disk in the subscription
	ListDisks(ctx context.Context, subscriptionID string) ([]Disk, error)

	// ListPublicIPs returns every public IP address in the subscription
	ListPublicIPs(ctx context.Context, subscriptionID string) ([]PublicIP, error)

	// CostSummary returns actual spend over [from, to), grouped by service
	CostSummary(ctx context.Context, subscriptionID string, from, to time.Time) (*CostSummary, error)
}

// TokenSource supplies bearer tokens for ARM requests. Implementations
// handle caching and refresh; the client asks for a token per request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource wrapping a fixed token, for tests and for
// tokens minted externally (az account get-access-token).
type StaticToken string

// Token returns the wrapped token
func (s StaticToken) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", util.Permanent(util.WrapErrorf(util.ErrAuthFailed, "no access token configured"))
	}
	return string(s), nil
}

// Client talks to the Azure Resource Manager REST API. It handles paging,
// bearer auth, and the mapping from HTTP status to the retry taxonomy; it
// does no retrying or caching of its own.
type Client struct {
	endpoint string
	tokens   TokenSource
	httpc    *http.Client
	logger   *slog.Logger
}

// NewClient creates an ARM client. A nil httpc gets a client with a 30s
// request timeout.
func NewClient(endpoint string, tokens TokenSource, httpc *http.Client, logger *slog.Logger) (*Client, error) {
	if tokens == nil {
		return nil, util.NewPreconditionError("tokens", nil, "token source must not be nil")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		tokens:   tokens,
		httpc:    httpc,
		logger:   logger,
	}, nil
}

// armList is the common ARM collection envelope
type armList struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"nextLink"`
}

type armError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ListSubscriptions enumerates subscriptions visible to the credential
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	err := c.page(ctx, "/subscriptions", subscriptionAPIVersion, nil, func(raw json.RawMessage) error {
		var item struct {
			SubscriptionID string `json:"subscriptionId"`
			DisplayName    string `json:"displayName"`
			State          string `json:"state"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		subs = append(subs, Subscription{
			ID:    item.SubscriptionID,
			Name:  item.DisplayName,
			State: item.State,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// ListVMs returns every VM in the subscription. statusOnly folds the instance
// view into the list response so power states arrive without a request per VM.
func (c *Client) ListVMs(ctx context.Context, subscriptionID string) ([]VM, error) {
	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Compute/virtualMachines", url.PathEscape(subscriptionID))

	var vms []VM
	err := c.page(ctx, path, computeAPIVersion, url.Values{"statusOnly": {"true"}}, func(raw json.RawMessage) error {
		var item struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			Location   string `json:"location"`
			Properties struct {
				HardwareProfile struct {
					VMSize string `json:"vmSize"`
				} `json:"hardwareProfile"`
				StorageProfile struct {
					OSDisk struct {
						OSType string `json:"osType"`
					} `json:"osDisk"`
				} `json:"storageProfile"`
				InstanceView struct {
					Statuses []struct {
						Code string `json:"code"`
					} `json:"statuses"`
				} `json:"instanceView"`
			} `json:"properties"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}

		vm := VM{
			ID:            item.ID,
			Name:          item.Name,
			ResourceGroup: util.ResourceGroupFromID(item.ID),
			Location:      item.Location,
			Size:          item.Properties.HardwareProfile.VMSize,
			OSType:        item.Properties.StorageProfile.OSDisk.OSType,
		}
		for _, s := range item.Properties.InstanceView.Statuses {
			if state, ok := strings.CutPrefix(s.Code, "PowerState/"); ok {
				vm.PowerState = state
			}
		}
		vms = append(vms, vm)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vms, nil
}

// ListDisks returns every managed disk in the subscription
func (c *Client) ListDisks(ctx context.Context, subscriptionID string) ([]Disk, error) {
	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Compute/disks", url.PathEscape(subscriptionID))

	var disks []Disk
	err := c.page(ctx, path, diskAPIVersion, nil, func(raw json.RawMessage) error {
		var item struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Location  string `json:"location"`
			ManagedBy string `json:"managedBy"`
			SKU       struct {
				Name string `json:"name"`
			} `json:"sku"`
			Properties struct {
				DiskSizeGB int    `json:"diskSizeGB"`
				DiskState  string `json:"diskState"`
			} `json:"properties"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		disks = append(disks, Disk{
			ID:            item.ID,
			Name:          item.Name,
			ResourceGroup: util.ResourceGroupFromID(item.ID),
			Location:      item.Location,
			SizeGB:        item.Properties.DiskSizeGB,
			SKU:           item.SKU.Name,
			State:         item.Properties.DiskState,
			ManagedBy:     item.ManagedBy,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return disks, nil
}

// ListPublicIPs returns every public IP address in the subscription
func (c *Client) ListPublicIPs(ctx context.Context, subscriptionID string) ([]PublicIP, error) {
	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Network/publicIPAddresses", url.PathEscape(subscriptionID))

	var ips []PublicIP
	err := c.page(ctx, path, networkAPIVersion, nil, func(raw json.RawMessage) error {
		var item struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			Location   string `json:"location"`
			Properties struct {
				IPAddress                string `json:"ipAddress"`
				PublicIPAllocationMethod string `json:"publicIPAllocationMethod"`
				IPConfiguration          struct {
					ID string `json:"id"`
				} `json:"ipConfiguration"`
			} `json:"properties"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		ips = append(ips, PublicIP{
			ID:               item.ID,
			Name:             item.Name,
			ResourceGroup:    util.ResourceGroupFromID(item.ID),
			Location:         item.Location,
			Address:          item.Properties.IPAddress,
			AllocationMethod: item.Properties.PublicIPAllocationMethod,
			AttachedTo:       item.Properties.IPConfiguration.ID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ips, nil
}

// CostSummary queries Cost Management for actual spend over [from, to),
// aggregated by service name.
func (c *Client) CostSummary(ctx context.Context, subscriptionID string, from, to time.Time) (*CostSummary, error) {
	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.CostManagement/query", url.PathEscape(subscriptionID))

	query := map[string]interface{}{
		"type":      "Usage",
		"timeframe": "Custom",
		"timePeriod": map[string]string{
			"from": from.Format(time.RFC3339),
			"to":   to.Format(time.RFC3339),
		},
		"dataset": map[string]interface{}{
			"granularity": "None",
			"aggregation": map[string]interface{}{
				"totalCost": map[string]string{"name": "Cost", "function": "Sum"},
			},
			"grouping": []map[string]string{
				{"type": "Dimension", "name": "ServiceName"},
			},
		},
	}

	body, err := c.do(ctx, http.MethodPost, c.buildURL(path, costAPIVersion, nil), query)
	if err != nil {
		return nil, err
	}

	var result struct {
		Properties struct {
			Columns []struct {
				Name string `json:"name"`
			} `json:"columns"`
			Rows [][]interface{} `json:"rows"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, util.Permanent(util.WrapErrorf(err, "decoding cost query response"))
	}

	costIdx, serviceIdx, currencyIdx := -1, -1, -1
	for i, col := range result.Properties.Columns {
		switch col.Name {
		case "Cost":
			costIdx = i
		case "ServiceName":
			serviceIdx = i
		case "Currency":
			currencyIdx = i
		}
	}
	if costIdx < 0 {
		return nil, util.Permanent(fmt.Errorf("cost query response has no Cost column"))
	}

	summary := &CostSummary{
		SubscriptionID: subscriptionID,
		From:           from,
		To:             to,
		ByService:      make(map[string]float64),
	}
	for _, row := range result.Properties.Rows {
		if costIdx >= len(row) {
			continue
		}
		cost, _ := row[costIdx].(float64)
		summary.TotalSpend += cost

		if serviceIdx >= 0 && serviceIdx < len(row) {
			if service, ok := row[serviceIdx].(string); ok {
				summary.ByService[service] += cost
			}
		}
		if currencyIdx >= 0 && currencyIdx < len(row) {
			if cur, ok := row[currencyIdx].(string); ok {
				summary.Currency = cur
			}
		}
	}

	return summary, nil
}

// page walks an ARM collection across nextLink pages, handing each element to
// fn.
func (c *Client) page(ctx context.Context, path, apiVersion string, query url.Values, fn func(json.RawMessage) error) error {
	next := c.buildURL(path, apiVersion, query)
	for pageNum := 0; next != ""; pageNum++ {
		list, err := c.getList(ctx, next)
		if err != nil {
			return err
		}
		for _, raw := range list.Value {
			if err := fn(raw); err != nil {
				return util.Permanent(util.WrapErrorf(err, "decoding %s response", path))
			}
		}
		next = list.NextLink
		if pageNum > 500 {
			return util.Permanent(fmt.Errorf("nextLink chain for %s did not terminate", path))
		}
	}
	return nil
}

func (c *Client) buildURL(path, apiVersion string, query url.Values) string {
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("api-version", apiVersion)
	return c.endpoint + path + "?" + q.Encode()
}

func (c *Client) getList(ctx context.Context, rawURL string) (*armList, error) {
	body, err := c.do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	var list armList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, util.Permanent(util.WrapErrorf(err, "decoding ARM list"))
	}
	return &list, nil
}

// do performs one authenticated ARM request and returns the response body.
// A non-nil payload is sent as JSON.
func (c *Client) do(ctx context.Context, method, rawURL string, payload interface{}) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, util.Permanent(err)
		}
		reqBody = strings.NewReader(string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, util.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		// Network errors (DNS, reset, transport timeout) are worth a retry.
		return nil, util.Transient(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, util.Transient(err)
	}

	c.logger.Debug("arm request",
		"method", method,
		"url", rawURL,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, body)
	}

	return body, nil
}

// statusError maps an ARM error response onto the retry taxonomy. Throttling
// and server faults are transient; auth and client errors are permanent.
func (c *Client) statusError(resp *http.Response, body []byte) error {
	var ae armError
	detail := http.StatusText(resp.StatusCode)
	if json.Unmarshal(body, &ae) == nil && ae.Error.Message != "" {
		detail = ae.Error.Code + ": " + ae.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return util.Transient(util.WrapErrorf(util.ErrThrottled, "%s", detail))
	case resp.StatusCode >= 500:
		return util.Transient(fmt.Errorf("ARM %d: %s", resp.StatusCode, detail))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return util.Permanent(util.WrapErrorf(util.ErrAuthFailed, "ARM %d: %s", resp.StatusCode, detail))
	case resp.StatusCode == http.StatusNotFound:
		return util.Permanent(util.WrapErrorf(util.ErrNotFound, "%s", detail))
	default:
		return util.Permanent(fmt.Errorf("ARM %d: %s", resp.StatusCode, detail))
	}
}
