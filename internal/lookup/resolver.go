// Package lookup resolves the base URL of a catalog API through the lookup
// service, caching results without expiry.
package lookup

import (
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/example/dataservice-read/internal/cacheclient"
	"github.com/example/dataservice-read/internal/cancellation"
	"github.com/example/dataservice-read/internal/client"
	"github.com/example/dataservice-read/internal/domain"
)

const stage = "lookup"

// Resolver is safe for concurrent use; it keeps no per-call state.
type Resolver struct {
	settings client.Settings
	cache    *cacheclient.Client
}

// NewResolver returns a Resolver using settings.Transport for the network and
// cache for lookup entries.
func NewResolver(settings client.Settings, cache *cacheclient.Client) *Resolver {
	return &Resolver{settings: settings.WithDefaults(), cache: cache}
}

// URL is the lookup request URL for one catalog API.
func URL(lookupBase, catalog, service, serviceVersion string) string {
	return lookupBase + "/resources/" + url.PathEscape(catalog) +
		"/apis/" + url.PathEscape(service) + "/" + url.PathEscape(serviceVersion)
}

// Resolve returns the endpoint of service/serviceVersion for catalog. Unless
// option is OnlineOnly the cache is consulted first and a hit never touches
// the network. CacheOnly misses fail with NotFound.
func (r *Resolver) Resolve(cc *cancellation.Context, catalog, service, serviceVersion string, option domain.FetchOption) (domain.ServiceEndpoint, error) {
	ctx := cc.Parent()
	logger := slogcontext.FromCtx(ctx).With("catalog", catalog, "api", service, "api_version", serviceVersion)

	if option != domain.OnlineOnly {
		if e, ok := r.cache.GetEndpoint(ctx, catalog, service, serviceVersion); ok {
			logger.Debug("lookup served from cache", "base_url", e.BaseURL)
			return e, nil
		}
		if option == domain.CacheOnly {
			return domain.ServiceEndpoint{}, domain.NewError(domain.ErrorKindNotFound, "api %s/%s of %s not cached", service, serviceVersion, catalog)
		}
	}

	start := time.Now()
	e, err := r.fetch(cc, catalog, service, serviceVersion)
	r.settings.Metrics.RecordRequest(stage, result(err), time.Since(start).Seconds())
	if err != nil {
		logger.Debug("lookup failed", "error", err)
		return domain.ServiceEndpoint{}, err
	}

	r.cache.PutEndpoint(ctx, catalog, service, serviceVersion, e)
	return e, nil
}

func (r *Resolver) fetch(cc *cancellation.Context, catalog, service, serviceVersion string) (domain.ServiceEndpoint, error) {
	req := domain.NetworkRequest{
		Method: http.MethodGet,
		URL:    URL(r.settings.LookupURL, catalog, service, serviceVersion),
		Header: http.Header{"Accept": []string{"application/json"}},
	}
	resp, err := client.Call(cc, r.settings.Transport, req, r.settings.RequestTimeout)
	if err != nil {
		return domain.ServiceEndpoint{}, err
	}
	if err := client.Classify(resp.Status, nil, false, resp.Body); err != nil {
		return domain.ServiceEndpoint{}, err
	}
	return selectEndpoint(resp.Body, service, serviceVersion)
}

// selectEndpoint picks the entry matching service and version from a lookup
// response of the form [{"api":..,"version":..,"baseURL":..,"parameters":{}}].
func selectEndpoint(body []byte, service, serviceVersion string) (domain.ServiceEndpoint, error) {
	if !gjson.ValidBytes(body) {
		return domain.ServiceEndpoint{}, domain.NewError(domain.ErrorKindServiceError, "lookup response is not valid JSON")
	}
	list := gjson.ParseBytes(body)
	if !list.IsArray() {
		return domain.ServiceEndpoint{}, domain.NewError(domain.ErrorKindServiceError, "lookup response is not a list")
	}

	var found *domain.ServiceEndpoint
	list.ForEach(func(_, entry gjson.Result) bool {
		if entry.Get("api").String() != service || entry.Get("version").String() != serviceVersion {
			return true
		}
		baseURL := entry.Get("baseURL").String()
		if baseURL == "" {
			return true
		}
		found = &domain.ServiceEndpoint{API: service, Version: serviceVersion, BaseURL: baseURL}
		return false
	})
	if found == nil {
		return domain.ServiceEndpoint{}, domain.NewError(domain.ErrorKindNotFound, "api %s/%s missing from lookup response", service, serviceVersion)
	}
	return *found, nil
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return domain.KindOf(err).String()
}
