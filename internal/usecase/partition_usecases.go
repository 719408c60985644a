package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/example/dataservice-read/internal/cacheclient"
	"github.com/example/dataservice-read/internal/cancellation"
	"github.com/example/dataservice-read/internal/client"
	"github.com/example/dataservice-read/internal/domain"
	"github.com/example/dataservice-read/internal/lookup"
)

const (
	// MetadataAPI and MetadataAPIVersion name the API serving partition metadata.
	MetadataAPI        = "metadata"
	MetadataAPIVersion = "v1"

	partitionStage      = "partition"
	invalidationTimeout = 2 * time.Second
)

// GetPartitionByID resolves the metadata of one partition of a layer, from
// the cache and, when the fetch option allows it, from the metadata service.
// It holds no per-call state and may be used concurrently.
type GetPartitionByID struct {
	Settings client.Settings
	Cache    *cacheclient.Client
	Lookup   *lookup.Resolver
}

// NewGetPartitionByID wires the use case from settings.
func NewGetPartitionByID(settings client.Settings) (GetPartitionByID, error) {
	if err := settings.Validate(); err != nil {
		return GetPartitionByID{}, err
	}
	settings = settings.WithDefaults()
	cache := cacheclient.New(settings.Cache, settings.DefaultExpiry, settings.Metrics)
	return GetPartitionByID{
		Settings: settings,
		Cache:    cache,
		Lookup:   lookup.NewResolver(settings, cache),
	}, nil
}

// Execute returns a one-element result or a *domain.Error. cc belongs to this
// call only.
func (uc GetPartitionByID) Execute(cc *cancellation.Context, catalog, layer string, req domain.PartitionRequest) (domain.PartitionsResult, error) {
	r := &partitionRun{
		uc:      uc,
		cc:      cc,
		ctx:     cc.Parent(),
		catalog: catalog,
		layer:   layer,
		req:     req,
	}
	r.logger = slogcontext.FromCtx(r.ctx).With("catalog", catalog, "layer", layer, "fetch_option", req.FetchOption.String())

	for s := stateValidating; s != stateDone; {
		s = r.step(s)
	}
	return r.result, r.err
}

type pipelineState int

const (
	stateValidating pipelineState = iota
	stateCacheLookup
	stateResolvingService
	stateFetching
	stateDone
)

// partitionRun is the state of one Execute call. Every terminal transition
// goes through finish, so the result is set exactly once.
type partitionRun struct {
	uc      GetPartitionByID
	cc      *cancellation.Context
	ctx     context.Context
	logger  *slog.Logger
	catalog string
	layer   string
	req     domain.PartitionRequest

	partitionID string
	version     int64
	endpoint    domain.ServiceEndpoint

	result domain.PartitionsResult
	err    error
}

func (r *partitionRun) step(s pipelineState) pipelineState {
	switch s {
	case stateValidating:
		return r.validate()
	case stateCacheLookup:
		return r.lookupCache()
	case stateResolvingService:
		return r.resolveService()
	case stateFetching:
		return r.fetch()
	default:
		return stateDone
	}
}

func (r *partitionRun) finish(p *domain.Partition, err error) pipelineState {
	if err != nil {
		r.logger.Debug("partition request failed", "partition", r.partitionID, "error", err)
		r.err = err
		return stateDone
	}
	r.result = domain.PartitionsResult{Partitions: []domain.Partition{*p}}
	return stateDone
}

func (r *partitionRun) validate() pipelineState {
	if r.req.PartitionID == nil {
		return r.finish(nil, domain.NewError(domain.ErrorKindPreconditionFailed, "partition id is required"))
	}
	if r.req.Version == nil {
		return r.finish(nil, domain.NewError(domain.ErrorKindPreconditionFailed, "version is required"))
	}
	r.partitionID, r.version = *r.req.PartitionID, *r.req.Version
	if r.catalog == "" {
		return r.finish(nil, domain.NewError(domain.ErrorKindPreconditionFailed, "catalog is required"))
	}
	for _, c := range []string{r.layer, r.partitionID} {
		if !domain.ValidKeyComponent(c) {
			return r.finish(nil, domain.NewError(domain.ErrorKindPreconditionFailed, "invalid identifier %q", c))
		}
	}
	if r.cc.IsCancelled() {
		return r.finish(nil, domain.NewError(domain.ErrorKindCancelled, "cancelled before start"))
	}
	if r.req.FetchOption == domain.OnlineOnly {
		return stateResolvingService
	}
	return stateCacheLookup
}

func (r *partitionRun) lookupCache() pipelineState {
	p, ok := r.uc.Cache.GetPartition(r.ctx, r.catalog, r.layer, r.partitionID, r.version)
	if ok {
		r.logger.Debug("partition served from cache", "partition", r.partitionID)
		return r.finish(&p, nil)
	}
	if r.req.FetchOption == domain.CacheOnly {
		return r.finish(nil, domain.NewError(domain.ErrorKindNotFound, "partition %s version %d not cached", r.partitionID, r.version))
	}
	return stateResolvingService
}

func (r *partitionRun) resolveService() pipelineState {
	e, err := r.uc.Lookup.Resolve(r.cc, r.catalog, MetadataAPI, MetadataAPIVersion, r.req.FetchOption)
	if err != nil {
		return r.finish(nil, err)
	}
	r.endpoint = e
	return stateFetching
}

func (r *partitionRun) fetch() pipelineState {
	start := time.Now()
	p, err := r.fetchPartition()
	r.uc.Settings.Metrics.RecordRequest(partitionStage, resultLabel(err), time.Since(start).Seconds())
	if err != nil {
		return r.finish(nil, err)
	}
	r.uc.Cache.PutPartition(r.ctx, r.catalog, r.layer, r.version, p)
	return r.finish(&p, nil)
}

func (r *partitionRun) fetchPartition() (domain.Partition, error) {
	req := domain.NetworkRequest{
		Method: http.MethodGet,
		URL:    PartitionURL(r.endpoint.BaseURL, r.layer, r.partitionID, r.version),
		Header: http.Header{"Accept": []string{"application/json"}},
	}
	resp, err := client.Call(r.cc, r.uc.Settings.Transport, req, r.uc.Settings.RequestTimeout)
	if err != nil {
		return domain.Partition{}, err
	}
	if err := client.Classify(resp.Status, nil, false, resp.Body); err != nil {
		if resp.Status == http.StatusForbidden {
			r.invalidate()
		}
		return domain.Partition{}, err
	}

	var body domain.PartitionsResult
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return domain.Partition{}, &domain.Error{Kind: domain.ErrorKindServiceError, Status: resp.Status, Message: "undecodable partitions response: " + err.Error()}
	}
	if len(body.Partitions) == 0 {
		return domain.Partition{}, domain.NewError(domain.ErrorKindNotFound, "partition %s version %d not found", r.partitionID, r.version)
	}
	p := body.Partitions[0]
	for _, candidate := range body.Partitions {
		if candidate.Partition == r.partitionID {
			p = candidate
			break
		}
	}
	if !p.Complete() {
		return domain.Partition{}, &domain.Error{Kind: domain.ErrorKindServiceError, Status: resp.Status, Message: "incomplete partition in response"}
	}
	return p, nil
}

// invalidate removes the requested partition from the cache after a 403 and
// announces the removal to other cache holders.
func (r *partitionRun) invalidate() {
	key := r.uc.Cache.RemovePartition(r.ctx, r.catalog, r.layer, r.partitionID, r.version)
	r.uc.Settings.Metrics.RecordInvalidation("access_denied")

	if r.uc.Settings.Invalidations == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), invalidationTimeout)
	defer cancel()
	inv := domain.Invalidation{Keys: []string{key}, Reason: "access_denied"}
	if err := r.uc.Settings.Invalidations.PublishInvalidation(ctx, inv); err != nil {
		r.logger.Warn("publish invalidation failed", "key", key, "error", err)
	}
}

// PartitionURL is the metadata request for one partition version. baseURL is
// the catalog-scoped URL returned by the lookup service.
func PartitionURL(baseURL, layer, partitionID string, version int64) string {
	q := url.Values{}
	q.Set("partition", partitionID)
	q.Set("version", strconv.FormatInt(version, 10))
	return baseURL + "/layers/" + url.PathEscape(layer) + "/partitions?" + q.Encode()
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return domain.KindOf(err).String()
}
