package domains

import (
	"context"
	"time"

	"github.com/communityhub/platform/cache"
)

// Job tags.
const (
	TagJobs    = "jobs"
	TagJobList = "job-list"
)

const jobListTTL = 15 * time.Minute

// Job is the cached projection of a job posting.
type Job struct {
	ID          int64     `cbor:"id" json:"id"`
	Title       string    `cbor:"title,omitempty" json:"title,omitempty"`
	Company     string    `cbor:"company,omitempty" json:"company,omitempty"`
	Location    string    `cbor:"location,omitempty" json:"location,omitempty"`
	Remote      bool      `cbor:"remote,omitempty" json:"remote,omitempty"`
	Skills      []string  `cbor:"skills,omitempty" json:"skills,omitempty"`
	SalaryMin   int64     `cbor:"salaryMin,omitempty" json:"salaryMin,omitempty"`
	SalaryMax   int64     `cbor:"salaryMax,omitempty" json:"salaryMax,omitempty"`
	PostedAt    time.Time `cbor:"postedAt,omitempty" json:"postedAt,omitzero"`
	Description string    `cbor:"description,omitempty" json:"description,omitempty"`
}

// JobFilter describes a job listing query. Two filters with equal fields map to the same key.
type JobFilter struct {
	Query    string   `cbor:"q,omitempty" json:"q,omitempty"`
	Location string   `cbor:"location,omitempty" json:"location,omitempty"`
	Remote   *bool    `cbor:"remote,omitempty" json:"remote,omitempty"`
	Skills   []string `cbor:"skills,omitempty" json:"skills,omitempty"`
	Page     int      `cbor:"page,omitempty" json:"page,omitempty"`
	Limit    int      `cbor:"limit,omitempty" json:"limit,omitempty"`
}

// Jobs caches job listings and single job postings.
type Jobs struct {
	m *cache.Manager
}

// NewJobs wraps m, which should be configured with JobsConfig.
func NewJobs(m *cache.Manager) *Jobs {
	return &Jobs{m: m}
}

// Manager returns the underlying manager.
func (j *Jobs) Manager() *cache.Manager { return j.m }

// ListKey returns the logical key a listing for filter is stored under.
func (j *Jobs) ListKey(filter JobFilter) string {
	return key("list", Fingerprint(filter))
}

// CacheJobList stores the result page of a listing query.
func (j *Jobs) CacheJobList(ctx context.Context, filter JobFilter, jobs []Job) bool {
	return j.m.Set(ctx, j.ListKey(filter), jobs,
		cache.WithTTL(jobListTTL),
		cache.WithTags(TagJobs, TagJobList),
	)
}

// GetCachedJobList returns a previously cached listing for filter.
func (j *Jobs) GetCachedJobList(ctx context.Context, filter JobFilter) ([]Job, bool) {
	return cache.Get[[]Job](ctx, j.m, j.ListKey(filter))
}

// CacheJob stores a single job posting for the domain default TTL.
func (j *Jobs) CacheJob(ctx context.Context, job Job) bool {
	id := formatID(job.ID)
	return j.m.Set(ctx, key("job", id), job, cache.WithTags(TagJobs, idTag("job", id)))
}

// GetCachedJob returns the cached posting with the given id.
func (j *Jobs) GetCachedJob(ctx context.Context, id int64) (Job, bool) {
	return cache.Get[Job](ctx, j.m, key("job", formatID(id)))
}

// InvalidateJob drops the cached posting with the given id. Listings are left alone: a
// changed posting invalidates them through InvalidateJobLists.
func (j *Jobs) InvalidateJob(ctx context.Context, id int64) int {
	return j.m.InvalidateByTags(ctx, idTag("job", formatID(id)))
}

// InvalidateJobLists drops every cached listing.
func (j *Jobs) InvalidateJobLists(ctx context.Context) int {
	return j.m.InvalidateByTags(ctx, TagJobList)
}

// InvalidateJobCache drops every entry of the jobs domain.
func (j *Jobs) InvalidateJobCache(ctx context.Context) int {
	return j.m.InvalidateByTags(ctx, TagJobs)
}
