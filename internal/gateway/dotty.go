package gateway

import (
	"context"
	"net/url"

	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// DottyClient converts free-form variant descriptions to SPDI coordinates.
type DottyClient struct {
	f *fetcher
}

// NewDottyClient creates a client for the dotty service at baseURL.
func NewDottyClient(baseURL string, opts Options) *DottyClient {
	return &DottyClient{f: newFetcher("dotty", baseURL, opts)}
}

type dottyResponse struct {
	Success bool `json:"success"`
	Value   *struct {
		Assembly          string `json:"assembly"`
		Contig            string `json:"contig"`
		Pos               int64  `json:"pos"`
		ReferenceDeleted  string `json:"reference_deleted"`
		AlternateInserted string `json:"alternate_inserted"`
	} `json:"value"`
}

// ToSPDI asks the service to normalize query. An unrecognized query returns nil.
func (c *DottyClient) ToSPDI(ctx context.Context, query string, build genome.Build) (*variant.SPDI, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("assembly", build.String())
	u := c.f.baseURL + "/api/v1/to-spdi?" + q.Encode()

	var resp dottyResponse
	found, err := c.f.getJSON(ctx, u, &resp)
	if err != nil || !found || !resp.Success || resp.Value == nil {
		return nil, err
	}
	return &variant.SPDI{
		Assembly: resp.Value.Assembly,
		Contig:   resp.Value.Contig,
		Pos:      resp.Value.Pos,
		Deleted:  resp.Value.ReferenceDeleted,
		Inserted: resp.Value.AlternateInserted,
	}, nil
}
