package finding

// RuntimeResource is one resource observed while crawling the running
// application.
type RuntimeResource struct {
	URL        string    `json:"url"`
	MediaKind  MediaKind `json:"media_kind"`
	SameOrigin bool      `json:"same_origin"`
}

// ReconciliationStatus partitions resources after matching static findings
// against the crawl.
type ReconciliationStatus string

const (
	StatusMatched  ReconciliationStatus = "matched"
	StatusWebOnly  ReconciliationStatus = "web-only"
	StatusCodeOnly ReconciliationStatus = "code-only"
)

// ReconciliationRecord pairs zero-or-one Finding with zero-or-one
// RuntimeResource. A resource with no finding is web-only, a finding with no
// resource is code-only; a matched record requires equal normalized identity
// on both sides.
type ReconciliationRecord struct {
	Status   ReconciliationStatus `json:"status"`
	Identity string               `json:"identity"`
	Finding  *Finding             `json:"finding,omitempty"`
	Resource *RuntimeResource     `json:"resource,omitempty"`
}
