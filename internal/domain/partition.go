package domain

// FetchOption selects which sources a read may consult.
type FetchOption int

const (
	// OnlineIfAbsent reads the cache first and falls back to the network on a miss.
	OnlineIfAbsent FetchOption = iota
	// OnlineOnly skips the cache on read; results are still written back.
	OnlineOnly
	// CacheOnly never touches the network.
	CacheOnly
)

func (o FetchOption) String() string {
	switch o {
	case OnlineIfAbsent:
		return "online_if_absent"
	case OnlineOnly:
		return "online_only"
	case CacheOnly:
		return "cache_only"
	default:
		return "unknown"
	}
}

// ParseFetchOption accepts the short names used by the HTTP facade and the CLI.
func ParseFetchOption(s string) (FetchOption, bool) {
	switch s {
	case "", "auto", "online_if_absent":
		return OnlineIfAbsent, true
	case "online", "online_only":
		return OnlineOnly, true
	case "cache", "cache_only":
		return CacheOnly, true
	}
	return 0, false
}

// PartitionRequest describes a partition read. PartitionID and Version are
// optional at the type level but both are required by GetPartitionByID.
type PartitionRequest struct {
	PartitionID *string
	Version     *int64
	FetchOption FetchOption
}

// WithPartitionID returns a copy of r with the partition id set.
func (r PartitionRequest) WithPartitionID(id string) PartitionRequest {
	r.PartitionID = &id
	return r
}

// WithVersion returns a copy of r with the version set.
func (r PartitionRequest) WithVersion(v int64) PartitionRequest {
	r.Version = &v
	return r
}

// WithFetchOption returns a copy of r with the fetch option set.
func (r PartitionRequest) WithFetchOption(o FetchOption) PartitionRequest {
	r.FetchOption = o
	return r
}

// Partition is the metadata of a single partition of a layer.
type Partition struct {
	Partition          string `json:"partition"`
	Version            int64  `json:"version"`
	Layer              string `json:"layer,omitempty"`
	DataHandle         string `json:"dataHandle"`
	Checksum           string `json:"checksum,omitempty"`
	DataSize           int64  `json:"dataSize,omitempty"`
	CompressedDataSize int64  `json:"compressedDataSize,omitempty"`
	CRC                string `json:"crc,omitempty"`
}

// Complete reports whether the fields a caller needs to fetch the data are present.
func (p Partition) Complete() bool {
	return p.Partition != "" && p.DataHandle != ""
}

// PartitionsResult is the ordered list of partitions returned by a query.
type PartitionsResult struct {
	Partitions []Partition `json:"partitions"`
}

// ServiceEndpoint is a resolved API base URL for a catalog.
type ServiceEndpoint struct {
	API     string `json:"api"`
	Version string `json:"version"`
	BaseURL string `json:"baseURL"`
}
