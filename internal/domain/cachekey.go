package domain

import (
	"strconv"
	"strings"
)

const keySeparator = "::"

// PartitionKey is the cache key of a single partition entry.
func PartitionKey(catalog, layer, partitionID string, version int64) string {
	return catalog + keySeparator + layer + keySeparator + partitionID +
		keySeparator + strconv.FormatInt(version, 10) + keySeparator + "partition"
}

// LookupKey is the cache key of a resolved API endpoint.
func LookupKey(catalog, service, serviceVersion string) string {
	return catalog + keySeparator + service + keySeparator + serviceVersion +
		keySeparator + "api"
}

// ValidKeyComponent reports whether s can follow the catalog in a cache key.
// Keys are parsed from the right, so the catalog itself may contain colons
// (HRNs do) as long as every later component neither contains the separator
// nor starts or ends with a colon.
func ValidKeyComponent(s string) bool {
	return s != "" &&
		!strings.Contains(s, keySeparator) &&
		!strings.HasPrefix(s, ":") &&
		!strings.HasSuffix(s, ":")
}
