// Package inspector derives index snapshots from raw index listing records.
//
// Managed index names follow <prefix>_<placeType>_<coverage>, optionally
// followed by a _<YYYYMMDD>_<HHMMSS> build timestamp. A coverage written as
// priv.<name> marks a private data source.
package inspector

import (
	"strconv"
	"strings"
	"time"

	"github.com/bragidiscovery/server/internal/domain"
	"github.com/bragidiscovery/server/internal/elastic"
)

const (
	privateMarker   = "priv."
	nameTimeLayout  = "20060102150405"
	nameSeparator   = "_"
	minNameSegments = 2
)

// InNamespace reports whether an index belongs to the namespace of prefix
func InNamespace(name, prefix string) bool {
	return prefix != "" && strings.HasPrefix(name, prefix+nameSeparator)
}

// Inspect derives the snapshot of a single index. It returns false when the
// index is outside the prefix namespace or when a required field is missing
// or malformed.
func Inspect(rec elastic.IndexRecord, prefix string, observedAt time.Time) (domain.IndexSnapshot, bool) {
	if !InNamespace(rec.Index, prefix) {
		return domain.IndexSnapshot{}, false
	}
	return inspectManaged(rec, prefix, observedAt)
}

// InspectAll inspects records in listing order. Records outside the
// namespace are dropped silently; skipped counts the managed records that
// could not be derived.
func InspectAll(recs []elastic.IndexRecord, prefix string, observedAt time.Time) (indices []domain.IndexSnapshot, skipped int) {
	indices = make([]domain.IndexSnapshot, 0, len(recs))
	for _, rec := range recs {
		if !InNamespace(rec.Index, prefix) {
			continue
		}
		snap, ok := inspectManaged(rec, prefix, observedAt)
		if !ok {
			skipped++
			continue
		}
		indices = append(indices, snap)
	}
	return indices, skipped
}

func inspectManaged(rec elastic.IndexRecord, prefix string, observedAt time.Time) (domain.IndexSnapshot, bool) {
	segments := strings.Split(strings.TrimPrefix(rec.Index, prefix+nameSeparator), nameSeparator)
	if len(segments) < minNameSegments || segments[0] == "" || segments[1] == "" {
		return domain.IndexSnapshot{}, false
	}
	placeType := segments[0]

	visibility := domain.VisibilityPublic
	coverage := segments[1]
	if rest, ok := strings.CutPrefix(coverage, privateMarker); ok {
		if rest == "" {
			return domain.IndexSnapshot{}, false
		}
		visibility = domain.VisibilityPrivate
		coverage = rest
	}

	count, ok := parseCount(rec.DocsCount)
	if !ok {
		return domain.IndexSnapshot{}, false
	}

	createdAt, ok := creationTime(rec.CreationDate, segments[minNameSegments:])
	if !ok {
		return domain.IndexSnapshot{}, false
	}

	return domain.IndexSnapshot{
		Label:         rec.Index,
		PlaceType:     placeType,
		Coverage:      coverage,
		Visibility:    visibility,
		DocumentCount: count,
		CreatedAt:     createdAt,
		UpdatedAt:     observedAt,
	}, true
}

func parseCount(raw *string) (int64, bool) {
	if raw == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(*raw), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// creationTime prefers the cluster's creation.date column (epoch millis) and
// falls back to the build timestamp carried by the index name.
func creationTime(raw *string, suffix []string) (time.Time, bool) {
	if raw != nil {
		ms, err := strconv.ParseInt(strings.TrimSpace(*raw), 10, 64)
		if err != nil || ms < 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}

	if len(suffix) < 2 {
		return time.Time{}, false
	}
	t, err := time.Parse(nameTimeLayout, suffix[0]+suffix[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
