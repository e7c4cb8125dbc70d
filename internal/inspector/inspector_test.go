package inspector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bragidiscovery/server/internal/domain"
	"github.com/bragidiscovery/server/internal/elastic"
)

var observedAt = time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func record(name, count, created string) elastic.IndexRecord {
	rec := elastic.IndexRecord{Index: name, Health: "green", Status: "open"}
	if count != "" {
		rec.DocsCount = strPtr(count)
	}
	if created != "" {
		rec.CreationDate = strPtr(created)
	}
	return rec
}

func TestInspect_FullMetadata(t *testing.T) {
	snap, ok := Inspect(record("munin_admin_fr", "42", "1577880000000"), "munin", observedAt)
	require.True(t, ok)

	assert.Equal(t, domain.IndexSnapshot{
		Label:         "munin_admin_fr",
		PlaceType:     "admin",
		Coverage:      "fr",
		Visibility:    domain.VisibilityPublic,
		DocumentCount: 42,
		CreatedAt:     time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:     observedAt,
	}, snap)
}

func TestInspect_PrivateCoverage(t *testing.T) {
	snap, ok := Inspect(record("munin_poi_priv.acme_20200315_101500", "3", ""), "munin", observedAt)
	require.True(t, ok)

	assert.Equal(t, "poi", snap.PlaceType)
	assert.Equal(t, "acme", snap.Coverage)
	assert.Equal(t, domain.VisibilityPrivate, snap.Visibility)
	assert.Equal(t, time.Date(2020, 3, 15, 10, 15, 0, 0, time.UTC), snap.CreatedAt)
}

func TestInspect_CreationDateWinsOverName(t *testing.T) {
	snap, ok := Inspect(record("munin_addr_be_20200315_101500", "3", "1577880000000"), "munin", observedAt)
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC), snap.CreatedAt)
}

func TestInspect_OutsideNamespace(t *testing.T) {
	_, ok := Inspect(record("other_admin_fr", "42", "1577880000000"), "munin", observedAt)
	assert.False(t, ok)

	_, ok = Inspect(record("muninx_admin_fr", "42", "1577880000000"), "munin", observedAt)
	assert.False(t, ok)

	_, ok = Inspect(record("munin_admin_fr", "42", "1577880000000"), "", observedAt)
	assert.False(t, ok)
}

func TestInspect_Malformed(t *testing.T) {
	tests := []struct {
		name string
		rec  elastic.IndexRecord
	}{
		{"missing count", record("munin_admin_fr", "", "1577880000000")},
		{"non numeric count", record("munin_admin_fr", "many", "1577880000000")},
		{"negative count", record("munin_admin_fr", "-1", "1577880000000")},
		{"missing coverage", record("munin_admin", "1", "1577880000000")},
		{"empty place type", record("munin__fr", "1", "1577880000000")},
		{"empty private coverage", record("munin_poi_priv.", "1", "1577880000000")},
		{"bad creation date", record("munin_admin_fr", "1", "yesterday")},
		{"no creation date and no name timestamp", record("munin_admin_fr", "1", "")},
		{"no creation date and bad name timestamp", record("munin_admin_fr_2020_x", "1", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Inspect(tt.rec, "munin", observedAt)
			assert.False(t, ok)
		})
	}
}

func TestInspectAll_KeepsOrderAndIsolatesBadRecords(t *testing.T) {
	recs := []elastic.IndexRecord{
		record("munin_street_fr", "10", "1577880000000"),
		record("other_admin_fr", "42", "1577880000000"),
		record("munin_poi_fr", "", "1577880000000"),
		record("munin_admin_fr", "42", "1577880000000"),
		record(".kibana", "1", "1577880000000"),
	}

	indices, skipped := InspectAll(recs, "munin", observedAt)

	assert.Equal(t, 1, skipped)
	require.Len(t, indices, 2)
	assert.Equal(t, "munin_street_fr", indices[0].Label)
	assert.Equal(t, "munin_admin_fr", indices[1].Label)
}

func TestInspectAll_Empty(t *testing.T) {
	indices, skipped := InspectAll(nil, "munin", observedAt)
	assert.NotNil(t, indices)
	assert.Empty(t, indices)
	assert.Zero(t, skipped)
}
