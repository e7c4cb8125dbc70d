package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAggregate_CountMatchesEnvironments(t *testing.T) {
	agg := NewAggregate(nil)
	assert.Equal(t, 0, agg.Count)
	assert.NotNil(t, agg.Environments)

	agg = NewAggregate([]EnvironmentSnapshot{{Label: "a"}, {Label: "b"}})
	assert.Equal(t, 2, agg.Count)
}

func TestFrontendUnavailable(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	snap := FrontendUnavailable(EnvironmentSpec{Name: "dev", BaseURL: "http://dev.example:4000"}, at)

	assert.Equal(t, "dev", snap.Label)
	assert.Equal(t, "http://dev.example:4000", snap.URL)
	assert.Equal(t, EnvironmentBragiNotAvailable, snap.Status)
	assert.Equal(t, at, snap.ObservedAt)
	assert.Nil(t, snap.Backend)
}

func TestNewEnvironmentsResponse_JSONContract(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	created := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

	agg := NewAggregate([]EnvironmentSnapshot{
		FrontendUnavailable(EnvironmentSpec{Name: "dev", BaseURL: "http://dev.example:4000"}, at),
		{
			Label:      "prod",
			URL:        "http://prod.example:4000",
			Version:    "1.2.3",
			Status:     EnvironmentAvailable,
			ObservedAt: at,
			Backend: &BackendSnapshot{
				Label:       "elasticsearch_prod",
				URL:         "http://es.prod:9200",
				Name:        "cluster",
				Status:      BackendAvailable,
				Version:     "7.10.2",
				IndexPrefix: "munin",
				ObservedAt:  at,
				Indices: []IndexSnapshot{{
					Label:         "munin_poi_priv.acme",
					PlaceType:     "poi",
					Coverage:      "acme",
					Visibility:    VisibilityPrivate,
					DocumentCount: 12,
					CreatedAt:     created,
					UpdatedAt:     at,
				}},
			},
		},
	})

	resp := NewEnvironmentsResponse(agg)
	require.Len(t, resp.Environments, 2)
	assert.Equal(t, 2, resp.EnvironmentsCount)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.EqualValues(t, 2, decoded["environmentsCount"])

	envs := decoded["environments"].([]any)
	dev := envs[0].(map[string]any)
	assert.Equal(t, "dev", dev["label"])
	assert.Equal(t, "BRAGI_NOT_AVAILABLE", dev["status"])
	assert.Contains(t, dev, "elasticsearch")
	assert.Nil(t, dev["elasticsearch"])

	prod := envs[1].(map[string]any)
	assert.Equal(t, "2024-03-01T10:00:00Z", prod["updatedAt"])
	es := prod["elasticsearch"].(map[string]any)
	assert.Equal(t, "AVAILABLE", es["status"])
	assert.Equal(t, "munin", es["indexPrefix"])

	idx := es["indices"].([]any)[0].(map[string]any)
	assert.Equal(t, "poi", idx["placeType"])
	assert.Equal(t, "PRIVATE", idx["private"])
	assert.Equal(t, "2020-01-01T12:00:00Z", idx["createdAt"])
	assert.EqualValues(t, 12, idx["count"])
}

func TestNewEnvironmentsResponse_EmptyIndicesEncodeAsArray(t *testing.T) {
	agg := NewAggregate([]EnvironmentSnapshot{{
		Label:   "dev",
		Status:  EnvironmentElasticNotAvailable,
		Backend: &BackendSnapshot{Status: BackendNotAvailable},
	}})

	raw, err := json.Marshal(NewEnvironmentsResponse(agg))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"indices":[]`)
}

func TestValidateEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		env     EnvironmentSpec
		wantErr bool
	}{
		{"valid", EnvironmentSpec{Name: "dev", BaseURL: "http://dev.example:4000"}, false},
		{"valid with dots", EnvironmentSpec{Name: "prod.eu-1", BaseURL: "https://bragi.example"}, false},
		{"missing name", EnvironmentSpec{BaseURL: "http://dev.example:4000"}, true},
		{"bad name", EnvironmentSpec{Name: "dev env", BaseURL: "http://dev.example:4000"}, true},
		{"missing url", EnvironmentSpec{Name: "dev"}, true},
		{"not a url", EnvironmentSpec{Name: "dev", BaseURL: "dev.example"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEnvironment(&tt.env)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
