package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/bragidiscovery/server/internal/domain"
)

const maxQueryBytes = 64 << 10

var (
	environmentStatusEnum = graphql.NewEnum(graphql.EnumConfig{
		Name:        "EnvironmentStatus",
		Description: "Availability of an environment as a whole",
		Values: graphql.EnumValueConfigMap{
			"AVAILABLE":                   {Value: domain.EnvironmentAvailable},
			"BRAGI_NOT_AVAILABLE":         {Value: domain.EnvironmentBragiNotAvailable},
			"ELASTICSEARCH_NOT_AVAILABLE": {Value: domain.EnvironmentElasticNotAvailable},
		},
	})

	backendStatusEnum = graphql.NewEnum(graphql.EnumConfig{
		Name: "ServerStatus",
		Values: graphql.EnumValueConfigMap{
			"AVAILABLE":     {Value: domain.BackendAvailable},
			"NOT_AVAILABLE": {Value: domain.BackendNotAvailable},
		},
	})

	visibilityEnum = graphql.NewEnum(graphql.EnumConfig{
		Name: "IndexVisibility",
		Values: graphql.EnumValueConfigMap{
			"PRIVATE": {Value: domain.VisibilityPrivate},
			"PUBLIC":  {Value: domain.VisibilityPublic},
		},
	})

	indexType = graphql.NewObject(graphql.ObjectConfig{
		Name:        "IndexInfo",
		Description: "A managed index hosted by an Elasticsearch cluster",
		Fields: graphql.Fields{
			"label":     {Type: graphql.NewNonNull(graphql.String)},
			"placeType": {Type: graphql.NewNonNull(graphql.String)},
			"coverage":  {Type: graphql.NewNonNull(graphql.String)},
			"private":   {Type: graphql.NewNonNull(visibilityEnum)},
			"createdAt": {Type: graphql.NewNonNull(graphql.DateTime)},
			"updatedAt": {Type: graphql.NewNonNull(graphql.DateTime)},
			"count":     {Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	backendType = graphql.NewObject(graphql.ObjectConfig{
		Name: "ElasticsearchInfo",
		Fields: graphql.Fields{
			"label":       {Type: graphql.NewNonNull(graphql.String)},
			"url":         {Type: graphql.NewNonNull(graphql.String)},
			"name":        {Type: graphql.NewNonNull(graphql.String)},
			"status":      {Type: graphql.NewNonNull(backendStatusEnum)},
			"version":     {Type: graphql.NewNonNull(graphql.String)},
			"indices":     {Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(indexType)))},
			"indexPrefix": {Type: graphql.NewNonNull(graphql.String)},
			"updatedAt":   {Type: graphql.NewNonNull(graphql.DateTime)},
		},
	})

	environmentType = graphql.NewObject(graphql.ObjectConfig{
		Name: "EnvironmentInfo",
		Fields: graphql.Fields{
			"label":         {Type: graphql.NewNonNull(graphql.String)},
			"url":           {Type: graphql.NewNonNull(graphql.String)},
			"version":       {Type: graphql.NewNonNull(graphql.String)},
			"status":        {Type: graphql.NewNonNull(environmentStatusEnum)},
			"updatedAt":     {Type: graphql.NewNonNull(graphql.DateTime)},
			"elasticsearch": {Type: backendType},
		},
	})

	environmentsType = graphql.NewObject(graphql.ObjectConfig{
		Name: "MultiEnvironmentsResponseBody",
		Fields: graphql.Fields{
			"environments":      {Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(environmentType)))},
			"environmentsCount": {Type: graphql.NewNonNull(graphql.Int)},
		},
	})
)

// NewSchema builds the read-only GraphQL schema over snapshotter
func NewSchema(snapshotter Snapshotter) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"environments": {
				Type:        graphql.NewNonNull(environmentsType),
				Description: "Return a list of all environments",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return domain.NewEnvironmentsResponse(snapshotter.Snapshot(p.Context)), nil
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to build graphql schema: %w", err)
	}
	return schema, nil
}

type graphQLRequest struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// GraphQLHandler serves GraphQL queries over GET and POST
type GraphQLHandler struct {
	schema graphql.Schema
	logger *slog.Logger
}

// NewGraphQLHandler creates a new GraphQL handler
func NewGraphQLHandler(schema graphql.Schema, logger *slog.Logger) *GraphQLHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphQLHandler{schema: schema, logger: logger}
}

// ServeHTTP handles incoming GraphQL requests
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := parseGraphQLRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "query is required")
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
	if result.HasErrors() {
		h.logger.Debug("graphql query returned errors",
			"operation", req.OperationName,
			"errors", len(result.Errors),
		)
	}

	writeJSON(w, http.StatusOK, result)
}

func parseGraphQLRequest(r *http.Request) (graphQLRequest, error) {
	var req graphQLRequest

	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return req, fmt.Errorf("invalid variables: %w", err)
			}
		}
		return req, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBytes))
	if err != nil {
		return req, fmt.Errorf("failed to read body: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/graphql" {
		req.Query = string(body)
		return req, nil
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}
