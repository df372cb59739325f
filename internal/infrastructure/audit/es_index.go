package audit

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// keyword fields so operators can aggregate on outcome and reason
const indexMapping = `{
  "mappings": {
    "properties": {
      "email":      {"type": "keyword"},
      "user_id":    {"type": "keyword"},
      "outcome":    {"type": "keyword"},
      "reason":     {"type": "keyword"},
      "ip":         {"type": "ip", "ignore_malformed": true},
      "user_agent": {"type": "text"},
      "request_id": {"type": "keyword"},
      "at":         {"type": "date"}
    }
  }
}`

// EnsureIndex creates the audit index with its mapping when it does not exist yet.
func EnsureIndex(ctx context.Context, es *elasticsearch.Client, index string) error {
	exists, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, es)
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	_ = exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := esapi.IndicesCreateRequest{Index: index, Body: strings.NewReader(indexMapping)}.Do(ctx, es)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer func() { _ = res.Body.Close() }()
	// another instance may have created it first
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("create index %s: %s", index, res.Status())
	}
	return nil
}
