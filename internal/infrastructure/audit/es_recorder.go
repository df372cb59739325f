package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ESRecorder indexes events into an Elasticsearch index.
type ESRecorder struct {
	ES      *elasticsearch.Client
	Index   string
	Logger  *logrus.Logger
	Timeout time.Duration
}

func NewESRecorder(es *elasticsearch.Client, index string, logger *logrus.Logger) *ESRecorder {
	return &ESRecorder{ES: es, Index: index, Logger: logger, Timeout: 3 * time.Second}
}

func (r *ESRecorder) Record(ctx context.Context, e Event) {
	if r.ES == nil || r.Index == "" {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		r.warn(err, "encode audit event failed")
		return
	}
	req := esapi.IndexRequest{
		Index:      r.Index,
		DocumentID: uuid.NewString(),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	// the request may already be finishing; the index write outlives it
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.Timeout)
	defer cancel()
	res, err := req.Do(c, r.ES)
	if err != nil {
		r.warn(err, "es index failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && r.Logger != nil {
		r.Logger.WithField("status", res.Status()).WithField("index", r.Index).Warn("es index response error")
	}
}

func (r *ESRecorder) warn(err error, msg string) {
	if r.Logger != nil {
		r.Logger.WithError(err).WithField("index", r.Index).Warn(msg)
	}
}
