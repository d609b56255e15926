// Package archive indexes canonical telemetry records in OpenSearch. The
// archive owns the canonical telemetry copy; anomaly records reference it by
// index name and record ID.
package archive

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/database"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// Archiver stores telemetry records and reports the index they land in.
type Archiver interface {
	Index(ctx context.Context, recs []*models.TelemetryRecord) (models.TelemetryRef, error)
	WriteIndex() string
}

// Client is the OpenSearch-backed archiver.
type Client struct {
	osClient    *opensearch.Client
	cfg         config.OpenSearchConfig
	initialized bool
}

// NewClient builds the OpenSearch client from shared config.
func NewClient(cfg config.OpenSearchConfig) (*Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &Client{osClient: client, cfg: cfg}, nil
}

// Initialize verifies connectivity and sets up the index template and the
// write index. Safe to call more than once.
func (c *Client) Initialize(ctx context.Context) error {
	if c.initialized {
		return nil
	}

	info, err := c.osClient.Info()
	if err != nil {
		return fmt.Errorf("failed to connect to opensearch: %w", err)
	}
	defer info.Body.Close()
	if info.IsError() {
		return fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	if err := c.createIndexTemplate(); err != nil {
		return fmt.Errorf("failed to create index template: %w", err)
	}
	if err := c.createInitialIndex(ctx); err != nil {
		return fmt.Errorf("failed to create initial index: %w", err)
	}

	c.initialized = true
	return nil
}

// WriteIndex returns the alias telemetry is written through.
func (c *Client) WriteIndex() string {
	return c.cfg.IndexPrefix + "-write"
}

// Index bulk-indexes telemetry records, keyed by record ID so re-submissions
// overwrite rather than duplicate.
func (c *Client) Index(ctx context.Context, recs []*models.TelemetryRecord) (models.TelemetryRef, error) {
	ref := models.TelemetryRef{Index: c.WriteIndex()}
	if len(recs) == 0 {
		return ref, nil
	}
	ref.RecordID = recs[0].RecordID

	ctx, cancel := database.BulkContext(ctx)
	defer cancel()

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client: c.osClient,
		Index:  c.WriteIndex(),
	})
	if err != nil {
		return ref, fmt.Errorf("create bulk indexer: %w", err)
	}

	var failures []string
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			failures = append(failures, fmt.Sprintf("marshal %s: %v", rec.RecordID, err))
			continue
		}
		err = bi.Add(ctx, opensearchutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: rec.RecordID,
			Body:       bytes.NewReader(data),
			OnFailure: func(_ context.Context, _ opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					failures = append(failures, err.Error())
				} else {
					failures = append(failures, fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason))
				}
			},
		})
		if err != nil {
			failures = append(failures, fmt.Sprintf("add %s: %v", rec.RecordID, err))
		}
	}

	if err := bi.Close(ctx); err != nil {
		return ref, fmt.Errorf("bulk indexer close: %w", err)
	}
	if len(failures) > 0 {
		return ref, fmt.Errorf("archive indexing failed: %v", failures)
	}
	return ref, nil
}

func (c *Client) createIndexTemplate() error {
	template := map[string]interface{}{
		"index_patterns": []string{c.cfg.IndexPrefix + "-*"},
		"template": map[string]interface{}{
			"settings": map[string]interface{}{
				"number_of_shards":   c.cfg.ShardCount,
				"number_of_replicas": c.cfg.ReplicaCount,
				"refresh_interval":   c.cfg.RefreshInterval,
				"codec":              "best_compression",
			},
			"mappings": telemetryMappings(),
		},
		"priority": 100,
	}

	body, err := json.Marshal(template)
	if err != nil {
		return err
	}

	res, err := c.osClient.Indices.PutIndexTemplate(
		c.cfg.IndexPrefix+"-template",
		bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return fmt.Errorf("put index template: %s - %s", res.Status(), string(bodyBytes))
	}
	return nil
}

func telemetryMappings() map[string]interface{} {
	return map[string]interface{}{
		"dynamic": true,
		"properties": map[string]interface{}{
			"record_id":   map[string]interface{}{"type": "keyword"},
			"org_id":      map[string]interface{}{"type": "keyword"},
			"data_type":   map[string]interface{}{"type": "keyword"},
			"source":      map[string]interface{}{"type": "keyword"},
			"ingested_at": map[string]interface{}{"type": "date"},
			"fields": map[string]interface{}{
				"properties": map[string]interface{}{
					"temp_c":         map[string]interface{}{"type": "double"},
					"setpoint_delta": map[string]interface{}{"type": "double"},
					"humidity_pct":   map[string]interface{}{"type": "double"},
					"speed_kmh":      map[string]interface{}{"type": "double"},
					"lat":            map[string]interface{}{"type": "double"},
					"lon":            map[string]interface{}{"type": "double"},
				},
			},
		},
	}
}

func (c *Client) createInitialIndex(ctx context.Context) error {
	indexName := fmt.Sprintf("%s-%s-000001", c.cfg.IndexPrefix, time.Now().Format("2006.01.02"))
	writeAlias := c.WriteIndex()

	exists, err := c.osClient.Indices.Exists([]string{indexName})
	if err != nil {
		return err
	}
	defer exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	res, err := c.osClient.Indices.Create(indexName)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return fmt.Errorf("create index: %s - %s", res.Status(), string(bodyBytes))
	}

	aliasActions := map[string]interface{}{
		"actions": []map[string]interface{}{
			{"remove": map[string]interface{}{
				"index": c.cfg.IndexPrefix + "-*",
				"alias": writeAlias,
			}},
			{"add": map[string]interface{}{
				"index":          indexName,
				"alias":          writeAlias,
				"is_write_index": true,
			}},
		},
	}

	body, err := json.Marshal(aliasActions)
	if err != nil {
		return err
	}

	aliasReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "/_aliases", bytes.NewReader(body))
	if err != nil {
		return err
	}
	aliasReq.Header.Set("Content-Type", "application/json")

	aliasRes, err := c.osClient.Transport.Perform(aliasReq)
	if err != nil {
		return err
	}
	defer aliasRes.Body.Close()
	if aliasRes.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(aliasRes.Body)
		return fmt.Errorf("update write alias: %d - %s", aliasRes.StatusCode, string(bodyBytes))
	}
	return nil
}

// NoopArchiver satisfies Archiver when the archive is disabled; records still
// get a stable (if empty) reference.
type NoopArchiver struct{}

func (NoopArchiver) WriteIndex() string { return "" }

func (NoopArchiver) Index(_ context.Context, recs []*models.TelemetryRecord) (models.TelemetryRef, error) {
	ref := models.TelemetryRef{}
	if len(recs) > 0 {
		ref.RecordID = recs[0].RecordID
	}
	return ref, nil
}
