package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/ohmyjons/simple-elt/pkg/elt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// BigQueryWarehouse loads from Cloud Storage with load jobs and defines logical views.
type BigQueryWarehouse struct {
	client  *bigquery.Client
	project string
	logger  elt.Logger
}

// NewBigQueryWarehouse creates a client billed to project. An empty
// credentialsFile means Application Default Credentials.
func NewBigQueryWarehouse(ctx context.Context, project, credentialsFile string, logger elt.Logger) (*BigQueryWarehouse, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create bigquery client: %w", elt.ErrConnection, err)
	}
	return &BigQueryWarehouse{client: client, project: project, logger: logger}, nil
}

func (w *BigQueryWarehouse) Dialect(useLegacySQL bool) Dialect {
	return BigQueryDialect{Legacy: useLegacySQL}
}

func (w *BigQueryWarehouse) Close() error {
	return w.client.Close()
}

func (w *BigQueryWarehouse) table(ref TableRef) *bigquery.Table {
	project := ref.Project
	if project == "" {
		project = w.project
	}
	return w.client.DatasetInProject(project, ref.Dataset).Table(ref.Table)
}

// Load runs a CSV load job from gs://<bucket>/<object> URIs and waits for it.
func (w *BigQueryWarehouse) Load(ctx context.Context, job LoadJob) (LoadResult, error) {
	if err := validateJob(job); err != nil {
		return LoadResult{}, err
	}

	uris := make([]string, len(job.Objects))
	for i, o := range job.Objects {
		uris[i] = fmt.Sprintf("gs://%s/%s", job.Bucket, o)
	}

	ref := bigquery.NewGCSReference(uris...)
	ref.SourceFormat = bigquery.CSV
	ref.FieldDelimiter = job.FieldDelimiter
	ref.SkipLeadingRows = int64(job.SkipLeadingRows)
	ref.Schema = BigQuerySchema(job.Schema)
	ref.MaxBadRecords = 0
	if job.Gzip {
		ref.Compression = bigquery.Gzip
	}

	loader := w.table(job.Destination).LoaderFrom(ref)
	loader.CreateDisposition = bigquery.TableCreateDisposition(job.CreateDisposition)
	loader.WriteDisposition = bigquery.TableWriteDisposition(job.WriteDisposition)

	w.logger.Verbose("starting load job %s -> %s", strings.Join(uris, ","), job.Destination)
	j, err := loader.Run(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("start load job for %s: %w: %w", job.Destination, elt.ErrLoad, err)
	}

	status, err := j.Wait(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("wait for load job %s: %w: %w", j.ID(), elt.ErrLoad, err)
	}
	if err := status.Err(); err != nil {
		return LoadResult{}, classifyLoadJobError(job.Destination, err, status.Errors)
	}

	var rows int64
	if stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
		rows = stats.OutputRows
	}
	return LoadResult{Table: job.Destination, Rows: rows}, nil
}

// typeMismatchMarkers appear in load job errors caused by a value that does
// not parse as its column type.
var typeMismatchMarkers = []string{
	"could not parse",
	"could not convert",
	"error while reading data",
	"invalid date",
	"invalid timestamp",
	"unable to parse",
}

func classifyLoadJobError(dest TableRef, err error, details []*bigquery.Error) error {
	kind := elt.ErrLoad
	for _, e := range append([]*bigquery.Error{asBigQueryError(err)}, details...) {
		if e == nil {
			continue
		}
		msg := strings.ToLower(e.Message)
		for _, marker := range typeMismatchMarkers {
			if strings.Contains(msg, marker) {
				kind = elt.ErrTypeMismatch
			}
		}
	}

	var msgs []string
	for _, d := range details {
		if d != nil && d.Message != "" {
			msgs = append(msgs, d.Message)
		}
	}
	if len(msgs) > 0 {
		return fmt.Errorf("load %s: %w: %w (%s)", dest, kind, err, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("load %s: %w: %w", dest, kind, err)
}

func asBigQueryError(err error) *bigquery.Error {
	var bqErr *bigquery.Error
	if errors.As(err, &bqErr) {
		return bqErr
	}
	return nil
}

// CreateView creates the view, leaving or redefining an existing one per def.Disposition.
func (w *BigQueryWarehouse) CreateView(ctx context.Context, def ViewDefinition) (ViewResult, error) {
	t := w.table(def.View)
	meta := &bigquery.TableMetadata{
		ViewQuery:      def.Query,
		UseLegacySQL:   def.UseLegacySQL,
		UseStandardSQL: !def.UseLegacySQL,
	}

	err := t.Create(ctx, meta)
	if err == nil {
		return ViewResult{View: def.View, Action: ViewCreated}, nil
	}
	if !isAlreadyExists(err) {
		return ViewResult{}, fmt.Errorf("create view %s: %w: %w", def.View, elt.ErrViewDefinition, err)
	}

	if def.Disposition != elt.ViewReplace {
		w.logger.Verbose("view %s already exists, leaving it unchanged", def.View)
		return ViewResult{View: def.View, Action: ViewUnchanged}, nil
	}

	update := bigquery.TableMetadataToUpdate{
		ViewQuery:    def.Query,
		UseLegacySQL: def.UseLegacySQL,
	}
	if _, err := t.Update(ctx, update, ""); err != nil {
		return ViewResult{}, fmt.Errorf("replace view %s: %w: %w", def.View, elt.ErrViewDefinition, err)
	}
	return ViewResult{View: def.View, Action: ViewReplaced}, nil
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

// BigQuerySchema converts a column schema to BigQuery field schemas.
func BigQuerySchema(schema elt.Schema) bigquery.Schema {
	out := make(bigquery.Schema, len(schema))
	for i, c := range schema {
		out[i] = &bigquery.FieldSchema{
			Name:     c.Name,
			Type:     bigQueryType(c.Type),
			Required: c.Required(),
		}
	}
	return out
}

func bigQueryType(t elt.FieldType) bigquery.FieldType {
	switch t {
	case elt.TypeInt64:
		return bigquery.IntegerFieldType
	case elt.TypeFloat64:
		return bigquery.FloatFieldType
	case elt.TypeNumeric:
		return bigquery.NumericFieldType
	case elt.TypeBool:
		return bigquery.BooleanFieldType
	case elt.TypeDate:
		return bigquery.DateFieldType
	case elt.TypeTimestamp:
		return bigquery.TimestampFieldType
	default:
		return bigquery.StringFieldType
	}
}
