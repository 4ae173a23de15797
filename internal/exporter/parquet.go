package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"

	"github.com/tallyboard/tally/internal/query"
	"github.com/tallyboard/tally/internal/store"
)

// parquetActivity is the columnar projection of an activity row. Meta
// is kept as its JSON text since analytics tools handle that better
// than a nested group of unknown shape.
type parquetActivity struct {
	Slug               string  `parquet:"slug,snappy"`
	Contributor        string  `parquet:"contributor,snappy"`
	ActivityDefinition string  `parquet:"activity_definition,snappy"`
	Title              *string `parquet:"title,optional,snappy"`
	OccuredAt          string  `parquet:"occured_at,snappy"`
	Link               *string `parquet:"link,optional,snappy"`
	Text               *string `parquet:"text,optional,snappy"`
	Points             *int32  `parquet:"points,optional,snappy"`
	Meta               *string `parquet:"meta,optional,snappy"`
}

// ExportActivitiesParquet writes analytics/activities.parquet with
// every activity, for downstream analytical tooling. It is not part of
// the file round-trip contract.
func ExportActivitiesParquet(ctx context.Context, db store.Store, dataDir string, logger *slog.Logger) (int, error) {
	dir, err := ensureDir(dataDir, AnalyticsDir)
	if err != nil {
		return 0, err
	}

	activities, err := query.AllActivities(ctx, db, 0)
	if err != nil {
		return 0, err
	}

	records := make([]parquetActivity, 0, len(activities))
	for _, a := range activities {
		rec := parquetActivity{
			Slug:               a.Slug,
			Contributor:        a.Contributor,
			ActivityDefinition: a.ActivityDefinition,
			Title:              a.Title,
			OccuredAt:          a.OccuredAt,
			Link:               a.Link,
			Text:               a.Text,
		}
		if a.Points != nil {
			p := int32(*a.Points)
			rec.Points = &p
		}
		if len(a.Meta) > 0 {
			raw, err := json.Marshal(a.Meta)
			if err != nil {
				return 0, fmt.Errorf("activity %s: %w", a.Slug, err)
			}
			s := string(raw)
			rec.Meta = &s
		}
		records = append(records, rec)
	}

	path := filepath.Join(dir, "activities.parquet")
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	writer := parquet.NewGenericWriter[parquetActivity](file)
	if len(records) > 0 {
		if _, err := writer.Write(records); err != nil {
			_ = writer.Close()
			_ = file.Close()
			return 0, fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		_ = file.Close()
		return 0, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", path, err)
	}

	logger.Debug("wrote parquet export", "path", path, "rows", len(records))
	return len(records), nil
}
