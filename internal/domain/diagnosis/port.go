package diagnosis

import (
	"context"
	"time"
)

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	Delete(ctx context.Context, id AnalysisID) error
	ListByAccount(ctx context.Context, accountID string, page, pageSize int) ([]*Analysis, error)
	CountByAccount(ctx context.Context, accountID string, positiveOnly bool) (int, error)
	CountAll(ctx context.Context, positiveOnly bool) (int, error)
	// DailyCountsByAccount returns per-day analysis counts for the last
	// `days` calendar days, oldest day first, zero-filled
	DailyCountsByAccount(ctx context.Context, accountID string, days int, now time.Time) ([]int, error)
}

// ClassifyResult is the classifier's answer for one request
type ClassifyResult struct {
	PerImage   []string `json:"per_image"`
	Verdict    string   `json:"verdict"`
	Confidence float64  `json:"confidence"` // 0-100
}

// Classifier port (external black-box scoring service)
type Classifier interface {
	Classify(ctx context.Context, disease Disease, images [][]byte) (*ClassifyResult, error)
}

// ImageStore port (object storage for uploaded slides)
type ImageStore interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, url string) error
}
