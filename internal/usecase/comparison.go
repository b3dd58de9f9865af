package usecase

import (
	"bytes"
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/ab-compare/internal/classifier"
	"github.com/example/ab-compare/internal/comparison"
	"github.com/example/ab-compare/internal/endpoints"
	"github.com/example/ab-compare/internal/logging"
)

// URLSource provides the current backend URL pair.
type URLSource interface {
	Get() endpoints.URLs
}

// CompareResponse is the body returned for a comparison request.
type CompareResponse struct {
	ModelA     classifier.ModelResult `json:"model_a"`
	ModelB     classifier.ModelResult `json:"model_b"`
	Comparison comparison.Comparison  `json:"comparison"`
}

// ComparisonUseCase fans an image out to both backends and merges the results.
type ComparisonUseCase struct {
	urls   URLSource
	client classifier.Client
	stats  *Stats
	logger *zap.Logger
	newID  func() string
}

// NewComparisonUseCase constructs a new use case instance.
func NewComparisonUseCase(urls URLSource, client classifier.Client, stats *Stats, logger *zap.Logger) *ComparisonUseCase {
	return &ComparisonUseCase{
		urls:   urls,
		client: client,
		stats:  stats,
		logger: logger.Named("comparison_usecase"),
		newID:  uuid.NewString,
	}
}

// Compare classifies image on Model A and Model B concurrently and returns both
// results with their comparison. Backend failures are reported inside the
// response. Non-nil fields of override replace the stored URLs for this call
// only.
func (uc *ComparisonUseCase) Compare(ctx context.Context, image []byte, override endpoints.Update) (string, *CompareResponse) {
	requestID := uc.newID()
	opLogger := logging.WithOperation(uc.logger, "usecase.compare", requestID)

	urls := uc.urls.Get()
	if override.ModelA != nil {
		urls.ModelA = *override.ModelA
	}
	if override.ModelB != nil {
		urls.ModelB = *override.ModelB
	}

	var resultA, resultB classifier.ModelResult
	imageA := bytes.Clone(image)
	imageB := bytes.Clone(image)

	var g errgroup.Group
	g.Go(func() error {
		resultA = uc.client.Classify(ctx, urls.ModelA, imageA, classifier.ModelA)
		return nil
	})
	g.Go(func() error {
		resultB = uc.client.Classify(ctx, urls.ModelB, imageB, classifier.ModelB)
		return nil
	})
	_ = g.Wait()

	resp := &CompareResponse{
		ModelA:     resultA,
		ModelB:     resultB,
		Comparison: comparison.Compare(resultA, resultB),
	}
	if uc.stats != nil {
		uc.stats.Record(resp)
	}

	fields := []zap.Field{
		zap.Int("image_bytes", len(image)),
		zap.Bool("model_a_success", resultA.Success),
		zap.Bool("model_b_success", resultB.Success),
		zap.Bool("comparison_available", resp.Comparison.Available),
	}
	if resp.Comparison.Winner != nil {
		fields = append(fields, zap.String("winner", *resp.Comparison.Winner))
	}
	opLogger.Info("comparison completed", fields...)

	return requestID, resp
}
