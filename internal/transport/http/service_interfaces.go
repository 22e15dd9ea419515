package http

import (
	"context"
	"io"

	"github.com/AlexisBnnft/Building-Waste/internal/operations"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// AnalysisServiceInterface defines the dashboard's read side
type AnalysisServiceInterface interface {
	Buildings(ctx context.Context) ([]string, error)
	Analysis(ctx context.Context, name, freq string) (*domain.AnalysisView, error)
	ZoneDetail(ctx context.Context, name, zone string) (*domain.ZoneDetail, error)
	Chart(ctx context.Context, name, kind, freq string, normalize bool) ([]byte, error)
	ExportXLSX(ctx context.Context, name, freq string) ([]byte, error)
	ExportCSV(ctx context.Context, name, freq string) ([]byte, error)
	CustomAnalysis(ctx context.Context, readers map[string]io.Reader, freq string) (*domain.AnalysisView, error)
}

// OperationServiceInterface defines the interface for operations service
type OperationServiceInterface interface {
	StartPreprocess(ctx context.Context) (string, error)
	Status(ctx context.Context, id string) (*operations.OperationSnapshot, error)
	Cancel(ctx context.Context, id string) error
}
