package http

import (
	"context"

	"xlsxsplit/internal/splitter"
)

// SplitServiceInterface defines the interface for the split service
type SplitServiceInterface interface {
	Prefix() string
	Split(ctx context.Context, source string, req splitter.Request, obs ...splitter.Observer) (*splitter.Result, error)
	SplitBytes(ctx context.Context, source, filename string, data []byte, dateColumn string, obs ...splitter.Observer) (*splitter.Archive, error)
}
