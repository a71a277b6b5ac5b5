package pdfgraph

import (
	"log/slog"

	"github.com/tsawler/pdfgraph/reader"
)

// InspectOptions holds configuration for opening a document.
type InspectOptions struct {
	password string
	eager    bool
	logger   *slog.Logger
	maxDepth int // 0 keeps the reader default
}

// defaultOptions returns the default inspection options.
func defaultOptions() InspectOptions {
	return InspectOptions{}
}

// clone creates a copy of InspectOptions.
func (o InspectOptions) clone() InspectOptions {
	return o
}

// readerOptions converts the options to reader.Option values.
func (o InspectOptions) readerOptions() []reader.Option {
	var opts []reader.Option
	if o.password != "" {
		opts = append(opts, reader.WithPassword(o.password))
	}
	if o.logger != nil {
		opts = append(opts, reader.WithLogger(o.logger))
	}
	if o.maxDepth > 0 {
		opts = append(opts, reader.WithMaxDepth(o.maxDepth))
	}
	return opts
}
