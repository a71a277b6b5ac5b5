// Package pdfgraph provides a fluent API for inspecting the object graph of
// PDF files.
//
// Basic usage:
//
//	count, err := pdfgraph.Open("document.pdf").PageCount()
//
// With options:
//
//	meta, err := pdfgraph.Open("secret.pdf").
//	    Password("owner").
//	    Eager().
//	    Metadata()
//
// For advanced use cases, the lower-level reader and core packages are also
// available.
package pdfgraph

import (
	"github.com/tsawler/pdfgraph/reader"
)

// Open returns an Inspector for the PDF file at filename. Nothing is read
// until a terminal operation such as PageCount or Metadata runs.
//
// Example:
//
//	meta, err := pdfgraph.Open("document.pdf").Metadata()
func Open(filename string) *Inspector {
	return &Inspector{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromDocument creates an Inspector over an already loaded document.
// The caller is responsible for closing the document.
//
// Example:
//
//	doc, err := reader.Open("document.pdf", false)
//	if err != nil {
//	    // handle error
//	}
//	defer doc.Close()
//	meta, err := pdfgraph.FromDocument(doc).Metadata()
func FromDocument(doc *reader.Document) *Inspector {
	return &Inspector{
		doc:     doc,
		options: defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	count := pdfgraph.Must(pdfgraph.Open("document.pdf").PageCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
