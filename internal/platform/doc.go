package platform

// Package platform contains URL classification and the filesystem glue shared by
// the download pipeline: scratch filename generation, output-file resolution and
// YouTube playlist expansion.
