// Package store persists the processed analysis archive.
//
// LocalStore owns the JSON files the preprocess program writes and the
// dashboard reads. S3Mirror copies them to an S3-compatible bucket so a
// dashboard without local data can still start. Cache holds rendered
// dashboard responses in memory or in Redis.
package store
