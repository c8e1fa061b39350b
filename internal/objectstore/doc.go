// Package objectstore brokers access to the S3 compatible bucket that
// receives client uploads. It covers direct puts, presigned transfers and
// multipart sessions against AWS S3 or MinIO endpoints.
package objectstore
