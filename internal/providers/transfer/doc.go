// Package transfer implements bounded file upload and download scoped to
// a session's working directory, with base64, text and gzip encodings.
// Download size limits are enforced on file metadata before content is
// read into memory.
package transfer
