// Package ingest is the submission boundary of the backend. It validates
// uploads and repository URLs synchronously, runs the slow work (routing,
// splitting, embedding, storing) in bounded background tasks, and exposes
// task inspection, similarity queries and store maintenance on top of the
// assembled pipeline.
package ingest
