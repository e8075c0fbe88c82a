// Package ai defines the AI service contracts used by the ingestion and
// search layers: text embedding and context-grounded question answering.
// The openai sub-package implements them against any OpenAI-compatible API;
// the mock sub-package provides deterministic test doubles.
package ai
