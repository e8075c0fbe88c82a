// Package search answers similarity queries against the chunk store. A
// query is embedded once, matched against stored vectors and the ranked
// results cached until the store's generation counter moves.
package search
