// Package gitrepo turns remote git repositories into processed document
// chunks. It shallow-clones into scratch space, selects text files while
// honoring ignore patterns, hands them to the batch runner and always
// removes the clone when done.
package gitrepo
