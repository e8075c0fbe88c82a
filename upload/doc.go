// Package upload classifies incoming payloads before processing.
//
// The Router decides, per payload, whether content stays in memory or spills
// to a per-submission scratch directory, based on a fixed size threshold.
// The Validator applies filename, ignore-pattern, and size checks up front so
// no processing resource is committed to a payload that will be rejected.
package upload
