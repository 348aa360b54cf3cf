// Package encoder is the client for the managed transcoding service. The
// service owns the actual encode; this package only submits fully resolved
// job requests, waits on their completion, and classifies failures so the
// workflow can tell a retryable throttle from a rejected job from an
// ambiguous timeout.
package encoder
