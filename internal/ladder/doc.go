// Package ladder turns a validated mezzanine description into a deterministic
// encoding plan: which video renditions to produce, the audio variants per
// language, and the packaging formats to emit. The plan depends only on its
// inputs, so two runs over the same content always request the same job.
package ladder
