// Package registry holds every recorded execution in memory and fans out
// each saved snapshot to listeners subscribed to that execution.
//
// The Registry is the only state shared between concurrent runs. Stored
// values are deep copies; readers always receive their own copy.
package registry
