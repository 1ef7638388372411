// Package id provides identifier generation for X-Ray.
//
// Executions, steps and artifacts are identified by UUID v4 strings.
// Components accept a Generator so tests can substitute Sequential ids.
// All functions are safe for concurrent use.
package id
