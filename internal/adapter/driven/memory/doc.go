// Package memory provides in-process implementations of the secure store and
// document store ports. They back tests and the "memory" document store mode;
// nothing survives the process.
package memory
