// Package recognition defines the boundary between the meal processing
// pipeline and the external recognition service that turns a raw uploaded
// file into structured food data.
package recognition
