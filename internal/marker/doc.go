// Package marker holds review annotations as the engine sees them.
//
// Markers arrive from the annotation source as wholesale replacements: a
// [Set] binds an immutable list of markers to the snapshot their anchor
// lines were recorded against. A [Projection] carries a set forward to a
// newer snapshot and answers "which markers sit on line N".
package marker
