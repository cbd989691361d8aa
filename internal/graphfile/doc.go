// Package graphfile loads computation graphs described in HCL and evaluates
// them with the autodiff backend.
//
// A description declares leaves (variable and constant blocks), operations
// (op blocks, applied in file order) and the name of the root to
// differentiate:
//
//	root = "loss"
//
//	variable "x" {
//	  value = [1, 2, 3]
//	}
//
//	constant "c" {
//	  value  = [2, 2, 2]
//	  stream = "worker"
//	}
//
//	op "y" {
//	  kind   = "mul"
//	  inputs = ["x", "c"]
//	}
//
//	op "loss" {
//	  kind   = "sum"
//	  inputs = ["y"]
//	}
//
// A leaf value is a number or a flat list; an optional shape attribute
// reshapes the list, e.g. shape = [2, 3].
//
// Every distinct stream name gets its own autodiff.Backend, all sharing one
// tape, so descriptions can exercise cross-stream graphs.
package graphfile
