// Package validation provides common option validation helpers shared by
// the pacer controllers.
package validation
